package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

const (
	claimPathDirect = "direct"
	claimPathTweet  = "tweet"
)

// handleDirectClaim handles POST /api/claims - Claim with an explicit address
func (s *Server) handleDirectClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string          `json:"address"`
		Color   json.RawMessage `json:"color,omitempty"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	result, err := s.claimService.HandleDirect(r.Context(), strings.TrimSpace(req.Address), parseColor(req.Color, 0))
	s.metrics.ObserveClaim(claimPathDirect, err)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleTweetClaim handles POST /api/claims/tweet - Claim by tweeting at the project
func (s *Server) handleTweetClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL     string          `json:"url"`
		ColorID json.RawMessage `json:"colorId,omitempty"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	result, err := s.claimService.HandleSocialMention(r.Context(), strings.TrimSpace(req.URL), parseColor(req.ColorID, s.config.DefaultColor))
	s.metrics.ObserveClaim(claimPathTweet, err)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// parseColor reads a color given as a JSON number or a numeric string.
// Anything that is not a non-negative integer yields fallback.
func parseColor(raw json.RawMessage, fallback uint64) uint64 {
	if len(raw) == 0 {
		return fallback
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback
	}

	var text string
	switch v := value.(type) {
	case string:
		text = strings.TrimSpace(v)
	case float64:
		// Keep the literal so large integers are not rounded
		text = strings.TrimSpace(string(raw))
	default:
		return fallback
	}

	color, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fallback
	}
	return color
}
