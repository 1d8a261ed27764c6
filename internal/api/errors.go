package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	faucetErrors "github.com/faucet-intake/internal/errors"
	"github.com/faucet-intake/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
// Unknown fields are ignored so older faucet frontends keep working.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	return decoder.Decode(v)
}

// Common error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// mapServiceError maps service errors to an HTTP status and error body.
// Every claim failure is a bad request carrying its kind and message.
func mapServiceError(err error) (int, *types.ServiceError) {
	var claimErr *faucetErrors.ClaimError
	if stderrors.As(err, &claimErr) {
		return claimErr.StatusCode(), claimErr.ToServiceError()
	}

	return http.StatusInternalServerError, &types.ServiceError{
		Code:    ErrCodeInternalError,
		Message: "An internal error occurred",
	}
}

// respondServiceError maps err and sends it
func respondServiceError(w http.ResponseWriter, err error) {
	statusCode, serviceErr := mapServiceError(err)
	respondError(w, statusCode, serviceErr.Code, serviceErr.Message, serviceErr.Details)
}
