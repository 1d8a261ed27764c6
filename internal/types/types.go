// Package types provides common type definitions for the faucet intake service.
package types

import "time"

// ClaimRequest is an approved request for test-network funds.
// It is the payload handed to the disbursement queue.
type ClaimRequest struct {
	Address string `json:"address"`
	Color   uint64 `json:"color"` // Token class selector, 0 is the native token
}

// ClaimRecord holds the last successful claim for an address
type ClaimRecord struct {
	Address       string    `json:"address"`
	LastClaimedAt time.Time `json:"lastClaimedAt"`
}

// SocialPost is a tweet fetched from the social read API
type SocialPost struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ParsedMention is what the tweet parser derives from a post body
type ParsedMention struct {
	Address        string `json:"address"`
	MentionsTarget bool   `json:"mentionsTarget"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
