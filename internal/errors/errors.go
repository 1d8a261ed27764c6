// Package errors defines the claim validation failures reported to faucet users.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/faucet-intake/internal/types"
)

// Kind identifies which validation rule rejected a claim
type Kind string

const (
	// KindInvalidURL means the post URL is not an http(s) URL with a path
	KindInvalidURL Kind = "INVALID_URL"
	// KindUnparsablePostID means the post id segment is not decimal digits
	KindUnparsablePostID Kind = "UNPARSABLE_POST_ID"
	// KindNoAddressFound means the post text holds no address-shaped substring
	KindNoAddressFound Kind = "NO_ADDRESS_FOUND"
	// KindInvalidAddress means the address is not a well-formed account address
	KindInvalidAddress Kind = "INVALID_ADDRESS"
	// KindNoMention means the post does not reference the project handle
	KindNoMention Kind = "NO_MENTION"
	// KindRateLimited means the cool-down window has not elapsed
	KindRateLimited Kind = "RATE_LIMITED"
	// KindPostFetchFailed means the social read API returned an error
	KindPostFetchFailed Kind = "POST_FETCH_FAILED"

	// KindRecordLookupFailed means the record store could not be read
	KindRecordLookupFailed Kind = "RECORD_LOOKUP_FAILED"
	// KindEnqueueFailed means the disbursement queue rejected the request
	KindEnqueueFailed Kind = "ENQUEUE_FAILED"
	// KindRecordWriteFailed means the request was enqueued but the claim time was not stored
	KindRecordWriteFailed Kind = "RECORD_WRITE_FAILED"
)

// ClaimError is a terminal failure of a single claim invocation.
// Every kind is reported to the caller as a bad request.
type ClaimError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *ClaimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Bad Request: %s (caused by: %v)", e.Message, e.Cause)
	}
	return "Bad Request: " + e.Message
}

// Unwrap returns the underlying cause
func (e *ClaimError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ClaimError of the same kind,
// so callers can write errors.Is(err, &ClaimError{Kind: KindNoMention}).
func (e *ClaimError) Is(target error) bool {
	t, ok := target.(*ClaimError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// StatusCode is the HTTP status for the error. All claim failures share one class.
func (e *ClaimError) StatusCode() int {
	return http.StatusBadRequest
}

// ToServiceError converts to the API error body
func (e *ClaimError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    string(e.Kind),
		Message: e.Message,
		Details: e.Details,
	}
}

// KindOf returns the kind of a claim error, or "" if err is not one
func KindOf(err error) Kind {
	var claimErr *ClaimError
	if stderrors.As(err, &claimErr) {
		return claimErr.Kind
	}
	return ""
}

// IsKind reports whether err is a claim error of the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Tweet URL errors

// NewInvalidURLError creates an invalid URL error
func NewInvalidURLError(rawURL string) *ClaimError {
	return &ClaimError{
		Kind:    KindInvalidURL,
		Message: fmt.Sprintf("url %s not valid.", rawURL),
		Details: map[string]interface{}{
			"url": rawURL,
		},
	}
}

// NewUnparsablePostIDError creates an unparsable post id error
func NewUnparsablePostIDError(rawURL, segment string) *ClaimError {
	return &ClaimError{
		Kind:    KindUnparsablePostID,
		Message: fmt.Sprintf("could not parse tweet id from %s", rawURL),
		Details: map[string]interface{}{
			"url":     rawURL,
			"segment": segment,
		},
	}
}

// Address errors

// NewNoAddressFoundError creates an error for post text without an address
func NewNoAddressFoundError() *ClaimError {
	return &ClaimError{
		Kind:    KindNoAddressFound,
		Message: "Tweet should include valid Ethereum address",
	}
}

// NewInvalidAddressError creates an invalid address error
func NewInvalidAddressError(address string) *ClaimError {
	return &ClaimError{
		Kind:    KindInvalidAddress,
		Message: fmt.Sprintf("Not a valid Ethereum address: %s", address),
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// Policy errors

// NewNoMentionError creates an error for posts that skip the project handle
func NewNoMentionError(handle string) *ClaimError {
	return &ClaimError{
		Kind:    KindNoMention,
		Message: fmt.Sprintf("Tweet should be mentioning @%s", handle),
		Details: map[string]interface{}{
			"handle": handle,
		},
	}
}

// NewRateLimitedError creates a cool-down error. nextClaimAt is RFC3339.
func NewRateLimitedError(address, nextClaimAt string) *ClaimError {
	return &ClaimError{
		Kind:    KindRateLimited,
		Message: "not enough time passed since the last claim",
		Details: map[string]interface{}{
			"address":     address,
			"nextClaimAt": nextClaimAt,
		},
	}
}

// Collaborator errors

// NewPostFetchError wraps a social read API failure, keeping its message
func NewPostFetchError(postID string, cause error) *ClaimError {
	return &ClaimError{
		Kind:    KindPostFetchFailed,
		Message: fmt.Sprintf("could not fetch tweet %s: %v", postID, cause),
		Details: map[string]interface{}{
			"postId": postID,
		},
		Cause: cause,
	}
}

// NewRecordLookupError wraps a record store read failure
func NewRecordLookupError(address string, cause error) *ClaimError {
	return &ClaimError{
		Kind:    KindRecordLookupFailed,
		Message: fmt.Sprintf("could not look up last claim for %s: %v", address, cause),
		Details: map[string]interface{}{
			"address": address,
		},
		Cause: cause,
	}
}

// NewEnqueueError wraps a queue failure
func NewEnqueueError(address string, cause error) *ClaimError {
	return &ClaimError{
		Kind:    KindEnqueueFailed,
		Message: fmt.Sprintf("could not queue claim for %s: %v", address, cause),
		Details: map[string]interface{}{
			"address": address,
		},
		Cause: cause,
	}
}

// NewRecordWriteError wraps a record store write failure
func NewRecordWriteError(address string, cause error) *ClaimError {
	return &ClaimError{
		Kind:    KindRecordWriteFailed,
		Message: fmt.Sprintf("claim for %s was queued but could not be recorded: %v", address, cause),
		Details: map[string]interface{}{
			"address": address,
		},
		Cause: cause,
	}
}
