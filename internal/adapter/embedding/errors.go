package embedding

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrIncompleteResponse is returned when a provider answers with fewer or
// misplaced vectors than it was sent texts.
var ErrIncompleteResponse = errors.New("incomplete embedding response")

// APIError is a non-success answer from an embedding provider.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("embedding API returned status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("embedding API returned status %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the provider rejected the call for rate limiting.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// DimensionMismatchError indicates a vector of unexpected length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil {
		return &APIError{StatusCode: status, Type: payload.Error.Type, Message: payload.Error.Message}
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &APIError{StatusCode: status, Message: msg}
}
