package advisor

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by New when no Gemini API key is set.
var ErrNotConfigured = errors.New("advisor: gemini api key is not configured")

// ErrRateLimit indicates Gemini answered 429.
type ErrRateLimit struct {
	Err error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("gemini rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates Gemini is down, unreachable or refused the call.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gemini unavailable: %v", e.Err)
	}
	return "gemini unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model did not return the requested JSON.
type ErrInvalidResponse struct {
	Content string
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid gemini response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }
