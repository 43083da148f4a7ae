package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrQuotaExhausted = errors.New("credits exhausted")
	ErrEmptyContent   = errors.New("no analysis returned")
	// ErrMalformedResponse marks a 2xx reply whose envelope could not be decoded.
	ErrMalformedResponse = errors.New("malformed model response")
)

const maxErrorBody = 512

// UpstreamError is a non-success reply from a model provider. Rate limiting
// and exhausted credits unwrap to ErrRateLimited and ErrQuotaExhausted.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

// NewUpstreamError truncates body so provider replies never flood the logs.
func NewUpstreamError(provider string, status int, body string) *UpstreamError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &UpstreamError{Provider: provider, StatusCode: status, Body: body}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s analysis failed: %d", e.Provider, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExhausted
	default:
		return nil
	}
}

// Temporary reports whether the provider signalled a server-side failure.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode >= 500
}
