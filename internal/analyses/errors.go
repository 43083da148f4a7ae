package analyses

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bonescan-backend/internal/llm"
)

// ErrNoImage is returned when a request carries no image bytes.
var ErrNoImage = errors.New("no image provided")

const (
	ErrorCodeInvalidInput   = "invalid_input"
	ErrorCodeRateLimited    = "rate_limited"
	ErrorCodeQuotaExhausted = "quota_exhausted"
	ErrorCodeUpstream       = "upstream_error"
	ErrorCodeParse          = "parse_error"
	ErrorCodeSchemaMismatch = "schema_mismatch"
	ErrorCodeUnavailable    = "model_unavailable"
	ErrorCodeInternal       = "internal_error"
)

// InputError reports a caller mistake: missing image, wrong type, too large.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return "invalid input: " + e.Reason
}

func (e *InputError) Unwrap() error { return e.Err }

// ParseError carries model text that could not be decoded into an object.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "unparseable model output: " + e.Err.Error()
	}
	return "unparseable model output"
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError names the first field of a decoded reply that is missing or
// misshaped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// HTTPError maps a pipeline error to a status, an error code and a message
// that is safe to show to the user.
func HTTPError(err error) (int, string, string) {
	var (
		inputErr      *InputError
		parseErr      *ParseError
		validationErr *ValidationError
		upstreamErr   *llm.UpstreamError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, ErrorCodeInvalidInput, upperFirst(inputErr.Reason)
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, ErrorCodeRateLimited, "Rate limit exceeded. Please try again shortly."
	case errors.Is(err, llm.ErrQuotaExhausted):
		return http.StatusPaymentRequired, ErrorCodeQuotaExhausted, "AI credits exhausted. Please add credits."
	case errors.Is(err, llm.ErrNotImplemented):
		return http.StatusServiceUnavailable, ErrorCodeUnavailable, "Analysis model is not configured"
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, ErrorCodeUpstream, upperFirst(upstreamErr.Error())
	case errors.As(err, &parseErr):
		if errors.Is(err, llm.ErrEmptyContent) {
			return http.StatusBadGateway, ErrorCodeParse, "No analysis returned"
		}
		return http.StatusBadGateway, ErrorCodeParse, "Failed to parse AI response"
	case errors.As(err, &validationErr):
		return http.StatusBadGateway, ErrorCodeSchemaMismatch, "AI response is missing or has an invalid " + validationErr.Field
	default:
		return http.StatusInternalServerError, ErrorCodeInternal, "Analysis failed"
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
