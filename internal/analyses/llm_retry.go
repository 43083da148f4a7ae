package analyses

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"bonescan-backend/internal/llm"
	"bonescan-backend/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

type retryingLLM struct {
	base      llm.VisionClient
	requestID string
	delay     time.Duration
}

func newRetryingLLM(base llm.VisionClient, requestID string, delay time.Duration) llm.VisionClient {
	if base == nil {
		return nil
	}
	return retryingLLM{base: base, requestID: requestID, delay: delay}
}

// AnalyzeImage retries once on transient failures. Rate limiting and quota
// errors are returned as is.
func (r retryingLLM) AnalyzeImage(ctx context.Context, input llm.ImageInput) (string, error) {
	text, err := r.base.AnalyzeImage(ctx, input)
	if err == nil || !shouldRetryLLM(err) {
		return text, err
	}

	telemetry.Info("llm retry", map[string]any{
		"attempt":    1,
		"request_id": r.requestID,
		"error":      sanitizeError(err),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.AnalyzeImage(ctx, input)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrRateLimited) || errors.Is(err, llm.ErrQuotaExhausted) || errors.Is(err, llm.ErrMalformedResponse) || errors.Is(err, context.Canceled) {
		return false
	}
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Temporary()
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") {
		return true
	}

	return false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
