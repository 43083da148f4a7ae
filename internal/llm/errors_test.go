package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUpstreamErrorUnwrap(t *testing.T) {
	cases := []struct {
		status    int
		rateLimit bool
		quota     bool
		temporary bool
	}{
		{status: 429, rateLimit: true},
		{status: 402, quota: true},
		{status: 500, temporary: true},
		{status: 400},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			err := fmt.Errorf("call: %w", NewUpstreamError("gateway", tc.status, "body"))
			if errors.Is(err, ErrRateLimited) != tc.rateLimit {
				t.Fatalf("rate limit mismatch for %d", tc.status)
			}
			if errors.Is(err, ErrQuotaExhausted) != tc.quota {
				t.Fatalf("quota mismatch for %d", tc.status)
			}
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected UpstreamError")
			}
			if upstream.Temporary() != tc.temporary {
				t.Fatalf("temporary mismatch for %d", tc.status)
			}
		})
	}
}

func TestNewUpstreamErrorTruncatesBody(t *testing.T) {
	err := NewUpstreamError("gateway", 500, strings.Repeat("x", 2000))
	if len(err.Body) != maxErrorBody {
		t.Fatalf("expected body truncated to %d, got %d", maxErrorBody, len(err.Body))
	}
}

func TestDataURI(t *testing.T) {
	in := ImageInput{Data: []byte("abc"), MIMEType: "image/jpeg"}
	if got := in.DataURI(); got != "data:image/jpeg;base64,YWJj" {
		t.Fatalf("DataURI() = %q", got)
	}
	if got := (ImageInput{Data: []byte("abc")}).DataURI(); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("expected png default, got %q", got)
	}
}
