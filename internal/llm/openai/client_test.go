package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bonescan-backend/internal/llm"
)

func testInput() llm.ImageInput {
	return llm.ImageInput{
		Data:         []byte{0x89, 'P', 'N', 'G'},
		MIMEType:     "image/png",
		SystemPrompt: "system instructions",
		UserPrompt:   "look at this",
	}
}

func TestAnalyzeImageSendsMultimodalRequest(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"detected\":false}  "}}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	client, err := NewClient("secret", "", srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	text, err := client.AnalyzeImage(context.Background(), testInput())
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if text != `{"detected":false}` {
		t.Fatalf("unexpected text %q", text)
	}

	if captured["model"] != DefaultModel {
		t.Fatalf("model = %v", captured["model"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(messages))
	}
	user, _ := messages[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %v", user["content"])
	}
	image, _ := parts[1].(map[string]any)
	url, _ := image["image_url"].(map[string]any)
	if u, _ := url["url"].(string); !strings.HasPrefix(u, "data:image/png;base64,") {
		t.Fatalf("image not sent as data URI: %v", url)
	}
}

func TestAnalyzeImageMapsUpstreamStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		target error
	}{
		{name: "rate_limited", status: http.StatusTooManyRequests, target: llm.ErrRateLimited},
		{name: "quota", status: http.StatusPaymentRequired, target: llm.ErrQuotaExhausted},
		{name: "server_error", status: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			client, _ := NewClient("secret", "m", srv.URL, time.Second)
			_, err := client.AnalyzeImage(context.Background(), testInput())
			var upstream *llm.UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
			if upstream.StatusCode != tc.status || upstream.Provider != providerName {
				t.Fatalf("unexpected upstream error %+v", upstream)
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
		})
	}
}

func TestAnalyzeImageEmptyContent(t *testing.T) {
	for _, body := range []string{`{"choices":[]}`, `{"choices":[{"message":{"content":"   "}}]}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client, _ := NewClient("secret", "m", srv.URL, time.Second)
		_, err := client.AnalyzeImage(context.Background(), testInput())
		srv.Close()
		if !errors.Is(err, llm.ErrEmptyContent) {
			t.Fatalf("body %s: expected ErrEmptyContent, got %v", body, err)
		}
	}
}

func TestAnalyzeImageMalformedEnvelope(t *testing.T) {
	for _, body := range []string{"not json", "<html>bad gateway</html>", `{"choices":`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client, _ := NewClient("secret", "m", srv.URL, time.Second)
		_, err := client.AnalyzeImage(context.Background(), testInput())
		srv.Close()
		if !errors.Is(err, llm.ErrMalformedResponse) {
			t.Fatalf("body %q: expected ErrMalformedResponse, got %v", body, err)
		}
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(" ", "", "", 0); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestPromptHashDeterministic(t *testing.T) {
	in := testInput()
	if promptHash(in) != promptHash(in) {
		t.Fatalf("expected deterministic prompt hash")
	}
	alt := in
	alt.Data = []byte("other image")
	if promptHash(in) != promptHash(alt) {
		t.Fatalf("image bytes must not affect the prompt hash")
	}
	alt.UserPrompt = "different"
	if promptHash(in) == promptHash(alt) {
		t.Fatalf("expected prompt hash to change when instructions change")
	}
}
