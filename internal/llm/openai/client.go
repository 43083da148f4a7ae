package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bonescan-backend/internal/llm"
	"bonescan-backend/internal/shared/telemetry"
)

const (
	// DefaultURL is the hosted gateway speaking the chat completions protocol.
	DefaultURL   = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultModel = "google/gemini-2.5-pro"

	providerName = "gateway"
)

// Client implements llm.VisionClient against any OpenAI-compatible chat
// completions endpoint.
type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// NewClient constructs a gateway client. Empty model and url fall back to the
// defaults; a non-positive timeout means 120s.
func NewClient(apiKey, model, url string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required for the gateway provider")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *chatResponseUsage `json:"usage,omitempty"`
}

type chatResponseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AnalyzeImage sends one scan and returns the raw assistant text.
func (c *Client) AnalyzeImage(ctx context.Context, input llm.ImageInput) (string, error) {
	temp := float32(0)
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    buildMessages(input),
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("gateway request timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		telemetry.Error("llm upstream error", map[string]any{
			"provider":   providerName,
			"status":     resp.StatusCode,
			"model":      c.model,
			"request_id": telemetry.RequestID(ctx),
		})
		return "", llm.NewUpstreamError(providerName, resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gateway response parse: %v: %w", err, llm.ErrMalformedResponse)
	}
	logUsage(telemetry.RequestID(ctx), c.model, promptHash(input), parsed.Usage)

	if len(parsed.Choices) == 0 {
		return "", llm.ErrEmptyContent
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyContent
	}
	return content, nil
}

func logUsage(requestID, model, hash string, usage *chatResponseUsage) {
	fields := map[string]any{
		"request_id":  requestID,
		"provider":    providerName,
		"model":       model,
		"prompt_hash": hash,
	}
	if usage != nil {
		fields["prompt_tokens"] = usage.PromptTokens
		fields["completion_tokens"] = usage.CompletionTokens
		fields["total_tokens"] = usage.TotalTokens
	}
	telemetry.Info("llm response", fields)
}

var _ llm.VisionClient = (*Client)(nil)
