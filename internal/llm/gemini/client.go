package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bonescan-backend/internal/llm"
	"bonescan-backend/internal/shared/telemetry"
)

const (
	DefaultModel = "gemini-2.5-pro"
	providerName = "gemini"
)

// Client implements llm.VisionClient with the Gemini SDK.
type Client struct {
	apiKey string
	model  string
}

// NewClient constructs a Gemini client. An empty model uses DefaultModel.
func NewClient(apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("LLM_API_KEY is required for the gemini provider")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{apiKey: apiKey, model: model}, nil
}

// AnalyzeImage sends one scan and returns the first text part of the reply.
func (c *Client) AnalyzeImage(ctx context.Context, input llm.ImageInput) (string, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{Temperature: ptrFloat32(0)}
	if strings.TrimSpace(input.SystemPrompt) != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(input.SystemPrompt)}}
	}

	mime := input.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	resp, err := m.GenerateContent(ctx,
		genai.Text(input.UserPrompt),
		&genai.Blob{MIMEType: mime, Data: input.Data},
	)
	if err != nil {
		mapped := mapError(err)
		telemetry.Error("llm upstream error", map[string]any{
			"provider": providerName,
			"model":    c.model,
			"error":    mapped.Error(),
		})
		return "", mapped
	}

	fields := map[string]any{"provider": providerName, "model": c.model}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm response", fields)

	text := strings.TrimSpace(firstText(resp))
	if text == "" {
		return "", llm.ErrEmptyContent
	}
	return text, nil
}

// mapError turns SDK failures into llm.UpstreamError so callers can tell rate
// limiting and quota problems apart from everything else.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		body := apiErr.Body
		if body == "" {
			body = apiErr.Message
		}
		return llm.NewUpstreamError(providerName, apiErr.Code, body)
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		return llm.NewUpstreamError(providerName, httpStatusFor(st.Code()), st.Message())
	}
	return err
}

func httpStatusFor(code codes.Code) int {
	switch code {
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

var _ llm.VisionClient = (*Client)(nil)
