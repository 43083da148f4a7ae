package llm

import (
	"context"
	"encoding/base64"
	"errors"
)

// VisionClient abstracts hosted multimodal models that read a scan and reply
// with free-form text.
type VisionClient interface {
	AnalyzeImage(ctx context.Context, input ImageInput) (string, error)
}

// ImageInput captures a single scan plus the instructions sent with it.
type ImageInput struct {
	Data         []byte
	MIMEType     string
	SystemPrompt string
	UserPrompt   string
}

// DataURI inlines the image as a base64 data URI.
func (in ImageInput) DataURI() string {
	mime := in.MIMEType
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(in.Data)
}

const defaultImageMIME = "image/png"

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("vision model not configured")

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// AnalyzeImage returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeImage(ctx context.Context, input ImageInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}
