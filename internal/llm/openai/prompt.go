package openai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"bonescan-backend/internal/llm"
)

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// buildMessages pairs the system prompt with a user turn carrying the
// instruction text and the inlined image.
func buildMessages(input llm.ImageInput) []chatMessage {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(input.SystemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: input.SystemPrompt})
	}
	messages = append(messages, chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: input.UserPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: input.DataURI()}},
		},
	})
	return messages
}

// promptHash identifies the instructions sent, without the image bytes.
func promptHash(input llm.ImageInput) string {
	sum := sha256.Sum256([]byte("system: " + input.SystemPrompt + "\n\nuser: " + input.UserPrompt))
	return hex.EncodeToString(sum[:])
}
