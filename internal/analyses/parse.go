package analyses

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// fencePattern matches the first fenced block; an optional tag such as "json"
// may follow the opening fence.
var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

// ParseModelOutput extracts the JSON object from a model reply. A fenced block
// wins over the surrounding prose; the first fence is used when several exist.
func ParseModelOutput(text string) (map[string]any, error) {
	body := extractFenced(text)
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &ParseError{Raw: text, Err: errors.New("empty content")}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, &ParseError{Raw: text, Err: err}
	}
	if out == nil {
		return nil, &ParseError{Raw: text, Err: errors.New("top-level value is not an object")}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Raw: text, Err: errors.New("trailing data after object")}
	}
	return out, nil
}

func extractFenced(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// rawSnippet bounds model text before it reaches the logs.
func rawSnippet(raw string) string {
	const maxLen = 300
	raw = strings.ReplaceAll(raw, "\n", " ")
	if len(raw) > maxLen {
		raw = raw[:maxLen]
	}
	return strings.ToValidUTF8(raw, "")
}
