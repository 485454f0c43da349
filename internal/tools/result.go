package tools

import (
	"bytes"
	"encoding/json"
)

// Content is an MCP content block. Only text blocks are produced.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the outcome of one tool call: either success content or a failure message.
type Result struct {
	content []Content
	failure string
	failed  bool
}

// Success builds a successful result carrying a single text block.
func Success(text string) Result {
	return Result{content: []Content{{Type: "text", Text: text}}}
}

// Failure builds a failed result.
func Failure(message string) Result {
	return Result{failure: message, failed: true}
}

// IsError reports whether the call failed.
func (r Result) IsError() bool { return r.failed }

// Message returns the failure message, empty on success.
func (r Result) Message() string { return r.failure }

// Content returns the success content blocks, nil on failure.
func (r Result) Content() []Content { return r.content }

// Text returns the success text, or the failure message.
func (r Result) Text() string {
	if r.failed {
		return r.failure
	}
	var buf bytes.Buffer
	for _, c := range r.content {
		buf.WriteString(c.Text)
	}
	return buf.String()
}

// encodePayload renders a handler payload as two-space indented JSON.
// HTML characters and non-ASCII text are written as-is.
func encodePayload(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
