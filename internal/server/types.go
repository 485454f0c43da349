package server

import "tartunlp-mcp/internal/tools"

// CallRequest is the body of POST /mcp/call.
type CallRequest struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallResponse carries one tool result. Failures are reported as a single
// text block with IsError set, as MCP clients expect.
type CallResponse struct {
	ID      string          `json:"id"`
	Content []tools.Content `json:"content"`
	IsError bool            `json:"isError,omitempty"`
}

func newCallResponse(id string, res tools.Result) CallResponse {
	if res.IsError() {
		return CallResponse{
			ID:      id,
			Content: []tools.Content{{Type: "text", Text: res.Message()}},
			IsError: true,
		}
	}
	return CallResponse{ID: id, Content: res.Content()}
}
