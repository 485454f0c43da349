package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"tartunlp-mcp/internal/metrics"
	"tartunlp-mcp/internal/tartunlp"
	"tartunlp-mcp/internal/tools"
)

func newBackend(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, backendURL string, reg *prometheus.Registry) *Server {
	t.Helper()
	d, err := tartunlp.NewDispatcher(tartunlp.New(backendURL, nil, nil), tools.WithObserver(metrics.NewRecorder(reg)))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}
	return New(d, nil, gatherer)
}

func postCall(t *testing.T, s *Server, body any) (*httptest.ResponseRecorder, CallResponse) {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	var resp CallResponse
	if rr.Code == http.StatusOK {
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
	}
	return rr, resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0", nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestListTools(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0", nil)
	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Tools) != 3 || resp.Tools[0].Name != tartunlp.ToolTranslateText {
		t.Fatalf("unexpected tools: %+v", resp.Tools)
	}
	if resp.Tools[0].InputSchema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", resp.Tools[0].InputSchema)
	}
}

func TestCallTranslate(t *testing.T) {
	backend := newBackend(t, http.StatusOK, `{"result": "Hello"}`)
	s := newTestServer(t, backend.URL, nil)

	rr, resp := postCall(t, s, map[string]any{
		"id":        "req-1",
		"name":      "translate_text",
		"arguments": map[string]any{"text": "Tere", "source_lang": "et", "target_lang": "en"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp.ID != "req-1" || resp.IsError {
		t.Fatalf("unexpected response: %+v", resp)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(resp.Content[0].Text), &got); err != nil {
		t.Fatalf("content is not json: %v", err)
	}
	if got["result"] != "Hello" {
		t.Fatalf("expected Hello, got %v", got)
	}
}

func TestCallFailures(t *testing.T) {
	backend := newBackend(t, http.StatusInternalServerError, `{}`)
	s := newTestServer(t, backend.URL, nil)

	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{"unknown tool", map[string]any{"name": "sam_search"}, "Unknown tool: sam_search"},
		{"missing argument", map[string]any{"name": "translate_text", "arguments": map[string]any{"text": "Tere"}}, "source_lang is required"},
		{"backend error", map[string]any{"name": "translate_text", "arguments": map[string]any{"text": "Tere", "source_lang": "et", "target_lang": "en"}}, "500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, resp := postCall(t, s, tc.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if !resp.IsError || len(resp.Content) != 1 {
				t.Fatalf("expected error result, got %+v", resp)
			}
			if !strings.Contains(resp.Content[0].Text, tc.want) {
				t.Fatalf("expected %q in %q", tc.want, resp.Content[0].Text)
			}
			if resp.ID == "" {
				t.Fatal("expected generated id")
			}
		})
	}
}

func TestCallInvalidJSON(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0", nil)
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCallClosedRequestWritesNothing(t *testing.T) {
	backend := newBackend(t, http.StatusOK, `{"result": "Hello"}`)
	s := newTestServer(t, backend.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	raw, _ := json.Marshal(map[string]any{"name": "get_supported_languages"})
	req := httptest.NewRequest(http.MethodPost, "/mcp/call", bytes.NewReader(raw)).WithContext(ctx)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Body.Len() != 0 {
		t.Fatalf("expected no body, got %q", rr.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	backend := newBackend(t, http.StatusOK, `{"result": "Hello"}`)
	reg := prometheus.NewRegistry()
	s := newTestServer(t, backend.URL, reg)

	postCall(t, s, map[string]any{"name": "get_supported_languages"})
	postCall(t, s, map[string]any{"name": "nope"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`tartunlp_mcp_tool_calls_total{outcome="success",tool="get_supported_languages"} 1`,
		`tartunlp_mcp_tool_calls_total{outcome="failure",tool="unknown"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
