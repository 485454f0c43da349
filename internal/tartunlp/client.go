// Package tartunlp provides a minimal client for the TartuNLP translation API.
package tartunlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public TartuNLP translation endpoint.
const DefaultBaseURL = "https://api.tartunlp.ai/translation/v2"

// DefaultTimeout applies when the caller does not supply an HTTP client.
const DefaultTimeout = 5 * time.Second

const languagesHint = "Please check TartuNLP API documentation for current language pairs"

// BackendError reports a failed call to the translation backend.
// StatusCode is zero when the request never produced an HTTP response.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tartunlp: status %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("tartunlp: %s: %v", e.Message, e.Err)
	}
	return "tartunlp: " + e.Message
}

func (e *BackendError) Unwrap() error { return e.Err }

// Request is one translation job built from tool arguments.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
	Model      string
}

type translatePayload struct {
	Text   string `json:"text"`
	Src    string `json:"src"`
	Tgt    string `json:"tgt"`
	Domain string `json:"domain,omitempty"`
}

// Client is a minimal HTTP client for the TartuNLP API.
// Its fields are set once by New and never changed, so it is safe for concurrent use.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	log     *slog.Logger
}

// New returns a new client. If httpClient is nil, a default with DefaultTimeout is used.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient, log: logger}
}

// Translate posts the request to the backend and returns its JSON body unchanged.
func (c *Client) Translate(ctx context.Context, r Request) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPost, translatePayload{
		Text:   r.Text,
		Src:    r.SourceLang,
		Tgt:    r.TargetLang,
		Domain: r.Model,
	})
	if err != nil {
		c.log.Error("translation request failed", slog.Any("error", err))
		return nil, err
	}
	return body, nil
}

// DetectLanguage posts only the text and returns the backend's JSON body unchanged.
func (c *Client) DetectLanguage(ctx context.Context, text string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodPost, map[string]string{"text": text})
	if err != nil {
		c.log.Error("language detection failed", slog.Any("error", err))
		return nil, err
	}
	return body, nil
}

// SupportedLanguages fetches the backend configuration. Failures are not returned;
// the caller gets a fallback object with "error" and "message" keys instead.
func (c *Client) SupportedLanguages(ctx context.Context) any {
	body, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		c.log.Error("failed to get supported languages", slog.Any("error", err))
		return map[string]string{
			"error":   "Could not fetch supported languages: " + err.Error(),
			"message": languagesHint,
		}
	}
	return body
}

// do performs a single request against the base URL. There are no retries.
func (c *Client) do(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("tartunlp: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL, reader)
	if err != nil {
		return nil, fmt.Errorf("tartunlp: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &BackendError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Message: statusMessage(resp.Status, body)}
	}
	if !json.Valid(body) {
		return nil, &BackendError{Message: "response is not valid JSON"}
	}
	return json.RawMessage(body), nil
}

func statusMessage(status string, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return status
	}
	return status + ": " + msg
}
