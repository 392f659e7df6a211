package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dashboard_builder/generator"
)

// Transport issues one generation request.
type Transport interface {
	Generate(ctx context.Context, req generator.GenerationRequest) (generator.Module, error)
}

// TransportError is a failed request as the user sees it: either the fetch
// itself failed or the server answered with a non-success status.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPClient talks to the dashboard server. No timeout is applied unless the
// caller's context or the supplied *http.Client carries one.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, client *http.Client) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, errors.New("server url is required")
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

type errorBody struct {
	Error string `json:"error"`
}

type sessionBody struct {
	SessionID string `json:"session_id"`
}

// NewSession asks the server for a fresh conversation handle.
func (c *HTTPClient) NewSession(ctx context.Context) (string, error) {
	var out sessionBody
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", &TransportError{Message: "server returned no session id"}
	}
	return out.SessionID, nil
}

// Generate posts req to /api/generate-module. The returned module is checked
// against the same schema the server uses before it is handed back.
func (c *HTTPClient) Generate(ctx context.Context, req generator.GenerationRequest) (generator.Module, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return generator.Module{}, err
	}
	var payload any
	if err := c.do(ctx, http.MethodPost, "/api/generate-module", body, &payload); err != nil {
		return generator.Module{}, err
	}
	mod, err := generator.ValidateModule(payload)
	if err != nil {
		return generator.Module{}, &TransportError{Status: http.StatusOK, Message: "server returned an invalid module", Err: err}
	}
	return mod, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return &TransportError{Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		msg := eb.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &TransportError{Status: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
