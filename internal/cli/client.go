// Package cli implements the interactive chat loop against a running server.
package cli

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNotLoggedIn is returned when a chat call is made before Login.
var ErrNotLoggedIn = errors.New("not logged in")

// Client talks to the REST API on behalf of one user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
	Data    json.RawMessage   `json:"data"`
}

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Login exchanges credentials for an access token kept on the client.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	body := map[string]string{"usernameOrEmail": identifier, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return errors.New("login response carried no access token")
	}
	c.token = out.AccessToken
	return nil
}

// SendMessage sends one chat message and returns the agent's reply.
func (c *Client) SendMessage(ctx context.Context, message string) (string, error) {
	if c.token == "" {
		return "", ErrNotLoggedIn
	}
	var out struct {
		Response string `json:"response"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/chat/message", map[string]string{"message": message}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Reset discards the server-side chat session.
func (c *Client) Reset(ctx context.Context) (string, error) {
	if c.token == "" {
		return "", ErrNotLoggedIn
	}
	return c.do(ctx, http.MethodPost, "/api/chat/reset", nil, nil)
}

// do performs a request and decodes the envelope's data into out. It returns the envelope message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		return "", &APIError{Status: resp.StatusCode, Message: errorMessage(env)}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Message, nil
}

func errorMessage(env envelope) string {
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	if len(env.Errors) == 0 {
		return msg
	}
	parts := make([]string, 0, len(env.Errors))
	for field, problem := range env.Errors {
		parts = append(parts, field+" "+problem)
	}
	return msg + ": " + strings.Join(parts, "; ")
}
