package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allysonai/allyson/pkg/domain"
)

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Client is the Allyson API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics. Without it each
// request logs to slog.Default() as it is at request time.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client. A nil TokenSource sends unauthenticated requests.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSessionRequest is the payload for starting a new session.
type CreateSessionRequest struct {
	Task             string         `json:"task"`
	SessionVariables map[string]any `json:"sessionVariables"`
	SessionDetails   string         `json:"sessionDetails"`
	MaxSteps         int            `json:"maxSteps"`
}

// DefaultMaxSteps is the step budget given to sessions started from the client.
const DefaultMaxSteps = 100

// NewCreateSessionRequest builds the request the client sends for a free-text task.
func NewCreateSessionRequest(task string) CreateSessionRequest {
	return CreateSessionRequest{
		Task:             task,
		SessionVariables: map[string]any{},
		SessionDetails:   "",
		MaxSteps:         DefaultMaxSteps,
	}
}

// ListSessionsParams selects one page of the session listing.
type ListSessionsParams struct {
	Page   int
	Limit  int
	Status domain.StatusFilter
}

// GetMe returns the signed-in user's profile.
func (c *Client) GetMe(ctx context.Context) (*domain.Profile, error) {
	var resp struct {
		User domain.Profile `json:"user"`
	}
	if err := c.get(ctx, "/v1/me", &resp); err != nil {
		return nil, fmt.Errorf("client.GetMe: %w", err)
	}
	return &resp.User, nil
}

// CreateAccount registers the signed-in identity with the backend.
func (c *Client) CreateAccount(ctx context.Context) (*domain.Profile, error) {
	var resp struct {
		User domain.Profile `json:"user"`
	}
	if err := c.post(ctx, "/user/create", nil, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateAccount: %w", err)
	}
	return &resp.User, nil
}

// CreateSession starts a new session and returns its ID.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (string, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.post(ctx, "/v1/sessions/new", req, &resp); err != nil {
		return "", fmt.Errorf("client.CreateSession: %w", err)
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("client.CreateSession: response missing sessionId")
	}
	return resp.SessionID, nil
}

// ListSessions fetches one page of the caller's sessions.
func (c *Client) ListSessions(ctx context.Context, p ListSessionsParams) ([]domain.Session, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(p.Page))
	params.Set("limit", strconv.Itoa(p.Limit))
	params.Set("status", p.Status.QueryValue())
	params.Set("source", "client")

	var resp struct {
		Sessions []domain.Session `json:"sessions"`
	}
	if err := c.get(ctx, "/v1/sessions?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("client.ListSessions: %w", err)
	}
	return resp.Sessions, nil
}

// CheckCookies reports whether the backend holds cookies for host.
func (c *Client) CheckCookies(ctx context.Context, host string) (bool, error) {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.post(ctx, "/v1/cookies/check", map[string]string{"url": host}, &resp); err != nil {
		return false, fmt.Errorf("client.CheckCookies: %w", err)
	}
	return len(resp.Data) > 0 && string(resp.Data) != "null", nil
}

// SaveCookies stores a new cookie bundle.
func (c *Client) SaveCookies(ctx context.Context, bundle domain.CookieBundle) error {
	if err := c.doRequest(ctx, http.MethodPost, "/v1/cookies/save", bundle, nil); err != nil {
		return fmt.Errorf("client.SaveCookies: %w", err)
	}
	return nil
}

// UpdateCookies replaces the stored cookie bundle for a host.
func (c *Client) UpdateCookies(ctx context.Context, bundle domain.CookieBundle) error {
	if err := c.doRequest(ctx, http.MethodPut, "/v1/cookies/update", bundle, nil); err != nil {
		return fmt.Errorf("client.UpdateCookies: %w", err)
	}
	return nil
}

// DeleteCookies removes the stored cookie bundle for host.
func (c *Client) DeleteCookies(ctx context.Context, host string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/v1/cookies/delete", map[string]string{"url": host}, nil); err != nil {
		return fmt.Errorf("client.DeleteCookies: %w", err)
	}
	return nil
}

// Do issues a JSON request against the client's base URL. It is exported for
// callers that talk to auxiliary endpoints sharing the same conventions.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.doRequest(ctx, method, path, body, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log().Debug("api request failed", "request_id", requestID, "method", method, "path", path, "error", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.log().Debug("api request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Error != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
			}
			if apiErr.Message != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Message}
			}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
