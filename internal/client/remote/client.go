// Package remote is the client side of the document server's wire
// protocol: JSON over HTTP plus the WebSocket push channel.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"doctrack/internal/domain/document"
	"doctrack/internal/domain/user"
)

const (
	headerRequestID = "Ax-Request-Id"
	headerRequestAt = "Ax-Request-At"

	defaultTimeout = 10 * time.Second
)

var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known status codes onto domain errors so callers can use
// errors.Is without caring where the failure came from.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return user.ErrAdminRequired
	case http.StatusNotFound:
		return document.ErrNotFound
	case http.StatusConflict:
		return user.ErrExists
	}
	return nil
}

type LoginResult struct {
	OK       bool      `json:"ok"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	Token    string    `json:"token"`
}

type RegisterResult struct {
	OK       bool      `json:"ok"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	CreatedAt int64     `json:"createdAt,omitempty"`
}

type Client struct {
	base  string
	http  *http.Client
	now   func() time.Time
	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultTimeout},
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.base }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out, false); err != nil {
		return err
	}
	if !out.OK {
		return errors.New("server reported not ok")
	}
	return nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]document.Document, error) {
	var out struct {
		Docs []document.Document `json:"docs"`
	}
	if err := c.do(ctx, http.MethodGet, "/documents", nil, &out, false); err != nil {
		return nil, err
	}
	if out.Docs == nil {
		out.Docs = []document.Document{}
	}
	return out.Docs, nil
}

// PushDocuments replaces the whole remote collection. The request carries a
// fresh request id so a retry of the same call can be replayed server side.
func (c *Client) PushDocuments(ctx context.Context, docs []document.Document) error {
	if docs == nil {
		docs = []document.Document{}
	}
	body := map[string]any{"docs": docs}
	return c.do(ctx, http.MethodPost, "/documents", body, nil, true)
}

func (c *Client) GetDocument(ctx context.Context, controlNumber string) (*document.Document, error) {
	var out struct {
		Doc *document.Document `json:"doc"`
	}
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(controlNumber), nil, &out, false); err != nil {
		return nil, err
	}
	return out.Doc, nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out, false); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) Register(ctx context.Context, username, password string, role user.Role) (RegisterResult, error) {
	var out RegisterResult
	body := map[string]string{"username": username, "password": password, "role": string(role)}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out, false); err != nil {
		return RegisterResult{}, err
	}
	return out, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, false)
	c.SetToken("")
	return err
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out, false); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) UpdateRole(ctx context.Context, username string, role user.Role) error {
	body := map[string]string{"role": string(role)}
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(username), body, nil, false)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(username), nil, nil, false)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, idempotent bool) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if idempotent {
		req.Header.Set(headerRequestID, uuid.NewString())
		req.Header.Set(headerRequestAt, strconv.FormatInt(c.now().UnixMilli(), 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(status)
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: status, Message: msg}
}
