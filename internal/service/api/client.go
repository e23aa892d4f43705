// Package api is the HTTP client for the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gst-chat/client/internal/model/chat"
)

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Client talks to the chat backend. Session cookies live in the jar of the
// underlying http.Client.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCookieJar sets the cookie jar holding the session.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.http.Jar = jar }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns a copy of the backend base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar returns the cookie jar carrying the session.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// ChatSocketURL is the WebSocket endpoint for chatID, using wss when the
// backend is served over https.
func (c *Client) ChatSocketURL(chatID string) string {
	u := c.BaseURL()
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/ws/chat/" + url.PathEscape(chatID)
	u.RawQuery = ""
	return u.String()
}

// Me returns the identity behind the current session.
func (c *Client) Me(ctx context.Context) (chat.Identity, error) {
	var identity chat.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &identity); err != nil {
		return chat.Identity{}, err
	}
	return identity, nil
}

// ListChats returns the user's chats. A body that is not a JSON array
// yields ErrUnexpectedBody.
func (c *Client) ListChats(ctx context.Context) ([]chat.Chat, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/chats/", nil, nil, &raw); err != nil {
		return nil, err
	}
	var chats []chat.Chat
	if err := decodeArray(raw, &chats); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// CreateChat creates a chat with the given title.
func (c *Client) CreateChat(ctx context.Context, title string) (chat.Chat, error) {
	query := url.Values{"title": {title}}
	var created chat.Chat
	if err := c.do(ctx, http.MethodPost, "/chats/", query, nil, &created); err != nil {
		return chat.Chat{}, err
	}
	if created.ID == "" {
		return chat.Chat{}, fmt.Errorf("create chat: %w: missing _id", ErrUnexpectedBody)
	}
	return created, nil
}

// Messages returns the stored history of chatID in server order.
func (c *Client) Messages(ctx context.Context, chatID string) ([]chat.Message, error) {
	var raw json.RawMessage
	path := "/chats/" + url.PathEscape(chatID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	var messages []chat.Message
	if err := decodeArray(raw, &messages); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return messages, nil
}

// Login posts credentials as query parameters; the session cookie lands in
// the jar on success.
func (c *Client) Login(ctx context.Context, email, password string) error {
	query := url.Values{"email": {email}, "password": {password}}
	return c.do(ctx, http.MethodPost, "/login", query, nil, nil)
}

// Registration is the JSON body of the register endpoint.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "/register", nil, reg, nil)
}

// Logout ends the session server side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL()
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("[api] response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnexpectedBody, method, path, err)
	}
	return nil
}

func newStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return statusErr
	}

	// FastAPI-style backends send {"detail": "..."}; validation failures
	// carry a list there instead, which is not surfaced.
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &payload) != nil || len(payload.Detail) == 0 {
		return statusErr
	}
	var detail string
	if json.Unmarshal(payload.Detail, &detail) == nil {
		statusErr.Detail = detail
	}
	return statusErr
}

func decodeArray(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return ErrUnexpectedBody
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedBody, err)
	}
	return nil
}
