package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	server *httptest.Server
	store  *Store
}

func newHarness(t *testing.T, responder Responder) *harness {
	t.Helper()
	store := NewStore(WithHashCost(bcrypt.MinCost))
	h := New(store, NewTokens("test-secret", time.Hour), responder)
	server := httptest.NewServer(NewRouter(h))
	t.Cleanup(server.Close)
	return &harness{server: server, store: store}
}

func (h *harness) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func (h *harness) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (h *harness) signup(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, _ := h.do(t, c, http.MethodPost, "/register", map[string]string{
		"name": "Test", "email": email, "password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, c, http.MethodPost, "/login?"+url.Values{"email": {email}, "password": {"pw"}}.Encode(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client(t)
	body := map[string]string{"name": "A", "email": "a@x.io", "password": "pw"}

	resp, _ := h.do(t, c, http.MethodPost, "/register", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, decoded := h.do(t, c, http.MethodPost, "/register", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists", decoded["detail"])
}

func TestRegisterMissingFields(t *testing.T) {
	h := newHarness(t, nil)
	resp, decoded := h.do(t, h.client(t), http.MethodPost, "/register", map[string]string{"email": "a@x.io"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decoded["detail"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, nil)
	resp, decoded := h.do(t, h.client(t), http.MethodPost, "/login?email=nobody@x.io&password=bad", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", decoded["detail"])
}

func TestMeRequiresSession(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client(t)

	resp, decoded := h.do(t, c, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authenticated", decoded["detail"])

	h.signup(t, c, "me@x.io")
	resp, decoded = h.do(t, c, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "me@x.io", decoded["email"])
	assert.NotEmpty(t, decoded["user"])
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client(t)
	h.signup(t, c, "out@x.io")

	resp, _ := h.do(t, c, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, c, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatsLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	c := h.client(t)
	h.signup(t, c, "chats@x.io")

	resp, created := h.do(t, c, http.MethodPost, "/chats/?title=Filing", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Filing", created["title"])
	id, _ := created["_id"].(string)
	require.NotEmpty(t, id)

	_, untitled := h.do(t, c, http.MethodPost, "/chats/", nil)
	assert.Equal(t, DefaultChatTitle, untitled["title"])

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/chats/", nil)
	require.NoError(t, err)
	listResp, err := c.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()

	var chats []Chat
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&chats))
	require.Len(t, chats, 2)
	assert.Equal(t, id, chats[0].ID)
}

func TestMessagesOwnership(t *testing.T) {
	h := newHarness(t, nil)
	owner := h.client(t)
	h.signup(t, owner, "owner@x.io")
	_, created := h.do(t, owner, http.MethodPost, "/chats/?title=Mine", nil)
	id := created["_id"].(string)

	other := h.client(t)
	h.signup(t, other, "other@x.io")

	resp, decoded := h.do(t, other, http.MethodGet, "/chats/"+id+"/messages", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access denied", decoded["detail"])

	resp, decoded = h.do(t, owner, http.MethodGet, "/chats/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Chat not found", decoded["detail"])
}

func dialChat(t *testing.T, h *harness, c *http.Client, chatID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	dialer := *websocket.DefaultDialer
	dialer.Jar = c.Jar
	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/chat/" + chatID
	return dialer.Dial(wsURL, nil)
}

func TestWebSocketPersistsTurns(t *testing.T) {
	h := newHarness(t, EchoResponder{})
	c := h.client(t)
	h.signup(t, c, "ws@x.io")
	_, created := h.do(t, c, http.MethodPost, "/chats/?title=WS", nil)
	id := created["_id"].(string)

	conn, _, err := dialChat(t, h, c, id)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("What is ITC?")))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(reply), "**What is ITC?**")

	messages, err := h.store.LoadTranscript(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Sender)
	assert.Equal(t, "bot", messages[1].Sender)
	assert.Equal(t, string(reply), messages[1].Content)
}

type failingResponder struct{}

func (failingResponder) Reply(context.Context, []Message, string) (string, error) {
	return "", errors.New("model offline")
}

type blankResponder struct{}

func (blankResponder) Reply(context.Context, []Message, string) (string, error) { return "  ", nil }

func TestWebSocketFallbackReplies(t *testing.T) {
	cases := map[string]struct {
		responder Responder
		want      string
	}{
		"error": {failingResponder{}, failedReply},
		"empty": {blankResponder{}, emptyReplyText},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, tc.responder)
			c := h.client(t)
			h.signup(t, c, "fb@x.io")
			_, created := h.do(t, c, http.MethodPost, "/chats/", nil)

			conn, _, err := dialChat(t, h, c, created["_id"].(string))
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, reply, err := conn.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(reply))
		})
	}
}

func TestWebSocketRejectsAnonymous(t *testing.T) {
	h := newHarness(t, nil)
	_, resp, err := dialChat(t, h, h.client(t), "whatever")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
