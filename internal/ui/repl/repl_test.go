package repl

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/gst-chat/client/internal/controller"
	"github.com/zhouzirui/gst-chat/client/internal/fakeapi"
	"github.com/zhouzirui/gst-chat/client/internal/service/api"
	"github.com/zhouzirui/gst-chat/client/internal/service/prefs"
	"github.com/zhouzirui/gst-chat/client/internal/service/socket"
	"github.com/zhouzirui/gst-chat/client/internal/ui/terminal"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	client  *api.Client
	ctrl    *controller.ChatController
	session *Session
	nav     *Navigator
	theme   *prefs.Theme
	out     *syncBuffer
}

func newFixture(t *testing.T, input io.Reader) *fixture {
	t.Helper()
	ctx := context.Background()

	store := fakeapi.NewStore(fakeapi.WithHashCost(bcrypt.MinCost))
	srv := httptest.NewServer(fakeapi.NewRouter(fakeapi.New(store, fakeapi.NewTokens("k", time.Hour), fakeapi.EchoResponder{})))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL, api.WithTimeout(5*time.Second))
	require.NoError(t, err)
	require.NoError(t, client.Register(ctx, api.Registration{Name: "R", Email: "repl@x.io", Password: "pw"}))
	require.NoError(t, client.Login(ctx, "repl@x.io", "pw"))

	kv, err := prefs.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	theme := prefs.NewTheme(kv)

	out := &syncBuffer{}
	term := terminal.New(out, input, terminal.WithColor(false))
	nav := &Navigator{}
	ctrl := controller.NewChatController(controller.ChatDeps{
		API:    client,
		Dialer: socket.NewDialer(client.ChatSocketURL, client.Jar(), 5*time.Second),
		View:   term,
		Nav:    nav,
		Prompt: term,
		Theme:  theme,
	})
	require.NoError(t, ctrl.Init(ctx))

	return &fixture{
		client:  client,
		ctrl:    ctrl,
		session: New(ctrl, term, nav),
		nav:     nav,
		theme:   theme,
		out:     out,
	}
}

func TestHandleSendWithoutChatAlerts(t *testing.T) {
	f := newFixture(t, strings.NewReader(""))
	defer f.ctrl.Close()

	assert.False(t, f.session.Handle(context.Background(), "hello"))
	assert.Contains(t, f.out.String(), "! Not connected. Open a chat with /open first.")
}

func TestHandleOpenAndChat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, strings.NewReader(""))
	defer f.ctrl.Close()
	go f.ctrl.Run(ctx)

	created, err := f.client.CreateChat(ctx, "Rates")
	require.NoError(t, err)

	assert.False(t, f.session.Handle(ctx, "/chats"))
	assert.False(t, f.session.Handle(ctx, "/open 1"))
	require.Equal(t, created.ID, f.ctrl.ActiveChatID())
	require.Eventually(t, func() bool {
		return f.ctrl.State() == controller.StateConnected
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, f.session.Handle(ctx, "what is ITC"))
	require.Eventually(t, func() bool {
		return strings.Contains(f.out.String(), "You asked: what is ITC")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, f.out.String(), "== Rates ==")
	assert.Contains(t, f.out.String(), "GST AI is typing...")
}

func TestHandleUnknownAndMissingChat(t *testing.T) {
	f := newFixture(t, strings.NewReader(""))
	defer f.ctrl.Close()
	ctx := context.Background()

	assert.False(t, f.session.Handle(ctx, "/open"))
	assert.False(t, f.session.Handle(ctx, "/open 7"))
	assert.False(t, f.session.Handle(ctx, "/bogus"))

	out := f.out.String()
	assert.Contains(t, out, "! usage: /open <n|id>")
	assert.Contains(t, out, "! No chat matches 7")
	assert.Contains(t, out, "! Unknown command /bogus, try /help")
}

func TestHandleDarkToggles(t *testing.T) {
	f := newFixture(t, strings.NewReader(""))
	defer f.ctrl.Close()

	assert.False(t, f.session.Handle(context.Background(), "/dark"))
	assert.True(t, f.theme.Dark())
	assert.Contains(t, f.out.String(), "dark mode on")
}

func TestHandleLogoutEndsSession(t *testing.T) {
	f := newFixture(t, strings.NewReader(""))
	defer f.ctrl.Close()
	ctx := context.Background()

	assert.True(t, f.session.Handle(ctx, "/logout"))
	page, ok := f.nav.Last()
	require.True(t, ok)
	assert.Equal(t, controller.PageLogin, page)

	_, err := f.client.Me(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestRunCreatesChatThroughPrompt(t *testing.T) {
	f := newFixture(t, strings.NewReader("/new\nFiling dates\n/quit\nnever read\n"))

	done := make(chan error, 1)
	go func() { done <- f.session.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}

	chats, err := f.client.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "Filing dates", chats[0].Title)
	assert.Contains(t, f.out.String(), "type /help for commands")
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	f := newFixture(t, strings.NewReader("/help"))

	require.NoError(t, f.session.Run(context.Background()))
	assert.Contains(t, f.out.String(), "/open <n|id>")
}
