package controller

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gst-chat/client/internal/model/chat"
	"github.com/zhouzirui/gst-chat/client/internal/service/api"
	"github.com/zhouzirui/gst-chat/client/internal/service/socket"
)

// ErrUnauthenticated is returned by Init when the session check failed and
// the user was sent to the login page.
var ErrUnauthenticated = errors.New("session is not authenticated")

const (
	defaultEmail       = "user@example.com"
	defaultDisplayName = "GST User"
	msgCreateFailed    = "Failed to create chat"
	msgLogoutNetwork   = "Network error. Could not log out."
	eventBuffer        = 64
)

// SelectionState tracks the active chat's pipeline.
type SelectionState int

const (
	StateIdle SelectionState = iota
	StateLoading
	StateConnected
	StateDisconnected
)

func (s SelectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ChatDeps bundles the collaborators of a ChatController.
type ChatDeps struct {
	API    ChatAPI
	Dialer socket.Dialer
	View   ChatView
	Nav    Navigator
	Prompt Prompter
	Theme  ThemeStore
	Now    func() time.Time
}

// ChatController owns the chat page: session check, chat list, the active
// chat's history and its single live socket. Its state is only changed
// through its methods; they may be called from any goroutine.
type ChatController struct {
	api    ChatAPI
	dialer socket.Dialer
	view   ChatView
	nav    Navigator
	prompt Prompter
	theme  *DarkMode
	now    func() time.Time

	events    chan socket.Event
	done      chan struct{}
	closeOnce sync.Once

	// connMu serializes dialing and teardown so at most one socket is current.
	connMu sync.Mutex

	mu           sync.Mutex
	state        SelectionState
	activeChatID string
	activeTitle  string
	chats        []chat.Chat
	conn         socket.Conn
	selection    uint64
}

// NewChatController wires the chat page.
func NewChatController(deps ChatDeps) *ChatController {
	c := &ChatController{
		api:    deps.API,
		dialer: deps.Dialer,
		view:   deps.View,
		nav:    deps.Nav,
		prompt: deps.Prompt,
		now:    deps.Now,
		events: make(chan socket.Event, eventBuffer),
		done:   make(chan struct{}),
	}
	if deps.Theme != nil {
		c.theme = NewDarkMode(deps.Theme, deps.View)
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Init applies the theme, checks the session and loads the chat list. It
// stops at the session check when the user is not signed in.
func (c *ChatController) Init(ctx context.Context) error {
	if c.theme != nil {
		c.theme.Init()
	}
	if !c.CheckAuth(ctx) {
		return ErrUnauthenticated
	}
	c.LoadChats(ctx)
	return nil
}

// CheckAuth confirms the session and renders the profile header. On any
// failure it navigates to the login page and returns false.
func (c *ChatController) CheckAuth(ctx context.Context) bool {
	identity, err := c.api.Me(ctx)
	if err != nil {
		log.Info().Err(err).Msg("[chat] session check failed, redirecting to login")
		c.nav.Navigate(PageLogin)
		return false
	}

	email := identity.Email
	if email == "" {
		email = defaultEmail
	}
	c.view.ShowProfile(Profile{
		Email:  email,
		Name:   defaultDisplayName,
		Avatar: avatarInitial(email),
	})
	return true
}

// LoadChats refreshes the chat list. Failures leave the list as it was.
func (c *ChatController) LoadChats(ctx context.Context) {
	chats, err := c.api.ListChats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[chat] load chats failed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = append([]chat.Chat(nil), chats...)
	c.view.ShowChats(c.chats, c.activeChatID)
}

// CreateChat asks for a title, creates the chat and selects it.
func (c *ChatController) CreateChat(ctx context.Context) {
	title := chat.DefaultNewChatTitle
	if c.prompt != nil {
		if answer, ok := c.prompt.Prompt("Chat title:", chat.DefaultNewChatTitle); ok && strings.TrimSpace(answer) != "" {
			title = strings.TrimSpace(answer)
		}
	}

	created, err := c.api.CreateChat(ctx, title)
	if err != nil {
		log.Error().Err(err).Str("title", title).Msg("[chat] create chat failed")
		c.view.Alert(msgCreateFailed)
		return
	}

	log.Info().Str("chat", created.ID).Msg("[chat] chat created")
	c.LoadChats(ctx)
	c.SelectChat(ctx, created.ID, created.DisplayTitle())
}

// SelectChat makes chatID the active chat: it renders the header, replaces
// the message view with the stored history and swaps the live socket.
// Results that arrive after a newer selection are dropped.
func (c *ChatController) SelectChat(ctx context.Context, chatID, title string) {
	c.mu.Lock()
	c.selection++
	seq := c.selection
	c.activeChatID = chatID
	c.activeTitle = title
	c.state = StateLoading
	// Detach the previous socket first so its late frames are dropped.
	prev := c.conn
	c.conn = nil
	c.view.ShowTitle(title)
	c.view.ShowChats(c.chats, chatID)
	c.view.ClearMessages()
	c.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			log.Warn().Err(err).Uint64("conn", prev.ID()).Msg("[chat] close previous socket failed")
		}
	}

	history, err := c.api.Messages(ctx, chatID)

	c.mu.Lock()
	if seq != c.selection {
		c.mu.Unlock()
		log.Debug().Str("chat", chatID).Msg("[chat] dropping stale history")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("chat", chatID).Msg("[chat] load messages failed")
	}
	for _, msg := range history {
		c.view.AppendMessage(msg.Normalized())
	}
	c.mu.Unlock()

	c.connect(ctx, seq, chatID)
}

func (c *ChatController) connect(ctx context.Context, seq uint64, chatID string) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	stale := seq != c.selection
	c.mu.Unlock()
	if stale {
		return
	}

	conn, err := c.dialer.Dial(ctx, chatID, c.deliver)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.selection {
		if conn != nil {
			_ = conn.Close()
		}
		log.Debug().Str("chat", chatID).Msg("[chat] dropping stale socket")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("chat", chatID).Msg("[chat] websocket connect failed")
		c.state = StateDisconnected
		return
	}
	c.conn = conn
	c.state = StateConnected
	// Events only flow once the socket is current, so Dispatch never sees
	// an id it cannot match.
	conn.Start()
}

// Send appends the message locally and sends it over the socket. It returns
// false without side effects when the text is blank or the socket is not open.
func (c *ChatController) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil || !conn.Ready() {
		c.mu.Unlock()
		return false
	}
	c.view.AppendMessage(chat.NewMessage(chat.SenderUser, text, c.now()))
	c.view.ClearInput()
	c.view.SetTyping(true)
	c.mu.Unlock()

	if err := conn.Send(text); err != nil {
		log.Error().Err(err).Uint64("conn", conn.ID()).Msg("[chat] send failed")
	}
	return true
}

// Dispatch handles one socket event. Events from connections other than the
// current one are ignored.
func (c *ChatController) Dispatch(ev socket.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || ev.ConnID != c.conn.ID() {
		log.Debug().Stringer("event", ev.Kind).Uint64("conn", ev.ConnID).Msg("[chat] ignoring event from stale socket")
		return
	}

	switch ev.Kind {
	case socket.EventOpened:
		log.Info().Str("chat", ev.ChatID).Msg("[chat] websocket connected")
	case socket.EventMessage:
		c.view.SetTyping(false)
		c.view.AppendMessage(chat.NewMessage(chat.SenderBot, ev.Text, c.now()))
	case socket.EventErrored:
		log.Error().Err(ev.Err).Str("chat", ev.ChatID).Msg("[chat] websocket error")
		c.state = StateDisconnected
	case socket.EventClosed:
		log.Info().Str("chat", ev.ChatID).Msg("[chat] websocket closed")
		c.state = StateDisconnected
	}
}

// Run dispatches socket events until ctx ends or the controller is closed.
func (c *ChatController) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev := <-c.events:
			c.Dispatch(ev)
		}
	}
}

func (c *ChatController) deliver(ev socket.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Logout ends the session and returns to the login page. A network failure
// keeps the user on the chat page.
func (c *ChatController) Logout(ctx context.Context) bool {
	err := c.api.Logout(ctx)
	if errors.Is(err, api.ErrNetwork) {
		log.Error().Err(err).Msg("[chat] logout failed")
		c.view.Alert(msgLogoutNetwork)
		return false
	}
	if err != nil {
		log.Warn().Err(err).Msg("[chat] logout returned an error status")
	}

	c.closeSocket()
	c.nav.Navigate(PageLogin)
	return true
}

// ToggleDarkMode flips the theme and returns the new setting.
func (c *ChatController) ToggleDarkMode() bool {
	if c.theme == nil {
		return false
	}
	return c.theme.Toggle()
}

// FindChat resolves a 1-based list position or a chat id.
func (c *ChatController) FindChat(ref string) (chat.Chat, bool) {
	ref = strings.TrimSpace(ref)
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(c.chats) {
		return c.chats[n-1], true
	}
	for _, item := range c.chats {
		if item.ID == ref {
			return item, true
		}
	}
	return chat.Chat{}, false
}

// ActiveChatID returns the selected chat, or "" when none is.
func (c *ChatController) ActiveChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeChatID
}

// ActiveTitle returns the selected chat's title.
func (c *ChatController) ActiveTitle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeTitle
}

// State returns the selection state.
func (c *ChatController) State() SelectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Chats returns a copy of the loaded chat list.
func (c *ChatController) Chats() []chat.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Chat(nil), c.chats...)
}

// Close drops the socket and stops Run.
func (c *ChatController) Close() {
	c.closeSocket()
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *ChatController) closeSocket() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	if conn != nil {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func avatarInitial(email string) string {
	r, _ := utf8.DecodeRuneInString(email)
	if r == utf8.RuneError {
		return "U"
	}
	return string(unicode.ToUpper(r))
}
