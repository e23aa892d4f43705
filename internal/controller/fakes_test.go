package controller

import (
	"context"
	"sync"

	"github.com/zhouzirui/gst-chat/client/internal/model/chat"
	"github.com/zhouzirui/gst-chat/client/internal/service/api"
	"github.com/zhouzirui/gst-chat/client/internal/service/socket"
)

type fakeChatAPI struct {
	mu sync.Mutex

	identity chat.Identity
	meErr    error

	chats        []chat.Chat
	listErr      error
	listCalls    int
	created      chat.Chat
	createErr    error
	createTitles []string

	history      map[string][]chat.Message
	messagesErr  error
	onMessages   func(chatID string)
	messageCalls []string
	logoutErr    error
	logoutCalls  int
}

func (f *fakeChatAPI) Me(context.Context) (chat.Identity, error) {
	return f.identity, f.meErr
}

func (f *fakeChatAPI) ListChats(context.Context) ([]chat.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.chats, f.listErr
}

func (f *fakeChatAPI) CreateChat(_ context.Context, title string) (chat.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTitles = append(f.createTitles, title)
	if f.createErr != nil {
		return chat.Chat{}, f.createErr
	}
	f.chats = append(f.chats, f.created)
	return f.created, nil
}

func (f *fakeChatAPI) Messages(_ context.Context, chatID string) ([]chat.Message, error) {
	f.mu.Lock()
	f.messageCalls = append(f.messageCalls, chatID)
	hook := f.onMessages
	f.onMessages = nil
	f.mu.Unlock()

	if hook != nil {
		hook(chatID)
	}
	return f.history[chatID], f.messagesErr
}

func (f *fakeChatAPI) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

type fakeConn struct {
	mu      sync.Mutex
	id      uint64
	chatID  string
	ready   bool
	closed  bool
	started bool
	sent    []string
}

func (c *fakeConn) ID() uint64     { return c.id }
func (c *fakeConn) ChatID() string { return c.chatID }

func (c *fakeConn) State() socket.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.ready:
		return socket.StateOpen
	case c.closed:
		return socket.StateClosed
	default:
		return socket.StateConnecting
	}
}

func (c *fakeConn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *fakeConn) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

func (c *fakeConn) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *fakeConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return socket.ErrNotOpen
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	c.closed = true
	return nil
}

func (c *fakeConn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu    sync.Mutex
	seq   uint64
	err   error
	conns []*fakeConn
	sinks map[uint64]socket.Sink
}

func (d *fakeDialer) Dial(_ context.Context, chatID string, sink socket.Sink) (socket.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.seq++
	conn := &fakeConn{id: d.seq, chatID: chatID, ready: true}
	d.conns = append(d.conns, conn)
	if d.sinks == nil {
		d.sinks = make(map[uint64]socket.Sink)
	}
	d.sinks[conn.id] = sink
	return conn, nil
}

func (d *fakeDialer) openConns() []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	var open []*fakeConn
	for _, c := range d.conns {
		if c.Ready() {
			open = append(open, c)
		}
	}
	return open
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) emit(conn *fakeConn, ev socket.Event) {
	d.mu.Lock()
	sink := d.sinks[conn.id]
	d.mu.Unlock()
	ev.ConnID = conn.id
	ev.ChatID = conn.chatID
	sink(ev)
}

type fakeChatView struct {
	mu sync.Mutex

	profile     Profile
	chats       []chat.Chat
	highlighted string
	title       string
	messages    []chat.Message
	clears      int
	inputClears int
	typing      bool
	dark        bool
	alerts      []string
}

func (v *fakeChatView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *fakeChatView) ShowProfile(p Profile) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.profile = p
}

func (v *fakeChatView) ShowChats(chats []chat.Chat, activeID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.chats = append([]chat.Chat(nil), chats...)
	v.highlighted = activeID
}

func (v *fakeChatView) ShowTitle(title string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.title = title
}

func (v *fakeChatView) ClearMessages() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = nil
	v.clears++
}

func (v *fakeChatView) AppendMessage(msg chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, msg)
}

func (v *fakeChatView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inputClears++
}

func (v *fakeChatView) SetTyping(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = on
}

func (v *fakeChatView) ApplyTheme(dark bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dark = dark
}

func (v *fakeChatView) Messages() []chat.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]chat.Message(nil), v.messages...)
}

func (v *fakeChatView) Typing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typing
}

type fakeNav struct {
	pages []Page
}

func (n *fakeNav) Navigate(page Page) { n.pages = append(n.pages, page) }

type fakePrompter struct {
	answer string
	ok     bool
	asked  []string
}

func (p *fakePrompter) Prompt(label, defaultValue string) (string, bool) {
	p.asked = append(p.asked, label+"|"+defaultValue)
	return p.answer, p.ok
}

type fakeTheme struct {
	dark    bool
	saveErr error
}

func (t *fakeTheme) Dark() bool { return t.dark }

func (t *fakeTheme) Toggle() (bool, error) {
	if t.saveErr != nil {
		return t.dark, t.saveErr
	}
	t.dark = !t.dark
	return t.dark, nil
}

type fakeForm struct {
	errors []string
	alerts []string
}

func (f *fakeForm) SetError(message string) { f.errors = append(f.errors, message) }
func (f *fakeForm) Alert(message string)    { f.alerts = append(f.alerts, message) }

func (f *fakeForm) lastError() string {
	if len(f.errors) == 0 {
		return ""
	}
	return f.errors[len(f.errors)-1]
}

type fakeLoginAPI struct {
	calls int
	err   error
	email string
}

func (f *fakeLoginAPI) Login(_ context.Context, email, _ string) error {
	f.calls++
	f.email = email
	return f.err
}

type fakeRegisterAPI struct {
	calls int
	err   error
	got   api.Registration
}

func (f *fakeRegisterAPI) Register(_ context.Context, reg api.Registration) error {
	f.calls++
	f.got = reg
	return f.err
}
