// Package socket holds the live chat connection: a gorilla/websocket client
// that carries raw text frames and reports typed events.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrNotOpen is returned by Send when the connection is not open.
var ErrNotOpen = errors.New("socket is not open")

const closeWriteTimeout = time.Second

// Conn is one live chat connection.
type Conn interface {
	ID() uint64
	ChatID() string
	State() State
	// Ready reports whether Send would be attempted.
	Ready() bool
	// Start begins delivering events to the sink. Nothing is reported
	// before it is called.
	Start()
	Send(text string) error
	Close() error
}

// Dialer opens chat connections.
type Dialer interface {
	Dial(ctx context.Context, chatID string, sink Sink) (Conn, error)
}

// URLFunc maps a chat id to its WebSocket URL.
type URLFunc func(chatID string) string

// WSDialer dials chat sockets with gorilla/websocket. Cookies from jar go
// with the handshake so the backend can authenticate the session.
type WSDialer struct {
	dialer *websocket.Dialer
	urlFor URLFunc
	seq    atomic.Uint64
}

// NewDialer creates a dialer. A zero handshakeTimeout keeps gorilla's default.
func NewDialer(urlFor URLFunc, jar http.CookieJar, handshakeTimeout time.Duration) *WSDialer {
	d := *websocket.DefaultDialer
	d.Jar = jar
	if handshakeTimeout > 0 {
		d.HandshakeTimeout = handshakeTimeout
	}
	return &WSDialer{dialer: &d, urlFor: urlFor}
}

// Dial opens the socket for chatID. Events flow once the caller calls Start.
// There is no retry: a failed dial is returned to the caller as is.
func (d *WSDialer) Dial(ctx context.Context, chatID string, sink Sink) (Conn, error) {
	target := d.urlFor(chatID)

	ws, resp, err := d.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s failed with status %d: %w", target, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial %s failed: %w", target, err)
	}

	c := &wsConn{
		id:     d.seq.Add(1),
		chatID: chatID,
		ws:     ws,
		sink:   sink,
	}
	c.state.Store(int32(StateOpen))

	log.Info().Str("url", target).Uint64("conn", c.id).Msg("[socket] connected")
	return c, nil
}

type wsConn struct {
	id      uint64
	chatID  string
	ws      *websocket.Conn
	sink    Sink
	state   atomic.Int32
	writeMu sync.Mutex
	started sync.Once
}

func (c *wsConn) ID() uint64     { return c.id }
func (c *wsConn) ChatID() string { return c.chatID }
func (c *wsConn) State() State   { return State(c.state.Load()) }
func (c *wsConn) Ready() bool    { return c.State() == StateOpen }

func (c *wsConn) Send(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.Ready() {
		return ErrNotOpen
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// Close starts the closing handshake and releases the connection. The reader
// reports EventClosed once it notices. Calling Close twice is harmless.
func (c *wsConn) Close() error {
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return nil
	}

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); err != nil {
		log.Debug().Err(err).Uint64("conn", c.id).Msg("[socket] write close frame failed")
	}
	c.writeMu.Unlock()

	return c.ws.Close()
}

// Start reports EventOpened and runs the reader on its own goroutine, so a
// slow sink never blocks the caller.
func (c *wsConn) Start() {
	c.started.Do(func() {
		go func() {
			c.emit(Event{Kind: EventOpened})
			c.readLoop()
		}()
	})
}

func (c *wsConn) readLoop() {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			closing := c.State() == StateClosing
			c.state.Store(int32(StateClosed))
			_ = c.ws.Close()

			if !closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Uint64("conn", c.id).Msg("[socket] error")
				c.emit(Event{Kind: EventErrored, Err: err})
			}
			log.Info().Uint64("conn", c.id).Msg("[socket] closed")
			c.emit(Event{Kind: EventClosed})
			return
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.emit(Event{Kind: EventMessage, Text: string(data)})
	}
}

func (c *wsConn) emit(ev Event) {
	if c.sink == nil {
		return
	}
	ev.ConnID = c.id
	ev.ChatID = c.chatID
	c.sink(ev)
}
