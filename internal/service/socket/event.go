package socket

import "fmt"

// EventKind enumerates what a chat socket can report.
type EventKind int

const (
	EventOpened EventKind = iota + 1
	EventClosed
	EventErrored
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventErrored:
		return "errored"
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to a Sink for every socket state change and every
// inbound text frame. ConnID tells events of successive connections apart.
type Event struct {
	Kind   EventKind
	ConnID uint64
	ChatID string
	Text   string
	Err    error
}

// Sink receives events. It is called from the connection's reader goroutine.
type Sink func(Event)

// State mirrors the ready states of a browser WebSocket.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
