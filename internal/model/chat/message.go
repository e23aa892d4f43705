package chat

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// NormalizeSender maps anything that is not the user onto the bot.
func NormalizeSender(raw string) Sender {
	if raw == string(SenderUser) {
		return SenderUser
	}
	return SenderBot
}

// Label is the name shown above a message bubble.
func (s Sender) Label() string {
	if s == SenderUser {
		return "You"
	}
	return "GST AI"
}

// Message is a single turn as returned by the history endpoint or received
// over the chat socket. Timestamp is kept as the raw server string.
type Message struct {
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// NewMessage builds a message stamped with at.
func NewMessage(sender Sender, content string, at time.Time) Message {
	return Message{
		Sender:    sender,
		Content:   content,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// Normalized returns a copy with the sender folded to user or bot.
func (m Message) Normalized() Message {
	m.Sender = NormalizeSender(string(m.Sender))
	return m
}
