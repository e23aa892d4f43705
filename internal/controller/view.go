// Package controller holds the page controllers of the client: login,
// registration and the chat view. Controllers own all state and talk to the
// outside world only through the interfaces declared here.
package controller

import (
	"context"

	"github.com/zhouzirui/gst-chat/client/internal/model/chat"
	"github.com/zhouzirui/gst-chat/client/internal/service/api"
)

// Page is a navigation target.
type Page int

const (
	PageLogin Page = iota + 1
	PageChat
)

func (p Page) String() string {
	switch p {
	case PageLogin:
		return "login"
	case PageChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Navigator switches pages.
type Navigator interface {
	Navigate(page Page)
}

// Alerter shows a blocking message.
type Alerter interface {
	Alert(message string)
}

// FormView is the error line of a form page.
type FormView interface {
	SetError(message string)
}

// Prompter asks the user for a value. ok is false when the prompt was
// cancelled.
type Prompter interface {
	Prompt(label, defaultValue string) (value string, ok bool)
}

// Profile is the header shown once the session is confirmed.
type Profile struct {
	Email  string
	Name   string
	Avatar string
}

// ChatView renders the chat page.
type ChatView interface {
	Alerter
	ShowProfile(p Profile)
	ShowChats(chats []chat.Chat, activeID string)
	ShowTitle(title string)
	ClearMessages()
	AppendMessage(msg chat.Message)
	ClearInput()
	SetTyping(on bool)
	ApplyTheme(dark bool)
}

// LoginAPI is the slice of the backend the login page uses.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) error
}

// RegisterAPI is the slice of the backend the register page uses.
type RegisterAPI interface {
	Register(ctx context.Context, reg api.Registration) error
}

// ChatAPI is the slice of the backend the chat page uses.
type ChatAPI interface {
	Me(ctx context.Context) (chat.Identity, error)
	ListChats(ctx context.Context) ([]chat.Chat, error)
	CreateChat(ctx context.Context, title string) (chat.Chat, error)
	Messages(ctx context.Context, chatID string) ([]chat.Message, error)
	Logout(ctx context.Context) error
}
