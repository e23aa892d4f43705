// Package repl runs the interactive chat session on top of a
// ChatController and a terminal.
package repl

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/zhouzirui/gst-chat/client/internal/controller"
)

const helpText = `commands:
  /chats          reload and list chats
  /open <n|id>    open a chat by list position or id
  /new            create a chat
  /dark           toggle dark mode
  /logout         sign out
  /help           show this help
  /quit           leave
anything else is sent to the open chat`

// Console is the terminal surface the session needs.
type Console interface {
	ReadLine() (string, error)
	Println(args ...any)
	Alert(message string)
}

// Navigator records the last page a controller asked for.
type Navigator struct {
	mu      sync.Mutex
	page    controller.Page
	visited bool
}

// Navigate implements controller.Navigator.
func (n *Navigator) Navigate(page controller.Page) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.page = page
	n.visited = true
}

// Last returns the last requested page, if any.
func (n *Navigator) Last() (controller.Page, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.page, n.visited
}

// Session is one interactive chat run.
type Session struct {
	ctrl    *controller.ChatController
	console Console
	nav     *Navigator
}

// New creates a session. nav must be the Navigator the controller was built with.
func New(ctrl *controller.ChatController, console Console, nav *Navigator) *Session {
	return &Session{ctrl: ctrl, console: console, nav: nav}
}

// Run reads commands until /quit, end of input, a redirect to the login
// page or ctx cancellation. The controller is closed on return.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.ctrl.Run(ctx)
	defer s.ctrl.Close()

	s.console.Println("type /help for commands")

	lines := make(chan string)
	readErr := make(chan error, 1)
	next := make(chan struct{})

	// One line at a time: the reader waits for the handler to finish so a
	// handler that prompts (/new) owns the input meanwhile.
	go func() {
		for {
			line, err := s.console.ReadLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
			select {
			case <-next:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case line := <-lines:
			if s.Handle(ctx, line) {
				return nil
			}
			select {
			case next <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Handle executes one input line and reports whether the session is over.
func (s *Session) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if !s.ctrl.Send(line) {
			s.console.Alert("Not connected. Open a chat with /open first.")
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/chats":
		s.ctrl.LoadChats(ctx)
	case "/open":
		if arg == "" {
			s.console.Alert("usage: /open <n|id>")
			return false
		}
		item, ok := s.ctrl.FindChat(arg)
		if !ok {
			s.console.Alert("No chat matches " + arg)
			return false
		}
		s.ctrl.SelectChat(ctx, item.ID, item.DisplayTitle())
	case "/new":
		s.ctrl.CreateChat(ctx)
	case "/dark":
		if s.ctrl.ToggleDarkMode() {
			s.console.Println("dark mode on")
		} else {
			s.console.Println("dark mode off")
		}
	case "/logout":
		s.ctrl.Logout(ctx)
	case "/help":
		s.console.Println(helpText)
	case "/quit", "/exit":
		return true
	default:
		s.console.Alert("Unknown command " + cmd + ", try /help")
	}
	return s.redirectedToLogin()
}

func (s *Session) redirectedToLogin() bool {
	page, ok := s.nav.Last()
	return ok && page == controller.PageLogin
}
