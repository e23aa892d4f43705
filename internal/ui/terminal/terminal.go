// Package terminal renders the client's pages on a text terminal.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/zhouzirui/gst-chat/client/internal/controller"
	"github.com/zhouzirui/gst-chat/client/internal/model/chat"
	"github.com/zhouzirui/gst-chat/client/internal/render"
)

type palette struct {
	user   *color.Color
	bot    *color.Color
	meta   *color.Color
	accent *color.Color
	errorf *color.Color
	bold   *color.Color
}

func newPalette(dark, enabled bool) palette {
	p := palette{
		user:   color.New(color.FgBlue),
		bot:    color.New(color.FgGreen),
		meta:   color.New(color.FgHiBlack),
		accent: color.New(color.FgBlue, color.Bold),
		errorf: color.New(color.FgRed),
		bold:   color.New(color.Bold),
	}
	if dark {
		p.user = color.New(color.FgHiCyan)
		p.bot = color.New(color.FgHiGreen)
		p.meta = color.New(color.FgWhite)
		p.accent = color.New(color.FgHiMagenta, color.Bold)
		p.errorf = color.New(color.FgHiRed)
	}
	for _, c := range []*color.Color{p.user, p.bot, p.meta, p.accent, p.errorf, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Terminal is the text front end. It implements the chat, login and
// register views plus the title prompt, and it is safe for concurrent use.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	in      *bufio.Reader
	now     func() time.Time
	colored bool
	dark    bool
	pal     palette
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithColor forces ANSI colors on or off.
func WithColor(enabled bool) Option {
	return func(t *Terminal) { t.colored = enabled }
}

// WithClock overrides the clock used for message times.
func WithClock(now func() time.Time) Option {
	return func(t *Terminal) { t.now = now }
}

// New creates a terminal writing to out and reading lines from in.
func New(out io.Writer, in io.Reader, opts ...Option) *Terminal {
	t := &Terminal{
		out:     out,
		in:      bufio.NewReader(in),
		now:     time.Now,
		colored: !color.NoColor,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.pal = newPalette(false, t.colored)
	return t
}

var _ controller.ChatView = (*Terminal)(nil)
var _ controller.RegisterView = (*Terminal)(nil)
var _ controller.Prompter = (*Terminal)(nil)

// ReadLine reads one line of input without its line ending.
func (t *Terminal) ReadLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompt implements controller.Prompter. EOF counts as cancel.
func (t *Terminal) Prompt(label, defaultValue string) (string, bool) {
	t.mu.Lock()
	fmt.Fprintf(t.out, "%s [%s] ", label, defaultValue)
	t.mu.Unlock()

	line, err := t.ReadLine()
	if err != nil {
		return "", false
	}
	return line, true
}

// line writes one line built from the current palette.
func (t *Terminal) line(build func(p palette) string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, build(t.pal))
}

// Println writes a plain line.
func (t *Terminal) Println(args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, args...)
}

// Alert implements controller.Alerter.
func (t *Terminal) Alert(message string) {
	t.line(func(p palette) string { return p.errorf.Sprint("! " + message) })
}

// SetError implements controller.FormView. An empty message clears nothing
// on a terminal, so it prints nothing.
func (t *Terminal) SetError(message string) {
	if message == "" {
		return
	}
	t.line(func(p palette) string { return p.errorf.Sprint("error: " + message) })
}

// ShowProfile implements controller.ChatView.
func (t *Terminal) ShowProfile(p controller.Profile) {
	t.line(func(pal palette) string {
		return fmt.Sprintf("%s %s <%s>", pal.accent.Sprintf("[%s]", p.Avatar), p.Name, p.Email)
	})
}

// ShowChats implements controller.ChatView.
func (t *Terminal) ShowChats(chats []chat.Chat, activeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(chats) == 0 {
		fmt.Fprintln(t.out, t.pal.meta.Sprint("no chats yet, /new creates one"))
		return
	}
	fmt.Fprintln(t.out, t.pal.meta.Sprint("chats:"))
	for i, item := range chats {
		line := fmt.Sprintf("%3d. %s", i+1, item.DisplayTitle())
		if item.ID == activeID {
			line = t.pal.accent.Sprint(line + "  *")
		}
		fmt.Fprintln(t.out, line)
	}
}

// ShowTitle implements controller.ChatView.
func (t *Terminal) ShowTitle(title string) {
	t.line(func(p palette) string { return "\n" + p.accent.Sprintf("== %s ==", title) })
}

// ClearMessages implements controller.ChatView. Scrollback cannot be
// cleared, so a rule marks where the new view starts.
func (t *Terminal) ClearMessages() {
	t.line(func(p palette) string { return p.meta.Sprint(strings.Repeat("-", 40)) })
}

// AppendMessage implements controller.ChatView.
func (t *Terminal) AppendMessage(msg chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg = msg.Normalized()
	meta := msg.Sender.Label() + " • " + render.FormatTime(msg.Timestamp, t.now())

	if msg.Sender == chat.SenderUser {
		fmt.Fprintln(t.out, t.pal.user.Sprint(meta))
		fmt.Fprintln(t.out, msg.Content)
		return
	}

	bold := t.pal.bold
	body := render.TerminalText(render.FormatBotMessage(msg.Content), func(s string) string {
		return bold.Sprint(s)
	})
	fmt.Fprintln(t.out, t.pal.bot.Sprint(meta))
	fmt.Fprintln(t.out, body)
}

// ClearInput implements controller.ChatView; the line was already consumed.
func (t *Terminal) ClearInput() {}

// SetTyping implements controller.ChatView.
func (t *Terminal) SetTyping(on bool) {
	if on {
		t.line(func(p palette) string { return p.meta.Sprint("GST AI is typing...") })
	}
}

// ApplyTheme implements controller.ChatView.
func (t *Terminal) ApplyTheme(dark bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dark = dark
	t.pal = newPalette(dark, t.colored)
}

// Dark reports the applied theme.
func (t *Terminal) Dark() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dark
}
