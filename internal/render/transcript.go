package render

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/zhouzirui/gst-chat/client/internal/model/chat"
)

// Transcript is the data behind an exported chat page.
type Transcript struct {
	Title    string
	Dark     bool
	Messages []chat.Message
	Now      time.Time
}

type transcriptRow struct {
	Class string
	Meta  string
	Body  template.HTML
}

// WriteTranscript writes a standalone HTML page for the transcript.
func WriteTranscript(w io.Writer, t Transcript) error {
	if t.Now.IsZero() {
		t.Now = time.Now()
	}

	rows := make([]transcriptRow, 0, len(t.Messages))
	for _, msg := range t.Messages {
		msg = msg.Normalized()
		row := transcriptRow{
			Class: "user-message",
			Meta:  msg.Sender.Label() + " • " + FormatTime(msg.Timestamp, t.Now),
		}
		if msg.Sender == chat.SenderBot {
			row.Class = "bot-message"
			row.Body = template.HTML(FormatBotMessage(msg.Content))
		} else {
			row.Body = template.HTML(template.HTMLEscapeString(msg.Content))
		}
		rows = append(rows, row)
	}

	data := struct {
		Title string
		Dark  bool
		Rows  []transcriptRow
	}{Title: t.Title, Dark: t.Dark, Rows: rows}

	if err := transcriptTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	return nil
}

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;background:#f5f6f8;color:#1f2328;margin:0;padding:24px}
body.dark{background:#0d1117;color:#e6edf3}
.message-row{display:flex;flex-direction:column;margin:10px 0;max-width:720px}
.user-message{align-items:flex-end;margin-left:auto}
.bot-message{align-items:flex-start}
.message-meta{font-size:12px;opacity:.6;margin-bottom:4px}
.bubble{padding:10px 14px;border-radius:12px;background:#fff;line-height:1.45;white-space:normal}
.user-message .bubble{background:#2f6feb;color:#fff}
body.dark .bot-message .bubble{background:#161b22}
.bullet{color:#2f6feb;font-weight:bold}
</style>
</head>
<body{{if .Dark}} class="dark"{{end}}>
<h1>{{.Title}}</h1>
<div id="chat-box">
{{range .Rows}}<div class="message-row {{.Class}}">
<div class="message-meta">{{.Meta}}</div>
<div class="bubble">{{.Body}}</div>
</div>
{{end}}</div>
</body>
</html>
`))
