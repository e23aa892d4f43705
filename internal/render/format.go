// Package render turns chat messages into display text: HTML for bot bubbles
// and exported transcripts, ANSI text for the terminal.
package render

import (
	"regexp"
	"strings"
	"time"
)

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// FormatBotMessage renders the small markdown subset bot replies use.
// Escaping always runs first so nothing from the text survives as markup.
func FormatBotMessage(text string) string {
	formatted := htmlEscaper.Replace(text)
	formatted = boldPattern.ReplaceAllString(formatted, "<strong>$1</strong>")
	formatted = strings.ReplaceAll(formatted, "\n", "<br>")
	formatted = strings.ReplaceAll(formatted, "• ", `<span class="bullet">•</span> `)
	return formatted
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// FormatTime renders a message timestamp as HH:MM in now's location. An empty
// timestamp means "now"; an unparseable one renders as a placeholder.
func FormatTime(ts string, now time.Time) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return now.Format("15:04")
	}

	for _, layout := range timestampLayouts {
		// Zone-less server timestamps are UTC.
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t.In(now.Location()).Format("15:04")
		}
	}
	return "--:--"
}
