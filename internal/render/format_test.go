package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/gst-chat/client/internal/model/chat"
)

func TestFormatBotMessageEscapesBeforeMarkup(t *testing.T) {
	got := FormatBotMessage("**a** & <b>")
	assert.Equal(t, "<strong>a</strong> &amp; &lt;b&gt;", got)
}

func TestFormatBotMessageNeverEmitsInputMarkup(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"**<img src=x onerror=alert(1)>**",
		"a & b > c < d",
		"<strong>fake</strong>",
		"• <b>item</b>\n• **two**",
	}

	for _, in := range inputs {
		out := FormatBotMessage(in)
		stripped := strings.NewReplacer(
			"<strong>", "", "</strong>", "",
			"<br>", "",
			`<span class="bullet">`, "", "</span>", "",
		).Replace(out)
		assert.NotContains(t, stripped, "<", "input %q", in)
		assert.NotContains(t, stripped, ">", "input %q", in)
	}
}

func TestFormatBotMessageNewlinesAndBullets(t *testing.T) {
	got := FormatBotMessage("Rates:\n• 5%\n• **18%** standard")
	want := `Rates:<br><span class="bullet">•</span> 5%<br><span class="bullet">•</span> <strong>18%</strong> standard`
	assert.Equal(t, want, got)
}

func TestFormatBotMessageBoldDoesNotSpanLines(t *testing.T) {
	got := FormatBotMessage("**open\nclose**")
	assert.Equal(t, "**open<br>close**", got)
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "09:30", FormatTime("", now))
	assert.Equal(t, "14:05", FormatTime("2024-03-01T14:05:59Z", now))
	assert.Equal(t, "14:05", FormatTime("2024-03-01T14:05:59.123456", now))
	assert.Equal(t, "--:--", FormatTime("yesterday", now))

	plusTwo := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "16:05", FormatTime("2024-03-01T14:05:00Z", now.In(plusTwo)))
}

func TestTerminalText(t *testing.T) {
	bold := func(s string) string { return "[" + s + "]" }
	got := TerminalText(FormatBotMessage("**GST** & <tax>\n• item"), bold)
	assert.Equal(t, "[GST] & <tax>\n• item", got)
}

func TestWriteTranscript(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTranscript(&buf, Transcript{
		Title: "Returns <2024>",
		Dark:  true,
		Now:   time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Messages: []chat.Message{
			{Sender: "user", Content: "<b>hi</b>", Timestamp: "2024-03-01T09:00:00Z"},
			{Sender: "assistant", Content: "**Hello**", Timestamp: "2024-03-01T09:01:00Z"},
		},
	})
	require.NoError(t, err)

	page := buf.String()
	assert.Contains(t, page, `<body class="dark">`)
	assert.Contains(t, page, "Returns &lt;2024&gt;")
	assert.Contains(t, page, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, page, "<strong>Hello</strong>")
	assert.Contains(t, page, "GST AI • 09:01")
	assert.Contains(t, page, "You • 09:00")
}
