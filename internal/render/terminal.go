package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strongPattern = regexp.MustCompile(`<strong>(.*?)</strong>`)
	stripPolicy   = bluemonday.StrictPolicy()
)

// TerminalText converts FormatBotMessage output into plain terminal text.
// Bold spans are passed through bold so the caller picks the styling.
func TerminalText(formatted string, bold func(string) string) string {
	if bold == nil {
		bold = func(s string) string { return s }
	}

	var b strings.Builder
	last := 0
	for _, loc := range strongPattern.FindAllStringSubmatchIndex(formatted, -1) {
		b.WriteString(plainText(formatted[last:loc[0]]))
		b.WriteString(bold(plainText(formatted[loc[2]:loc[3]])))
		last = loc[1]
	}
	b.WriteString(plainText(formatted[last:]))
	return b.String()
}

func plainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	fragment = strings.ReplaceAll(fragment, "<br>", "\n")
	return html.UnescapeString(stripPolicy.Sanitize(fragment))
}
