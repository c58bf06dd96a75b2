package ui

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default truncation settings for event details in `ib read`.
const (
	DefaultMaxLines     = 15
	DefaultContextLines = 5
)

// TruncateLines truncates text to maxLines, keeping contextLines from the
// beginning and end around a marker that counts the hidden lines.
func TruncateLines(text string, maxLines, contextLines int) string {
	if text == "" {
		return text
	}

	lines := strings.Split(text, "\n")
	total := len(lines)
	if total <= maxLines {
		return text
	}

	if contextLines < 1 {
		contextLines = DefaultContextLines
	}
	if maxLines < contextLines*2+1 {
		return strings.Join(lines[:maxLines], "\n") + "\n..."
	}

	hidden := total - 2*contextLines
	var b strings.Builder
	b.WriteString(strings.Join(lines[:contextLines], "\n"))
	b.WriteString("\n")
	b.WriteString(RenderMuted("... (" + strconv.Itoa(hidden) + " lines hidden, use --full to see all) ..."))
	b.WriteString("\n")
	b.WriteString(strings.Join(lines[total-contextLines:], "\n"))
	return b.String()
}

// TruncateSimple performs simple end truncation with "..." suffix.
// UTF-8 safe.
func TruncateSimple(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(text)
	return string(runes[:maxLen-3]) + "..."
}

// WrapText wraps text at word boundaries to fit within maxWidth, keeping
// existing line breaks. Each continuation line is prefixed with indent.
func WrapText(text string, maxWidth int, indent string) string {
	if maxWidth <= 0 {
		maxWidth = 80
	}
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\n" + indent)
		}
		b.WriteString(wrapLine(line, maxWidth, indent))
	}
	return b.String()
}

func wrapLine(line string, maxWidth int, indent string) string {
	if utf8.RuneCountInString(line) <= maxWidth {
		return line
	}

	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(line) {
		wl := utf8.RuneCountInString(word)
		switch {
		case n == 0:
			b.WriteString(word)
			n = wl
		case n+1+wl <= maxWidth:
			b.WriteString(" " + word)
			n += 1 + wl
		default:
			b.WriteString("\n" + indent + word)
			n = wl
		}
	}
	return b.String()
}
