package ui

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateSimple(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"Login fails", 20, "Login fails"},
		{"Login fails", 11, "Login fails"},
		{"Login fails on Safari", 10, "Login f..."},
		{"Login fails", 3, "..."},
		{"", 10, ""},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateSimple(tt.input, tt.maxLen), "TruncateSimple(%q, %d)", tt.input, tt.maxLen)
	}
}

func TestTruncateLines(t *testing.T) {
	short := "step 1\nstep 2\nstep 3"
	assert.Equal(t, short, TruncateLines(short, 10, 2))

	lines := make([]string, 20)
	for i := range lines {
		lines[i] = "step " + strconv.Itoa(i+1)
	}
	got := TruncateLines(strings.Join(lines, "\n"), 15, 5)
	assert.True(t, strings.HasPrefix(got, "step 1\n"))
	assert.True(t, strings.HasSuffix(got, "\nstep 20"))
	assert.Contains(t, got, "10 lines hidden")
	assert.NotContains(t, got, "step 6\n")

	assert.Equal(t, "a\nb\n...", TruncateLines("a\nb\nc\nd\ne", 2, 5))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "hello world", WrapText("hello world", 80, ""))
	assert.Equal(t, 3, strings.Count(WrapText("the quick brown fox jumps over the lazy dog", 20, ""), "\n")+1)
	assert.Equal(t, "line 1\nline 2", WrapText("line 1\nline 2", 80, ""))
}

func TestWrapTextIndentsContinuations(t *testing.T) {
	assert.Equal(t, "one two\n> three\n> four", WrapText("one two three four", 9, "> "))
}
