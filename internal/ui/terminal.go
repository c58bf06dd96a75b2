package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor applies the NO_COLOR and CLICOLOR conventions.
// NO_COLOR wins over CLICOLOR_FORCE; otherwise color follows the TTY.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether icons should be printed. IB_NO_EMOJI turns
// them off.
func ShouldUseEmoji() bool {
	if os.Getenv("IB_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// ConfigureColor sets the lipgloss color profile. Without color every style
// renders plain text.
func ConfigureColor(enabled bool) {
	if !enabled {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	if !IsTerminal() {
		// Forced color on a pipe; detection would report Ascii.
		lipgloss.SetColorProfile(termenv.ANSI256)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}
