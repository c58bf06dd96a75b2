// Package ui renders issueboard results for the terminal.
// Colors follow the Ayu palette with adaptive light/dark variants.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/issueboard/internal/types"
)

// Ayu theme color palette
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	// HeaderStyle is used for issue titles and table headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconPass = "✓"
	IconFail = "✗"
	IconOpen = "○"
	IconWork = "◐"
)

// Tree characters for the update history.
const (
	TreeChild  = "⎿ "
	TreeIndent = "  "
)

const SeparatorLight = "──────────────────────────────────────────"

// StatusStyle picks the style for an issue status.
func StatusStyle(status string) lipgloss.Style {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case types.StatusCompleted:
		return PassStyle
	case types.StatusClosed:
		return MutedStyle
	case types.StatusInProgress, types.StatusInProcess:
		return WarnStyle
	case types.OutcomeError:
		return FailStyle
	}
	return AccentStyle
}

// StatusIcon returns the glyph shown before a status.
func StatusIcon(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case types.StatusCompleted:
		return IconPass
	case types.StatusClosed, types.OutcomeError:
		return IconFail
	case types.StatusInProgress, types.StatusInProcess:
		return IconWork
	}
	return IconOpen
}

// PriorityStyle colors ranks 0-1 as failures and 2 as a warning.
func PriorityStyle(priority string) lipgloss.Style {
	switch {
	case strings.HasPrefix(priority, "0"), strings.HasPrefix(priority, "1"):
		return FailStyle
	case strings.HasPrefix(priority, "2"):
		return WarnStyle
	}
	return MutedStyle
}

// RenderStatus renders a status with its style, prefixed by its icon when
// icons is set.
func RenderStatus(status string, icons bool) string {
	text := status
	if icons {
		text = StatusIcon(status) + " " + status
	}
	return StatusStyle(status).Render(text)
}

// RenderPriority renders a priority with its style.
func RenderPriority(priority string) string {
	return PriorityStyle(priority).Render(priority)
}

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderAccent renders text with accent (blue) styling
func RenderAccent(s string) string {
	return AccentStyle.Render(s)
}

// RenderFail renders text with fail (red) styling
func RenderFail(s string) string {
	return FailStyle.Render(s)
}

// RenderPass renders text with pass (green) styling
func RenderPass(s string) string {
	return PassStyle.Render(s)
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}
