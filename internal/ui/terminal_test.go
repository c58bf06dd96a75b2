package ui

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	ConfigureColor(false)
	os.Exit(m.Run())
}

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name            string
		noColor         string
		cliColor        string
		cliColorForce   string
		wantColor       bool
		skipTTYDepCheck bool
	}{
		{
			name:            "NO_COLOR disables color",
			noColor:         "1",
			wantColor:       false,
			skipTTYDepCheck: true,
		},
		{
			name:      "no variables follows the TTY",
			wantColor: false,
		},
		{
			name:            "CLICOLOR=0 disables color",
			cliColor:        "0",
			wantColor:       false,
			skipTTYDepCheck: true,
		},
		{
			name:            "CLICOLOR_FORCE enables color even in non-TTY",
			cliColorForce:   "1",
			wantColor:       true,
			skipTTYDepCheck: true,
		},
		{
			name:            "NO_COLOR takes precedence over CLICOLOR_FORCE",
			noColor:         "1",
			cliColorForce:   "1",
			wantColor:       false,
			skipTTYDepCheck: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "")
			os.Unsetenv("NO_COLOR")
			t.Setenv("CLICOLOR", tt.cliColor)
			t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			if tt.noColor != "" {
				t.Setenv("NO_COLOR", tt.noColor)
			}

			got := ShouldUseColor()
			if tt.skipTTYDepCheck && got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestShouldUseEmoji(t *testing.T) {
	t.Setenv("IB_NO_EMOJI", "1")
	if ShouldUseEmoji() {
		t.Error("IB_NO_EMOJI should disable icons")
	}
}

func TestShouldUsePager(t *testing.T) {
	if shouldUsePager(PagerOptions{NoPager: true}) {
		t.Error("NoPager should disable the pager")
	}
	t.Setenv("IB_NO_PAGER", "1")
	if shouldUsePager(PagerOptions{}) {
		t.Error("IB_NO_PAGER should disable the pager")
	}
}

func TestPagerCommand(t *testing.T) {
	t.Setenv("IB_PAGER", "")
	t.Setenv("PAGER", "")
	if got := pagerCommand(); got != "less" {
		t.Errorf("pagerCommand() = %q, want less", got)
	}
	t.Setenv("PAGER", "more")
	if got := pagerCommand(); got != "more" {
		t.Errorf("pagerCommand() = %q, want more", got)
	}
	t.Setenv("IB_PAGER", "bat -p")
	if got := pagerCommand(); got != "bat -p" {
		t.Errorf("pagerCommand() = %q, want IB_PAGER", got)
	}
}
