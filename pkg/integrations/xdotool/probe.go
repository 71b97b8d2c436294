package xdotool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/focuslog/focuslog/pkg/window"
)

// Probe shells out to xdotool; used when the X socket is not directly reachable
// (e.g. XWayland sessions with restricted auth).
type Probe struct {
	hasXdotool bool
}

// NewProbe creates a new xdotool probe
func NewProbe() *Probe {
	return &Probe{hasXdotool: commandExists("xdotool")}
}

// commandExists checks if a command is available in PATH
func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable reports whether xdotool is installed
func (p *Probe) IsAvailable() bool {
	return p.hasXdotool
}

// Name returns "xdotool"
func (p *Probe) Name() string {
	return "xdotool"
}

// ActiveWindowTitle runs `xdotool getactivewindow getwindowname`.
func (p *Probe) ActiveWindowTitle(ctx context.Context) (string, error) {
	if !p.hasXdotool {
		return window.NoWindow, window.ErrUnavailable
	}

	out, err := exec.CommandContext(ctx, "xdotool", "getactivewindow", "getwindowname").Output()
	if err != nil {
		// xdotool exits 1 when no window has focus
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return window.NoWindow, nil
		}
		return window.NoWindow, fmt.Errorf("failed to get active window name: %w", err)
	}

	return parseWindowName(out), nil
}

// Close cleans up resources
func (p *Probe) Close() error {
	return nil
}

func parseWindowName(out []byte) string {
	return strings.TrimRight(string(out), "\r\n")
}
