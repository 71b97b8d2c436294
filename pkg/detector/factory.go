package detector

import (
	"fmt"
	"os"
	"runtime"

	"github.com/focuslog/focuslog/pkg/integrations/wayland"
	"github.com/focuslog/focuslog/pkg/integrations/win32"
	"github.com/focuslog/focuslog/pkg/integrations/x11"
	"github.com/focuslog/focuslog/pkg/integrations/xdotool"
	"github.com/focuslog/focuslog/pkg/window"
)

// New returns the first probe that works in the current session.
func New() (window.Probe, error) {
	if runtime.GOOS == "windows" {
		p, err := win32.NewProbe()
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	switch DetectDisplayServer() {
	case "wayland":
		if p := wayland.NewProbe(); p.IsAvailable() {
			return p, nil
		}
		// XWayland still exposes the X11 focus for X clients
		if os.Getenv("DISPLAY") != "" {
			return newX11()
		}
	case "x11":
		return newX11()
	}

	return nil, fmt.Errorf("no supported display server found (XDG_SESSION_TYPE=%q)", os.Getenv("XDG_SESSION_TYPE"))
}

func newX11() (window.Probe, error) {
	p, err := x11.NewProbe()
	if err == nil {
		return p, nil
	}
	if xd := xdotool.NewProbe(); xd.IsAvailable() {
		return xd, nil
	}
	return nil, fmt.Errorf("x11 probe unavailable and xdotool not installed: %w", err)
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
