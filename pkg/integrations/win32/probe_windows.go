//go:build windows

package win32

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/focuslog/focuslog/pkg/window"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procGetWindowTextLength = user32.NewProc("GetWindowTextLengthW")
	procGetWindowText       = user32.NewProc("GetWindowTextW")
)

// Probe reads the foreground window title through user32.
type Probe struct{}

// NewProbe loads user32 and returns a ready probe.
func NewProbe() (*Probe, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("failed to load user32.dll: %w", err)
	}
	return &Probe{}, nil
}

// Name returns "win32"
func (p *Probe) Name() string {
	return "win32"
}

// ActiveWindowTitle returns GetWindowText(GetForegroundWindow()).
func (p *Probe) ActiveWindowTitle(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return window.NoWindow, err
	}

	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return window.NoWindow, nil
	}

	n, _, _ := procGetWindowTextLength.Call(hwnd)
	if n == 0 {
		return window.NoWindow, nil
	}

	buf := make([]uint16, n+1)
	procGetWindowText.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf), nil
}

// Close cleans up resources
func (p *Probe) Close() error {
	return nil
}
