//go:build !windows

package win32

import (
	"context"

	"github.com/focuslog/focuslog/pkg/window"
)

// Probe is a stub outside Windows.
type Probe struct{}

// NewProbe always fails outside Windows.
func NewProbe() (*Probe, error) {
	return nil, window.ErrUnavailable
}

func (p *Probe) Name() string {
	return "win32"
}

func (p *Probe) ActiveWindowTitle(ctx context.Context) (string, error) {
	return window.NoWindow, window.ErrUnavailable
}

func (p *Probe) Close() error {
	return nil
}
