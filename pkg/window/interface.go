package window

import (
	"context"
	"errors"
)

// NoWindow is the title reported when nothing has focus.
const NoWindow = ""

// ErrUnavailable is returned by probes that cannot run on the current system.
var ErrUnavailable = errors.New("window probe unavailable")

// Probe reports the title of the currently focused application window
type Probe interface {
	// ActiveWindowTitle returns the focused window's title, or NoWindow
	ActiveWindowTitle(ctx context.Context) (string, error)

	// Name identifies the probe backend ("x11", "xdotool", "wayland", "win32")
	Name() string

	// Close releases any connection held by the probe
	Close() error
}

// ProbeFunc adapts a plain function to the Probe interface.
type ProbeFunc func(ctx context.Context) (string, error)

func (f ProbeFunc) ActiveWindowTitle(ctx context.Context) (string, error) {
	return f(ctx)
}

func (f ProbeFunc) Name() string {
	return "func"
}

func (f ProbeFunc) Close() error {
	return nil
}

// Title calls p with its own deadline so a stalled backend cannot hang the caller.
// Any error collapses to NoWindow; the error is returned alongside for reporting.
func Title(ctx context.Context, p Probe) (string, error) {
	type result struct {
		title string
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		title, err := p.ActiveWindowTitle(ctx)
		ch <- result{title, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return NoWindow, r.err
		}
		return r.title, nil
	case <-ctx.Done():
		return NoWindow, ctx.Err()
	}
}
