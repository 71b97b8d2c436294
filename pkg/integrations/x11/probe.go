package x11

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/focuslog/focuslog/pkg/window"
)

const maxTitleLen = 1024 // in 32-bit units

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"WM_NAME",
	"UTF8_STRING",
}

// Probe reads the focused window title straight from the X server.
type Probe struct {
	mu    sync.Mutex
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewProbe connects to the display named by $DISPLAY.
func NewProbe() (*Probe, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	p := &Probe{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		p.atoms[name] = reply.Atom
	}

	return p, nil
}

// Name returns "x11"
func (p *Probe) Name() string {
	return "x11"
}

// ActiveWindowTitle returns the title of the active window, or window.NoWindow.
func (p *Probe) ActiveWindowTitle(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return window.NoWindow, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return window.NoWindow, window.ErrUnavailable
	}

	win := p.activeWindow()
	if win == 0 {
		return window.NoWindow, nil
	}
	return p.windowName(win), nil
}

// Close drops the X connection.
func (p *Probe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return nil
}

func (p *Probe) property(win xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(p.conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// activeWindow prefers the EWMH hint and falls back to the input focus,
// walking up to the top-level frame that carries the title.
func (p *Probe) activeWindow() xproto.Window {
	data, err := p.property(p.root, p.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err == nil && len(data) >= 4 {
		if win := xproto.Window(binary.LittleEndian.Uint32(data)); win != 0 && p.hasName(win) {
			return win
		}
	}

	focus, err := xproto.GetInputFocus(p.conn).Reply()
	if err != nil || focus.Focus == 0 || focus.Focus == p.root {
		return 0
	}

	win := focus.Focus
	for !p.hasName(win) {
		tree, err := xproto.QueryTree(p.conn, win).Reply()
		if err != nil || tree.Parent == p.root || tree.Parent == 0 {
			return win
		}
		win = tree.Parent
	}
	return win
}

func (p *Probe) hasName(win xproto.Window) bool {
	if data, _ := p.property(win, p.atoms["_NET_WM_NAME"], p.atoms["UTF8_STRING"], 1); len(data) > 0 {
		return true
	}
	data, _ := p.property(win, p.atoms["WM_NAME"], xproto.AtomString, 1)
	return len(data) > 0
}

func (p *Probe) windowName(win xproto.Window) string {
	if data, err := p.property(win, p.atoms["_NET_WM_NAME"], p.atoms["UTF8_STRING"], maxTitleLen); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	if data, err := p.property(win, p.atoms["WM_NAME"], xproto.AtomString, maxTitleLen); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return window.NoWindow
}
