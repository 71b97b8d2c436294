package wayland

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/focuslog/focuslog/pkg/window"
)

// Probe asks the running wlroots compositor for its focused window.
type Probe struct {
	compositor string
}

// NewProbe picks the compositor from the session environment
func NewProbe() *Probe {
	return &Probe{compositor: detectCompositor()}
}

func detectCompositor() string {
	switch {
	case os.Getenv("SWAYSOCK") != "" && commandExists("swaymsg"):
		return "sway"
	case os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" && commandExists("hyprctl"):
		return "hyprland"
	default:
		return "unknown"
	}
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable reports whether a supported compositor was found
func (p *Probe) IsAvailable() bool {
	return p.compositor != "unknown"
}

// Name returns "wayland/<compositor>"
func (p *Probe) Name() string {
	return "wayland/" + p.compositor
}

// ActiveWindowTitle returns the focused window's title.
func (p *Probe) ActiveWindowTitle(ctx context.Context) (string, error) {
	switch p.compositor {
	case "sway":
		out, err := exec.CommandContext(ctx, "swaymsg", "-t", "get_tree", "-r").Output()
		if err != nil {
			return window.NoWindow, fmt.Errorf("failed to execute swaymsg: %w", err)
		}
		return parseSwayTree(out)
	case "hyprland":
		out, err := exec.CommandContext(ctx, "hyprctl", "activewindow", "-j").Output()
		if err != nil {
			return window.NoWindow, fmt.Errorf("failed to execute hyprctl: %w", err)
		}
		return parseHyprlandWindow(out)
	default:
		return window.NoWindow, window.ErrUnavailable
	}
}

// Close cleans up resources
func (p *Probe) Close() error {
	return nil
}

type swayNode struct {
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Focused       bool       `json:"focused"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func parseSwayTree(data []byte) (string, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return window.NoWindow, fmt.Errorf("failed to parse sway tree: %w", err)
	}
	if n := findFocused(&root); n != nil && (n.Type == "con" || n.Type == "floating_con") {
		return n.Name, nil
	}
	return window.NoWindow, nil
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := findFocused(&n.Nodes[i]); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := findFocused(&n.FloatingNodes[i]); f != nil {
			return f
		}
	}
	return nil
}

func parseHyprlandWindow(data []byte) (string, error) {
	var w struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return window.NoWindow, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}
	return w.Title, nil
}
