package tmux

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Capture line budgets. Signal extraction needs enough scrollback to
// catch a question above an options list; quick liveness checks do not.
const (
	// LinesStatusScan is for cheap liveness checks.
	LinesStatusScan = 20
	// LinesSignalScan is for context-usage and question extraction.
	LinesSignalScan = 200
)

const fieldSep = "|===|"

// Window is one tmux window hosting an agent session.
type Window struct {
	// ID is the stable "@n" handle. Targets built from it survive
	// window renumbering; the positional Index does not.
	ID     string
	Index  int
	Name   string
	Active bool
}

// ListWindows returns the windows of a session in index order.
func (c *Client) ListWindows(ctx context.Context, session string) ([]Window, error) {
	format := fmt.Sprintf("#{window_id}%[1]s#{window_index}%[1]s#{window_name}%[1]s#{window_active}", fieldSep)
	output, err := c.Run(ctx, "list-windows", "-t", session, "-F", format)
	if err != nil {
		return nil, err
	}
	return parseWindows(output), nil
}

// parseWindows parses list-windows output. Malformed lines are
// skipped; a racing `kill-window` can truncate output mid-line.
func parseWindows(output string) []Window {
	if output == "" {
		return nil
	}
	var windows []Window
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Split(line, fieldSep)
		if len(parts) < 4 {
			continue
		}
		index, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		windows = append(windows, Window{
			ID:     parts[0],
			Index:  index,
			Name:   parts[2],
			Active: parts[3] == "1",
		})
	}
	return windows
}

// SendText sends literal text to a window without pressing Enter.
// Large payloads go in chunks to avoid ARG_MAX and tmux buffer limits.
func (c *Client) SendText(ctx context.Context, target, text string) error {
	const chunkSize = 4096

	for i := 0; i < len(text); i += chunkSize {
		end := i + chunkSize
		if end > len(text) {
			end = len(text)
		}
		if err := c.RunSilent(ctx, "send-keys", "-t", target, "-l", "--", text[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// SendEnter presses Enter in a window.
func (c *Client) SendEnter(ctx context.Context, target string) error {
	return c.RunSilent(ctx, "send-keys", "-t", target, "C-m")
}

// CapturePane returns the last `lines` lines of a window's visible
// text and scrollback.
func (c *Client) CapturePane(ctx context.Context, target string, lines int) (string, error) {
	return c.Run(ctx, "capture-pane", "-t", target, "-p", "-S", fmt.Sprintf("-%d", lines))
}

// CurrentSession returns the attached session name, or "" when not
// inside tmux.
func (c *Client) CurrentSession(ctx context.Context) string {
	if c.Remote == "" && !InTmux() {
		return ""
	}
	name, err := c.Run(ctx, "display-message", "-p", "#{session_name}")
	if err != nil {
		return ""
	}
	return name
}

// SessionExists checks if a session exists.
func (c *Client) SessionExists(ctx context.Context, name string) bool {
	return c.RunSilent(ctx, "has-session", "-t", name) == nil
}
