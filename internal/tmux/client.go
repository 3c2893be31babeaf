// Package tmux is the terminal bridge: every interaction with a live
// agent goes through its tmux window, either by sending keys or by
// capturing the visible pane text.
package tmux

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Client runs tmux commands, optionally on a remote host over ssh.
type Client struct {
	Remote string // "user@host" or empty for local
}

// NewClient creates a tmux client.
func NewClient(remote string) *Client {
	return &Client{Remote: remote}
}

// Run executes a tmux command with cancellation support and returns
// trimmed stdout.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Remote == "" {
		return runLocal(ctx, args...)
	}

	// OpenSSH transmits a single command string to the remote shell,
	// not an argv vector, so every argument must be quoted.
	remoteCmd := buildRemoteShellCommand("tmux", args...)
	return runSSH(ctx, "--", c.Remote, remoteCmd)
}

// RunSilent executes a tmux command, ignoring stdout.
func (c *Client) RunSilent(ctx context.Context, args ...string) error {
	_, err := c.Run(ctx, args...)
	return err
}

// ShellQuote returns a POSIX-shell-safe single-quoted string.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	// Close-quote, escape single quote, reopen: ' -> '\''.
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func buildRemoteShellCommand(command string, args ...string) string {
	parts := make([]string, 0, 1+len(args))
	parts = append(parts, command)
	for _, arg := range args {
		parts = append(parts, ShellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func runLocal(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("tmux %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

func runSSH(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "ssh", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("ssh %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsInstalled checks if tmux is available.
func (c *Client) IsInstalled() bool {
	if c.Remote == "" {
		_, err := exec.LookPath("tmux")
		return err == nil
	}
	return c.RunSilent(context.Background(), "-V") == nil
}

// InTmux returns true if currently inside a tmux session.
func InTmux() bool {
	return os.Getenv("TMUX") != ""
}
