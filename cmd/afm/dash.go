package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/agentfleet/afm/internal/config"
	"github.com/agentfleet/afm/internal/dash"
	"github.com/agentfleet/afm/internal/registry"
	"github.com/agentfleet/afm/internal/session"
	"github.com/agentfleet/afm/internal/tmux"
	"github.com/agentfleet/afm/internal/util"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Interactive fleet dashboard",
	Long: `Run the interactive dashboard: agents grouped by project, with
cursor navigation, filters, message sending, and on-demand context
scraping.

Examples:
  # Dashboard over the attached tmux session
  afm dash

  # Explicit session and a faster poll
  afm dash --session fleet --refresh 500ms`,
	RunE: runDash,
}

var (
	dashSession string
	dashRefresh string
)

func init() {
	rootCmd.AddCommand(dashCmd)

	dashCmd.Flags().StringVarP(&dashSession, "session", "s", "", "tmux session hosting the fleet")
	dashCmd.Flags().StringVarP(&dashRefresh, "refresh", "r", "", "poll interval (e.g. 2s, 500ms)")
}

// loadConfig resolves config plus the shared flag overrides. All other
// code receives the result explicitly; nothing re-reads the file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if registryFlag != "" {
		cfg.RegistryPath = registryFlag
	}
	return cfg, nil
}

func runDash(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dashSession != "" {
		cfg.Session = dashSession
	}
	if dashRefresh != "" {
		d, err := util.ParseDuration(dashRefresh)
		if err != nil {
			return fmt.Errorf("invalid --refresh: %w", err)
		}
		cfg.RefreshIntervalMS = int(d.Milliseconds())
	}

	client := tmux.NewClient(cfg.Tmux.Remote)

	sessionName := cfg.Session
	if sessionName == "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CommandTimeout())
		sessionName = client.CurrentSession(ctx)
		cancel()
	}

	startedAt, err := session.NewClock("").EnsureStarted(sessionName)
	if err != nil {
		// A broken data dir should not keep the dashboard from running.
		fmt.Fprintf(os.Stderr, "warning: session clock: %v\n", err)
	}

	// File watching is best-effort; polling covers its absence.
	var changes <-chan struct{}
	if w, err := registry.Watch(cfg.RegistryPath); err == nil {
		defer w.Close()
		changes = w.Changes()
	}

	m := dash.New(cfg, client, sessionName, startedAt, changes)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
