package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agentfleet/afm/internal/dash"
	"github.com/agentfleet/afm/internal/grouping"
	"github.com/agentfleet/afm/internal/registry"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the fleet, grouped by project",
	Long: `Print a one-shot snapshot of the fleet: every registered agent,
grouped by working directory, most recently updated first.

Examples:
  afm agents
  afm agents --json | jq '.agents[].id'`,
	RunE: runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.Flags().BoolVar(&jsonFlag, "json", false, "machine-readable output")
}

// agentsOutput is the --json schema.
type agentsOutput struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Agents      []registry.Agent `json:"agents"`
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	agents, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return err
	}

	if jsonFlag {
		out := agentsOutput{GeneratedAt: time.Now(), Count: len(agents), Agents: agents}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	// Plain rows for pipes, styled rows for terminals.
	if !isatty.IsTerminal(os.Stdout.Fd()) || termenv.EnvColorProfile() == termenv.Ascii {
		printPlain(agents)
		return nil
	}

	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	printStyled(agents, width)
	return nil
}

func printPlain(agents []registry.Agent) {
	now := time.Now()
	for _, g := range grouping.GroupAgents(agents) {
		fmt.Printf("%s/%s\n", g.Key.TopLevel, g.Key.Project)
		for _, a := range g.Agents {
			fmt.Printf("  %-18s %-10s %-14s %s\n",
				dash.Sanitize(a.ID), a.Status, dash.Sanitize(a.Phase),
				dash.RelativeTime(a.LastUpdated, now))
		}
	}
}

func printStyled(agents []registry.Agent, width int) {
	now := time.Now()
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for _, g := range grouping.GroupAgents(agents) {
		fmt.Println(dash.GroupHeader(g, true))
		for _, a := range g.Agents {
			fmt.Println(dash.AgentRow(a, now, false))
			fmt.Println(dim.Render("      " + dash.TruncateDisplay(dash.Sanitize(a.WorkingDir), width-6)))
		}
	}
}
