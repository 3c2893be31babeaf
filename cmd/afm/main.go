package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "afm",
	Short: "Agent Fleet Monitor - observe and drive AI coding agents",
	Long: `AFM (Agent Fleet Monitor) watches a fleet of AI coding agents
running in tmux windows.

It allows you to:
  - Run an interactive dashboard over the whole fleet
  - List agents, grouped by project, as text or JSON
  - Send a message to a specific agent's window
  - Scrape one agent's pane for context usage and pending questions`,
}

var (
	configFlag   string
	registryFlag string
	jsonFlag     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&registryFlag, "registry", "", "Path to the agent registry JSON (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
