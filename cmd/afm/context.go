package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentfleet/afm/internal/signal"
	"github.com/agentfleet/afm/internal/tmux"
)

var contextCmd = &cobra.Command{
	Use:   "context AGENT_ID",
	Short: "Scrape one agent's window for live signals",
	Long: `Capture the agent's pane and print the extracted context usage
and pending question as JSON. A pane with no recognizable signals is
not an error; the fields are simply null or empty.

Example:
  afm context api-writer`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
}

// contextOutput is the scrape result schema.
type contextOutput struct {
	AgentID         string               `json:"agent_id"`
	Context         *signal.ContextUsage `json:"context"`
	PendingQuestion string               `json:"pending_question,omitempty"`
}

func runContext(cmd *cobra.Command, args []string) error {
	id := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	agent, err := findAgent(cfg.RegistryPath, id)
	if err != nil {
		return err
	}

	client := tmux.NewClient(cfg.Tmux.Remote)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.CommandTimeout())
	defer cancel()

	pane, err := client.CapturePane(ctx, agent.Window, cfg.CaptureLines)
	if err != nil {
		return fmt.Errorf("capturing %s: %w", id, err)
	}

	out := contextOutput{
		AgentID:         id,
		Context:         signal.ParseContextUsage(pane),
		PendingQuestion: signal.ExtractQuestion(pane),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
