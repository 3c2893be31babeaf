package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentfleet/afm/internal/registry"
	"github.com/agentfleet/afm/internal/tmux"
)

var sendCmd = &cobra.Command{
	Use:   "send AGENT_ID TEXT",
	Short: "Send a message to an agent's window",
	Long: `Send text to the tmux window of a registered agent, then press
Enter after a short delay so the agent's input line ingests the paste.

Examples:
  afm send api-writer "run the tests again"
  afm send api-writer "continue" --no-enter`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

var sendNoEnter bool

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendNoEnter, "no-enter", false, "type the text without submitting it")
}

func runSend(cmd *cobra.Command, args []string) error {
	id, text := args[0], args[1]

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

	if err := client.SendText(ctx, agent.Window, text); err != nil {
		return fmt.Errorf("sending to %s: %w", id, err)
	}
	if sendNoEnter {
		return nil
	}
	time.Sleep(cfg.SendDelay())
	if err := client.SendEnter(ctx, agent.Window); err != nil {
		return fmt.Errorf("submitting to %s: %w", id, err)
	}
	return nil
}

// findAgent resolves a registry agent by id.
func findAgent(registryPath, id string) (*registry.Agent, error) {
	agents, err := registry.Load(registryPath)
	if err != nil {
		return nil, err
	}
	for i := range agents {
		if agents[i].ID == id {
			return &agents[i], nil
		}
	}
	return nil, fmt.Errorf("agent '%s' not found in registry", id)
}
