package dash

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentfleet/afm/internal/registry"
	"github.com/agentfleet/afm/internal/signal"
	"github.com/agentfleet/afm/internal/tmux"
)

// tmuxClient is the slice of the tmux surface the dashboard drives.
// *tmux.Client implements it.
type tmuxClient interface {
	ListWindows(ctx context.Context, session string) ([]tmux.Window, error)
	CapturePane(ctx context.Context, target string, lines int) (string, error)
	SendText(ctx context.Context, target, text string) error
	SendEnter(ctx context.Context, target string) error
}

// tickMsg drives the poll loop.
type tickMsg time.Time

// fleetMsg carries a fresh registry read.
type fleetMsg struct {
	Agents []registry.Agent
	Err    error
	Time   time.Time
}

// signalMsg carries the result of scraping one agent's window.
type signalMsg struct {
	AgentID  string
	Usage    *signal.ContextUsage
	Question string
	Err      error
}

// sentMsg reports an outbound send.
type sentMsg struct {
	AgentID string
	Err     error
}

// windowsMsg carries the set of live window handles in the session,
// used to flag agents whose window disappeared across a multiplexer
// restart or renumbering.
type windowsMsg struct {
	IDs map[string]bool
	Err error
}

// registryChangedMsg fires when the watcher sees the registry file
// change.
type registryChangedMsg struct{}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchFleet reads the registry off the event loop.
func fetchFleet(path string) tea.Cmd {
	return func() tea.Msg {
		agents, err := registry.Load(path)
		return fleetMsg{Agents: agents, Err: err, Time: time.Now()}
	}
}

// fetchWindows lists the session's live windows off the event loop.
func fetchWindows(client tmuxClient, session string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		windows, err := client.ListWindows(ctx, session)
		if err != nil {
			return windowsMsg{Err: err}
		}
		ids := make(map[string]bool, len(windows))
		for _, w := range windows {
			ids[w.ID] = true
		}
		return windowsMsg{IDs: ids}
	}
}

// queryAgentSignals scrapes one window for context usage and a
// pending question. A scrape miss or timeout degrades to an empty
// signal; only transport failures surface as errors.
func queryAgentSignals(client tmuxClient, agent registry.Agent, lines int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		pane, err := client.CapturePane(ctx, agent.Window, lines)
		if err != nil {
			return signalMsg{AgentID: agent.ID, Err: err}
		}
		return signalMsg{
			AgentID:  agent.ID,
			Usage:    signal.ParseContextUsage(pane),
			Question: signal.ExtractQuestion(pane),
		}
	}
}

// sendToAgent types text into an agent's window, waits the configured
// delay, and presses Enter. The delay gives the agent's input line
// time to ingest the paste before submit.
func sendToAgent(client tmuxClient, agent registry.Agent, text string, delay, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := client.SendText(ctx, agent.Window, text); err != nil {
			return sentMsg{AgentID: agent.ID, Err: err}
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return sentMsg{AgentID: agent.ID, Err: ctx.Err()}
			}
		}
		if err := client.SendEnter(ctx, agent.Window); err != nil {
			return sentMsg{AgentID: agent.ID, Err: err}
		}
		return sentMsg{AgentID: agent.ID}
	}
}

// waitForRegistryChange blocks on the watcher until the registry file
// changes, then re-arms itself from Update.
func waitForRegistryChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return registryChangedMsg{}
	}
}
