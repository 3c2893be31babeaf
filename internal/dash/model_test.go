package dash

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentfleet/afm/internal/config"
	"github.com/agentfleet/afm/internal/registry"
	"github.com/agentfleet/afm/internal/tmux"
)

func testModel(t *testing.T) Model {
	t.Helper()
	cfg := config.Default()
	return New(cfg, tmux.NewClient(""), "fleet", time.Now(), nil)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	got, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return got
}

func TestModelFleetRefresh(t *testing.T) {
	m := testModel(t)
	agents := fleet(3)

	m = update(t, m, fleetMsg{Agents: agents, Time: baseTime})

	if len(m.state.Groups()) == 0 {
		t.Fatal("refresh did not populate groups")
	}
	if !m.lastRefresh.Equal(baseTime) {
		t.Errorf("lastRefresh = %v, want %v", m.lastRefresh, baseTime)
	}
}

func TestModelRegistryErrorBecomesAlert(t *testing.T) {
	m := testModel(t)

	m = update(t, m, fleetMsg{Err: errors.New("registry exploded")})
	if !strings.Contains(m.alert, "registry exploded") {
		t.Errorf("alert = %q, want registry error", m.alert)
	}

	// The loop keeps running: a later good refresh still lands.
	m = update(t, m, fleetMsg{Agents: fleet(1), Time: baseTime})
	if len(m.state.Groups()) != 1 {
		t.Error("refresh after error did not land")
	}
}

func TestModelScrapeErrorIsDismissible(t *testing.T) {
	m := testModel(t)

	m = update(t, m, signalMsg{AgentID: "a", Err: errors.New("timeout")})
	if m.alert == "" {
		t.Fatal("scrape failure should surface as an alert")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if m.alert != "" {
		t.Errorf("alert not dismissed: %q", m.alert)
	}
}

func TestModelKeysDriveState(t *testing.T) {
	m := testModel(t)
	m = update(t, m, fleetMsg{Agents: fleet(4), Time: baseTime})

	// Expand everything, then walk down.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'E'}})
	if len(m.state.Visible()) != 4 {
		t.Fatalf("visible = %d after expand-all", len(m.state.Visible()))
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.state.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", m.state.Cursor())
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'C'}})
	if len(m.state.Visible()) != 0 {
		t.Errorf("visible = %d after collapse-all", len(m.state.Visible()))
	}
}

func TestModelUnknownKeyIsNoop(t *testing.T) {
	m := testModel(t)
	m = update(t, m, fleetMsg{Agents: fleet(2), Time: baseTime})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'E'}})
	cursor, visible := m.state.Cursor(), len(m.state.Visible())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'~'}})
	if m.state.Cursor() != cursor || len(m.state.Visible()) != visible {
		t.Error("unmapped key changed the state")
	}
	if m.alert != "" || m.composing || m.paused {
		t.Error("unmapped key had side effects")
	}
}

func TestModelComposeCancel(t *testing.T) {
	m := testModel(t)
	m = update(t, m, fleetMsg{Agents: fleet(2), Time: baseTime})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'E'}})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if !m.composing {
		t.Fatal("send key should open the composer")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.composing {
		t.Error("esc should cancel the composer")
	}
}

func TestModelFlagsVanishedWindows(t *testing.T) {
	m := testModel(t)
	agents := fleet(2)
	m = update(t, m, fleetMsg{Agents: agents, Time: baseTime})

	// Only agent "a"'s window is still alive.
	m = update(t, m, windowsMsg{IDs: map[string]bool{"@1": true}})
	if m.alert != "" {
		t.Fatalf("all windows present in fleet(): alert = %q", m.alert)
	}

	m = update(t, m, windowsMsg{IDs: map[string]bool{}})
	if !strings.Contains(m.alert, "window gone") {
		t.Errorf("alert = %q, want vanished-window warning", m.alert)
	}
}

func TestModelFlagsVanishedWindowBehindFilter(t *testing.T) {
	m := testModel(t)
	agents := fleet(2)
	agents[0].Status = registry.StatusBlocked
	agents[1].Window = "@9"
	m = update(t, m, fleetMsg{Agents: agents, Time: baseTime})

	// Agent "b" is hidden by the filter, but its window died.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
	m = update(t, m, windowsMsg{IDs: map[string]bool{"@1": true}})
	if !strings.Contains(m.alert, "b") {
		t.Errorf("alert = %q, want filtered-out agent b flagged", m.alert)
	}
}

func TestModelViewEmptyFleet(t *testing.T) {
	m := testModel(t)
	m = update(t, m, fleetMsg{Agents: nil, Time: baseTime})

	view := m.View()
	if !strings.Contains(view, "no agents registered") {
		t.Errorf("empty view missing placeholder:\n%s", view)
	}
}
