package dash

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agentfleet/afm/internal/config"
	"github.com/agentfleet/afm/internal/registry"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is the fleet dashboard. One control loop pulls the registry on
// a tick; operator-triggered work (scrapes, sends) runs as discrete
// cancellable commands whose results land on later Update calls, so
// the keyboard never blocks on a subprocess.
type Model struct {
	cfg     *config.Config
	client  tmuxClient
	state   *State
	session string

	// changes is nil when file watching is unavailable; polling still
	// refreshes.
	changes <-chan struct{}

	input     textinput.Model
	composing bool
	sendTo    string

	width       int
	height      int
	alert       string
	lastRefresh time.Time
	startedAt   time.Time
	paused      bool
	quitting    bool
}

// New creates the dashboard model.
func New(cfg *config.Config, client tmuxClient, session string, startedAt time.Time, changes <-chan struct{}) Model {
	input := textinput.New()
	input.Placeholder = "message"
	input.CharLimit = 0

	return Model{
		cfg:       cfg,
		client:    client,
		state:     NewState(),
		session:   session,
		changes:   changes,
		input:     input,
		width:     80,
		height:    24,
		startedAt: startedAt,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		fetchFleet(m.cfg.RegistryPath),
		tick(m.cfg.RefreshInterval()),
	}
	if m.changes != nil {
		cmds = append(cmds, waitForRegistryChange(m.changes))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tick(m.cfg.RefreshInterval())}
		if !m.paused {
			cmds = append(cmds, fetchFleet(m.cfg.RegistryPath))
		}
		return m, tea.Batch(cmds...)

	case registryChangedMsg:
		return m, tea.Batch(
			fetchFleet(m.cfg.RegistryPath),
			waitForRegistryChange(m.changes),
		)

	case fleetMsg:
		if msg.Err != nil {
			m.alert = fmt.Sprintf("registry: %v", msg.Err)
			return m, nil
		}
		m.state.Refresh(msg.Agents)
		m.lastRefresh = msg.Time
		return m, nil

	case signalMsg:
		if msg.Err != nil {
			m.alert = fmt.Sprintf("scrape %s: %v", msg.AgentID, msg.Err)
			return m, nil
		}
		m.state.Enrich(msg.AgentID, msg.Usage, msg.Question)
		return m, nil

	case windowsMsg:
		if msg.Err != nil {
			m.alert = fmt.Sprintf("windows: %v", msg.Err)
			return m, nil
		}
		// Walk the backing list, not the grouped view: an agent hidden
		// by the active filter still deserves the warning.
		var gone []string
		for _, a := range m.state.Agents() {
			if !msg.IDs[a.Window] {
				gone = append(gone, a.ID)
			}
		}
		if len(gone) > 0 {
			m.alert = "window gone for: " + strings.Join(gone, ", ")
		}
		return m, nil

	case sentMsg:
		if msg.Err != nil {
			m.alert = fmt.Sprintf("send %s: %v", msg.AgentID, msg.Err)
		} else {
			m.alert = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.composing {
			return m.updateComposing(msg)
		}
		return m.handleAction(Handle(msg.String()))
	}

	return m, nil
}

// updateComposing routes keys to the message input.
func (m Model) updateComposing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.composing = false
		m.input.Reset()
		target := m.findAgent(m.sendTo)
		if text == "" || target == nil {
			return m, nil
		}
		return m, sendToAgent(m.client, *target, text, m.cfg.SendDelay(), m.cfg.CommandTimeout())
	case "esc", "ctrl+c":
		m.composing = false
		m.input.Reset()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleAction(action Action) (tea.Model, tea.Cmd) {
	switch action {
	case ActionQuit:
		m.quitting = true
		return m, tea.Quit

	case ActionUp:
		m.state.MoveUp()

	case ActionDown:
		m.state.MoveDown()

	case ActionToggleGroup:
		if g := m.state.FocusedGroup(); g != nil {
			m.state.ToggleGroup(g.Key)
		}

	case ActionExpandAll:
		m.state.ExpandAll()

	case ActionCollapseAll:
		m.state.CollapseAll()

	case ActionRefresh:
		cmds := []tea.Cmd{fetchFleet(m.cfg.RegistryPath)}
		if m.session != "" {
			cmds = append(cmds, fetchWindows(m.client, m.session, m.cfg.CommandTimeout()))
		}
		return m, tea.Batch(cmds...)

	case ActionPause:
		m.paused = !m.paused

	case ActionSend:
		if f := m.state.Focused(); f != nil {
			m.composing = true
			m.sendTo = f.ID
			m.input.Focus()
			return m, textinput.Blink
		}

	case ActionQueryContext:
		if f := m.state.Focused(); f != nil {
			return m, queryAgentSignals(m.client, *f, m.cfg.CaptureLines, m.cfg.CommandTimeout())
		}

	case ActionFilterBlocked:
		m.state.ApplyFilter(FilterBlocked)

	case ActionFilterAttention:
		m.state.ApplyFilter(FilterNeedsAttention)

	case ActionFilterClear:
		m.state.ClearFilter()

	case ActionDismissAlert:
		m.alert = ""
	}
	return m, nil
}

func (m Model) findAgent(id string) *registry.Agent {
	for _, g := range m.state.Groups() {
		for i := range g.Agents {
			if g.Agents[i].ID == id {
				return &g.Agents[i]
			}
		}
	}
	return nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	now := time.Now()
	var b strings.Builder

	b.WriteString(m.headerView(now))
	b.WriteString("\n\n")
	b.WriteString(m.treeView(now))

	if f := m.state.Focused(); f != nil {
		b.WriteString("\n\n")
		b.WriteString(DetailPane(*f, now, m.width))
	}

	if m.alert != "" {
		b.WriteString("\n\n")
		b.WriteString(alertStyle.Render("⚠ " + Sanitize(m.alert) + "  (x to dismiss)"))
	}

	if m.composing {
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("send to %s: %s", m.sendTo, m.input.View()))
		b.WriteString("\n" + footerStyle.Render("enter send · esc cancel"))
	} else {
		b.WriteString("\n\n")
		b.WriteString(footerStyle.Render("↑/↓ move · enter toggle · E/C all · s send · c context · b/a/f filter · r refresh · p pause · q quit"))
	}

	return b.String()
}

func (m Model) headerView(now time.Time) string {
	title := titleStyle.Render("AFM · agent fleet")
	parts := []string{title}

	if m.session != "" {
		parts = append(parts, dimStyle.Render("session "+Sanitize(m.session)))
	}
	if !m.startedAt.IsZero() {
		parts = append(parts, dimStyle.Render("started "+RelativeTime(m.startedAt, now)))
	}
	parts = append(parts, m.summaryView())

	refresh := "updated " + RelativeTime(m.lastRefresh, now)
	if m.paused {
		refresh += " · paused"
	}
	if m.state.Filtered() {
		refresh += " · filtered"
	}
	parts = append(parts, dimStyle.Render(refresh))

	return strings.Join(parts, "  ")
}

func (m Model) summaryView() string {
	var active, blocked, complete, failed int
	for _, g := range m.state.Groups() {
		for _, a := range g.Agents {
			switch a.Status {
			case registry.StatusActive:
				active++
			case registry.StatusBlocked:
				blocked++
			case registry.StatusComplete:
				complete++
			case registry.StatusFailed:
				failed++
			}
		}
	}
	return fmt.Sprintf("%s %s %s %s",
		badgeActiveStyle.Render(fmt.Sprintf("●%d", active)),
		badgeBlockedStyle.Render(fmt.Sprintf("⛔%d", blocked)),
		badgeCompleteStyle.Render(fmt.Sprintf("✓%d", complete)),
		badgeFailedStyle.Render(fmt.Sprintf("✗%d", failed)))
}

func (m Model) treeView(now time.Time) string {
	groups := m.state.Groups()
	if len(groups) == 0 {
		if m.state.Filtered() {
			return dimStyle.Render("  no agents match the filter (f to clear)")
		}
		return dimStyle.Render("  no agents registered")
	}

	visible := m.state.Visible()
	cursor := m.state.Cursor()

	var lines []string
	vi := 0
	for _, g := range groups {
		expanded := m.state.Expanded(g.Key)
		lines = append(lines, GroupHeader(g, expanded))
		if !expanded {
			continue
		}
		for range g.Agents {
			lines = append(lines, AgentRow(visible[vi], now, vi == cursor))
			vi++
		}
	}
	return strings.Join(lines, "\n")
}
