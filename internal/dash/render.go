package dash

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/agentfleet/afm/internal/grouping"
	"github.com/agentfleet/afm/internal/registry"
	"github.com/agentfleet/afm/internal/signal"
)

// Column widths for the agent row layout.
const (
	idColWidth    = 18
	badgeColWidth = 12
	phaseColWidth = 14
)

var (
	badgeActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	badgeBlockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	badgeCompleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	badgeFailedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	badgePlanningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	badgeGenericStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	groupHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	selectedStyle    = lipgloss.NewStyle().Reverse(true)
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	alertStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	questionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

// StatusBadge renders the status indicator for an agent. Explicit
// status wins over phase; an unrecognized status with a "planning"
// phase gets its own badge; anything else is uppercased as-is, falling
// back to the phase and then a placeholder so the column never renders
// blank.
func StatusBadge(a registry.Agent) string {
	switch a.Status {
	case registry.StatusBlocked:
		return badgeBlockedStyle.Render("⛔ BLOCKED")
	case registry.StatusComplete:
		return badgeCompleteStyle.Render("✓ DONE")
	case registry.StatusFailed:
		return badgeFailedStyle.Render("✗ FAILED")
	case registry.StatusActive:
		return badgeActiveStyle.Render("● ACTIVE")
	}
	if strings.EqualFold(a.Phase, "planning") {
		return badgePlanningStyle.Render("◌ PLANNING")
	}
	if a.Status != "" {
		return badgeGenericStyle.Render(strings.ToUpper(string(a.Status)))
	}
	if a.Phase != "" {
		return badgeGenericStyle.Render(strings.ToUpper(a.Phase))
	}
	return badgeGenericStyle.Render("UNKNOWN")
}

// Sanitize makes free text from a pane or registry record safe to
// embed in rendered output: ANSI sequences are stripped and control
// bytes removed, so agent output cannot restyle the dashboard.
func Sanitize(s string) string {
	s = signal.StripANSI(s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// TruncateDisplay trims a string to a display width, appending "…"
// when something was cut. Width-aware so wide glyphs don't overflow
// the column.
func TruncateDisplay(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "…")
}

// padDisplay pads or trims to an exact display width.
func padDisplay(s string, width int) string {
	s = TruncateDisplay(s, width)
	return s + strings.Repeat(" ", width-runewidth.StringWidth(s))
}

// RelativeTime buckets an absolute time for display. A zero time is
// "unknown".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() || t.After(now) {
		if t.IsZero() {
			return "unknown"
		}
		return "just now"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// GroupHeader renders one group line of the tree.
func GroupHeader(g grouping.Group, expanded bool) string {
	marker := "▸"
	if expanded {
		marker = "▾"
	}
	label := fmt.Sprintf("%s %s/%s", marker, g.Key.TopLevel, g.Key.Project)
	count := dimStyle.Render(fmt.Sprintf(" (%d)", len(g.Agents)))
	return groupHeaderStyle.Render(Sanitize(label)) + count
}

// AgentRow renders one agent line. Selection is shown by reversing
// the row.
func AgentRow(a registry.Agent, now time.Time, selected bool) string {
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(padDisplay(Sanitize(a.ID), idColWidth))
	b.WriteString(" ")

	badge := StatusBadge(a)
	pad := badgeColWidth - lipgloss.Width(badge)
	if pad < 0 {
		pad = 0
	}
	b.WriteString(badge)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(" ")

	b.WriteString(padDisplay(Sanitize(a.Phase), phaseColWidth))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(RelativeTime(a.LastUpdated, now)))

	if a.Context != nil {
		usage := fmt.Sprintf(" ctx %.0f%%", a.Context.Percentage)
		if a.Context.IsHighUsage() {
			b.WriteString(warnStyle.Render(usage))
		} else {
			b.WriteString(dimStyle.Render(usage))
		}
	}
	if a.PendingQuestion != "" {
		b.WriteString(questionStyle.Render(" ?"))
	}
	if len(a.Violations) > 0 {
		b.WriteString(alertStyle.Render(fmt.Sprintf(" !%d", len(a.Violations))))
	}

	row := b.String()
	if selected {
		return selectedStyle.Render(row)
	}
	return row
}

// DetailPane renders the focused agent's full state.
func DetailPane(a registry.Agent, now time.Time, width int) string {
	if width <= 0 {
		width = 80
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%s  %s", Sanitize(a.ID), StatusBadge(a)))
	lines = append(lines, dimStyle.Render(fmt.Sprintf("window %s · %s", Sanitize(a.Window), TruncateDisplay(Sanitize(a.WorkingDir), width-12))))
	lines = append(lines, fmt.Sprintf("phase: %s · updated %s", Sanitize(a.Phase), RelativeTime(a.LastUpdated, now)))

	if a.Context != nil {
		lines = append(lines, fmt.Sprintf("context: %d/%d tokens (%.1f%%)",
			a.Context.TokensUsed, a.Context.TokensTotal, a.Context.Percentage))
	}
	if a.PendingQuestion != "" {
		q := wordwrap.String(Sanitize(a.PendingQuestion), width-4)
		lines = append(lines, questionStyle.Render("pending question:"))
		for _, l := range strings.Split(q, "\n") {
			lines = append(lines, "  "+l)
		}
	}
	for _, v := range a.Violations {
		lines = append(lines, alertStyle.Render("! "+TruncateDisplay(Sanitize(v), width-2)))
	}

	return strings.Join(lines, "\n")
}
