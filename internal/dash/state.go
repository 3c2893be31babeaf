// Package dash implements the interactive fleet dashboard: the
// cursor/grouping/filter state machine, the keypress-to-action map,
// the pure row/detail renderer, and the bubbletea model that ties them
// to the poll loop.
package dash

import (
	"github.com/agentfleet/afm/internal/grouping"
	"github.com/agentfleet/afm/internal/registry"
	"github.com/agentfleet/afm/internal/signal"
)

// Filter narrows the visible fleet. Nil means show everything.
type Filter func(registry.Agent) bool

// FilterBlocked shows only blocked agents.
func FilterBlocked(a registry.Agent) bool {
	return a.Status == registry.StatusBlocked
}

// FilterNeedsAttention shows agents that are blocked, asking a
// question, or near their context limit.
func FilterNeedsAttention(a registry.Agent) bool {
	return a.NeedsAttention()
}

// State is the dashboard's derived view over the fleet: the grouped
// tree, which groups are expanded, the filter, and the cursor over
// the visible agents.
//
// The cursor is re-clamped on every mutation, so it is always a valid
// index into Visible() or 0 when nothing is visible. No transition
// promises to keep the same agent focused when the visible list
// changes shape.
type State struct {
	agents   []registry.Agent
	groups   []grouping.Group
	visible  []registry.Agent
	cursor   int
	expanded map[grouping.Key]bool
	filter   Filter
}

// NewState creates an empty dashboard state. All groups start
// collapsed.
func NewState() *State {
	return &State{expanded: make(map[grouping.Key]bool)}
}

// Refresh replaces the backing agent list and recomputes the view.
func (s *State) Refresh(agents []registry.Agent) {
	s.agents = agents
	s.rebuild()
}

// MoveDown moves the cursor toward the bottom of the visible list.
func (s *State) MoveDown() {
	s.cursor++
	s.clamp()
}

// MoveUp moves the cursor toward the top of the visible list.
func (s *State) MoveUp() {
	s.cursor--
	s.clamp()
}

// ToggleGroup flips a group between expanded and collapsed. Unknown
// keys default to collapsed, so toggling one expands it.
func (s *State) ToggleGroup(k grouping.Key) {
	s.expanded[k] = !s.expanded[k]
	s.rebuild()
}

// ExpandAll opens every group currently in the tree.
func (s *State) ExpandAll() {
	for _, g := range s.groups {
		s.expanded[g.Key] = true
	}
	s.rebuild()
}

// CollapseAll closes every group.
func (s *State) CollapseAll() {
	s.expanded = make(map[grouping.Key]bool)
	s.rebuild()
}

// ApplyFilter replaces the active filter and re-derives the view.
func (s *State) ApplyFilter(f Filter) {
	s.filter = f
	s.rebuild()
}

// ClearFilter removes the active filter.
func (s *State) ClearFilter() {
	s.filter = nil
	s.rebuild()
}

// Filtered reports whether a filter is active.
func (s *State) Filtered() bool {
	return s.filter != nil
}

// Expanded reports whether a group is open.
func (s *State) Expanded(k grouping.Key) bool {
	return s.expanded[k]
}

// Agents returns the backing agent list, unfiltered and ungrouped.
func (s *State) Agents() []registry.Agent {
	return s.agents
}

// Groups returns the grouped tree after filtering.
func (s *State) Groups() []grouping.Group {
	return s.groups
}

// Visible returns the agents of all expanded groups, in tree order.
func (s *State) Visible() []registry.Agent {
	return s.visible
}

// Cursor returns the cursor position within Visible().
func (s *State) Cursor() int {
	return s.cursor
}

// Focused returns the agent under the cursor, or nil when the visible
// list is empty.
func (s *State) Focused() *registry.Agent {
	if len(s.visible) == 0 {
		return nil
	}
	return &s.visible[s.cursor]
}

// FocusedGroup returns the group containing the cursor, or the first
// group when nothing is visible (so toggle still has a target), or
// nil when there are no groups at all.
func (s *State) FocusedGroup() *grouping.Group {
	if len(s.groups) == 0 {
		return nil
	}
	if f := s.Focused(); f != nil {
		k := grouping.Classify(f.WorkingDir)
		for i := range s.groups {
			if s.groups[i].Key == k {
				return &s.groups[i]
			}
		}
	}
	return &s.groups[0]
}

// Enrich attaches scraped signals to one agent in the backing list.
// A scrape miss (nil usage, empty question) leaves the previous value
// in place; the next registry refresh overwrites everything, which is
// the intended freshness model: scrapes are point-in-time, the
// registry is truth.
func (s *State) Enrich(id string, usage *signal.ContextUsage, question string) {
	for i := range s.agents {
		if s.agents[i].ID != id {
			continue
		}
		if usage != nil {
			s.agents[i].Context = usage
		}
		if question != "" {
			s.agents[i].PendingQuestion = question
		}
		s.rebuild()
		return
	}
}

// rebuild re-derives groups and the visible list from the backing
// agents, filter, and expansion set, then re-clamps the cursor.
func (s *State) rebuild() {
	filtered := s.agents
	if s.filter != nil {
		filtered = make([]registry.Agent, 0, len(s.agents))
		for _, a := range s.agents {
			if s.filter(a) {
				filtered = append(filtered, a)
			}
		}
	}

	s.groups = grouping.GroupAgents(filtered)

	s.visible = s.visible[:0]
	for _, g := range s.groups {
		if s.expanded[g.Key] {
			s.visible = append(s.visible, g.Agents...)
		}
	}
	s.clamp()
}

func (s *State) clamp() {
	if s.cursor >= len(s.visible) {
		s.cursor = len(s.visible) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}
