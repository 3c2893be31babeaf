package dash

import (
	"math/rand"
	"testing"
	"time"

	"github.com/agentfleet/afm/internal/grouping"
	"github.com/agentfleet/afm/internal/registry"
	"github.com/agentfleet/afm/internal/signal"
)

var baseTime = time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

func fleet(n int) []registry.Agent {
	agents := make([]registry.Agent, 0, n)
	for i := 0; i < n; i++ {
		dir := "/home/me/work/Acme/api"
		if i%2 == 1 {
			dir = "/home/me/personal/blog"
		}
		agents = append(agents, registry.Agent{
			ID:          string(rune('a' + i)),
			Window:      "@1",
			WorkingDir:  dir,
			Status:      registry.StatusActive,
			LastUpdated: baseTime.Add(-time.Duration(i) * time.Minute),
		})
	}
	return agents
}

func expandAll(s *State) {
	s.ExpandAll()
}

func TestCursorStaysInBounds(t *testing.T) {
	s := NewState()
	s.Refresh(fleet(5))
	expandAll(s)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		if rng.Intn(2) == 0 {
			s.MoveDown()
		} else {
			s.MoveUp()
		}
		n := len(s.Visible())
		if n == 0 {
			if s.Cursor() != 0 {
				t.Fatalf("cursor = %d on empty list", s.Cursor())
			}
			continue
		}
		if s.Cursor() < 0 || s.Cursor() >= n {
			t.Fatalf("cursor %d out of bounds [0,%d)", s.Cursor(), n)
		}
	}
}

func TestCursorOnEmptyList(t *testing.T) {
	s := NewState()
	s.MoveDown()
	s.MoveUp()
	s.MoveDown()

	if s.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", s.Cursor())
	}
	if s.Focused() != nil {
		t.Error("Focused() should be nil on empty list")
	}
}

func TestGroupsStartCollapsed(t *testing.T) {
	s := NewState()
	s.Refresh(fleet(4))

	if len(s.Visible()) != 0 {
		t.Errorf("collapsed groups should hide agents, visible = %d", len(s.Visible()))
	}
	if len(s.Groups()) != 2 {
		t.Errorf("expected 2 groups, got %d", len(s.Groups()))
	}
}

func TestToggleGroupTwiceRestoresState(t *testing.T) {
	s := NewState()
	s.Refresh(fleet(4))
	k := s.Groups()[0].Key

	before := s.Expanded(k)
	s.ToggleGroup(k)
	if s.Expanded(k) == before {
		t.Error("toggle did not flip expansion")
	}
	s.ToggleGroup(k)
	if s.Expanded(k) != before {
		t.Error("double toggle did not restore expansion")
	}
}

func TestToggleGroupExposesAgents(t *testing.T) {
	s := NewState()
	s.Refresh(fleet(4))
	k := grouping.Key{TopLevel: "work/Acme", Project: "api"}

	s.ToggleGroup(k)
	if len(s.Visible()) != 2 {
		t.Errorf("visible = %d, want 2", len(s.Visible()))
	}
	for _, a := range s.Visible() {
		if grouping.Classify(a.WorkingDir) != k {
			t.Errorf("agent %s leaked from another group", a.ID)
		}
	}
}

func TestRefreshReclampsCursor(t *testing.T) {
	s := NewState()
	s.Refresh(fleet(6))
	expandAll(s)

	for i := 0; i < 10; i++ {
		s.MoveDown()
	}
	if s.Cursor() != len(s.Visible())-1 {
		t.Fatalf("cursor = %d, want bottom", s.Cursor())
	}

	// Shrink the fleet; cursor must clamp.
	s.Refresh(fleet(2))
	n := len(s.Visible())
	if s.Cursor() < 0 || (n > 0 && s.Cursor() >= n) || (n == 0 && s.Cursor() != 0) {
		t.Errorf("cursor %d invalid for %d visible", s.Cursor(), n)
	}
}

func TestApplyFilter(t *testing.T) {
	agents := fleet(4)
	agents[2].Status = registry.StatusBlocked

	s := NewState()
	s.Refresh(agents)
	s.ExpandAll()

	s.ApplyFilter(FilterBlocked)
	if len(s.Visible()) != 1 {
		t.Fatalf("visible = %d, want 1", len(s.Visible()))
	}
	if s.Visible()[0].Status != registry.StatusBlocked {
		t.Errorf("filter leaked agent %+v", s.Visible()[0])
	}

	s.ClearFilter()
	if len(s.Visible()) != 4 {
		t.Errorf("visible after clear = %d, want 4", len(s.Visible()))
	}
}

func TestFilterNeedsAttention(t *testing.T) {
	high := signal.NewContextUsage(90, 100)
	agents := fleet(4)
	agents[0].Context = &high
	agents[1].PendingQuestion = "Proceed?"

	s := NewState()
	s.Refresh(agents)
	s.ExpandAll()
	s.ApplyFilter(FilterNeedsAttention)

	if len(s.Visible()) != 2 {
		t.Errorf("visible = %d, want 2", len(s.Visible()))
	}
}

func TestEnrich(t *testing.T) {
	s := NewState()
	s.Refresh(fleet(2))
	s.ExpandAll()

	usage := signal.NewContextUsage(50, 100)
	s.Enrich("a", &usage, "Which one?")

	var found bool
	for _, a := range s.Visible() {
		if a.ID == "a" {
			found = true
			if a.Context == nil || a.Context.TokensUsed != 50 {
				t.Errorf("context not enriched: %+v", a.Context)
			}
			if a.PendingQuestion != "Which one?" {
				t.Errorf("question not enriched: %q", a.PendingQuestion)
			}
		}
	}
	if !found {
		t.Fatal("agent a not visible")
	}
}

func TestEnrichKeepsLastSignalsOnScrapeMiss(t *testing.T) {
	s := NewState()
	s.Refresh(fleet(2))
	s.ExpandAll()

	usage := signal.NewContextUsage(50, 100)
	s.Enrich("a", &usage, "Which one?")

	// A scrape that found nothing must not erase what the last one saw.
	s.Enrich("a", nil, "")

	for _, a := range s.Visible() {
		if a.ID != "a" {
			continue
		}
		if a.Context == nil || a.Context.TokensUsed != 50 {
			t.Errorf("context lost on empty scrape: %+v", a.Context)
		}
		if a.PendingQuestion != "Which one?" {
			t.Errorf("question lost on empty scrape: %q", a.PendingQuestion)
		}
	}
}

func TestFocusedGroup(t *testing.T) {
	s := NewState()
	if s.FocusedGroup() != nil {
		t.Error("FocusedGroup on empty state should be nil")
	}

	s.Refresh(fleet(4))
	// Collapsed: falls back to the first group so toggle has a target.
	if g := s.FocusedGroup(); g == nil || g.Key != s.Groups()[0].Key {
		t.Errorf("FocusedGroup = %+v", g)
	}

	s.ExpandAll()
	s.MoveDown()
	g := s.FocusedGroup()
	f := s.Focused()
	if g == nil || f == nil {
		t.Fatal("expected focus")
	}
	if grouping.Classify(f.WorkingDir) != g.Key {
		t.Errorf("focused group %+v does not contain focused agent %s", g.Key, f.ID)
	}
}
