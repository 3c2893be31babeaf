package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentfleet/afm/internal/signal"
)

func TestDecode(t *testing.T) {
	data := []byte(`{
		"agents": [
			{
				"id": "agent-1",
				"window": "@3",
				"working_dir": "/home/me/work/acme/api",
				"phase": "implementation",
				"status": "active",
				"last_updated": "2026-08-27T10:00:00Z"
			},
			{
				"id": "agent-2",
				"window": "@5",
				"working_dir": "/home/me/personal/blog",
				"phase": "planning",
				"status": "blocked",
				"last_updated": "2026-08-27T09:30:00Z",
				"pending_question": "Proceed?",
				"violations": ["edited file outside working dir"]
			}
		]
	}`)

	agents, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
	if agents[0].ID != "agent-1" || agents[0].Status != StatusActive {
		t.Errorf("unexpected first agent: %+v", agents[0])
	}
	if agents[1].PendingQuestion != "Proceed?" {
		t.Errorf("expected pending question, got %q", agents[1].PendingQuestion)
	}
	if len(agents[1].Violations) != 1 {
		t.Errorf("expected 1 violation, got %d", len(agents[1].Violations))
	}
}

func TestDecodeRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "missing id",
			data:    `{"agents": [{"window": "@1", "working_dir": "/tmp/x"}]}`,
			wantErr: "missing id",
		},
		{
			name:    "missing window",
			data:    `{"agents": [{"id": "a", "working_dir": "/tmp/x"}]}`,
			wantErr: "missing window handle",
		},
		{
			name:    "missing working_dir",
			data:    `{"agents": [{"id": "a", "window": "@1"}]}`,
			wantErr: "missing working_dir",
		},
		{
			name:    "malformed json",
			data:    `{"agents": [`,
			wantErr: "parsing registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFileIsEmptyFleet(t *testing.T) {
	agents, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if agents != nil {
		t.Errorf("expected nil agents, got %v", agents)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	doc := `{"agents": [{"id": "a", "window": "@1", "working_dir": "/tmp/x", "status": "complete", "last_updated": "2026-08-27T08:00:00Z"}]}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	agents, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(agents) != 1 || agents[0].Status != StatusComplete {
		t.Errorf("unexpected agents: %+v", agents)
	}
	want := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	if !agents[0].LastUpdated.Equal(want) {
		t.Errorf("LastUpdated = %v, want %v", agents[0].LastUpdated, want)
	}
}

func TestNeedsAttention(t *testing.T) {
	high := signal.NewContextUsage(90, 100)
	low := signal.NewContextUsage(10, 100)

	tests := []struct {
		name     string
		agent    Agent
		expected bool
	}{
		{name: "active and quiet", agent: Agent{Status: StatusActive}, expected: false},
		{name: "blocked", agent: Agent{Status: StatusBlocked}, expected: true},
		{name: "pending question", agent: Agent{Status: StatusActive, PendingQuestion: "hm?"}, expected: true},
		{name: "high context", agent: Agent{Status: StatusActive, Context: &high}, expected: true},
		{name: "low context", agent: Agent{Status: StatusActive, Context: &low}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.agent.NeedsAttention(); got != tt.expected {
				t.Errorf("NeedsAttention() = %v, want %v", got, tt.expected)
			}
		})
	}
}
