// Package registry consumes the external agent registry: an ordered
// JSON document of agent records maintained by whatever spawns the
// agents. This package validates records once at the boundary so the
// rest of the code can rely on the required fields being present.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/agentfleet/afm/internal/signal"
)

// Status is the lifecycle state an agent reports.
type Status string

const (
	StatusActive   Status = "active"
	StatusBlocked  Status = "blocked"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Agent is a read-mostly snapshot of one running agent session. The
// registry owns the record; this copy is replaced wholesale on every
// poll refresh and enriched in place by on-demand pane scrapes.
type Agent struct {
	// ID is the registry's stable identifier for the session.
	ID string `json:"id"`
	// Window is the tmux window handle hosting the agent. The stable
	// "@n" id form is preferred over a positional target, which tmux
	// renumbers when windows close.
	Window      string    `json:"window"`
	WorkingDir  string    `json:"working_dir"`
	Phase       string    `json:"phase"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`

	// Optional enrichment, absent until a scrape fills it in.
	Context         *signal.ContextUsage `json:"context,omitempty"`
	PendingQuestion string               `json:"pending_question,omitempty"`
	Violations      []string             `json:"violations,omitempty"`
}

// NeedsAttention reports whether the agent wants the operator's eyes:
// it is blocked, has a pending question, or is near its context limit.
func (a Agent) NeedsAttention() bool {
	if a.Status == StatusBlocked || a.PendingQuestion != "" {
		return true
	}
	return a.Context != nil && a.Context.IsHighUsage()
}

// Validate checks the fields every consumer depends on.
func (a Agent) Validate() error {
	if a.ID == "" {
		return errors.New("agent record missing id")
	}
	if a.Window == "" {
		return fmt.Errorf("agent %s: missing window handle", a.ID)
	}
	if a.WorkingDir == "" {
		return fmt.Errorf("agent %s: missing working_dir", a.ID)
	}
	return nil
}

// document is the registry file schema.
type document struct {
	Agents []Agent `json:"agents"`
}

// Load reads and validates the registry file. A missing file is an
// empty fleet, not an error; a malformed file or an invalid record is
// an error so the caller can surface it instead of rendering garbage.
func Load(path string) ([]Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses a registry document and validates every record.
func Decode(data []byte) ([]Agent, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	for i, a := range doc.Agents {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("registry record %d: %w", i, err)
		}
	}
	return doc.Agents, nil
}
