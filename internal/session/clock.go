// Package session tracks when the current tmux session started so the
// dashboard can tell a fresh fleet from a stale record left behind by
// an earlier run or a renumbered multiplexer.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StaleAfter is how old a record may get before it no longer
// represents current activity and is replaced.
const StaleAfter = 8 * time.Hour

// Record is the persisted session marker.
type Record struct {
	TmuxSession string    `json:"tmux_session"`
	StartedAt   time.Time `json:"started_at"`
}

// Clock decides whether a persisted session record is still current.
// Now is swappable for tests and defaults to time.Now.
type Clock struct {
	Path string
	Now  func() time.Time
}

// NewClock creates a clock persisting to path. An empty path uses the
// default location under the user data dir.
func NewClock(path string) *Clock {
	if path == "" {
		path = DefaultPath()
	}
	return &Clock{Path: path, Now: time.Now}
}

// DefaultPath returns the session record location. Uses XDG_DATA_HOME
// if set, otherwise ~/.local/share/afm/session.json.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "session.json"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "afm", "session.json")
}

// EnsureStarted returns the start time for the named tmux session.
//
// Evaluation order: no prior record starts a new one; a record for a
// different session starts a new one; a record older than StaleAfter
// starts a new one; otherwise the recorded time is reused. Starting a
// new record atomically overwrites the persisted one. A corrupted or
// unreadable record counts as absent.
//
// An empty session name means the caller is not attached to tmux and
// has nothing to track: the zero time is returned and the persisted
// record, which a named run may still want, is left alone.
func (c *Clock) EnsureStarted(session string) (time.Time, error) {
	if session == "" {
		return time.Time{}, nil
	}
	now := c.Now()

	if rec := c.load(); rec != nil &&
		rec.TmuxSession == session &&
		now.Sub(rec.StartedAt) <= StaleAfter {
		return rec.StartedAt, nil
	}

	rec := Record{TmuxSession: session, StartedAt: now}
	if err := c.save(rec); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// load reads the persisted record, returning nil on any failure.
// Corruption is treated as absence so a bad file can never wedge the
// dashboard.
func (c *Clock) load() *Record {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	if rec.TmuxSession == "" || rec.StartedAt.IsZero() {
		return nil
	}
	return &rec
}

// save writes the record via temp file and rename so readers never see
// a partial write.
func (c *Clock) save(rec Record) error {
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing session record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session record: %w", err)
	}
	if err := os.Rename(tmpPath, c.Path); err != nil {
		return fmt.Errorf("replacing session record: %w", err)
	}
	return nil
}
