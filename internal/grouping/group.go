// Package grouping classifies agents by working directory into a
// two-level tree for the dashboard. Classification is a pure function
// of the path; nothing here is persisted or cached.
package grouping

import (
	"sort"
	"strings"

	"github.com/agentfleet/afm/internal/registry"
)

// Key identifies one group in the tree.
type Key struct {
	TopLevel string
	Project  string
}

// Group is one (top_level, project) bucket with its agents ordered by
// recency.
type Group struct {
	Key    Key
	Agents []registry.Agent
}

// Classify derives the group key for a working directory.
//
// A path containing a "work" segment groups under "work/<client>" with
// the remaining segments as the project ("root" when the client dir
// itself is the working dir). A "personal" segment groups under
// "personal" with the next segment as the project. Anything else is
// "uncategorized"/"other".
func Classify(workingDir string) Key {
	segments := splitPath(workingDir)

	if idx := indexOf(segments, "work"); idx >= 0 && idx < len(segments)-1 {
		top := "work/" + segments[idx+1]
		rest := segments[idx+2:]
		if len(rest) == 0 {
			return Key{TopLevel: top, Project: "root"}
		}
		return Key{TopLevel: top, Project: strings.Join(rest, "/")}
	}

	if idx := indexOf(segments, "personal"); idx >= 0 && idx < len(segments)-1 {
		return Key{TopLevel: "personal", Project: segments[idx+1]}
	}

	return Key{TopLevel: "uncategorized", Project: "other"}
}

// GroupAgents buckets agents by classification. Groups come back in
// first-seen order over the input, which keeps the tree stable across
// refreshes as long as the registry order is stable. Within a group,
// agents sort by LastUpdated descending; ties keep input order.
func GroupAgents(agents []registry.Agent) []Group {
	index := make(map[Key]int)
	var groups []Group

	for _, a := range agents {
		k := Classify(a.WorkingDir)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Agents = append(groups[i].Agents, a)
	}

	for i := range groups {
		sort.SliceStable(groups[i].Agents, func(a, b int) bool {
			return groups[i].Agents[a].LastUpdated.After(groups[i].Agents[b].LastUpdated)
		})
	}

	return groups
}

// splitPath splits on both separators so Windows-style registry
// entries still classify.
func splitPath(p string) []string {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return parts
}

func indexOf(segments []string, name string) int {
	for i, s := range segments {
		if s == name {
			return i
		}
	}
	return -1
}
