// Package roster lists the agent names an issue may be assigned to.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// Roster reports the known agent names.
type Roster interface {
	Agents(ctx context.Context) ([]string, error)
}

// Dir is a roster backed by a directory of agent definitions: every
// <name>.json file names one agent.
type Dir string

// Agents implements Roster. A missing directory is an empty roster.
func (d Dir) Agents(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(string(d))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agents dir %s: %w", string(d), err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Static is a fixed roster.
type Static []string

// Agents implements Roster.
func (s Static) Agents(context.Context) ([]string, error) {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out, nil
}

// Multi merges several rosters.
type Multi []Roster

// Agents implements Roster. Duplicate names are reported once.
func (m Multi) Agents(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, r := range m {
		names, err := r.Agents(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// ErrNotOnRoster is returned by Check for unknown names.
var ErrNotOnRoster = errors.New("not a valid agent")

// Check verifies name is on the roster. A nil roster turns the check off;
// an empty one accepts no name.
func Check(ctx context.Context, r Roster, name string) error {
	if r == nil {
		return nil
	}
	names, err := r.Agents(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("Assignee %s is %w, please only assign to one of the following agents: [%s]",
		name, ErrNotOnRoster, quoteList(names))
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}
