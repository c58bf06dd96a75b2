// Package tracker defines the storage contract every issue backend implements,
// plus the shared pieces adapters need: a registry, a config view, error kinds,
// list filtering, and read-only retry.
package tracker

import (
	"context"
	"strings"

	"github.com/steveyegge/issueboard/internal/types"
)

// Backend is the storage-level contract for the list/create/read/update/assign
// protocol. Implementations convert lower-level failures into the error kinds
// declared in this package.
type Backend interface {
	// Name returns the registry name (e.g. "local", "github", "jira").
	Name() string

	// ListIssues returns issues at or below prefix that match filter.
	// Records that cannot be decoded are reported as items with status "error".
	ListIssues(ctx context.Context, prefix string, filter ListFilter) ([]types.ListItem, error)

	// CreateIssue persists rec as a new issue under parent (empty for top level).
	// assignee is the caller-supplied assignee, passed separately for backends
	// that store it natively; it may be empty.
	CreateIssue(ctx context.Context, parent string, rec *types.Record, assignee string) (*types.Outcome, error)

	// ReadIssue returns native fields plus the derived view.
	ReadIssue(ctx context.Context, id string) (types.Detail, error)

	// AppendEvent appends ev to the issue after guard accepts the current view.
	AppendEvent(ctx context.Context, id string, ev types.Event, guard Guard) error

	// SetAssignee reassigns the issue and records ev, after guard accepts the current view.
	// The assignee is not re-checked; callers validate through AssigneeValidator.
	SetAssignee(ctx context.Context, id, assignee string, ev types.Event, guard Guard) error
}

// Guard inspects the current derived view immediately before a mutation.
// A non-nil error aborts the mutation. Backends that can serialize writers
// run the guard and the append under the same lock.
type Guard func(current types.View) error

// AssigneeValidator is implemented by backends that can check an assignee
// exists before it is used.
type AssigneeValidator interface {
	ValidateAssignee(ctx context.Context, name string) error
}

// RejectTerminal is the guard used for update and assign.
func RejectTerminal(current types.View) error {
	if current.Terminal() {
		return ErrAlreadyTerminal
	}
	return nil
}

// ListFilter narrows a listing. Zero values match everything.
type ListFilter struct {
	// OnlyInState keeps issues whose status is one of these (case-insensitive).
	OnlyInState []string
	// Assignee keeps issues assigned to this name.
	Assignee string
}

// States returns the normalized state set. "in progress" also admits "in process".
// The filter's own slice is never modified.
func (f ListFilter) States() []string {
	if len(f.OnlyInState) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.OnlyInState)+1)
	hasProcess := false
	hasProgress := false
	for _, s := range f.OnlyInState {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		switch s {
		case types.StatusInProcess:
			hasProcess = true
		case types.StatusInProgress:
			hasProgress = true
		}
		out = append(out, s)
	}
	if hasProgress && !hasProcess {
		out = append(out, types.StatusInProcess)
	}
	return out
}

// Matches reports whether an issue with view v passes the filter.
func (f ListFilter) Matches(v types.View) bool {
	if states := f.States(); len(states) > 0 {
		status := strings.ToLower(v.Status)
		found := false
		for _, s := range states {
			if s == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Assignee != "" && !strings.EqualFold(f.Assignee, v.Assignee) {
		return false
	}
	return true
}
