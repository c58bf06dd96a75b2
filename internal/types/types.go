// Package types defines the core data structures for the issueboard store.
package types

import (
	"strconv"
	"strings"
)

// Well-known status values. Any other string is accepted as a status.
const (
	StatusNew        = "new"
	StatusInProgress = "in progress"
	StatusInProcess  = "in process"
	StatusCompleted  = "completed"
	StatusClosed     = "closed"
)

// Defaults applied by the reducer when no event sets a field.
const (
	DefaultStatus   = StatusNew
	DefaultPriority = "4 - Low"
	Unknown         = "unknown"
	Unassigned      = "unassigned"
)

// IsTerminal reports whether an issue in this status accepts no further events.
func IsTerminal(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusCompleted, StatusClosed:
		return true
	}
	return false
}

var priorityLabels = []string{"Urgent", "Critical", "High", "Medium", "Low"}

// NormalizePriority maps priority words (low, medium, high, critical, urgent)
// and bare ranks 0-4 to the canonical "<rank> - <Label>" form.
// Anything else is returned unchanged.
func NormalizePriority(p string) string {
	s := strings.ToLower(strings.TrimSpace(p))
	for rank, label := range priorityLabels {
		if s == strings.ToLower(label) || s == strconv.Itoa(rank) {
			return strconv.Itoa(rank) + " - " + label
		}
	}
	return p
}

// View is the derived current state of an issue.
type View struct {
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Assignee  string `json:"assignee"`
	UpdatedBy string `json:"updated_by"`
}

// DefaultView returns the view of an issue with no events.
func DefaultView() View {
	return View{
		Status:    DefaultStatus,
		Priority:  DefaultPriority,
		Assignee:  Unknown,
		UpdatedBy: Unknown,
	}
}

// Terminal reports whether the view is in a terminal status.
func (v View) Terminal() bool {
	return IsTerminal(v.Status)
}

// Action names one of the operations accepted by the dispatcher.
type Action string

const (
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionAssign Action = "assign"
)

// ValidActions lists the accepted actions in display order.
var ValidActions = []Action{ActionList, ActionCreate, ActionRead, ActionUpdate, ActionAssign}

// ParseAction returns the Action named by s.
func ParseAction(s string) (Action, bool) {
	for _, a := range ValidActions {
		if string(a) == s {
			return a, true
		}
	}
	return Action(s), false
}

// Mutates reports whether the action appends events or records.
func (a Action) Mutates() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionAssign
}
