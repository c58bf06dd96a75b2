package github

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/steveyegge/issueboard/internal/coerce"
	"github.com/steveyegge/issueboard/internal/types"
)

// StatusFromLabelsAndState determines the issue status from GitHub labels and state.
// GitHub's closed state takes precedence over status labels.
func StatusFromLabelsAndState(labels []Label, state string) string {
	// Closed state always wins
	if state == "closed" {
		return types.StatusClosed
	}
	for _, label := range labels {
		if prefix, value := ParseLabelName(label.Name); prefix == StatusPrefix && value != "" {
			return value
		}
	}
	return types.DefaultStatus
}

// PriorityFromLabels extracts the priority from GitHub labels.
// Supports "priority:2 - High" and the shorthand P0..P4.
func PriorityFromLabels(labels []Label) string {
	for _, label := range labels {
		prefix, value := ParseLabelName(label.Name)
		if prefix == PriorityPrefix && value != "" {
			return value
		}
		upper := strings.ToUpper(label.Name)
		if len(upper) == 2 && upper[0] == 'P' && upper[1] >= '0' && upper[1] <= '4' {
			return types.NormalizePriority(upper[1:])
		}
	}
	return types.DefaultPriority
}

// ParentFromLabels returns the parent issue number from a "parent:#N" label, or 0.
func ParentFromLabels(labels []Label) int {
	for _, label := range labels {
		if prefix, value := ParseLabelName(label.Name); prefix == ParentPrefix {
			if n, err := strconv.Atoi(strings.TrimPrefix(value, "#")); err == nil {
				return n
			}
		}
	}
	return 0
}

// ViewFromIssue derives the current view of a GitHub issue.
func ViewFromIssue(issue *Issue) types.View {
	v := types.View{
		Status:    StatusFromLabelsAndState(issue.Labels, issue.State),
		Priority:  PriorityFromLabels(issue.Labels),
		Assignee:  types.Unassigned,
		UpdatedBy: types.Unknown,
	}
	if issue.Assignee != nil && issue.Assignee.Login != "" {
		v.Assignee = issue.Assignee.Login
	}
	if issue.User != nil && issue.User.Login != "" {
		v.UpdatedBy = issue.User.Login
	}
	return v
}

// StatusLabel returns the label carrying status.
func StatusLabel(status string) string { return StatusPrefix + ":" + status }

// PriorityLabel returns the label carrying priority.
func PriorityLabel(priority string) string { return PriorityPrefix + ":" + priority }

// ParentLabel returns the label linking a sub-issue to its parent.
func ParentLabel(parent int) string { return fmt.Sprintf("%s:#%d", ParentPrefix, parent) }

// SubIssueNote is appended to a sub-issue's body.
func SubIssueNote(parent int) string { return fmt.Sprintf("\n\n_Sub-issue of #%d_", parent) }

// CreateLabels builds the label set for a new issue.
func CreateLabels(status, priority string, parent int) []string {
	labels := []string{PriorityLabel(priority), StatusLabel(status)}
	if parent > 0 {
		labels = append(labels, ParentLabel(parent))
	}
	return labels
}

// ReplaceStateLabels returns current with its status and priority labels
// replaced by the given values. An empty value keeps the existing label.
func ReplaceStateLabels(current []string, status, priority string) []string {
	out := make([]string, 0, len(current)+2)
	for _, name := range current {
		prefix, _ := ParseLabelName(name)
		if (prefix == StatusPrefix && status != "") || (prefix == PriorityPrefix && priority != "") {
			continue
		}
		out = append(out, name)
	}
	if status != "" {
		out = append(out, StatusLabel(status))
	}
	if priority != "" {
		out = append(out, PriorityLabel(priority))
	}
	return out
}

// EventComment renders an event as an issue comment. It returns "" when the
// event carries nothing worth recording.
func EventComment(ev types.Event) string {
	var lines []string
	if ev.Status != "" {
		lines = append(lines, "status: "+ev.Status)
	}
	if ev.Priority != "" {
		lines = append(lines, "priority: "+ev.Priority)
	}
	if ev.Assignee != "" {
		lines = append(lines, "assignee: "+ev.Assignee)
	}
	if d := coerce.DetailsText(ev.Details); d != "" {
		lines = append(lines, "", d)
	}
	if len(lines) == 0 {
		return ""
	}
	header := "Update"
	if ev.UpdatedBy != "" {
		header = "Update by " + ev.UpdatedBy
	}
	if ev.UpdatedAt.Set() {
		header += " at " + ev.UpdatedAt.String()
	}
	return "_" + header + "_\n\n" + strings.Join(lines, "\n")
}
