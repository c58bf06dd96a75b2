package jira

import (
	"strings"

	"github.com/steveyegge/issueboard/internal/coerce"
	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/types"
)

// ViewFromIssue derives the current view of a Jira issue. Status and priority
// keep Jira's names; the reporter stands in for the last updater.
func ViewFromIssue(issue *Issue) types.View {
	f := issue.Fields
	v := types.View{
		Status:    types.DefaultStatus,
		Priority:  types.DefaultPriority,
		Assignee:  types.Unassigned,
		UpdatedBy: types.Unknown,
	}
	if f.Status != nil && f.Status.Name != "" {
		v.Status = f.Status.Name
	}
	if f.Priority != nil && f.Priority.Name != "" {
		v.Priority = f.Priority.Name
	}
	if f.Assignee != nil && f.Assignee.DisplayName != "" {
		v.Assignee = f.Assignee.DisplayName
	}
	if f.Reporter != nil && f.Reporter.DisplayName != "" {
		v.UpdatedBy = f.Reporter.DisplayName
	}
	return v
}

// jiraPriorities maps canonical priority labels to Jira's default scheme.
var jiraPriorities = map[string]string{
	"urgent":   "Highest",
	"critical": "High",
	"high":     "High",
	"medium":   "Medium",
	"low":      "Low",
}

// PriorityToJira translates a canonical priority ("2 - High", "low", "0")
// to a Jira priority name. Names it does not recognize pass through unchanged.
func PriorityToJira(p string) string {
	canonical := types.NormalizePriority(p)
	if _, label, ok := strings.Cut(canonical, " - "); ok {
		if name, ok := jiraPriorities[strings.ToLower(label)]; ok {
			return name
		}
	}
	return p
}

// FindTransition returns the transition whose target status name equals status,
// ignoring case. The transition's own name is accepted as a fallback.
func FindTransition(transitions []Transition, status string) (Transition, bool) {
	for _, tr := range transitions {
		if strings.EqualFold(tr.To.Name, status) {
			return tr, true
		}
	}
	for _, tr := range transitions {
		if strings.EqualFold(tr.Name, status) {
			return tr, true
		}
	}
	return Transition{}, false
}

// BuildJQL builds the search query for a listing. Values are quoted with
// embedded quotes and backslashes escaped.
func BuildJQL(project, parent, extra string, filter tracker.ListFilter) string {
	clauses := []string{"project = " + quoteJQL(project)}
	if parent != "" {
		clauses = append(clauses, "parent = "+quoteJQL(parent))
	}
	// Only the caller's states go to Jira; a status unknown to the workflow
	// fails the whole query. The in process alias is matched after the search.
	var quoted []string
	for _, s := range filter.OnlyInState {
		if s = strings.TrimSpace(s); s != "" {
			quoted = append(quoted, quoteJQL(s))
		}
	}
	if len(quoted) > 0 {
		clauses = append(clauses, "status IN ("+strings.Join(quoted, ", ")+")")
	}
	if filter.Assignee != "" {
		clauses = append(clauses, "assignee = "+quoteJQL(filter.Assignee))
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		clauses = append(clauses, "("+extra+")")
	}
	return strings.Join(clauses, " AND ") + " ORDER BY created DESC"
}

func quoteJQL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// EventComment renders an event as a plain-text comment, or "" if there is nothing to say.
func EventComment(ev types.Event) string {
	var lines []string
	for _, kv := range [][2]string{
		{"status", ev.Status},
		{"priority", ev.Priority},
		{"assignee", ev.Assignee},
	} {
		if kv[1] != "" {
			lines = append(lines, kv[0]+": "+kv[1])
		}
	}
	if d := coerce.DetailsText(ev.Details); d != "" {
		lines = append(lines, d)
	}
	if len(lines) == 0 {
		return ""
	}
	if ev.UpdatedBy != "" {
		lines = append([]string{"[" + ev.UpdatedBy + "]"}, lines...)
	}
	return strings.Join(lines, "\n")
}
