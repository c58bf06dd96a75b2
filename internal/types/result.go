package types

import "encoding/json"

// Outcome status values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// ListItem is one row of a list result. A record that cannot be decoded yields
// an item with Status "error" and Message set.
type ListItem struct {
	Issue    string `json:"issue"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status"`
	Assignee string `json:"assignee,omitempty"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Outcome is the result of a mutation or any failed action.
type Outcome struct {
	Issue       string `json:"issue,omitempty"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	ParentIssue string `json:"parent_issue,omitempty"`
}

// Failed reports whether the outcome is an error.
func (o Outcome) Failed() bool { return o.Status == OutcomeError }

// ErrorOutcome builds the uniform error shape.
func ErrorOutcome(issue, message string) Outcome {
	return Outcome{Issue: issue, Status: OutcomeError, Message: message}
}

// Detail is the result of a read: the backend's native fields plus the derived view.
type Detail struct {
	Issue string
	View  View
	// Fields holds backend-native fields (title, description, updates, body, ...).
	Fields map[string]any
}

// MarshalJSON flattens Fields alongside issue# and the latest_* keys.
func (d Detail) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Fields)+5)
	for k, v := range d.Fields {
		m[k] = v
	}
	m["issue#"] = d.Issue
	m["latest_status"] = d.View.Status
	m["latest_priority"] = d.View.Priority
	m["latest_assignee"] = d.View.Assignee
	m["latest_updated_by"] = d.View.UpdatedBy
	return json.Marshal(m)
}
