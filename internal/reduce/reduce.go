// Package reduce derives an issue's current state from its event log.
//
// Each field of the view is resolved independently: among the events that set
// the field, the one with the latest updated_at wins, and equal timestamps are
// broken by append position (later wins). Events without a parseable updated_at
// order before every dated event.
package reduce

import "github.com/steveyegge/issueboard/internal/types"

// Derive reduces a record. The record's top-level status, priority, assignee
// and updated_by act as fallbacks for fields no event sets, then the defaults apply.
func Derive(rec *types.Record) types.View {
	fallback := types.DefaultView()
	if rec == nil {
		return fallback
	}
	if rec.Status != "" {
		fallback.Status = rec.Status
	}
	if rec.Priority != "" {
		fallback.Priority = rec.Priority
	}
	if rec.Assignee != "" {
		fallback.Assignee = rec.Assignee
	}
	if rec.UpdatedBy != "" {
		fallback.UpdatedBy = rec.UpdatedBy
	}
	return DeriveEvents(rec.Updates, fallback)
}

// DeriveEvents reduces events, using fallback for each field no event sets.
func DeriveEvents(events []types.Event, fallback types.View) types.View {
	status := newField(fallback.Status)
	priority := newField(fallback.Priority)
	assignee := newField(fallback.Assignee)
	updatedBy := newField(fallback.UpdatedBy)

	for i := range events {
		ev := &events[i]
		status.offer(ev.Status, ev.UpdatedAt)
		priority.offer(ev.Priority, ev.UpdatedAt)
		assignee.offer(ev.Assignee, ev.UpdatedAt)
		updatedBy.offer(ev.UpdatedBy, ev.UpdatedAt)
	}

	return types.View{
		Status:    status.value,
		Priority:  priority.value,
		Assignee:  assignee.value,
		UpdatedBy: updatedBy.value,
	}
}

// field tracks the winning value for one view field.
type field struct {
	value string
	at    types.Timestamp
	seen  bool
}

func newField(def string) *field {
	return &field{value: def}
}

// offer considers v set at ts. Events are offered in append order, so
// accepting on equal timestamps gives the later event the win.
func (f *field) offer(v string, ts types.Timestamp) {
	if v == "" {
		return
	}
	if f.seen && ts.Time.Before(f.at.Time) {
		return
	}
	f.value, f.at, f.seen = v, ts, true
}
