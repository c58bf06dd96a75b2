package coerce

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/issueboard/internal/timeparsing"
	"github.com/steveyegge/issueboard/internal/types"
)

// Builder converts coerced fields into typed events and records.
type Builder struct {
	// Now is the reference time for relative expressions like "-2h" or "yesterday".
	Now    time.Time
	Logger *slog.Logger
}

func (b Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Event builds an update event. Keys outside the event's own fields are kept in Extra.
func (b Builder) Event(fields map[string]any) types.Event {
	var ev types.Event
	for k, v := range fields {
		switch k {
		case "status":
			ev.Status = Stringify(v)
		case "priority":
			ev.Priority = Stringify(v)
		case "assignee":
			ev.Assignee = Stringify(v)
		case "updated_by":
			ev.UpdatedBy = Stringify(v)
		case "updated_at":
			ev.UpdatedAt = b.timestamp(k, v)
		case "details":
			ev.Details = v
		default:
			if ev.Extra == nil {
				ev.Extra = make(map[string]any)
			}
			ev.Extra[k] = v
		}
	}
	return ev
}

// Record builds a new issue record. An "updates" list of objects becomes the
// event log; anything else unrecognized is kept in Extra.
func (b Builder) Record(fields map[string]any) types.Record {
	var rec types.Record
	for k, v := range fields {
		switch k {
		case "title":
			rec.Title = Stringify(v)
		case "description":
			rec.Description = Stringify(v)
		case "created_at":
			rec.CreatedAt = b.timestamp(k, v)
		case "status":
			rec.Status = Stringify(v)
		case "priority":
			rec.Priority = Stringify(v)
		case "assignee":
			rec.Assignee = Stringify(v)
		case "updated_by":
			rec.UpdatedBy = Stringify(v)
		case "updates":
			if updates, ok := b.updates(v); ok {
				rec.Updates = updates
				continue
			}
			b.logger().Warn("ignoring malformed updates list", "value", v)
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[k] = v
		}
	}
	return rec
}

func (b Builder) updates(v any) ([]types.Event, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]types.Event, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, b.Event(m))
	}
	return out, true
}

func (b Builder) timestamp(key string, v any) types.Timestamp {
	switch t := v.(type) {
	case time.Time:
		return types.NewTimestamp(t)
	case string:
		now := b.Now
		if now.IsZero() {
			now = time.Now()
		}
		parsed, err := timeparsing.ParseRelativeTime(t, now)
		if err == nil {
			return types.NewTimestamp(parsed)
		}
		b.logger().Warn("dropping unparseable timestamp", "key", key, "value", t)
	default:
		b.logger().Warn("dropping non-string timestamp", "key", key, "value", v)
	}
	return types.Timestamp{}
}

// Stringify renders scalar values as text; structured values are JSON-encoded.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// DetailsText renders event details as plain text for remote comments.
// Lists become "- " bullets and maps become "key: value" lines in key order.
func DetailsText(d any) string {
	switch v := d.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := DetailsText(item); s != "" {
				parts = append(parts, "- "+strings.TrimPrefix(s, "- "))
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+DetailsText(v[k]))
		}
		return strings.Join(parts, "\n")
	}
	return Stringify(d)
}
