package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the on-disk layout for updated_at and created_at.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time that round-trips the legacy record layout.
// A stored value that cannot be parsed keeps its raw text and orders as the zero time.
type Timestamp struct {
	time.Time
	raw string
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Set reports whether the timestamp carries a value, parsed or raw.
func (ts Timestamp) Set() bool {
	return !ts.Time.IsZero() || ts.raw != ""
}

// String renders the timestamp in TimestampLayout. The layout carries no
// zone, so the wall clock is written in the local zone it is read back in.
func (ts Timestamp) String() string {
	if ts.Time.IsZero() {
		return ts.raw
	}
	return ts.Time.In(time.Local).Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Non-string timestamps are kept verbatim and sort first.
		*ts = Timestamp{raw: string(data)}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		*ts = Timestamp{raw: s}
		return nil
	}
	*ts = parsed
	return nil
}

// Event is one append-only update to an issue. Empty strings mean the field is not asserted.
type Event struct {
	Status    string
	Priority  string
	Assignee  string
	UpdatedBy string
	UpdatedAt Timestamp
	// Details is free text or structured annotations.
	Details any
	// Extra holds unrecognized keys, written back verbatim.
	Extra map[string]any
}

const (
	keyStatus      = "status"
	keyPriority    = "priority"
	keyAssignee    = "assignee"
	keyUpdatedBy   = "updated_by"
	keyUpdatedAt   = "updated_at"
	keyDetails     = "details"
	keyTitle       = "title"
	keyDescription = "description"
	keyCreatedAt   = "created_at"
	keyUpdates     = "updates"
)

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		m[k] = v
	}
	putString(m, keyStatus, e.Status)
	putString(m, keyPriority, e.Priority)
	putString(m, keyAssignee, e.Assignee)
	putString(m, keyUpdatedBy, e.UpdatedBy)
	if e.UpdatedAt.Set() {
		m[keyUpdatedAt] = e.UpdatedAt
	}
	if e.Details != nil {
		m[keyDetails] = e.Details
	}
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	var ev Event
	var err error
	if ev.Status, err = takeString(raw, keyStatus); err != nil {
		return err
	}
	if ev.Priority, err = takeString(raw, keyPriority); err != nil {
		return err
	}
	if ev.Assignee, err = takeString(raw, keyAssignee); err != nil {
		return err
	}
	if ev.UpdatedBy, err = takeString(raw, keyUpdatedBy); err != nil {
		return err
	}
	if ev.UpdatedAt, err = takeTimestamp(raw, keyUpdatedAt); err != nil {
		return err
	}
	if ev.Details, err = takeAny(raw, keyDetails); err != nil {
		return err
	}
	if ev.Extra, err = rest(raw); err != nil {
		return err
	}
	*e = ev
	return nil
}

// Record is the persisted form of an issue: top-level fields plus the event log.
// Status, Priority, Assignee and UpdatedBy at top level are legacy values used as
// fallbacks when no event sets the field.
type Record struct {
	Title       string
	Description string
	CreatedAt   Timestamp
	Status      string
	Priority    string
	Assignee    string
	UpdatedBy   string
	Updates     []Event
	Extra       map[string]any
}

// LastUpdate returns a pointer to the last event, appending an empty one if none exist.
func (r *Record) LastUpdate() *Event {
	if len(r.Updates) == 0 {
		r.Updates = append(r.Updates, Event{})
	}
	return &r.Updates[len(r.Updates)-1]
}

// Fields returns the record's top-level fields as a generic map, as written to disk.
func (r *Record) Fields() map[string]any {
	m := make(map[string]any, len(r.Extra)+8)
	for k, v := range r.Extra {
		m[k] = v
	}
	putString(m, keyTitle, r.Title)
	putString(m, keyDescription, r.Description)
	if r.CreatedAt.Set() {
		m[keyCreatedAt] = r.CreatedAt.String()
	}
	putString(m, keyStatus, r.Status)
	putString(m, keyPriority, r.Priority)
	putString(m, keyAssignee, r.Assignee)
	putString(m, keyUpdatedBy, r.UpdatedBy)
	updates := r.Updates
	if updates == nil {
		updates = []Event{}
	}
	m[keyUpdates] = updates
	return m
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	var rec Record
	var err error
	for key, dst := range map[string]*string{
		keyTitle:       &rec.Title,
		keyDescription: &rec.Description,
		keyStatus:      &rec.Status,
		keyPriority:    &rec.Priority,
		keyAssignee:    &rec.Assignee,
		keyUpdatedBy:   &rec.UpdatedBy,
	} {
		if *dst, err = takeString(raw, key); err != nil {
			return err
		}
	}
	if rec.CreatedAt, err = takeTimestamp(raw, keyCreatedAt); err != nil {
		return err
	}
	if u, ok := raw[keyUpdates]; ok {
		delete(raw, keyUpdates)
		if !isNull(u) {
			if err := json.Unmarshal(u, &rec.Updates); err != nil {
				return fmt.Errorf("decode %s: %w", keyUpdates, err)
			}
		}
	}
	if rec.Extra, err = rest(raw); err != nil {
		return err
	}
	*r = rec
	return nil
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func isNull(b json.RawMessage) bool {
	return len(bytes.TrimSpace(b)) == 0 || string(bytes.TrimSpace(b)) == "null"
}

// takeString removes key from raw and decodes it as a string. Numbers and
// booleans are accepted and rendered in their JSON form (priority: 2).
func takeString(raw map[string]json.RawMessage, key string) (string, error) {
	b, ok := raw[key]
	if !ok {
		return "", nil
	}
	delete(raw, key)
	if isNull(b) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), nil
	}
	var flag bool
	if err := json.Unmarshal(b, &flag); err == nil {
		return strconv.FormatBool(flag), nil
	}
	return "", fmt.Errorf("decode %s: expected a string, got %s", key, b)
}

func takeTimestamp(raw map[string]json.RawMessage, key string) (Timestamp, error) {
	b, ok := raw[key]
	if !ok {
		return Timestamp{}, nil
	}
	delete(raw, key)
	if isNull(b) {
		return Timestamp{}, nil
	}
	var ts Timestamp
	if err := json.Unmarshal(b, &ts); err != nil {
		return Timestamp{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return ts, nil
}

func takeAny(raw map[string]json.RawMessage, key string) (any, error) {
	b, ok := raw[key]
	if !ok {
		return nil, nil
	}
	delete(raw, key)
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func rest(raw map[string]json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(raw))
	for k, b := range raw {
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
