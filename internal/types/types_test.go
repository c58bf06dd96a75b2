package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"completed", true},
		{"closed", true},
		{"Closed", true},
		{" completed ", true},
		{"new", false},
		{"in progress", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTerminal(tt.status); got != tt.want {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"low", "4 - Low"},
		{"Medium", "3 - Medium"},
		{"HIGH", "2 - High"},
		{"critical", "1 - Critical"},
		{"urgent", "0 - Urgent"},
		{"2", "2 - High"},
		{"4 - Low", "4 - Low"},
		{"whenever", "whenever"},
	}
	for _, tt := range tests {
		if got := NormalizePriority(tt.in); got != tt.want {
			t.Errorf("NormalizePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		record  string
		wantErr bool
	}{
		{in: "0/2/5", want: "0/2/5", record: "0.2.5.json"},
		{in: "/7/", want: "7", record: "7.json"},
		{in: "", want: ""},
		{in: "a/1", wantErr: true},
		{in: "1//2", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "+1", wantErr: true},
	}
	for _, tt := range tests {
		p, err := ParsePath(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if p.String() != tt.want {
			t.Errorf("ParsePath(%q) = %q, want %q", tt.in, p.String(), tt.want)
		}
		if tt.record != "" && p.RecordName() != tt.record {
			t.Errorf("RecordName(%q) = %q, want %q", tt.in, p.RecordName(), tt.record)
		}
	}
}

func TestPathChildDoesNotAlias(t *testing.T) {
	base, _ := ParsePath("1/2")
	a := base.Child(3)
	b := base.Child(4)
	if a.String() != "1/2/3" || b.String() != "1/2/4" {
		t.Fatalf("Child aliasing: got %q and %q", a, b)
	}
	if got := a.Parent().String(); got != "1/2" {
		t.Errorf("Parent() = %q, want %q", got, "1/2")
	}
	if got := a.Base(); got != 3 {
		t.Errorf("Base() = %d, want 3", got)
	}
	if got := (Path{}).Base(); got != -1 {
		t.Errorf("root Base() = %d, want -1", got)
	}
}

func TestEventRoundTripPreservesUnknownKeys(t *testing.T) {
	in := `{"status":"new","priority":2,"updated_at":"2024-05-01T10:00:00.000000","details":["a",{"k":"v"}],"estimate":"3d"}`
	var ev Event
	if err := json.Unmarshal([]byte(in), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.Priority != "2" {
		t.Errorf("Priority = %q, want %q", ev.Priority, "2")
	}
	if ev.Extra["estimate"] != "3d" {
		t.Errorf("Extra[estimate] = %v, want 3d", ev.Extra["estimate"])
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	if !ev.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", ev.UpdatedAt.Time, want)
	}

	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, frag := range []string{`"estimate":"3d"`, `"updated_at":"2024-05-01T10:00:00.000000"`, `"status":"new"`} {
		if !strings.Contains(string(out), frag) {
			t.Errorf("Marshal output %s missing %s", out, frag)
		}
	}
	if strings.Contains(string(out), `"assignee"`) {
		t.Errorf("Marshal output %s should omit unset assignee", out)
	}
}

// setLocalZone swaps time.Local for the duration of the test.
func setLocalZone(t *testing.T, loc *time.Location) {
	t.Helper()
	orig := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = orig })
}

func TestTimestampRoundTripOutsideUTC(t *testing.T) {
	setLocalZone(t, time.FixedZone("IST", 5*3600+1800))

	instant := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	out, err := json.Marshal(Event{Status: "new", UpdatedAt: NewTimestamp(instant)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"updated_at":"2024-01-01T15:30:00.000000"`) {
		t.Errorf("Marshal output %s should carry the local wall clock", out)
	}

	var back Event
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.UpdatedAt.Equal(instant) {
		t.Errorf("round trip moved %v to %v", instant, back.UpdatedAt.Time.UTC())
	}
}

func TestTimestampUnparseableKeepsRaw(t *testing.T) {
	var ev Event
	if err := json.Unmarshal([]byte(`{"updated_at":"sometime last week"}`), &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !ev.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt should be zero for unparseable input, got %v", ev.UpdatedAt.Time)
	}
	out, _ := json.Marshal(ev)
	if !strings.Contains(string(out), "sometime last week") {
		t.Errorf("raw timestamp not preserved: %s", out)
	}
}

func TestRecordDecodeLegacyTopLevel(t *testing.T) {
	in := `{"title":"t","status":"in progress","assignee":"bob","updates":[{"details":"x"}],"labels":["a"]}`
	var rec Record
	if err := json.Unmarshal([]byte(in), &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec.Status != "in progress" || rec.Assignee != "bob" {
		t.Errorf("legacy fields = %q/%q", rec.Status, rec.Assignee)
	}
	if len(rec.Updates) != 1 || rec.Updates[0].Details != "x" {
		t.Errorf("Updates = %+v", rec.Updates)
	}
	if _, ok := rec.Extra["labels"]; !ok {
		t.Errorf("unknown key labels dropped: %+v", rec.Extra)
	}
}

func TestRecordRejectsNonObject(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`[1,2]`), &rec); err == nil {
		t.Error("expected error decoding array as record")
	}
}

func TestDetailMarshal(t *testing.T) {
	d := Detail{
		Issue:  "3",
		View:   View{Status: "new", Priority: "4 - Low", Assignee: "a", UpdatedBy: "b"},
		Fields: map[string]any{"title": "hello"},
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["issue#"] != "3" || m["latest_status"] != "new" || m["title"] != "hello" {
		t.Errorf("Detail JSON = %s", out)
	}
}

func TestParseAction(t *testing.T) {
	if a, ok := ParseAction("update"); !ok || a != ActionUpdate {
		t.Errorf("ParseAction(update) = %q, %v", a, ok)
	}
	if _, ok := ParseAction("delete"); ok {
		t.Error("ParseAction(delete) should fail")
	}
	if !ActionAssign.Mutates() || ActionRead.Mutates() {
		t.Error("Mutates() misclassified")
	}
}
