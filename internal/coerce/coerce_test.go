package coerce

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/steveyegge/issueboard/internal/types"
)

func ptr(s string) *string { return &s }

func TestCoerceCascadeOrder(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		action     types.Action
		wantSource Source
		want       map[string]any
	}{
		{
			name:       "json object",
			content:    `{"status": "x"}`,
			action:     types.ActionUpdate,
			wantSource: SourceJSON,
			want:       map[string]any{"status": "x"},
		},
		{
			name:       "yaml mapping",
			content:    "status: x\npriority: y",
			action:     types.ActionUpdate,
			wantSource: SourceYAML,
			want:       map[string]any{"status": "x", "priority": "y"},
		},
		{
			name:       "prose on create",
			content:    "just some prose",
			action:     types.ActionCreate,
			wantSource: SourceProse,
			want:       map[string]any{"title": "just some prose", "description": "just some prose"},
		},
		{
			name:       "prose on update",
			content:    "looked into it, no repro",
			action:     types.ActionUpdate,
			wantSource: SourceProse,
			want:       map[string]any{"details": "looked into it, no repro"},
		},
		{
			name:       "no prose fallback for assign",
			content:    "please take this",
			action:     types.ActionAssign,
			wantSource: SourceNone,
			want:       map[string]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(ptr(tt.content), tt.action)
			if got.Source != tt.wantSource {
				t.Fatalf("Source = %v, want %v", got.Source, tt.wantSource)
			}
			if !reflect.DeepEqual(got.Fields, tt.want) {
				t.Errorf("Fields = %#v, want %#v", got.Fields, tt.want)
			}
		})
	}
}

func TestCoerceNil(t *testing.T) {
	got := Coerce(nil, types.ActionCreate)
	if got.Parsed() || got.Fields == nil || len(got.Fields) != 0 {
		t.Errorf("Coerce(nil) = %+v, want empty unparsed result", got)
	}
}

func TestProseTitleTruncatesRunes(t *testing.T) {
	content := "ünïcödé títle that is definitely longer than the limit"
	fields, ok := Prose(content, types.ActionCreate)
	if !ok {
		t.Fatal("Prose(create) should succeed")
	}
	title := fields["title"].(string)
	if n := len([]rune(title)); n != TitleRunes {
		t.Errorf("title has %d runes, want %d", n, TitleRunes)
	}
	if fields["description"] != content {
		t.Errorf("description = %q, want full content", fields["description"])
	}
}

func TestParseJSONEscapesLiteralNewlines(t *testing.T) {
	fields, err := ParseJSON("{\"details\": \"line one\nline two\"}")
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if fields["details"] != "line one\nline two" {
		t.Errorf("details = %q", fields["details"])
	}
}

func TestParseJSONToleratesCommentsAndTrailingCommas(t *testing.T) {
	fields, err := ParseJSON("{\n  // agent note\n  \"status\": \"in progress\",\n}")
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if fields["status"] != "in progress" {
		t.Errorf("status = %v", fields["status"])
	}
}

func TestParseJSONRejectsNonObjects(t *testing.T) {
	for _, in := range []string{`"a string"`, `42`, `[1,2]`, `not json`} {
		if _, err := ParseJSON(in); err == nil {
			t.Errorf("ParseJSON(%q) should fail", in)
		}
	}
}

func TestParseYAMLNormalizesKeys(t *testing.T) {
	fields, err := ParseYAML("Status: In Progress\nPRIORITY: high\nEstimate: 3d\nBranch: fix/login")
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if fields["status"] != "in progress" {
		t.Errorf("status = %v, want lower-cased", fields["status"])
	}
	if fields["priority"] != "high" {
		t.Errorf("priority = %v", fields["priority"])
	}
	want := []any{
		map[string]any{"estimate": "3d"},
		map[string]any{"branch": "fix/login"},
	}
	if !reflect.DeepEqual(fields["details"], want) {
		t.Errorf("details = %#v, want %#v", fields["details"], want)
	}
}

func TestParseYAMLWrapsExistingDetails(t *testing.T) {
	fields, err := ParseYAML("details: investigated\nticket: ABC-1")
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	want := []any{"investigated", map[string]any{"ticket": "ABC-1"}}
	if !reflect.DeepEqual(fields["details"], want) {
		t.Errorf("details = %#v, want %#v", fields["details"], want)
	}
}

func TestParseYAMLRejectsScalars(t *testing.T) {
	for _, in := range []string{"just words", "", "- a\n- b"} {
		if _, err := ParseYAML(in); err == nil {
			t.Errorf("ParseYAML(%q) should fail", in)
		}
	}
}

func TestBuilderEvent(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)
	b := Builder{Now: now, Logger: slog.New(slog.DiscardHandler)}
	fields, err := ParseJSON(`{"status":"completed","priority":2,"updated_at":"-2h","notes":"n","details":"done"}`)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	ev := b.Event(fields)
	if ev.Status != "completed" || ev.Priority != "2" || ev.Details != "done" {
		t.Errorf("Event = %+v", ev)
	}
	if !ev.UpdatedAt.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("UpdatedAt = %v, want %v", ev.UpdatedAt.Time, now.Add(-2*time.Hour))
	}
	if ev.Extra["notes"] != "n" {
		t.Errorf("Extra = %+v", ev.Extra)
	}
}

func TestBuilderDropsBadTimestamp(t *testing.T) {
	b := Builder{Now: time.Now(), Logger: slog.New(slog.DiscardHandler)}
	ev := b.Event(map[string]any{"updated_at": "whenever you like"})
	if ev.UpdatedAt.Set() {
		t.Errorf("UpdatedAt should be unset, got %v", ev.UpdatedAt)
	}
}

func TestBuilderRecordUpdates(t *testing.T) {
	b := Builder{Now: time.Now(), Logger: slog.New(slog.DiscardHandler)}
	fields, err := ParseJSON(`{"title":"t","updates":[{"status":"new"},{"details":"more"}],"component":"api"}`)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	rec := b.Record(fields)
	if rec.Title != "t" || len(rec.Updates) != 2 || rec.Updates[0].Status != "new" {
		t.Errorf("Record = %+v", rec)
	}
	if rec.Extra["component"] != "api" {
		t.Errorf("Extra = %+v", rec.Extra)
	}
}
