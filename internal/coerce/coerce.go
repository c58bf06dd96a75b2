// Package coerce turns free-form caller content into structured issue fields.
//
// Content is tried against an ordered cascade of parsers and the first one that
// succeeds wins: JSON, then YAML, then (for create and update only) a prose
// fallback that never fails. Each parser is a pure function.
package coerce

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/issueboard/internal/types"
)

// Source identifies which parser produced a Result.
type Source int

const (
	SourceNone Source = iota
	SourceJSON
	SourceYAML
	SourceProse
)

func (s Source) String() string {
	switch s {
	case SourceJSON:
		return "json"
	case SourceYAML:
		return "yaml"
	case SourceProse:
		return "prose"
	default:
		return "none"
	}
}

// Result is the outcome of the cascade. Fields is never nil.
type Result struct {
	Fields map[string]any
	Source Source
}

// Parsed reports whether any parser accepted the content.
func (r Result) Parsed() bool { return r.Source != SourceNone }

// TitleRunes is the length of the title derived from prose on create.
const TitleRunes = 24

// RecognizedKeys are the field names normalized to lower case by the YAML parser.
var RecognizedKeys = []string{
	"title", "description", "details", "priority", "status",
	"assignee", "updated_by", "updated_at", "created_at",
}

var errNotObject = errors.New("content is not a key/value object")

// Coerce runs the cascade. A nil raw yields an empty Result with SourceNone.
func Coerce(raw *string, action types.Action) Result {
	if raw == nil {
		return Result{Fields: map[string]any{}}
	}
	content := *raw
	if fields, err := ParseJSON(content); err == nil {
		return Result{Fields: fields, Source: SourceJSON}
	}
	if fields, err := ParseYAML(content); err == nil {
		return Result{Fields: fields, Source: SourceYAML}
	}
	if fields, ok := Prose(content, action); ok {
		return Result{Fields: fields, Source: SourceProse}
	}
	return Result{Fields: map[string]any{}}
}

// ParseJSON decodes content as a JSON object. Comments and trailing commas are
// tolerated. Content that only fails because of literal newlines inside string
// values is retried with the newlines escaped.
func ParseJSON(content string) (map[string]any, error) {
	fields, err := decodeJSONObject(content)
	if err == nil {
		return fields, nil
	}
	if strings.Contains(content, "\n") {
		if fields, escErr := decodeJSONObject(strings.ReplaceAll(content, "\n", `\n`)); escErr == nil {
			return fields, nil
		}
	}
	return nil, err
}

func decodeJSONObject(content string) (map[string]any, error) {
	data := jsonc.ToJSON([]byte(content))
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse json: trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// ParseYAML decodes content as a YAML mapping. Recognized keys are lower-cased
// and a status value is lower-cased; every other key is appended to the
// details list as a single-entry map, in document order.
func ParseYAML(content string) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errNotObject
	}
	mapping := doc.Content[0]
	fields := make(map[string]any, len(mapping.Content)/2)
	var unknown []any
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i].Value
		var val any
		if err := mapping.Content[i+1].Decode(&val); err != nil {
			return nil, fmt.Errorf("parse yaml: key %q: %w", key, err)
		}
		lk := strings.ToLower(key)
		if !isRecognized(lk) {
			unknown = append(unknown, map[string]any{lk: val})
			continue
		}
		if lk == "status" {
			if s, ok := val.(string); ok {
				val = strings.ToLower(s)
			}
		}
		fields[lk] = val
	}
	if len(unknown) > 0 {
		fields["details"] = append(detailsList(fields["details"]), unknown...)
	}
	return fields, nil
}

// detailsList wraps an existing non-list details value so unknown keys can be appended.
func detailsList(v any) []any {
	switch d := v.(type) {
	case nil:
		return nil
	case []any:
		return d
	case string:
		if d == "" {
			return nil
		}
	}
	return []any{v}
}

func isRecognized(key string) bool {
	for _, k := range RecognizedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Prose is the last resort. On create the content becomes the description and
// its first TitleRunes runes the title; on update it becomes the event details.
// Other actions have no prose form.
func Prose(content string, action types.Action) (map[string]any, bool) {
	switch action {
	case types.ActionCreate:
		return map[string]any{
			"title":       truncateRunes(content, TitleRunes),
			"description": content,
		}, true
	case types.ActionUpdate:
		return map[string]any{"details": content}, true
	}
	return nil, false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
