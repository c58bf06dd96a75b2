package types

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Path is a hierarchical issue id such as 0/2/5. The empty Path is the root.
type Path []int

// ParsePath parses a slash-separated id. Leading and trailing slashes are ignored.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, "/")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		n, ok := parseSegment(part)
		if !ok {
			return nil, fmt.Errorf("invalid issue id %q: segment %q is not a non-negative integer", s, part)
		}
		p = append(p, n)
	}
	return p, nil
}

// parseSegment accepts only ASCII digits, so signs and spaces are rejected.
func parseSegment(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// ParseSegment parses a directory entry name as a child id.
func ParseSegment(name string) (int, bool) {
	return parseSegment(name)
}

// IsRoot reports whether p names the root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// String returns the slash-separated form.
func (p Path) String() string {
	return p.join("/")
}

// Child returns the path of child n under p.
func (p Path) Child(n int) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, n)
}

// Parent returns the enclosing path. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1 : len(p)-1]
}

// Base returns the last segment, or -1 for the root.
func (p Path) Base() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// RecordName is the file name of the record stored in p's directory, e.g. 0.2.5.json.
func (p Path) RecordName() string {
	return p.join(".") + ".json"
}

// Dir returns p's directory beneath root.
func (p Path) Dir(root string) string {
	parts := make([]string, 0, len(p)+1)
	parts = append(parts, root)
	for _, n := range p {
		parts = append(parts, strconv.Itoa(n))
	}
	return filepath.Join(parts...)
}

// RecordFile returns the full record file path beneath root.
func (p Path) RecordFile(root string) string {
	return filepath.Join(p.Dir(root), p.RecordName())
}

func (p Path) join(sep string) string {
	var sb strings.Builder
	for i, n := range p {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}
