package jira

import (
	"encoding/json"
	"strings"
)

// adfNode is the subset of an Atlassian Document Format node we read.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

// blockTypes end a line when rendered as plain text.
var blockTypes = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"listItem":   true,
	"codeBlock":  true,
	"blockquote": true,
	"rule":       true,
}

// DescriptionToPlainText extracts plain text from an ADF document.
// Values that are not ADF are returned as the plain string they hold.
func DescriptionToPlainText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Type != "doc" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}

	var lines []string
	var cur strings.Builder
	var walk func(n adfNode)
	walk = func(n adfNode) {
		switch n.Type {
		case "text":
			cur.WriteString(n.Text)
			return
		case "hardBreak":
			lines = append(lines, cur.String())
			cur.Reset()
			return
		}
		for _, child := range n.Content {
			walk(child)
		}
		if blockTypes[n.Type] && cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
	}
	walk(doc)
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return strings.Join(lines, "\n")
}

// PlainTextToADF converts plain text to an ADF document, one paragraph per line.
func PlainTextToADF(text string) json.RawMessage {
	if text == "" {
		return nil
	}
	doc := adfDoc{Type: "doc", Version: 1}
	for _, line := range strings.Split(text, "\n") {
		para := adfBlock{Type: "paragraph", Content: []adfNode{}}
		if line != "" {
			para.Content = append(para.Content, adfNode{Type: "text", Text: line})
		}
		doc.Content = append(doc.Content, para)
	}
	data, _ := json.Marshal(doc)
	return data
}

type adfDoc struct {
	Type    string     `json:"type"`
	Version int        `json:"version"`
	Content []adfBlock `json:"content"`
}

// adfBlock always serializes its content, since Jira rejects paragraphs without it.
type adfBlock struct {
	Type    string    `json:"type"`
	Content []adfNode `json:"content"`
}
