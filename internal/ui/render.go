package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/issueboard/internal/coerce"
	"github.com/steveyegge/issueboard/internal/types"
)

// RenderOptions controls text rendering.
type RenderOptions struct {
	// Icons prefixes statuses with a glyph.
	Icons bool
	// Full disables truncation of long update details.
	Full bool
	// Width wraps body text; 0 means 80.
	Width int
}

const maxTitleWidth = 60

// Keys shown in the header or body rather than the field list.
var detailSkipKeys = map[string]bool{
	"title": true, "description": true, "body": true, "updates": true,
	"status": true, "priority": true, "assignee": true, "updated_by": true,
}

// RenderList renders list rows as an aligned table.
func RenderList(items []types.ListItem, opts RenderOptions) string {
	if len(items) == 0 {
		return RenderMuted("No issues found.") + "\n"
	}

	header := []string{"ISSUE", "PRIORITY", "STATUS", "ASSIGNEE", "TITLE"}
	widths := make([]int, 4)
	for i := range widths {
		widths[i] = len(header[i])
	}
	for _, it := range items {
		for i, v := range []string{it.Issue, it.Priority, statusText(it.Status, opts), it.Assignee} {
			widths[i] = max(widths[i], len([]rune(v)))
		}
	}

	var b strings.Builder
	cells := make([]string, 0, 5)
	for i := 0; i < 4; i++ {
		cells = append(cells, pad(header[i], widths[i]))
	}
	cells = append(cells, header[4])
	b.WriteString(HeaderStyle.Render(strings.Join(cells, "  ")) + "\n")

	for _, it := range items {
		title := it.Title
		if it.Status == types.OutcomeError {
			title = RenderFail(it.Message)
		} else {
			title = TruncateSimple(title, maxTitleWidth)
		}
		row := []string{
			RenderAccent(pad(it.Issue, widths[0])),
			PriorityStyle(it.Priority).Render(pad(it.Priority, widths[1])),
			StatusStyle(it.Status).Render(pad(statusText(it.Status, opts), widths[2])),
			pad(it.Assignee, widths[3]),
			title,
		}
		b.WriteString(strings.Join(row, "  ") + "\n")
	}
	return b.String()
}

// RenderDetail renders a single issue with its update history.
func RenderDetail(d types.Detail, opts RenderOptions) string {
	var b strings.Builder
	title := coerce.Stringify(d.Fields["title"])
	b.WriteString(HeaderStyle.Render("#"+d.Issue) + " " + title + "\n")
	fmt.Fprintf(&b, "%s  %s  %s %s  %s %s\n",
		RenderStatus(d.View.Status, opts.Icons),
		RenderPriority(d.View.Priority),
		RenderMuted("assignee:"), d.View.Assignee,
		RenderMuted("updated by:"), d.View.UpdatedBy,
	)

	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		if !detailSkipKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := coerce.Stringify(d.Fields[k]); v != "" && v != "[]" {
			fmt.Fprintf(&b, "%s %s\n", RenderMuted(k+":"), v)
		}
	}

	for _, k := range []string{"description", "body"} {
		if text := coerce.Stringify(d.Fields[k]); strings.TrimSpace(text) != "" {
			b.WriteString("\n" + WrapText(text, width(opts), "") + "\n")
		}
	}

	if evs, ok := d.Fields["updates"].([]types.Event); ok && len(evs) > 0 {
		b.WriteString("\n" + RenderSeparator() + "\n")
		b.WriteString(HeaderStyle.Render(fmt.Sprintf("Updates (%d)", len(evs))) + "\n")
		for _, ev := range evs {
			b.WriteString(renderEvent(ev, opts))
		}
	}
	return b.String()
}

func renderEvent(ev types.Event, opts RenderOptions) string {
	var b strings.Builder
	head := []string{RenderMuted(ev.UpdatedAt.String())}
	if ev.UpdatedBy != "" {
		head = append(head, ev.UpdatedBy)
	}
	if ev.Status != "" {
		head = append(head, RenderStatus(ev.Status, opts.Icons))
	}
	if ev.Priority != "" {
		head = append(head, RenderPriority(ev.Priority))
	}
	if ev.Assignee != "" {
		head = append(head, RenderMuted("→ ")+ev.Assignee)
	}
	b.WriteString(TreeChild + strings.Join(head, "  ") + "\n")

	if text := coerce.DetailsText(ev.Details); text != "" {
		if !opts.Full {
			text = TruncateLines(text, DefaultMaxLines, DefaultContextLines)
		}
		indent := TreeIndent + TreeIndent
		b.WriteString(indent + WrapText(text, width(opts)-len(indent), indent) + "\n")
	}
	return b.String()
}

// RenderOutcome renders the result of a mutation or a failed action.
func RenderOutcome(o types.Outcome) string {
	if o.Failed() {
		msg := o.Message
		if o.Issue != "" {
			msg = fmt.Sprintf("#%s: %s", o.Issue, msg)
		}
		return RenderFail(IconFail+" "+msg) + "\n"
	}
	msg := o.Message
	if msg == "" {
		msg = "issue " + o.Issue + " " + o.Status
	}
	out := RenderPass(IconPass) + " " + msg
	if o.ParentIssue != "" {
		out += " " + RenderMuted("(parent #"+o.ParentIssue+")")
	}
	return out + "\n"
}

func statusText(status string, opts RenderOptions) string {
	if opts.Icons {
		return StatusIcon(status) + " " + status
	}
	return status
}

func pad(s string, w int) string {
	if n := len([]rune(s)); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

func width(opts RenderOptions) int {
	if opts.Width <= 0 {
		return 80
	}
	return opts.Width
}
