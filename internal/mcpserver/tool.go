package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/steveyegge/issueboard/internal/manager"
	"github.com/steveyegge/issueboard/internal/types"
)

// ToolName is the name agents call.
const ToolName = "issue_manager"

// IssueManagerTool handles the issue_manager MCP tool.
type IssueManagerTool struct {
	mgr *manager.Manager
	// caller is used when a call does not name one.
	caller string
}

// NewIssueManagerTool creates an IssueManagerTool.
func NewIssueManagerTool(mgr *manager.Manager, defaultCaller string) *IssueManagerTool {
	return &IssueManagerTool{mgr: mgr, caller: defaultCaller}
}

// Definition returns the MCP tool definition for issue_manager.
func (t *IssueManagerTool) Definition() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription(
			"Manage the hierarchical issue board. Actions: list (issues at or below 'issue'), "+
				"create (a new issue, under 'issue' when given), read, update (append an update event), "+
				"assign (hand the issue to 'assignee', or to the caller). Completed or closed issues "+
				"accept no further updates; create a sub issue instead.",
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: list, create, read, update, assign"),
			mcp.Enum("list", "create", "read", "update", "assign"),
		),
		mcp.WithString("issue",
			mcp.Description("Issue id such as \"5\" or \"5/2\"; for create, the parent issue"),
		),
		mcp.WithArray("only_in_state",
			mcp.Description("For list: keep only issues in these statuses"),
			mcp.WithStringItems(),
		),
		mcp.WithString("content",
			mcp.Description("JSON or YAML object with fields such as title, description, status, priority, details; plain text is accepted for create and update"),
		),
		mcp.WithString("assignee",
			mcp.Description("For create and assign: who should own the issue. For list: only issues assigned to this agent"),
		),
		mcp.WithString("caller",
			mcp.Description("Name of the agent making the call"),
		),
	)
}

// Handle processes the issue_manager tool call. The result text is the JSON
// of the dispatcher's result; error outcomes are flagged as tool errors.
func (t *IssueManagerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := t.request(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := t.mgr.Do(ctx, r)
	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	out := mcp.NewToolResultText(string(data))
	if o, ok := result.(types.Outcome); ok && o.Failed() {
		out.IsError = true
	}
	return out, nil
}

func (t *IssueManagerTool) request(req mcp.CallToolRequest) (manager.Request, error) {
	r := manager.Request{
		Action:      req.GetString("action", ""),
		Issue:       req.GetString("issue", ""),
		OnlyInState: req.GetStringSlice("only_in_state", nil),
		Assignee:    req.GetString("assignee", ""),
		Caller:      req.GetString("caller", t.caller),
	}
	if r.Caller == "" {
		r.Caller = t.caller
	}
	// Agents sometimes send content as an object rather than a string.
	switch c := req.GetArguments()["content"].(type) {
	case nil:
	case string:
		r.Content = &c
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return r, fmt.Errorf("'content' must be a string: %w", err)
		}
		s := string(data)
		r.Content = &s
	}
	if len(r.OnlyInState) == 0 {
		if s := req.GetString("only_in_state", ""); s != "" {
			r.OnlyInState = []string{s}
		}
	}
	return r, nil
}
