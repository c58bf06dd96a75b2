package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issueboard/internal/manager"
	"github.com/steveyegge/issueboard/internal/types"
)

// do sends req to the dispatcher and prints the result.
func (c *cli) do(cmd *cobra.Command, req manager.Request, full, page bool) error {
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	req.Caller = c.callerName()
	result := mgr.Do(c.context(), req)
	return c.printResult(cmd.OutOrStdout(), result, full, page)
}

// contentFlag returns the --content value, reading stdin for "-".
// A flag that was not given yields nil.
func contentFlag(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("content") {
		return nil, nil
	}
	content, _ := cmd.Flags().GetString("content")
	if content == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading content from stdin: %w", err)
		}
		content = string(data)
	}
	return &content, nil
}

func addContentFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("content", "c", "", usage+` (JSON, YAML or plain text; "-" reads stdin)`)
}

func newListCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [issue]",
		GroupID: "issues",
		Short:   "List issues, optionally only those at or below an issue",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := manager.Request{Action: string(types.ActionList)}
			if len(args) == 1 {
				req.Issue = args[0]
			}
			req.OnlyInState, _ = cmd.Flags().GetStringSlice("state")
			req.Assignee, _ = cmd.Flags().GetString("assignee")
			return c.do(cmd, req, false, false)
		},
	}
	cmd.Flags().StringSliceP("state", "s", nil, "only issues in these statuses (repeatable)")
	cmd.Flags().StringP("assignee", "a", "", "only issues assigned to this agent")
	return cmd
}

func newCreateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create [parent]",
		GroupID: "issues",
		Short:   "Create an issue, or a sub issue under parent",
		Example: `  ib create -c '{"title": "Login fails", "priority": "high"}'
  ib create 5 -c 'title: Fix cookie expiry'
  echo "The login page rejects valid passwords" | ib create -c -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentFlag(cmd)
			if err != nil {
				return err
			}
			req := manager.Request{Action: string(types.ActionCreate), Content: content}
			if len(args) == 1 {
				req.Issue = args[0]
			}
			req.Assignee, _ = cmd.Flags().GetString("assignee")
			return c.do(cmd, req, false, false)
		},
	}
	addContentFlag(cmd, "issue fields")
	cmd.Flags().StringP("assignee", "a", "", "initial assignee (default: caller)")
	return cmd
}

func newReadCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "read <issue>",
		Aliases: []string{"show"},
		GroupID: "issues",
		Short:   "Show an issue with its update history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			full, _ := cmd.Flags().GetBool("full")
			noPager, _ := cmd.Flags().GetBool("no-pager")
			return c.do(cmd, manager.Request{Action: string(types.ActionRead), Issue: args[0]}, full, !noPager)
		},
	}
	cmd.Flags().Bool("full", false, "do not truncate long update details")
	cmd.Flags().Bool("no-pager", false, "do not page output")
	return cmd
}

func newUpdateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "update <issue>",
		GroupID: "issues",
		Short:   "Append an update event to an issue",
		Example: `  ib update 5/2 -c '{"status": "in progress", "details": "reproduced locally"}'
  ib update 5/2 -c 'Root cause is the cookie max-age'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentFlag(cmd)
			if err != nil {
				return err
			}
			return c.do(cmd, manager.Request{Action: string(types.ActionUpdate), Issue: args[0], Content: content}, false, false)
		},
	}
	addContentFlag(cmd, "update fields")
	return cmd
}

func newAssignCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assign <issue>",
		GroupID: "issues",
		Short:   "Assign an issue to an agent (default: the caller)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentFlag(cmd)
			if err != nil {
				return err
			}
			req := manager.Request{Action: string(types.ActionAssign), Issue: args[0], Content: content}
			req.Assignee, _ = cmd.Flags().GetString("to")
			return c.do(cmd, req, false, false)
		},
	}
	cmd.Flags().StringP("to", "t", "", "agent to assign to")
	addContentFlag(cmd, "event fields such as details")
	return cmd
}
