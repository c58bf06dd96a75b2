package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/issueboard/internal/mcpserver"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the issue_manager tool over MCP on stdin/stdout",
		Long: `Serve runs an MCP server on stdio exposing the issue_manager tool.
Logs go to stderr or log.file so stdout stays reserved for the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.manager()
			if err != nil {
				return err
			}
			c.logger.Info("serving MCP on stdio", "backend", mgr.Backend().Name())
			return mcpserver.New(mgr, Version, c.callerName()).ServeStdio()
		},
	}
}
