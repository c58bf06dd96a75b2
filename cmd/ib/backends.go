package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issueboard/internal/config"
	"github.com/steveyegge/issueboard/internal/tracker"
	"github.com/steveyegge/issueboard/internal/ui"
)

type backendInfo struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func newBackendsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			active := config.GetString("backend")
			var infos []backendInfo
			for _, name := range tracker.List() {
				infos = append(infos, backendInfo{Name: name, Active: name == active})
			}
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), infos)
			}
			for _, b := range infos {
				if b.Active {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.RenderPass("*"), b.Name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", b.Name)
				}
			}
			return nil
		},
	}
}
