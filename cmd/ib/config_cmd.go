package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issueboard/internal/config"
	"github.com/steveyegge/issueboard/internal/ui"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings in .issueboard/config.yaml",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := config.GetString(args[0])
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"key": args[0], "value": value})
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting to the project config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.SetYamlConfig(args[0], args[1])
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), map[string]string{"key": args[0], "value": args[1], "file": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s %s\n", args[0], args[1], ui.RenderMuted("("+path+")"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every effective setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := flatten("", config.AllSettings())
			if c.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), settings)
			}
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if used := config.ConfigFileUsed(); used != "" {
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMuted("# "+used))
			}
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", k, settings[k])
			}
			return nil
		},
	})
	return cmd
}

// flatten turns nested settings into dotted keys. Secrets are masked.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		if strings.Contains(key, "token") && fmt.Sprint(v) != "" {
			v = "********"
		}
		out[key] = v
	}
	return out
}
