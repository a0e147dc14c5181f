package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools scripts can call",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		infos := rt.Tools().Describe()
		out := cmd.OutOrStdout()
		if toolsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}
		for _, info := range infos {
			traceColor.Fprintf(out, "%-18s", info.Name)
			fmt.Fprintf(out, " %s\n", info.Description)
			for _, name := range slices.Sorted(maps.Keys(info.Params)) {
				p := info.Params[name]
				req := ""
				if p.Required {
					req = " (required)"
				}
				dimColor.Fprintf(out, "%20s %s: %s%s\n", "", name, p.Type, req)
			}
		}
		return nil
	},
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print tool descriptions as JSON")
}
