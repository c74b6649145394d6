package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/rfdiff/internal/params"
)

func newParamsCmd() *cobra.Command {
	var group string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "params",
		Short: "List job parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []params.Parameter
			for _, p := range params.Catalog() {
				if group == "" || string(p.Group) == group {
					list = append(list, p)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			if len(list) == 0 {
				fmt.Fprintf(out, "No parameters in group %q.\n", group)
				return nil
			}

			fmt.Fprintf(out, "%-28s  %-7s  %-12s  %-10s  %s\n", "NAME", "TYPE", "GROUP", "DEFAULT", "DESCRIPTION")
			fmt.Fprintf(out, "%-28s  %-7s  %-12s  %-10s  %s\n", "----", "----", "-----", "-------", "-----------")
			for _, p := range list {
				def := ""
				if p.Default != nil {
					def = fmt.Sprint(p.Default)
				}
				name := p.Name
				if p.Required {
					name += "*"
				}
				fmt.Fprintf(out, "%-28s  %-7s  %-12s  %-10s  %s\n", name, p.Type, p.Group, def, p.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Only list parameters in this group")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}
