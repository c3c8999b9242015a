package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quickpim/pkg/cli/gen"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func isQuiet(cmd *cobra.Command) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// render writes v as JSON or as a table, and only ids in quiet mode.
func render(cmd *cobra.Command, v interface{}, columns []string, rows [][]string, ids []string) error {
	out := cmd.OutOrStdout()
	if getOutputFormat(cmd) == "json" {
		return gen.PrintJSON(out, v)
	}
	if isQuiet(cmd) {
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	}
	gen.PrintTable(out, columns, rows)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
