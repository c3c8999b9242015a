package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quickpim/pkg/cli/gen"
)

func newSelectCmd(client *gen.Client) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "select <key>",
		Short: "Mark a role for activation with --selected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := client.SetSelection(cmd.Context(), args[0], !off)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return gen.PrintJSON(cmd.OutOrStdout(), sel)
			}
			state := "selected"
			if !sel.Checked {
				state = "deselected"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sel.Key, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Deselect the role instead")

	return cmd
}

func newSelectionsCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "selections",
		Short: "List persisted role selections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sels, err := client.Selections(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sels))
			ids := make([]string, 0, len(sels))
			for _, s := range sels {
				rows = append(rows, []string{s.Key, yesNo(s.Checked), s.UpdatedAt.Local().Format(time.DateTime)})
				if s.Checked {
					ids = append(ids, s.Key)
				}
			}
			return render(cmd, sels, []string{"key", "selected", "updated"}, rows, ids)
		},
	}
}
