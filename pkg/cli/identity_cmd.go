package cli

import (
	"github.com/spf13/cobra"

	"quickpim/pkg/cli/gen"
)

func newWhoamiCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the stored Graph token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := client.Identity(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return gen.PrintJSON(cmd.OutOrStdout(), id)
			}
			if isQuiet(cmd) {
				_, err := cmd.OutOrStdout().Write([]byte(id.PrincipalID + "\n"))
				return err
			}
			gen.PrintDetail(cmd.OutOrStdout(), map[string]interface{}{
				"principal_id":       id.PrincipalID,
				"display_name":       id.DisplayName,
				"username":           id.Username,
				"preferred_username": id.PreferredUsername,
			})
			return nil
		},
	}
}

func newHealthCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the daemon is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := client.Health(cmd.Context()); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return gen.PrintJSON(cmd.OutOrStdout(), map[string]string{"status": "ok"})
			}
			_, err := cmd.OutOrStdout().Write([]byte("ok\n"))
			return err
		},
	}
}
