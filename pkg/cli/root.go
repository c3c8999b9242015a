package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quickpim/pkg/cli/gen"
)

var (
	version = "dev"
	commit  = "none"
)

// DefaultHost is the daemon's default listen address.
const DefaultHost = "http://127.0.0.1:8765"

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			var apiErr *gen.APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
				errObj["code"] = apiErr.Code
			}
			_ = gen.PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host    string
		apiKey  string
		output  string
		profile string
		quiet   bool
	)

	client := gen.NewClient(DefaultHost, "")

	rootCmd := &cobra.Command{
		Use:           "pim",
		Short:         "QuickPIM command-line client",
		Long:          "Activate Entra ID and Azure resource PIM roles through the local QuickPIM daemon.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Config file is optional
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{
					CurrentProfile: "default",
					Profiles:       map[string]Profile{},
				}
			}
			p, err := cfg.ActiveProfile(profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("PIM_HOST"); v != "" {
					host = v
				} else if p.Host != "" {
					host = p.Host
				}
			}
			if !cmd.Flags().Changed("api-key") {
				if v := os.Getenv("PIM_API_KEY"); v != "" {
					apiKey = v
				} else if p.APIKey != "" {
					apiKey = p.APIKey
				}
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("PIM_OUTPUT"); v != "" {
					output = v
				} else if p.Output != "" {
					output = p.Output
				}
			}

			if err := validateOutputFormat(output); err != nil {
				return err
			}
			if err := validateHostURL(host); err != nil {
				return err
			}
			client.BaseURL = normalizeHost(host)
			client.APIKey = apiKey
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", DefaultHost, "Daemon URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Daemon API key")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only output identifiers")

	rootCmd.AddCommand(newRolesCmd(client))
	rootCmd.AddCommand(newActivateCmd(client))
	rootCmd.AddCommand(newTokenCmd(client))
	rootCmd.AddCommand(newWhoamiCmd(client))
	rootCmd.AddCommand(newCaptureCmd(client))
	rootCmd.AddCommand(newSelectCmd(client))
	rootCmd.AddCommand(newSelectionsCmd(client))
	rootCmd.AddCommand(newHealthCmd(client))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
