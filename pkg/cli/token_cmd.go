package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"quickpim/internal/domain"
	"quickpim/pkg/cli/gen"
)

// maxTokenBytes bounds a token read from stdin.
const maxTokenBytes = 64 << 10

func newTokenCmd(client *gen.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and manage stored access tokens",
	}
	cmd.AddCommand(newTokenStatusCmd(client))
	cmd.AddCommand(newTokenSetCmd(client))
	cmd.AddCommand(newTokenClearCmd(client))
	return cmd
}

func newTokenStatusCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the age of the stored Graph and ARM tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := client.TokenStatus(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(st))
			ids := make([]string, 0, len(st))
			for _, s := range st {
				age := ""
				if s.Present {
					age = fmt.Sprintf("%d min", s.RoundedAgeMinutes)
					ids = append(ids, string(s.Kind))
				}
				rows = append(rows, []string{string(s.Kind), yesNo(s.Present), age, yesNo(s.Expired), s.Source})
			}
			return render(cmd, st, []string{"kind", "present", "age", "expired", "source"}, rows, ids)
		},
	}
}

func newTokenSetCmd(client *gen.Client) *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:       "set <graph|arm>",
		Short:     "Store a token copied from the browser",
		Long:      "Store a bearer token manually. The token is prompted for without echo, or read from stdin with --stdin.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.CredentialKindGraph), string(domain.CredentialKindARM)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseCredentialKind(args[0])
			if err != nil {
				return err
			}
			token, err := readToken(cmd, fromStdin)
			if err != nil {
				return err
			}
			st, err := client.SetToken(cmd.Context(), kind, token)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return gen.PrintJSON(cmd.OutOrStdout(), st)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s token\n", kind)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the token from stdin")

	return cmd
}

func newTokenClearCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [graph|arm]",
		Short: "Delete one stored token, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind domain.CredentialKind
			if len(args) == 1 {
				k, err := domain.ParseCredentialKind(args[0])
				if err != nil {
					return err
				}
				kind = k
			}
			if err := client.ClearToken(cmd.Context(), kind); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return gen.PrintJSON(cmd.OutOrStdout(), map[string]string{"status": "ok"})
			}
			if kind == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cleared all tokens")
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s token\n", kind)
			}
			return nil
		},
	}
}

// readToken reads a token from stdin, or prompts for it without echo when
// stdin is a terminal.
func readToken(cmd *cobra.Command, fromStdin bool) (string, error) {
	in := cmd.InOrStdin()
	if !fromStdin {
		f, ok := in.(*os.File)
		if !ok || !term.IsTerminal(int(f.Fd())) {
			return "", errors.New("stdin is not a terminal: pipe the token with --stdin")
		}
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Token (input hidden): ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	b, err := io.ReadAll(io.LimitReader(in, maxTokenBytes))
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errors.New("no token on stdin")
	}
	return token, nil
}
