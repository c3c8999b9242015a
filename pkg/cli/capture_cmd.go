package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"quickpim/internal/capture"
	"quickpim/pkg/cli/gen"
)

// headerList collects repeated "Name: value" flags.
type headerList []capture.Header

var _ pflag.Value = (*headerList)(nil)

func (h *headerList) String() string {
	parts := make([]string, 0, len(*h))
	for _, hdr := range *h {
		parts = append(parts, hdr.Name+": "+hdr.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (h *headerList) Set(s string) error {
	name, value, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header %q must be in 'Name: value' form", s)
	}
	*h = append(*h, capture.Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	return nil
}

func (h *headerList) Type() string { return "header" }

func newCaptureCmd(client *gen.Client) *cobra.Command {
	var (
		target  string
		headers headerList
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Submit an observed request to the token capture endpoint",
		Long: `Submit one observed outbound request, as the browser extension would.
A bearer token on a Graph or ARM request is stored by the daemon.`,
		Example: `  pim capture --url https://graph.microsoft.com/v1.0/me --header "Authorization: Bearer $TOKEN"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := client.Capture(cmd.Context(), capture.Observation{URL: target, Headers: headers})
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return gen.PrintJSON(cmd.OutOrStdout(), map[string]bool{"captured": ok})
			}
			if ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token captured")
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No token captured")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "url", "", "Request URL")
	cmd.Flags().VarP(&headers, "header", "H", "Request header as 'Name: value' (repeatable)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
