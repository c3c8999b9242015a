package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quickpim/internal/domain"
	"quickpim/pkg/cli/gen"
)

func newActivateCmd(client *gen.Client) *cobra.Command {
	var (
		keys          []string
		selected      bool
		durationHours float64
		justification string
		ticketSystem  string
		ticketNumber  string
	)

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Self-activate eligible roles",
		Long: `Activate one or more eligible roles for the given duration.

Roles are chosen by key (see "pim roles eligible") with --role, or with
--selected to activate every role checked via "pim select".`,
		Example: `  pim activate --selected -j "incident 4711" --duration 2
  pim activate --role dir:62e90394-69f5-4237-9190-012177145e10:/ -j "break glass" --ticket-number INC-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			catalog, err := client.EligibleRoles(ctx)
			if err != nil {
				return err
			}

			want := make(map[string]bool, len(keys))
			for _, k := range keys {
				want[strings.ToLower(strings.TrimSpace(k))] = true
			}
			if selected {
				sels, err := client.Selections(ctx)
				if err != nil {
					return err
				}
				for _, s := range sels {
					if s.Checked {
						want[s.Key] = true
					}
				}
			}

			candidates := pickCandidates(catalog, want)
			for _, k := range keys {
				k = strings.ToLower(strings.TrimSpace(k))
				if !hasKey(candidates, k) {
					return fmt.Errorf("role %q is not in your eligible roles", k)
				}
			}

			req := domain.ActivationRequest{
				Candidates:    candidates,
				DurationHours: durationHours,
				Justification: justification,
			}
			if cmd.Flags().Changed("ticket-system") || cmd.Flags().Changed("ticket-number") {
				req.Ticket = &domain.TicketInfo{System: ticketSystem, Number: ticketNumber}
			}

			res, err := client.Activate(ctx, req)
			if err != nil {
				return err
			}
			if err := renderBatch(cmd, res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%d of %d activations failed", len(res.Errors), len(res.Errors)+len(res.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&keys, "role", "r", nil, "Role key to activate (repeatable)")
	cmd.Flags().BoolVar(&selected, "selected", false, "Activate every selected role")
	cmd.Flags().Float64VarP(&durationHours, "duration", "d", 1, "Activation duration in hours")
	cmd.Flags().StringVarP(&justification, "justification", "j", "", "Reason for the activation")
	cmd.Flags().StringVar(&ticketSystem, "ticket-system", "", "Ticket system name")
	cmd.Flags().StringVar(&ticketNumber, "ticket-number", "", "Ticket number")

	return cmd
}

// pickCandidates returns the eligible roles whose keys are wanted, directory
// roles first.
func pickCandidates(catalog *domain.RoleCatalog, want map[string]bool) []domain.RoleCandidate {
	var out []domain.RoleCandidate
	for _, group := range [][]domain.RoleCandidate{catalog.DirectoryRoles, catalog.AzureResourceRoles} {
		for _, c := range group {
			if want[c.Key()] {
				out = append(out, c)
			}
		}
	}
	return out
}

func hasKey(candidates []domain.RoleCandidate, key string) bool {
	for _, c := range candidates {
		if c.Key() == key {
			return true
		}
	}
	return false
}

func renderBatch(cmd *cobra.Command, res *domain.BatchResult) error {
	rows := make([][]string, 0, len(res.Results)+len(res.Errors))
	ids := make([]string, 0, len(res.Results))
	for _, s := range res.Results {
		rows = append(rows, []string{"activated", s.Role, s.Scope, s.RequestID})
		ids = append(ids, s.RequestID)
	}
	for _, f := range res.Errors {
		rows = append(rows, []string{"failed", f.Role, f.Scope, f.Reason})
	}
	return render(cmd, res, []string{"status", "role", "scope", "detail"}, rows, ids)
}
