package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quickpim/internal/domain"
	"quickpim/pkg/cli/gen"
)

func newRolesCmd(client *gen.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List eligible, active and requested roles",
	}
	cmd.AddCommand(newRolesEligibleCmd(client))
	cmd.AddCommand(newRolesActiveCmd(client))
	cmd.AddCommand(newRolesRequestsCmd(client))
	return cmd
}

func newRolesEligibleCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "eligible",
		Short: "List roles you can activate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			catalog, err := client.EligibleRoles(ctx)
			if err != nil {
				return err
			}
			sels, err := client.Selections(ctx)
			if err != nil {
				return err
			}
			checked := make(map[string]bool, len(sels))
			for _, s := range sels {
				checked[s.Key] = s.Checked
			}

			warnFetchErrors(cmd, catalog.Errors)

			all := append(append([]domain.RoleCandidate{}, catalog.DirectoryRoles...), catalog.AzureResourceRoles...)
			rows := make([][]string, 0, len(all))
			ids := make([]string, 0, len(all))
			for _, c := range all {
				rows = append(rows, []string{yesNo(checked[c.Key()]), string(c.RoleType), c.Label(), displayScope(c), c.Key()})
				ids = append(ids, c.Key())
			}
			return render(cmd, catalog, []string{"selected", "type", "role", "scope", "key"}, rows, ids)
		},
	}
}

func newRolesActiveCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List roles currently in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			active, err := client.ActiveRoles(cmd.Context())
			if err != nil {
				return err
			}
			warnFetchErrors(cmd, active.Errors)

			all := append(append([]gen.ActiveRole{}, active.DirectoryRoles...), active.AzureResourceRoles...)
			rows := make([][]string, 0, len(all))
			ids := make([]string, 0, len(all))
			for _, r := range all {
				remaining := r.Remaining
				switch {
				case r.EndDateTime == nil:
					remaining = "permanent"
				case r.ExpiringSoon:
					remaining += " (expiring soon)"
				}
				expires := ""
				if r.EndDateTime != nil {
					expires = r.EndDateTime.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{string(r.RoleType), r.Label(), displayScope(r.RoleCandidate), remaining, expires})
				ids = append(ids, r.Key())
			}
			return render(cmd, active, []string{"type", "role", "scope", "remaining", "expires"}, rows, ids)
		},
	}
}

func newRolesRequestsCmd(client *gen.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List your recent directory role requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reqs, err := client.ScheduleRequests(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(reqs))
			ids := make([]string, 0, len(reqs))
			for _, r := range reqs {
				created := ""
				if r.CreatedDateTime != nil {
					created = r.CreatedDateTime.Local().Format(time.DateTime)
				}
				name := r.RoleName
				if name == "" {
					name = r.RoleDefinitionID
				}
				rows = append(rows, []string{r.ID, name, r.Action, r.Status, created, r.Justification})
				ids = append(ids, r.ID)
			}
			return render(cmd, reqs, []string{"id", "role", "action", "status", "created", "justification"}, rows, ids)
		},
	}
}

// displayScope shortens resource scopes for tables.
func displayScope(c domain.RoleCandidate) string {
	if c.Resource == nil {
		return c.Scope()
	}
	label := domain.ScopeLabel(c.Resource.Scope)
	sub := c.Resource.SubscriptionName
	if sub == "" {
		sub = c.Resource.SubscriptionID
	}
	switch {
	case label != "" && sub != "":
		return sub + " / " + label
	case label != "":
		return label
	case sub != "":
		return sub
	}
	return c.Resource.Scope
}

func warnFetchErrors(cmd *cobra.Command, errs []domain.FetchError) {
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s roles unavailable: %s\n", e.Type, e.Message)
	}
}
