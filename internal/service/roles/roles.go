// Package roles fetches the eligible and active PIM role catalogs of the
// signed-in user from Microsoft Graph and Azure Resource Manager.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"quickpim/internal/domain"
	"quickpim/internal/jwtclaims"
	"quickpim/internal/upstream"
)

// GraphAPI is the directory side of the catalog.
// Implemented by upstream.GraphClient.
type GraphAPI interface {
	ListEligibilitySchedules(ctx context.Context, token, principalID string) ([]upstream.GraphRoleSchedule, error)
	ListAssignmentScheduleInstances(ctx context.Context, token, principalID string) ([]upstream.GraphRoleSchedule, error)
	ListMyScheduleRequests(ctx context.Context, token string) ([]upstream.GraphScheduleRequest, error)
}

// ARMAPI is the Azure resource side of the catalog.
// Implemented by upstream.ARMClient.
type ARMAPI interface {
	ListEligibilityScheduleInstances(ctx context.Context, token string) ([]upstream.ARMScheduleInstance, error)
	ListAssignmentScheduleInstances(ctx context.Context, token string) ([]upstream.ARMScheduleInstance, error)
	ListSubscriptions(ctx context.Context, token string) ([]upstream.ARMSubscription, error)
}

// CredentialSource hands out stored tokens.
// Implemented by token.TokenService.
type CredentialSource interface {
	Usable(ctx context.Context, kind domain.CredentialKind) (string, error)
	Fresh(ctx context.Context, kind domain.CredentialKind) (string, error)
}

// RoleService assembles role catalogs. Directory and resource lookups run in
// parallel and fail independently.
type RoleService struct {
	graph  GraphAPI
	arm    ARMAPI
	creds  CredentialSource
	defs   *DefinitionCache
	logger *slog.Logger
}

// NewRoleService creates a RoleService.
func NewRoleService(graph GraphAPI, arm ARMAPI, creds CredentialSource, defs *DefinitionCache, logger *slog.Logger) *RoleService {
	return &RoleService{graph: graph, arm: arm, creds: creds, defs: defs, logger: logger}
}

// caller is the resolved identity a catalog fetch runs as.
type caller struct {
	graphToken  string
	armToken    string
	principalID string
}

func (s *RoleService) resolveCaller(ctx context.Context) (*caller, error) {
	graphToken, err := s.creds.Usable(ctx, domain.CredentialKindGraph)
	if err != nil {
		return nil, err
	}
	oid, ok := jwtclaims.ExtractPrincipalID(graphToken)
	if !ok {
		return nil, domain.ErrCredential(domain.ReasonInvalidCredential, "could not extract user ID from token")
	}
	armToken, err := s.creds.Fresh(ctx, domain.CredentialKindARM)
	if err != nil {
		return nil, err
	}
	return &caller{graphToken: graphToken, armToken: armToken, principalID: oid}, nil
}

// FetchEligible returns the roles the caller may activate.
func (s *RoleService) FetchEligible(ctx context.Context) (*domain.RoleCatalog, error) {
	c, err := s.resolveCaller(ctx)
	if err != nil {
		return nil, err
	}

	var (
		dirRoles, resRoles []domain.RoleCandidate
		dirErr, resErr     error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		schedules, err := s.graph.ListEligibilitySchedules(gctx, c.graphToken, c.principalID)
		if err != nil {
			dirErr = err
			return nil
		}
		names := s.directoryNames(gctx, c.graphToken, schedules)
		dirRoles = make([]domain.RoleCandidate, 0, len(schedules))
		for _, sch := range schedules {
			dirRoles = append(dirRoles, directoryCandidate(sch, c.principalID, names))
		}
		return nil
	})
	g.Go(func() error {
		if c.armToken == "" {
			resErr = missingARMToken()
			return nil
		}
		instances, err := s.arm.ListEligibilityScheduleInstances(gctx, c.armToken)
		if err != nil {
			resErr = err
			return nil
		}
		subs := s.subscriptionNames(gctx, c.armToken, instances)
		resRoles = make([]domain.RoleCandidate, 0, len(instances))
		for _, inst := range instances {
			resRoles = append(resRoles, resourceCandidate(inst, c.principalID, subs))
		}
		return nil
	})
	_ = g.Wait()

	errs := fetchErrors(dirErr, resErr)
	if dirErr != nil && resErr != nil {
		return nil, fmt.Errorf("fetch eligible roles: %w", asUpstream(dirErr))
	}

	sortCandidates(dirRoles)
	sortCandidates(resRoles)
	return &domain.RoleCatalog{
		DirectoryRoles:     nonNil(dirRoles),
		AzureResourceRoles: nonNil(resRoles),
		Errors:             errs,
	}, nil
}

// FetchActive returns the roles currently in effect for the caller.
func (s *RoleService) FetchActive(ctx context.Context) (*domain.ActiveRoleCatalog, error) {
	c, err := s.resolveCaller(ctx)
	if err != nil {
		return nil, err
	}

	var (
		dirRoles, resRoles []domain.ActiveRole
		dirErr, resErr     error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		instances, err := s.graph.ListAssignmentScheduleInstances(gctx, c.graphToken, c.principalID)
		if err != nil {
			dirErr = err
			return nil
		}
		names := s.directoryNames(gctx, c.graphToken, instances)
		dirRoles = make([]domain.ActiveRole, 0, len(instances))
		for _, inst := range instances {
			dirRoles = append(dirRoles, domain.ActiveRole{
				RoleCandidate:  directoryCandidate(inst, c.principalID, names),
				AssignmentType: inst.AssignmentType,
				StartDateTime:  inst.StartDateTime,
				EndDateTime:    inst.EndDateTime,
			})
		}
		return nil
	})
	g.Go(func() error {
		if c.armToken == "" {
			resErr = missingARMToken()
			return nil
		}
		instances, err := s.arm.ListAssignmentScheduleInstances(gctx, c.armToken)
		if err != nil {
			resErr = err
			return nil
		}
		subs := s.subscriptionNames(gctx, c.armToken, instances)
		resRoles = make([]domain.ActiveRole, 0, len(instances))
		for _, inst := range instances {
			resRoles = append(resRoles, domain.ActiveRole{
				RoleCandidate:  resourceCandidate(inst, c.principalID, subs),
				AssignmentType: inst.Properties.AssignmentType,
				StartDateTime:  inst.Properties.StartDateTime,
				EndDateTime:    inst.Properties.EndDateTime,
			})
		}
		return nil
	})
	_ = g.Wait()

	errs := fetchErrors(dirErr, resErr)
	if dirErr != nil && resErr != nil {
		return nil, fmt.Errorf("fetch active roles: %w", asUpstream(dirErr))
	}

	sortActive(dirRoles)
	sortActive(resRoles)
	return &domain.ActiveRoleCatalog{
		DirectoryRoles:     nonNil(dirRoles),
		AzureResourceRoles: nonNil(resRoles),
		Errors:             errs,
	}, nil
}

// ListRequests returns the caller's recent directory assignment requests,
// newest first.
func (s *RoleService) ListRequests(ctx context.Context) ([]domain.ScheduleRequest, error) {
	graphToken, err := s.creds.Usable(ctx, domain.CredentialKindGraph)
	if err != nil {
		return nil, err
	}
	reqs, err := s.graph.ListMyScheduleRequests(ctx, graphToken)
	if err != nil {
		return nil, fmt.Errorf("list schedule requests: %w", err)
	}

	out := make([]domain.ScheduleRequest, 0, len(reqs))
	for _, r := range reqs {
		sr := domain.ScheduleRequest{
			ID:               r.ID,
			Action:           r.Action,
			Status:           r.Status,
			RoleDefinitionID: r.RoleDefinitionID,
			DirectoryScopeID: r.DirectoryScopeID,
			Justification:    r.Justification,
			CreatedDateTime:  r.CreatedDateTime,
		}
		if r.RoleDefinition != nil {
			sr.RoleName = r.RoleDefinition.DisplayName
		}
		out = append(out, sr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedDateTime, out[j].CreatedDateTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

// directoryNames resolves definition ids through the cache and falls back to
// the names Graph expanded inline.
func (s *RoleService) directoryNames(ctx context.Context, token string, schedules []upstream.GraphRoleSchedule) map[string]string {
	ids := make([]string, 0, len(schedules))
	seen := map[string]bool{}
	for _, sch := range schedules {
		if sch.RoleDefinitionID != "" && !seen[sch.RoleDefinitionID] {
			seen[sch.RoleDefinitionID] = true
			ids = append(ids, sch.RoleDefinitionID)
		}
	}
	names := map[string]string{}
	if len(ids) > 0 && s.defs != nil {
		names = s.defs.Names(ctx, token, ids)
	}
	for _, sch := range schedules {
		if _, ok := names[sch.RoleDefinitionID]; ok {
			continue
		}
		if sch.RoleDefinition != nil && sch.RoleDefinition.DisplayName != "" {
			names[sch.RoleDefinitionID] = sch.RoleDefinition.DisplayName
		}
	}
	return names
}

// subscriptionNames maps subscription ids to display names. Names come from
// expanded scopes first and the subscription list second; the list is only
// fetched when needed and its failure is ignored.
func (s *RoleService) subscriptionNames(ctx context.Context, token string, instances []upstream.ARMScheduleInstance) map[string]string {
	names := map[string]string{}
	missing := false
	for _, inst := range instances {
		subID := domain.SubscriptionIDFromScope(inst.Properties.Scope)
		if subID == "" {
			continue
		}
		if ep := inst.Properties.ExpandedProperties; ep != nil && ep.Scope != nil &&
			strings.EqualFold(ep.Scope.Type, "subscription") && ep.Scope.DisplayName != "" {
			names[subID] = ep.Scope.DisplayName
			continue
		}
		if _, ok := names[subID]; !ok {
			missing = true
		}
	}
	if !missing {
		return names
	}

	subs, err := s.arm.ListSubscriptions(ctx, token)
	if err != nil {
		s.logger.Debug("subscription list unavailable", "error", err)
		return names
	}
	for _, sub := range subs {
		if _, ok := names[sub.SubscriptionID]; !ok && sub.DisplayName != "" {
			names[sub.SubscriptionID] = sub.DisplayName
		}
	}
	return names
}

func directoryCandidate(sch upstream.GraphRoleSchedule, principalID string, names map[string]string) domain.RoleCandidate {
	pid := sch.PrincipalID
	if pid == "" {
		pid = principalID
	}
	return domain.NewDirectoryCandidate(domain.DirectoryRole{
		RoleDefinitionID: sch.RoleDefinitionID,
		PrincipalID:      pid,
		DirectoryScopeID: sch.DirectoryScopeID,
		DisplayName:      names[sch.RoleDefinitionID],
	})
}

func resourceCandidate(inst upstream.ARMScheduleInstance, principalID string, subs map[string]string) domain.RoleCandidate {
	p := inst.Properties
	pid := p.PrincipalID
	if pid == "" {
		pid = principalID
	}
	name := ""
	if p.ExpandedProperties != nil && p.ExpandedProperties.RoleDefinition != nil {
		name = p.ExpandedProperties.RoleDefinition.DisplayName
	}
	subID := domain.SubscriptionIDFromScope(p.Scope)
	return domain.NewResourceCandidate(domain.ResourceRole{
		RoleDefinitionID: p.RoleDefinitionID,
		PrincipalID:      pid,
		Scope:            p.Scope,
		SubscriptionID:   subID,
		SubscriptionName: subs[subID],
		DisplayName:      name,
	})
}

func missingARMToken() error {
	return domain.ErrCredential(domain.ReasonMissingResourceCredential,
		"no Azure Resource Manager token found: open the Azure portal to capture one")
}

func fetchErrors(dirErr, resErr error) []domain.FetchError {
	errs := []domain.FetchError{}
	if dirErr != nil {
		errs = append(errs, domain.FetchError{Type: domain.RoleTypeDirectory, Message: dirErr.Error()})
	}
	if resErr != nil {
		errs = append(errs, domain.FetchError{Type: domain.RoleTypeAzureResource, Message: resErr.Error()})
	}
	return errs
}

// asUpstream keeps an UpstreamError as is and wraps anything else in one.
func asUpstream(err error) error {
	var up *domain.UpstreamError
	if errors.As(err, &up) {
		return err
	}
	return domain.ErrUpstream(0, "FetchFailed", err.Error())
}

func sortCandidates(cs []domain.RoleCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if a, b := strings.ToLower(cs[i].Label()), strings.ToLower(cs[j].Label()); a != b {
			return a < b
		}
		return cs[i].Scope() < cs[j].Scope()
	})
}

func sortActive(rs []domain.ActiveRole) {
	sort.SliceStable(rs, func(i, j int) bool {
		if a, b := strings.ToLower(rs[i].Label()), strings.ToLower(rs[j].Label()); a != b {
			return a < b
		}
		return rs[i].Scope() < rs[j].Scope()
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
