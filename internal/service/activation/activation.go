// Package activation submits PIM self-activation requests for a batch of
// role candidates and aggregates the per-candidate outcomes.
package activation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quickpim/internal/domain"
	"quickpim/internal/upstream"
)

// Wire constants of the activation payloads.
const (
	DirectoryAction     = "selfActivate"
	ResourceRequestType = "SelfActivate"
	ExpirationType      = "AfterDuration"

	// startTimeLayout is RFC 3339 with millisecond precision.
	startTimeLayout = "2006-01-02T15:04:05.000Z07:00"

	defaultConcurrency = 4
)

// DirectoryAPI submits directory role activations.
// Implemented by upstream.GraphClient.
type DirectoryAPI interface {
	CreateAssignmentScheduleRequest(ctx context.Context, token string, req upstream.DirectoryActivationRequest) (*upstream.GraphScheduleRequest, error)
}

// ResourceAPI submits Azure resource role activations.
// Implemented by upstream.ARMClient.
type ResourceAPI interface {
	CreateAssignmentScheduleRequest(ctx context.Context, token, scope, name string, req upstream.ResourceActivationRequest) (*upstream.ARMScheduleRequest, error)
}

// Credentials are the bearer tokens available to a batch. Either may be empty.
type Credentials struct {
	Directory string
	Resource  string
}

// ActivationService validates and dispatches activation batches.
type ActivationService struct {
	graph       DirectoryAPI
	arm         ResourceAPI
	concurrency int
	now         func() time.Time
	newName     func() string
	logger      *slog.Logger
}

// NewActivationService creates an ActivationService dispatching at most
// concurrency requests at once (non-positive means 4).
func NewActivationService(graph DirectoryAPI, arm ResourceAPI, concurrency int, logger *slog.Logger) *ActivationService {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &ActivationService{
		graph:       graph,
		arm:         arm,
		concurrency: concurrency,
		now:         time.Now,
		newName:     func() string { return uuid.NewString() },
		logger:      logger,
	}
}

// Activate submits one activation per candidate. Input and credential
// problems fail the whole batch before any request is sent. After that every
// candidate succeeds or fails on its own, and outcomes are reported in input
// order.
func (s *ActivationService) Activate(ctx context.Context, req domain.ActivationRequest, creds Credentials) (*domain.BatchResult, error) {
	if err := Preflight(req, creds); err != nil {
		return nil, err
	}

	start := s.now().UTC().Format(startTimeLayout)
	schedule := upstream.ScheduleInfo{
		StartDateTime: start,
		Expiration:    upstream.Expiration{Type: ExpirationType, Duration: domain.ISODuration(req.DurationHours)},
	}
	justification := req.Justification
	ticket := wireTicket(req.Ticket)

	type outcome struct {
		success *domain.ActivationSuccess
		failure *domain.ActivationFailure
	}
	outcomes := make([]outcome, len(req.Candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range req.Candidates {
		g.Go(func() error {
			requestID, err := s.submit(gctx, c, creds, justification, schedule, ticket)
			if err != nil {
				outcomes[i].failure = failureFor(c, err)
				s.logger.Warn("activation failed", "role", c.Label(), "role_type", c.RoleType, "scope", c.Scope(), "error", err)
				return nil
			}
			outcomes[i].success = &domain.ActivationSuccess{
				Role:      c.Label(),
				RoleType:  c.RoleType,
				Scope:     c.Scope(),
				RequestID: requestID,
			}
			s.logger.Info("activation submitted", "role", c.Label(), "role_type", c.RoleType, "scope", c.Scope(), "request_id", requestID)
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.BatchResult{
		Results: []domain.ActivationSuccess{},
		Errors:  []domain.ActivationFailure{},
	}
	for _, o := range outcomes {
		switch {
		case o.success != nil:
			result.Results = append(result.Results, *o.success)
		case o.failure != nil:
			result.Errors = append(result.Errors, *o.failure)
		}
	}
	result.Success = len(result.Errors) == 0
	return result, nil
}

// Preflight runs every check that can fail a batch without a network call,
// in the order: roles, justification, duration, candidate shape, directory
// credential, resource credential.
func Preflight(req domain.ActivationRequest, creds Credentials) error {
	if err := req.Validate(); err != nil {
		return err
	}
	for _, c := range req.Candidates {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if req.HasRoleType(domain.RoleTypeDirectory) && strings.TrimSpace(creds.Directory) == "" {
		return domain.ErrCredential(domain.ReasonMissingDirectoryCredential,
			"no Microsoft Graph token available for directory role activation")
	}
	if req.HasRoleType(domain.RoleTypeAzureResource) && strings.TrimSpace(creds.Resource) == "" {
		return domain.ErrCredential(domain.ReasonMissingResourceCredential,
			"no Azure Resource Manager token available for Azure resource role activation")
	}
	return nil
}

// submit sends one activation and returns the service-assigned request id.
func (s *ActivationService) submit(ctx context.Context, c domain.RoleCandidate, creds Credentials, justification string, schedule upstream.ScheduleInfo, ticket *upstream.TicketInfo) (string, error) {
	switch c.RoleType {
	case domain.RoleTypeDirectory:
		resp, err := s.graph.CreateAssignmentScheduleRequest(ctx, creds.Directory, DirectoryPayload(c, justification, schedule, ticket))
		if err != nil {
			return "", err
		}
		return resp.ID, nil
	case domain.RoleTypeAzureResource:
		resp, err := s.arm.CreateAssignmentScheduleRequest(ctx, creds.Resource, c.Resource.Scope, s.newName(), ResourcePayload(c, justification, schedule, ticket))
		if err != nil {
			return "", err
		}
		return resp.Name, nil
	default:
		return "", domain.ErrValidation(domain.ReasonInvalidCandidate, "unknown role type %q", c.RoleType)
	}
}

// DirectoryPayload builds the Graph request body for a directory candidate.
func DirectoryPayload(c domain.RoleCandidate, justification string, schedule upstream.ScheduleInfo, ticket *upstream.TicketInfo) upstream.DirectoryActivationRequest {
	return upstream.DirectoryActivationRequest{
		Action:           DirectoryAction,
		PrincipalID:      c.Directory.PrincipalID,
		RoleDefinitionID: c.Directory.RoleDefinitionID,
		DirectoryScopeID: c.Scope(),
		Justification:    justification,
		ScheduleInfo:     schedule,
		TicketInfo:       ticket,
	}
}

// ResourcePayload builds the ARM request body for a resource candidate.
func ResourcePayload(c domain.RoleCandidate, justification string, schedule upstream.ScheduleInfo, ticket *upstream.TicketInfo) upstream.ResourceActivationRequest {
	return upstream.ResourceActivationRequest{Properties: upstream.ResourceActivationProperties{
		PrincipalID:      c.Resource.PrincipalID,
		RoleDefinitionID: c.Resource.RoleDefinitionID,
		RequestType:      ResourceRequestType,
		Justification:    justification,
		ScheduleInfo:     schedule,
		TicketInfo:       ticket,
	}}
}

// wireTicket returns nil unless a system or number was supplied.
func wireTicket(t *domain.TicketInfo) *upstream.TicketInfo {
	if !t.Provided() {
		return nil
	}
	d := t.WithDefaults()
	return &upstream.TicketInfo{TicketSystem: strings.TrimSpace(d.System), TicketNumber: strings.TrimSpace(d.Number)}
}

func failureFor(c domain.RoleCandidate, err error) *domain.ActivationFailure {
	f := &domain.ActivationFailure{
		Role:     c.Label(),
		RoleType: c.RoleType,
		Scope:    c.Scope(),
		Reason:   err.Error(),
	}
	var up *domain.UpstreamError
	if errors.As(err, &up) {
		f.HTTPStatus = up.Status
		f.Reason = up.Error()
	}
	return f
}
