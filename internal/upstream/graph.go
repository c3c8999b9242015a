package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultGraphBaseURL is the public Microsoft Graph endpoint.
const DefaultGraphBaseURL = "https://graph.microsoft.com"

// GraphRoleDefinition is a directory role definition, either listed directly
// or embedded by $expand=roleDefinition.
type GraphRoleDefinition struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	IsBuiltIn   bool   `json:"isBuiltIn,omitempty"`
}

// GraphRoleSchedule covers eligibility schedules and assignment schedule
// instances, which share their identifying fields.
type GraphRoleSchedule struct {
	ID               string               `json:"id"`
	PrincipalID      string               `json:"principalId"`
	RoleDefinitionID string               `json:"roleDefinitionId"`
	DirectoryScopeID string               `json:"directoryScopeId"`
	MemberType       string               `json:"memberType,omitempty"`
	Status           string               `json:"status,omitempty"`
	AssignmentType   string               `json:"assignmentType,omitempty"`
	StartDateTime    *time.Time           `json:"startDateTime,omitempty"`
	EndDateTime      *time.Time           `json:"endDateTime,omitempty"`
	RoleDefinition   *GraphRoleDefinition `json:"roleDefinition,omitempty"`
}

// GraphScheduleRequest is a unifiedRoleAssignmentScheduleRequest.
type GraphScheduleRequest struct {
	ID               string               `json:"id"`
	Action           string               `json:"action"`
	Status           string               `json:"status"`
	PrincipalID      string               `json:"principalId"`
	RoleDefinitionID string               `json:"roleDefinitionId"`
	DirectoryScopeID string               `json:"directoryScopeId"`
	Justification    string               `json:"justification,omitempty"`
	CreatedDateTime  *time.Time           `json:"createdDateTime,omitempty"`
	RoleDefinition   *GraphRoleDefinition `json:"roleDefinition,omitempty"`
}

// Expiration bounds an activation. Activations always use AfterDuration.
type Expiration struct {
	Type     string `json:"type"`
	Duration string `json:"duration,omitempty"`
}

// ScheduleInfo is the start and expiration of an activation.
type ScheduleInfo struct {
	StartDateTime string     `json:"startDateTime"`
	Expiration    Expiration `json:"expiration"`
}

// TicketInfo is the wire form of an external ticket reference.
type TicketInfo struct {
	TicketSystem string `json:"ticketSystem"`
	TicketNumber string `json:"ticketNumber"`
}

// DirectoryActivationRequest is the body of a Graph self-activation.
type DirectoryActivationRequest struct {
	Action           string       `json:"action"`
	PrincipalID      string       `json:"principalId"`
	RoleDefinitionID string       `json:"roleDefinitionId"`
	DirectoryScopeID string       `json:"directoryScopeId"`
	Justification    string       `json:"justification"`
	ScheduleInfo     ScheduleInfo `json:"scheduleInfo"`
	TicketInfo       *TicketInfo  `json:"ticketInfo,omitempty"`
}

// GraphClient calls the Graph role management API.
type GraphClient struct {
	c *client
}

// NewGraphClient creates a Graph client rooted at baseURL (no version segment).
func NewGraphClient(baseURL string, opts Options) (*GraphClient, error) {
	c, err := newClient(baseURL, opts)
	if err != nil {
		return nil, fmt.Errorf("graph client: %w", err)
	}
	return &GraphClient{c: c}, nil
}

func principalFilter(principalID string) string {
	return "$filter=" + queryEscape(fmt.Sprintf("principalId eq '%s'", principalID)) + "&$expand=roleDefinition"
}

// ListEligibilitySchedules returns the directory roles principalID may activate.
func (g *GraphClient) ListEligibilitySchedules(ctx context.Context, token, principalID string) ([]GraphRoleSchedule, error) {
	u := g.c.url("/beta/roleManagement/directory/roleEligibilitySchedules", principalFilter(principalID))
	items, err := listAll[GraphRoleSchedule](ctx, g.c, token, u)
	if err != nil {
		return nil, fmt.Errorf("list eligibility schedules: %w", err)
	}
	return items, nil
}

// ListAssignmentScheduleInstances returns the directory roles currently in
// effect for principalID.
func (g *GraphClient) ListAssignmentScheduleInstances(ctx context.Context, token, principalID string) ([]GraphRoleSchedule, error) {
	u := g.c.url("/v1.0/roleManagement/directory/roleAssignmentScheduleInstances", principalFilter(principalID))
	items, err := listAll[GraphRoleSchedule](ctx, g.c, token, u)
	if err != nil {
		return nil, fmt.Errorf("list assignment schedule instances: %w", err)
	}
	return items, nil
}

// ListMyScheduleRequests returns the assignment schedule requests of the
// token's principal.
func (g *GraphClient) ListMyScheduleRequests(ctx context.Context, token string) ([]GraphScheduleRequest, error) {
	u := g.c.url("/v1.0/roleManagement/directory/roleAssignmentScheduleRequests/filterByCurrentUser(on='principal')", "$expand=roleDefinition")
	items, err := listAll[GraphScheduleRequest](ctx, g.c, token, u)
	if err != nil {
		return nil, fmt.Errorf("list schedule requests: %w", err)
	}
	return items, nil
}

// ListRoleDefinitions returns every directory role definition in the tenant.
func (g *GraphClient) ListRoleDefinitions(ctx context.Context, token string) ([]GraphRoleDefinition, error) {
	u := g.c.url("/v1.0/roleManagement/directory/roleDefinitions", "$select=id,displayName,description,isBuiltIn")
	items, err := listAll[GraphRoleDefinition](ctx, g.c, token, u)
	if err != nil {
		return nil, fmt.Errorf("list role definitions: %w", err)
	}
	return items, nil
}

// CreateAssignmentScheduleRequest submits a directory self-activation.
func (g *GraphClient) CreateAssignmentScheduleRequest(ctx context.Context, token string, req DirectoryActivationRequest) (*GraphScheduleRequest, error) {
	u := g.c.url("/v1.0/roleManagement/directory/roleAssignmentScheduleRequests", "")
	var out GraphScheduleRequest
	if err := g.c.do(ctx, http.MethodPost, token, u, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
