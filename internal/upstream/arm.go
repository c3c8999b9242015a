package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultARMBaseURL is the public Azure Resource Manager endpoint.
const DefaultARMBaseURL = "https://management.azure.com"

// ARM api-versions used by the PIM calls.
const (
	AuthorizationAPIVersion = "2020-10-01"
	SubscriptionsAPIVersion = "2020-01-01"
)

// ARMNamedRef is an id/name pair from expandedProperties.
type ARMNamedRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type,omitempty"`
}

// ARMExpandedProperties carries the display names ARM resolves for a schedule.
type ARMExpandedProperties struct {
	Scope          *ARMNamedRef `json:"scope,omitempty"`
	RoleDefinition *ARMNamedRef `json:"roleDefinition,omitempty"`
	Principal      *ARMNamedRef `json:"principal,omitempty"`
}

// ARMScheduleProperties are the properties of eligibility and assignment
// schedule instances.
type ARMScheduleProperties struct {
	PrincipalID        string                 `json:"principalId"`
	RoleDefinitionID   string                 `json:"roleDefinitionId"`
	Scope              string                 `json:"scope"`
	MemberType         string                 `json:"memberType,omitempty"`
	Status             string                 `json:"status,omitempty"`
	AssignmentType     string                 `json:"assignmentType,omitempty"`
	StartDateTime      *time.Time             `json:"startDateTime,omitempty"`
	EndDateTime        *time.Time             `json:"endDateTime,omitempty"`
	ExpandedProperties *ARMExpandedProperties `json:"expandedProperties,omitempty"`
}

// ARMScheduleInstance is one eligibility or assignment schedule instance.
type ARMScheduleInstance struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Type       string                `json:"type"`
	Properties ARMScheduleProperties `json:"properties"`
}

// ARMSubscription is an entry of the subscription list.
type ARMSubscription struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state,omitempty"`
}

// ResourceActivationProperties is the properties block of an ARM self-activation.
type ResourceActivationProperties struct {
	PrincipalID      string       `json:"principalId"`
	RoleDefinitionID string       `json:"roleDefinitionId"`
	RequestType      string       `json:"requestType"`
	Justification    string       `json:"justification"`
	ScheduleInfo     ScheduleInfo `json:"scheduleInfo"`
	TicketInfo       *TicketInfo  `json:"ticketInfo,omitempty"`
}

// ResourceActivationRequest is the body of an ARM self-activation.
type ResourceActivationRequest struct {
	Properties ResourceActivationProperties `json:"properties"`
}

// ARMScheduleRequest is the response to an ARM activation.
type ARMScheduleRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties struct {
		Status      string `json:"status"`
		RequestType string `json:"requestType"`
	} `json:"properties"`
}

// ARMClient calls the Azure Resource Manager PIM API.
type ARMClient struct {
	c *client
}

// NewARMClient creates an ARM client rooted at baseURL.
func NewARMClient(baseURL string, opts Options) (*ARMClient, error) {
	c, err := newClient(baseURL, opts)
	if err != nil {
		return nil, fmt.Errorf("arm client: %w", err)
	}
	return &ARMClient{c: c}, nil
}

func asTargetQuery() string {
	return "api-version=" + AuthorizationAPIVersion + "&$filter=" + queryEscape("asTarget()")
}

// ListEligibilityScheduleInstances returns the resource roles the caller may activate.
func (a *ARMClient) ListEligibilityScheduleInstances(ctx context.Context, token string) ([]ARMScheduleInstance, error) {
	u := a.c.url("/providers/Microsoft.Authorization/roleEligibilityScheduleInstances", asTargetQuery())
	items, err := listAll[ARMScheduleInstance](ctx, a.c, token, u)
	if err != nil {
		return nil, fmt.Errorf("list eligibility schedule instances: %w", err)
	}
	return items, nil
}

// ListAssignmentScheduleInstances returns the resource roles currently in effect.
func (a *ARMClient) ListAssignmentScheduleInstances(ctx context.Context, token string) ([]ARMScheduleInstance, error) {
	u := a.c.url("/providers/Microsoft.Authorization/roleAssignmentScheduleInstances", asTargetQuery())
	items, err := listAll[ARMScheduleInstance](ctx, a.c, token, u)
	if err != nil {
		return nil, fmt.Errorf("list assignment schedule instances: %w", err)
	}
	return items, nil
}

// ListSubscriptions returns the subscriptions visible to the caller.
func (a *ARMClient) ListSubscriptions(ctx context.Context, token string) ([]ARMSubscription, error) {
	u := a.c.url("/subscriptions", "api-version="+SubscriptionsAPIVersion)
	items, err := listAll[ARMSubscription](ctx, a.c, token, u)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return items, nil
}

// CreateAssignmentScheduleRequest submits a resource self-activation at scope
// under the given request name, which must be a fresh GUID.
func (a *ARMClient) CreateAssignmentScheduleRequest(ctx context.Context, token, scope, name string, req ResourceActivationRequest) (*ARMScheduleRequest, error) {
	if !strings.HasPrefix(scope, "/") || strings.ContainsAny(scope, "?#") {
		return nil, fmt.Errorf("invalid scope %q", scope)
	}
	path := strings.TrimRight(scope, "/") + "/providers/Microsoft.Authorization/roleAssignmentScheduleRequests/" + url.PathEscape(name)
	u := a.c.url(path, "api-version="+AuthorizationAPIVersion)
	var out ARMScheduleRequest
	if err := a.c.do(ctx, http.MethodPut, token, u, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
