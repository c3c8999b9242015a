package domain

import (
	"strings"
	"time"
)

// RoleType discriminates the two kinds of activatable grants.
type RoleType string

// Role types.
const (
	RoleTypeDirectory     RoleType = "directory"
	RoleTypeAzureResource RoleType = "azureResource"
)

// DefaultDirectoryScope is the tenant-wide directory scope.
const DefaultDirectoryScope = "/"

// DirectoryRole is the payload of a directory-scoped candidate.
type DirectoryRole struct {
	RoleDefinitionID string `json:"roleDefinitionId"`
	PrincipalID      string `json:"principalId"`
	DirectoryScopeID string `json:"directoryScopeId"`
	DisplayName      string `json:"displayName,omitempty"`
}

// ResourceRole is the payload of an Azure resource-scoped candidate.
type ResourceRole struct {
	RoleDefinitionID string `json:"roleDefinitionId"`
	PrincipalID      string `json:"principalId"`
	Scope            string `json:"scope"`
	SubscriptionID   string `json:"subscriptionId,omitempty"`
	SubscriptionName string `json:"subscriptionName,omitempty"`
	DisplayName      string `json:"displayName,omitempty"`
}

// RoleCandidate is one activatable grant. Exactly one payload is set and it
// must match RoleType.
type RoleCandidate struct {
	RoleType  RoleType       `json:"roleType"`
	Directory *DirectoryRole `json:"directory,omitempty"`
	Resource  *ResourceRole  `json:"azureResource,omitempty"`
}

// NewDirectoryCandidate builds a directory candidate, defaulting the scope to "/".
func NewDirectoryCandidate(r DirectoryRole) RoleCandidate {
	if r.DirectoryScopeID == "" {
		r.DirectoryScopeID = DefaultDirectoryScope
	}
	return RoleCandidate{RoleType: RoleTypeDirectory, Directory: &r}
}

// NewResourceCandidate builds an Azure resource candidate. The subscription id
// is derived from the scope when not given.
func NewResourceCandidate(r ResourceRole) RoleCandidate {
	if r.SubscriptionID == "" {
		r.SubscriptionID = SubscriptionIDFromScope(r.Scope)
	}
	return RoleCandidate{RoleType: RoleTypeAzureResource, Resource: &r}
}

// Validate checks that the tag and payload agree.
func (c RoleCandidate) Validate() error {
	switch c.RoleType {
	case RoleTypeDirectory:
		if c.Directory == nil || c.Resource != nil {
			return ErrValidation(ReasonInvalidCandidate, "directory role candidate must carry only a directory payload")
		}
		if c.Directory.RoleDefinitionID == "" || c.Directory.PrincipalID == "" {
			return ErrValidation(ReasonInvalidCandidate, "directory role candidate requires roleDefinitionId and principalId")
		}
	case RoleTypeAzureResource:
		if c.Resource == nil || c.Directory != nil {
			return ErrValidation(ReasonInvalidCandidate, "azure resource role candidate must carry only a resource payload")
		}
		if c.Resource.RoleDefinitionID == "" || c.Resource.PrincipalID == "" || c.Resource.Scope == "" {
			return ErrValidation(ReasonInvalidCandidate, "azure resource role candidate requires roleDefinitionId, principalId and scope")
		}
	default:
		return ErrValidation(ReasonInvalidCandidate, "unknown role type %q", c.RoleType)
	}
	return nil
}

// RoleDefinitionID returns the definition id from whichever payload is set.
func (c RoleCandidate) RoleDefinitionID() string {
	switch {
	case c.Directory != nil:
		return c.Directory.RoleDefinitionID
	case c.Resource != nil:
		return c.Resource.RoleDefinitionID
	}
	return ""
}

// PrincipalID returns the principal from whichever payload is set.
func (c RoleCandidate) PrincipalID() string {
	switch {
	case c.Directory != nil:
		return c.Directory.PrincipalID
	case c.Resource != nil:
		return c.Resource.PrincipalID
	}
	return ""
}

// Scope returns the directory scope or the ARM resource scope.
func (c RoleCandidate) Scope() string {
	switch {
	case c.Directory != nil:
		if c.Directory.DirectoryScopeID == "" {
			return DefaultDirectoryScope
		}
		return c.Directory.DirectoryScopeID
	case c.Resource != nil:
		return c.Resource.Scope
	}
	return ""
}

// Label is the human-readable name used in results: the display name when
// known, otherwise the raw role definition id.
func (c RoleCandidate) Label() string {
	name := ""
	switch {
	case c.Directory != nil:
		name = c.Directory.DisplayName
	case c.Resource != nil:
		name = c.Resource.DisplayName
	}
	if name != "" {
		return name
	}
	return c.RoleDefinitionID()
}

// Key is the stable identifier used to persist selection state for a role.
func (c RoleCandidate) Key() string {
	prefix := "dir"
	if c.RoleType == RoleTypeAzureResource {
		prefix = "arm"
	}
	return prefix + ":" + strings.ToLower(c.RoleDefinitionID()) + ":" + strings.ToLower(c.Scope())
}

// SubscriptionIDFromScope extracts the subscription id from an ARM scope path
// such as /subscriptions/<id>/resourceGroups/<rg>.
func SubscriptionIDFromScope(scope string) string {
	parts := strings.Split(strings.Trim(scope, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], "subscriptions") {
			return parts[i+1]
		}
	}
	return ""
}

// ActiveRole is a grant currently in effect.
type ActiveRole struct {
	RoleCandidate
	AssignmentType string     `json:"assignmentType,omitempty"`
	StartDateTime  *time.Time `json:"startDateTime,omitempty"`
	EndDateTime    *time.Time `json:"endDateTime,omitempty"`
}

// FetchError records one failed sub-fetch of a role catalog.
type FetchError struct {
	Type    RoleType `json:"type"`
	Message string   `json:"error"`
}

// RoleCatalog partitions eligible roles by type plus any sub-fetch failures.
type RoleCatalog struct {
	DirectoryRoles     []RoleCandidate `json:"directoryRoles"`
	AzureResourceRoles []RoleCandidate `json:"azureResourceRoles"`
	Errors             []FetchError    `json:"errors"`
}

// ActiveRoleCatalog partitions active roles by type plus any sub-fetch failures.
type ActiveRoleCatalog struct {
	DirectoryRoles     []ActiveRole `json:"activeDirectoryRoles"`
	AzureResourceRoles []ActiveRole `json:"activeAzureResourceRoles"`
	Errors             []FetchError `json:"errors"`
}

// ScheduleRequest is a previously submitted activation or eligibility request.
type ScheduleRequest struct {
	ID               string     `json:"id"`
	Action           string     `json:"action"`
	Status           string     `json:"status"`
	RoleDefinitionID string     `json:"roleDefinitionId"`
	RoleName         string     `json:"roleName,omitempty"`
	DirectoryScopeID string     `json:"directoryScopeId,omitempty"`
	Justification    string     `json:"justification,omitempty"`
	CreatedDateTime  *time.Time `json:"createdDateTime,omitempty"`
}

// RoleSelection is the persisted checkbox state of one role.
type RoleSelection struct {
	Key       string    `json:"key"`
	Checked   bool      `json:"checked"`
	UpdatedAt time.Time `json:"updatedAt"`
}
