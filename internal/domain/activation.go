package domain

import (
	"fmt"
	"math"
	"strings"
)

// Ticket defaults used when only one of system or number is supplied.
const (
	DefaultTicketSystem = "Self-Service"
	DefaultTicketNumber = "N/A"
)

// TicketInfo references an external change or incident ticket.
type TicketInfo struct {
	System string `json:"ticketSystem,omitempty"`
	Number string `json:"ticketNumber,omitempty"`
}

// Provided reports whether any ticket field was supplied.
func (t *TicketInfo) Provided() bool {
	return t != nil && (strings.TrimSpace(t.System) != "" || strings.TrimSpace(t.Number) != "")
}

// WithDefaults fills missing fields with the sentinel values.
func (t TicketInfo) WithDefaults() TicketInfo {
	if strings.TrimSpace(t.System) == "" {
		t.System = DefaultTicketSystem
	}
	if strings.TrimSpace(t.Number) == "" {
		t.Number = DefaultTicketNumber
	}
	return t
}

// MaxDurationHours caps an activation at one year so the minute count
// always fits in an int64.
const MaxDurationHours = 24 * 365

// ActivationRequest asks for a batch of roles to be self-activated.
type ActivationRequest struct {
	Candidates    []RoleCandidate `json:"roles"`
	DurationHours float64         `json:"durationHours"`
	Justification string          `json:"justification"`
	Ticket        *TicketInfo     `json:"ticketInfo,omitempty"`
}

// Validate checks the input-only preconditions in order: roles selected,
// justification present, duration positive.
func (r ActivationRequest) Validate() error {
	if len(r.Candidates) == 0 {
		return ErrValidation(ReasonNoRolesSelected, "no roles selected for activation")
	}
	if strings.TrimSpace(r.Justification) == "" {
		return ErrValidation(ReasonMissingJustification, "justification is required")
	}
	if math.IsNaN(r.DurationHours) || math.IsInf(r.DurationHours, 0) || r.DurationHours <= 0 {
		return ErrValidation(ReasonInvalidDuration, "duration must be greater than 0 hours")
	}
	if r.DurationHours > MaxDurationHours {
		return ErrValidation(ReasonInvalidDuration, "duration must be at most %d hours", MaxDurationHours)
	}
	return nil
}

// HasRoleType reports whether any candidate has the given type.
func (r ActivationRequest) HasRoleType(t RoleType) bool {
	for _, c := range r.Candidates {
		if c.RoleType == t {
			return true
		}
	}
	return false
}

// DurationMinutes converts fractional hours to whole minutes, rounding to the
// nearest minute.
func DurationMinutes(hours float64) int64 {
	return int64(math.Round(hours * 60))
}

// ISODuration encodes fractional hours as an ISO-8601 minute duration (PT{n}M).
func ISODuration(hours float64) string {
	return fmt.Sprintf("PT%dM", DurationMinutes(hours))
}

// ActivationSuccess is the outcome of one accepted activation.
type ActivationSuccess struct {
	Role      string   `json:"role"`
	RoleType  RoleType `json:"roleType"`
	Scope     string   `json:"scope,omitempty"`
	RequestID string   `json:"requestId"`
}

// ActivationFailure is the outcome of one rejected activation.
type ActivationFailure struct {
	Role       string   `json:"role"`
	RoleType   RoleType `json:"roleType"`
	Scope      string   `json:"scope,omitempty"`
	Reason     string   `json:"error"`
	HTTPStatus int      `json:"httpStatus,omitempty"`
}

// BatchResult aggregates per-candidate outcomes. Success is true only when
// no candidate failed.
type BatchResult struct {
	Success bool                `json:"success"`
	Results []ActivationSuccess `json:"results"`
	Errors  []ActivationFailure `json:"errors"`
}
