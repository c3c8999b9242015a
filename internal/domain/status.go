package domain

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// ExpiringSoonThreshold marks active roles with little time left.
const ExpiringSoonThreshold = 15 * time.Minute

// RemainingScale is the full width of the remaining-time gauge.
const RemainingScale = 8 * time.Hour

// TokenStatus describes the freshness of one stored credential.
type TokenStatus struct {
	Kind              CredentialKind `json:"kind"`
	Present           bool           `json:"hasToken"`
	AgeMinutes        float64        `json:"ageMinutes,omitempty"`
	RoundedAgeMinutes int64          `json:"tokenAge"`
	Expired           bool           `json:"isExpired"`
	Source            string         `json:"source,omitempty"`
	CapturedAt        *time.Time     `json:"capturedAt,omitempty"`
}

// EvaluateTokenStatus computes the status of cred at now. A nil credential is
// reported as absent. The expiry bound is exclusive: exactly maxAge old is
// still fresh.
func EvaluateTokenStatus(kind CredentialKind, cred *Credential, now time.Time, maxAge time.Duration) TokenStatus {
	if cred == nil || cred.Token == "" {
		return TokenStatus{Kind: kind}
	}
	age := cred.Age(now)
	ageMinutes := age.Minutes()
	captured := cred.CapturedAt
	return TokenStatus{
		Kind:              kind,
		Present:           true,
		AgeMinutes:        ageMinutes,
		RoundedAgeMinutes: int64(math.Round(ageMinutes)),
		Expired:           ageMinutes > maxAge.Minutes(),
		Source:            cred.Source,
		CapturedAt:        &captured,
	}
}

// TimeRemaining returns how long until expiry, clamped to zero at or past it.
func TimeRemaining(expiry, now time.Time) time.Duration {
	d := expiry.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ExpiringSoon reports whether fewer than 15 minutes remain before expiry.
func ExpiringSoon(expiry, now time.Time) bool {
	return expiry.Sub(now) < ExpiringSoonThreshold
}

// FormatRemaining renders a countdown as "2h 5m", "4m 10s", "9s" or "Expired".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "Expired"
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	seconds := int64((d % time.Minute) / time.Second)
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// RemainingPercent maps remaining time onto the 8 hour gauge, clamped to 0..100.
func RemainingPercent(d time.Duration) float64 {
	p := float64(d) / float64(RemainingScale) * 100
	return math.Max(0, math.Min(100, p))
}

var (
	resourceGroupPattern = regexp.MustCompile(`(?i)/resourceGroups/([^/]+)`)
	resourceNamePattern  = regexp.MustCompile(`(?i)/providers/[^/]+/[^/]+/([^/]+)`)
)

// ScopeLabel shortens an ARM scope to "rg" or "rg > resource". Subscription
// and management-group scopes yield an empty label.
func ScopeLabel(scope string) string {
	rg := resourceGroupPattern.FindStringSubmatch(scope)
	if rg == nil {
		return ""
	}
	if res := resourceNamePattern.FindStringSubmatch(scope); res != nil {
		return rg[1] + " > " + res[1]
	}
	return rg[1]
}
