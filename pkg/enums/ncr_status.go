package enums

import "fmt"

// NCRStatus tracks the lifecycle of a non-conformance report.
type NCRStatus string

const (
	NCRStatusOpen        NCRStatus = "open"
	NCRStatusUnderReview NCRStatus = "under_review"
	NCRStatusClosed      NCRStatus = "closed"
)

var validNCRStatuses = []NCRStatus{
	NCRStatusOpen,
	NCRStatusUnderReview,
	NCRStatusClosed,
}

var ncrTransitions = map[NCRStatus][]NCRStatus{
	NCRStatusOpen:        {NCRStatusUnderReview, NCRStatusClosed},
	NCRStatusUnderReview: {NCRStatusClosed, NCRStatusOpen},
}

// String implements fmt.Stringer.
func (s NCRStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known NCRStatus.
func (s NCRStatus) IsValid() bool {
	for _, candidate := range validNCRStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether the move from s to next is legal.
func (s NCRStatus) CanTransition(next NCRStatus) bool {
	for _, candidate := range ncrTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseNCRStatus converts raw input into an NCRStatus.
func ParseNCRStatus(value string) (NCRStatus, error) {
	for _, candidate := range validNCRStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ncr status %q", value)
}
