package enums

import "fmt"

// RequestDecision is the approver's verdict on a pending material request.
type RequestDecision string

const (
	RequestDecisionApprove RequestDecision = "approve"
	RequestDecisionReject  RequestDecision = "reject"
)

var validRequestDecisions = []RequestDecision{
	RequestDecisionApprove,
	RequestDecisionReject,
}

// IsValid reports whether the value is a known RequestDecision.
func (d RequestDecision) IsValid() bool {
	for _, candidate := range validRequestDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// Status returns the request status the decision resolves to.
func (d RequestDecision) Status() RequestStatus {
	if d == RequestDecisionApprove {
		return RequestStatusApproved
	}
	return RequestStatusRejected
}

// ParseRequestDecision converts raw input into a RequestDecision.
func ParseRequestDecision(value string) (RequestDecision, error) {
	for _, candidate := range validRequestDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request decision %q", value)
}
