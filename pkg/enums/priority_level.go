package enums

import "fmt"

// PriorityLevel maps to the priority_level enum in Postgres.
type PriorityLevel string

const (
	PriorityLevelLow      PriorityLevel = "low"
	PriorityLevelMedium   PriorityLevel = "medium"
	PriorityLevelHigh     PriorityLevel = "high"
	PriorityLevelCritical PriorityLevel = "critical"
)

var validPriorityLevels = []PriorityLevel{
	PriorityLevelLow,
	PriorityLevelMedium,
	PriorityLevelHigh,
	PriorityLevelCritical,
}

// String implements fmt.Stringer.
func (p PriorityLevel) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PriorityLevel.
func (p PriorityLevel) IsValid() bool {
	for _, candidate := range validPriorityLevels {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriorityLevel converts raw input into a PriorityLevel.
func ParsePriorityLevel(value string) (PriorityLevel, error) {
	for _, candidate := range validPriorityLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid priority level %q", value)
}
