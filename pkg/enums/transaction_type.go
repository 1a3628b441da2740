package enums

import "fmt"

// TransactionType distinguishes stock movements in the materials ledger.
type TransactionType string

const (
	TransactionTypeInflow  TransactionType = "inflow"
	TransactionTypeOutflow TransactionType = "outflow"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeInflow,
	TransactionTypeOutflow,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Delta returns the signed quantity multiplier for the movement.
func (t TransactionType) Delta() int {
	if t == TransactionTypeOutflow {
		return -1
	}
	return 1
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
