package enums

import "fmt"

// TransactionKind classifies a credit ledger movement.
type TransactionKind string

const (
	TransactionKindTopUp  TransactionKind = "topup"
	TransactionKindSpend  TransactionKind = "spend"
	TransactionKindRefund TransactionKind = "refund"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindTopUp,
	TransactionKindSpend,
	TransactionKindRefund,
}

// String returns the literal string for the kind.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is known.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsCredit reports whether the kind increases the wallet balance.
func (k TransactionKind) IsCredit() bool {
	return k == TransactionKindTopUp || k == TransactionKindRefund
}

// ParseTransactionKind converts raw input into a TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}
