package enums

import "fmt"

// PaymentTxnStatus tracks the lifecycle of a single gateway payment attempt.
type PaymentTxnStatus string

const (
	// PaymentTxnStatusInitiated means the remote gateway order was created.
	PaymentTxnStatusInitiated PaymentTxnStatus = "initiated"
	// PaymentTxnStatusPending means the attempt is awaiting user action.
	PaymentTxnStatusPending  PaymentTxnStatus = "pending"
	PaymentTxnStatusSuccess  PaymentTxnStatus = "success"
	PaymentTxnStatusFailed   PaymentTxnStatus = "failed"
	PaymentTxnStatusRefunded PaymentTxnStatus = "refunded"
)

var validPaymentTxnStatuses = []PaymentTxnStatus{
	PaymentTxnStatusInitiated,
	PaymentTxnStatusPending,
	PaymentTxnStatusSuccess,
	PaymentTxnStatusFailed,
	PaymentTxnStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentTxnStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentTxnStatus.
func (p PaymentTxnStatus) IsValid() bool {
	for _, candidate := range validPaymentTxnStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentTxnStatus converts raw input into a PaymentTxnStatus.
func ParsePaymentTxnStatus(value string) (PaymentTxnStatus, error) {
	for _, candidate := range validPaymentTxnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment transaction status %q", value)
}
