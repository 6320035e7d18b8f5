package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// All payment failures are returned as values, never panicked. The caller
// (UI toast, API response) is expected to surface them and leave all state
// untouched.
var (
	ErrInvalidAmount            = errors.New("payment amount must be positive")
	ErrLoanAlreadyCompleted     = errors.New("loan is already completed")
	ErrExceedsRemainingBalance  = errors.New("principal portion exceeds remaining balance")
	ErrInvalidLoanConfiguration = errors.New("invalid loan configuration")
)

// InsufficientFundsError reports a payment the backing account cannot cover.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s",
		e.Requested.StringFixed(2), e.Available.StringFixed(2))
}
