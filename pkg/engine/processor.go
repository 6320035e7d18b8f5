package engine

import (
	"fmt"
	"time"

	"github.com/finwise/loanengine/pkg/assets"
	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
)

// PaymentResult is everything a successful payment produced. The three
// fields are committed together or not at all; a rejected payment leaves
// loan and ledger exactly as they were.
type PaymentResult struct {
	Loan      models.Loan
	Balance   decimal.Decimal
	Breakdown models.PaymentBreakdown
	Completed bool
}

// ApplyPayment drives one payment transaction: validates the amount and
// available funds, splits the payment, reduces the remaining balance,
// advances the due date, debits the paying account, and settles the loan if
// it paid off.
//
// The loan is taken by value and returned updated in the result; the caller
// owns the single mutable copy and decides when the result is committed.
// Preconditions are checked in a fixed order and the first failure is the
// reported error.
func ApplyPayment(loan models.Loan, ledger assets.Ledger, paymentAmount decimal.Decimal, accountID string, now time.Time) (*PaymentResult, error) {
	if loan.Status == models.LoanStatusCompleted {
		return nil, ErrLoanAlreadyCompleted
	}
	if paymentAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	available, err := ledger.GetBalance(accountID)
	if err != nil {
		return nil, fmt.Errorf("reading balance for %s: %w", accountID, err)
	}
	if available.LessThan(paymentAmount) {
		return nil, &InsufficientFundsError{Available: available, Requested: paymentAmount}
	}

	breakdown, err := Split(&loan, paymentAmount)
	if err != nil {
		return nil, err
	}
	// Split already clamps; this guards against a breakdown that somehow
	// overshoots what is owed.
	if breakdown.Principal.GreaterThan(loan.RemainingAmount) {
		return nil, ErrExceedsRemainingBalance
	}

	newBalance := available.Sub(paymentAmount)
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}

	// Overdue loans restart their cycle from the payment date; current loans
	// keep their cadence anchored to the existing due date.
	base := loan.NextDueDate
	if IsOverdue(&loan, now) {
		base = now
	}

	loan.RemainingAmount = loan.RemainingAmount.Sub(breakdown.Principal)
	loan.NextDueDate = AddPeriod(base, loan.PaymentFrequency)
	loan.UpdatedAt = now
	completed := Settle(&loan, now)

	if err := ledger.SetBalance(accountID, newBalance); err != nil {
		return nil, fmt.Errorf("debiting %s: %w", accountID, err)
	}

	return &PaymentResult{
		Loan:      loan,
		Balance:   newBalance,
		Breakdown: breakdown,
		Completed: completed,
	}, nil
}
