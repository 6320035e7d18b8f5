package engine

import (
	"time"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
)

// Settle applies the single lifecycle transition active → completed when the
// remaining balance has been paid down to (or past) zero. On transition the
// balance is clamped to exactly zero and the completion date is frozen; the
// transition is terminal and never reversed. Returns true if the loan
// completed.
func Settle(loan *models.Loan, now time.Time) bool {
	if loan.Status == models.LoanStatusCompleted {
		return false
	}
	if loan.RemainingAmount.GreaterThan(decimal.Zero) {
		return false
	}
	loan.RemainingAmount = decimal.Zero
	loan.Status = models.LoanStatusCompleted
	completed := now
	loan.CompletedDate = &completed
	return true
}
