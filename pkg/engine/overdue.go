package engine

import (
	"time"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
)

// IsOverdue reports whether a payment was missed: now strictly past the
// loan's next due date.
func IsOverdue(loan *models.Loan, now time.Time) bool {
	return now.After(loan.NextDueDate)
}

// RegularPayment is the non-overdue payment for one period, converted from
// the stored monthly-equivalent installment to the loan's cadence.
func RegularPayment(loan *models.Loan) decimal.Decimal {
	return Convert(loan.InstallmentAmount, models.FrequencyMonthly, loan.PaymentFrequency)
}

// MinimumPayment is the amount needed to bring the loan current, capped at
// the remaining balance.
//
// When overdue, the catch-up is a step function: regular payment times the
// number of elapsed periods (whole days since the due date divided by the
// period length, plus one for the period that fell due). No late fees or
// penalty interest are layered on top.
func MinimumPayment(loan *models.Loan, now time.Time) decimal.Decimal {
	regular := RegularPayment(loan)
	if !IsOverdue(loan, now) {
		return decimal.Min(regular, loan.RemainingAmount)
	}

	days := int(now.Sub(loan.NextDueDate) / (24 * time.Hour))
	elapsed := days/PeriodDays(loan.PaymentFrequency) + 1
	catchUp := regular.Mul(decimal.NewFromInt(int64(elapsed)))
	return decimal.Min(catchUp, loan.RemainingAmount)
}
