package engine

import (
	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
)

// Split divides a submitted payment into principal and interest/fixed-charge
// portions. The period charge comes off the top, computed from the current
// remaining balance regardless of how large the payment is; whatever is left
// reduces principal, clamped to [0, remainingAmount].
//
// A payment smaller than the charge yields zero principal; the shortfall is
// not signalled here (see PaymentProcessor, which still debits the full
// amount, matching the original behavior).
func Split(loan *models.Loan, paymentAmount decimal.Decimal) (models.PaymentBreakdown, error) {
	charge, err := ChargeForPeriod(loan)
	if err != nil {
		return models.PaymentBreakdown{}, err
	}

	principal := paymentAmount.Sub(charge)
	if principal.IsNegative() {
		principal = decimal.Zero
	}
	principal = decimal.Min(principal, loan.RemainingAmount)

	b := models.PaymentBreakdown{
		Principal: principal,
		Interest:  decimal.Zero,
		Charge:    decimal.Zero,
	}
	if loan.PaymentType == models.PaymentTypeInterest {
		b.Interest = charge
	} else {
		b.Charge = charge
	}
	return b, nil
}
