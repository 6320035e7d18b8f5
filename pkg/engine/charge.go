package engine

import (
	"fmt"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
)

var d100 = decimal.NewFromInt(100)

// PeriodRate converts a loan's nominal annual rate (percent) into the simple
// per-period rate at the loan's payment frequency. The annual rate is first
// reduced to a nominal monthly rate and then scaled with the same calendar
// factors used for amounts (a weekly rate is 12/52 of a monthly one).
func PeriodRate(loan *models.Loan) decimal.Decimal {
	monthlyRate := loan.InterestRateAnnual.Div(d100).Div(d12)
	return Convert(monthlyRate, models.FrequencyMonthly, loan.PaymentFrequency)
}

// ChargeForPeriod computes the interest or fixed-charge portion due for one
// payment period.
//
// Interest loans accrue simple interest on the outstanding balance at
// calculation time. Fixed loans return the flat charge, converted to the
// payment frequency only when the two cadences differ: a matching frequency
// returns FixedCharge untouched so reconciliation sees the exact stored
// value.
//
// A nil loan or zeroed optional fields yield a zero charge. Only a missing
// or unrecognized payment type is an error.
func ChargeForPeriod(loan *models.Loan) (decimal.Decimal, error) {
	if loan == nil {
		return decimal.Zero, nil
	}
	switch loan.PaymentType {
	case models.PaymentTypeInterest:
		if loan.InterestRateAnnual.IsZero() {
			return decimal.Zero, nil
		}
		return loan.RemainingAmount.Mul(PeriodRate(loan)), nil
	case models.PaymentTypeFixed:
		if loan.FixedCharge.IsZero() {
			return decimal.Zero, nil
		}
		if loan.FixedChargeFreq == "" || loan.FixedChargeFreq == loan.PaymentFrequency {
			return loan.FixedCharge, nil
		}
		return Convert(loan.FixedCharge, loan.FixedChargeFreq, loan.PaymentFrequency), nil
	}
	return decimal.Zero, fmt.Errorf("%w: payment type %q", ErrInvalidLoanConfiguration, loan.PaymentType)
}
