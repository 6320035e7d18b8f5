package engine

import (
	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// LevelInstallment computes the standard level monthly installment for an
// interest-bearing loan via the annuity formula
//
//	installment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// with r the nominal monthly rate and n the term in months. Degenerate input
// (non-positive principal, rate, or term) returns zero rather than an error:
// no schedule exists, and whether that is acceptable is the loan-creation
// flow's call, not the scheduler's.
func LevelInstallment(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	if principal.LessThanOrEqual(decimal.Zero) ||
		annualRatePercent.LessThanOrEqual(decimal.Zero) ||
		termMonths <= 0 {
		return decimal.Zero
	}

	r := annualRatePercent.Div(d100).Div(d12)
	pow := one.Add(r).Pow(decimal.NewFromInt(int64(termMonths)))
	return principal.Mul(r).Mul(pow).Div(pow.Sub(one))
}

// TotalToPay is the implied total cost of a loan over its full term, for
// display. A manually supplied total wins outright; it never feeds back into
// per-period accrual, which always derives from the loan's live fields.
func TotalToPay(loan *models.Loan) (decimal.Decimal, error) {
	if loan.ManualTotalToPay != nil {
		return *loan.ManualTotalToPay, nil
	}

	term := decimal.NewFromInt(int64(loan.TermMonths))
	switch loan.PaymentType {
	case models.PaymentTypeInterest:
		return LevelInstallment(loan.Principal, loan.InterestRateAnnual, loan.TermMonths).Mul(term), nil
	case models.PaymentTypeFixed:
		monthlyCharge := Convert(loan.FixedCharge, chargeFreqOrDefault(loan), models.FrequencyMonthly)
		return loan.Principal.Add(monthlyCharge.Mul(term)), nil
	}
	return decimal.Zero, ErrInvalidLoanConfiguration
}

func chargeFreqOrDefault(loan *models.Loan) models.Frequency {
	if loan.FixedChargeFreq == "" {
		return loan.PaymentFrequency
	}
	return loan.FixedChargeFreq
}
