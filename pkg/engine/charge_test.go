package engine

import (
	"testing"
	"time"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interestLoan(remaining float64, annualRate float64, freq models.Frequency) *models.Loan {
	return &models.Loan{
		Principal:          decimal.NewFromFloat(remaining),
		RemainingAmount:    decimal.NewFromFloat(remaining),
		PaymentType:        models.PaymentTypeInterest,
		InterestRateAnnual: decimal.NewFromFloat(annualRate),
		PaymentFrequency:   freq,
		NextDueDate:        time.Now().AddDate(0, 0, 7),
		Status:             models.LoanStatusActive,
	}
}

func fixedLoan(remaining float64, charge float64, chargeFreq, payFreq models.Frequency) *models.Loan {
	return &models.Loan{
		Principal:        decimal.NewFromFloat(remaining),
		RemainingAmount:  decimal.NewFromFloat(remaining),
		PaymentType:      models.PaymentTypeFixed,
		FixedCharge:      decimal.NewFromFloat(charge),
		FixedChargeFreq:  chargeFreq,
		PaymentFrequency: payFreq,
		NextDueDate:      time.Now().AddDate(0, 0, 7),
		Status:           models.LoanStatusActive,
	}
}

func TestChargeForPeriodInterestMonthly(t *testing.T) {
	// 12% APR on 1000 outstanding = exactly 10 per month.
	charge, err := ChargeForPeriod(interestLoan(1000, 12, models.FrequencyMonthly))
	require.NoError(t, err)
	assert.True(t, charge.Equal(decimal.NewFromInt(10)), "got %s", charge)
}

func TestChargeForPeriodInterestWeekly(t *testing.T) {
	// Monthly rate 0.01 scaled by 12/52.
	charge, err := ChargeForPeriod(interestLoan(1000, 12, models.FrequencyWeekly))
	require.NoError(t, err)
	assert.InDelta(t, 1000*0.01*12.0/52.0, charge.InexactFloat64(), 1e-9)
}

func TestChargeForPeriodFixedConverted(t *testing.T) {
	// Monthly charge of 50 paid weekly: 50 * 12/52 ~ 11.54.
	charge, err := ChargeForPeriod(fixedLoan(500, 50, models.FrequencyMonthly, models.FrequencyWeekly))
	require.NoError(t, err)
	assert.InDelta(t, 11.54, charge.InexactFloat64(), 0.01)
}

func TestChargeForPeriodFixedMatchingFrequencyIsExact(t *testing.T) {
	stored := decimal.RequireFromString("49.99")
	loan := fixedLoan(500, 0, models.FrequencyBiweekly, models.FrequencyBiweekly)
	loan.FixedCharge = stored

	charge, err := ChargeForPeriod(loan)
	require.NoError(t, err)
	// Matching cadences must return the stored value untouched, no
	// conversion rounding.
	assert.True(t, stored.Equal(charge), "got %s", charge)
}

func TestChargeForPeriodMissingOptionalFields(t *testing.T) {
	charge, err := ChargeForPeriod(nil)
	require.NoError(t, err)
	assert.True(t, charge.IsZero())

	charge, err = ChargeForPeriod(interestLoan(1000, 0, models.FrequencyMonthly))
	require.NoError(t, err)
	assert.True(t, charge.IsZero())

	charge, err = ChargeForPeriod(fixedLoan(1000, 0, models.FrequencyMonthly, models.FrequencyMonthly))
	require.NoError(t, err)
	assert.True(t, charge.IsZero())
}

func TestChargeForPeriodMissingPaymentType(t *testing.T) {
	loan := interestLoan(1000, 12, models.FrequencyMonthly)
	loan.PaymentType = ""

	_, err := ChargeForPeriod(loan)
	assert.ErrorIs(t, err, ErrInvalidLoanConfiguration)
}
