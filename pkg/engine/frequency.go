package engine

import (
	"fmt"
	"time"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	d12 = decimal.NewFromInt(12)
	d26 = decimal.NewFromInt(26)
	d52 = decimal.NewFromInt(52)
)

// Convert converts a monetary amount (or a rate, which scales the same way)
// between payment cadences using fixed calendar multipliers: 52 weeks and
// 26 fortnights per 12 months. Equal from/to is a strict no-op so amounts
// never pick up round-trip drift when no conversion is needed.
func Convert(amount decimal.Decimal, from, to models.Frequency) decimal.Decimal {
	if from == to {
		return amount
	}
	return fromMonthly(toMonthly(amount, from), to)
}

func toMonthly(amount decimal.Decimal, from models.Frequency) decimal.Decimal {
	switch from {
	case models.FrequencyWeekly:
		return amount.Mul(d52).Div(d12)
	case models.FrequencyBiweekly:
		return amount.Mul(d26).Div(d12)
	case models.FrequencyMonthly:
		return amount
	}
	panic(fmt.Sprintf("engine: unknown frequency %q", from))
}

func fromMonthly(amount decimal.Decimal, to models.Frequency) decimal.Decimal {
	switch to {
	case models.FrequencyWeekly:
		return amount.Mul(d12).Div(d52)
	case models.FrequencyBiweekly:
		return amount.Mul(d12).Div(d26)
	case models.FrequencyMonthly:
		return amount
	}
	panic(fmt.Sprintf("engine: unknown frequency %q", to))
}

// PeriodDays is the length of one billing period in whole days, used for
// overdue elapsed-period math. "monthly" is a flat 30 days on purpose: the
// original behavior approximates months rather than walking the calendar,
// and the two diverge (February, 31-day months).
func PeriodDays(f models.Frequency) int {
	switch f {
	case models.FrequencyWeekly:
		return 7
	case models.FrequencyBiweekly:
		return 14
	case models.FrequencyMonthly:
		return 30
	}
	panic(fmt.Sprintf("engine: unknown frequency %q", f))
}

// AddPeriod advances a date by one billing period. Unlike PeriodDays this
// uses true calendar months for the monthly cadence, so due dates stay on
// the same day of month.
func AddPeriod(t time.Time, f models.Frequency) time.Time {
	switch f {
	case models.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case models.FrequencyBiweekly:
		return t.AddDate(0, 0, 14)
	case models.FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	}
	panic(fmt.Sprintf("engine: unknown frequency %q", f))
}
