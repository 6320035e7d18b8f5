package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is a payment cadence. It is a closed enum; anything else is
// rejected at the API boundary before it can reach the engine.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// ParseFrequency validates a frequency coming in over the wire.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// PaymentType selects the accrual model for a loan. The two models are
// mutually exclusive: an interest loan accrues on the outstanding balance,
// a fixed loan pays a flat periodic charge.
type PaymentType string

const (
	PaymentTypeInterest PaymentType = "interest"
	PaymentTypeFixed    PaymentType = "fixed"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
)

// Loan represents a tracked loan.
//
// InstallmentAmount is always stored as a monthly-equivalent figure and
// converted to the loan's PaymentFrequency on demand. RemainingAmount only
// ever decreases and bottoms out at exactly zero, at which point the loan
// becomes completed and is frozen.
type Loan struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Principal          decimal.Decimal  `json:"principal"`
	RemainingAmount    decimal.Decimal  `json:"remaining_amount"`
	PaymentType        PaymentType      `json:"payment_type"`
	InterestRateAnnual decimal.Decimal  `json:"interest_rate_annual"` // percent, e.g. 12 for 12% APR
	FixedCharge        decimal.Decimal  `json:"fixed_charge"`
	FixedChargeFreq    Frequency        `json:"fixed_charge_frequency,omitempty"`
	PaymentFrequency   Frequency        `json:"payment_frequency"`
	InstallmentAmount  decimal.Decimal  `json:"installment_amount"` // monthly-equivalent
	TermMonths         int              `json:"term_months"`
	ManualTotalToPay   *decimal.Decimal `json:"manual_total_to_pay,omitempty"`
	NextDueDate        time.Time        `json:"next_due_date"`
	Status             LoanStatus       `json:"status"`
	CompletedDate      *time.Time       `json:"completed_date,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// PaymentBreakdown is the split of a single payment. At most one of
// Interest/Charge is non-zero, depending on the loan's payment type.
type PaymentBreakdown struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Charge    decimal.Decimal `json:"charge"`
}

type TransactionType string

const (
	TransactionTypeDisbursement TransactionType = "disbursement"
	TransactionTypePayment      TransactionType = "payment"
)

// Transaction is one journal entry against a loan. Payment entries carry the
// breakdown so statements can show how much of each payment hit principal.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	AccountID string          `json:"account_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Charge    decimal.Decimal `json:"charge"`
	Type      TransactionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// Account is a cash asset that payments are debited from. Balance never goes
// negative: payments that would overdraw are rejected, not clamped.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PaymentMethod is the closed set of payment sources the UI may submit.
type PaymentMethod string

const (
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodAssets PaymentMethod = "assets"
	PaymentMethodOther  PaymentMethod = "other"
)

// methodAccounts maps each payment method to its backing account. The table
// is fixed; unknown methods fail at ParsePaymentMethod instead of silently
// defaulting.
var methodAccounts = map[PaymentMethod]string{
	PaymentMethodBank:   "acc_bank",
	PaymentMethodCard:   "acc_card",
	PaymentMethodCash:   "acc_cash",
	PaymentMethodAssets: "acc_assets",
	PaymentMethodOther:  "acc_other",
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if _, ok := methodAccounts[m]; !ok {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

// AccountID returns the backing account for a parsed payment method.
func (m PaymentMethod) AccountID() string {
	return methodAccounts[m]
}

// DefaultAccounts lists every backing account, used to seed the store on
// first start.
func DefaultAccounts() []Account {
	now := time.Now()
	return []Account{
		{ID: "acc_bank", Name: "Bank", Balance: decimal.Zero, UpdatedAt: now},
		{ID: "acc_card", Name: "Card", Balance: decimal.Zero, UpdatedAt: now},
		{ID: "acc_cash", Name: "Cash", Balance: decimal.Zero, UpdatedAt: now},
		{ID: "acc_assets", Name: "Assets", Balance: decimal.Zero, UpdatedAt: now},
		{ID: "acc_other", Name: "Other", Balance: decimal.Zero, UpdatedAt: now},
	}
}
