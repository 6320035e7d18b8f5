package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finwise/loanengine/pkg/assets"
	"github.com/finwise/loanengine/pkg/cache"
	"github.com/finwise/loanengine/pkg/engine"
	"github.com/finwise/loanengine/pkg/models"
	"github.com/finwise/loanengine/pkg/store"
)

// Ledger handles the business logic for loans, payments, and the asset
// accounts they draw on. All computation happens in the engine package over
// value copies; this layer loads, orchestrates, and persists.
type Ledger struct {
	storage store.Storage
	cache   cache.Cache
	log     *logrus.Logger
	now     func() time.Time
}

// NewLedger creates a new Ledger with the given storage and quote cache.
func NewLedger(s store.Storage, c cache.Cache, log *logrus.Logger) *Ledger {
	return &Ledger{
		storage: s,
		cache:   c,
		log:     log,
		now:     time.Now,
	}
}

// SeedAccounts makes sure every payment-method account exists. Existing
// balances are left alone.
func (l *Ledger) SeedAccounts() error {
	for _, acc := range models.DefaultAccounts() {
		if _, err := l.storage.GetAccount(acc.ID); err == nil {
			continue
		}
		a := acc
		if err := l.storage.UpsertAccount(&a); err != nil {
			return fmt.Errorf("seeding account %s: %w", acc.ID, err)
		}
	}
	return nil
}

// CreateLoanInput carries everything the creation flow accepts. Exactly one
// accrual model is used, selected by PaymentType; fields for the other model
// are ignored.
type CreateLoanInput struct {
	Name               string
	Principal          decimal.Decimal
	PaymentType        models.PaymentType
	InterestRateAnnual decimal.Decimal
	FixedCharge        decimal.Decimal
	FixedChargeFreq    models.Frequency
	PaymentFrequency   models.Frequency
	TermMonths         int
	ManualTotalToPay   *decimal.Decimal
	FirstDueDate       *time.Time
}

// CreateLoan validates the configuration, derives the monthly installment,
// and persists the loan together with its disbursement journal entry.
//
// This is where degenerate schedules get rejected: the scheduler itself
// returns zero for them and leaves the decision here.
func (l *Ledger) CreateLoan(input CreateLoanInput) (*models.Loan, error) {
	if input.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: principal must be positive", engine.ErrInvalidLoanConfiguration)
	}
	if input.TermMonths <= 0 {
		return nil, fmt.Errorf("%w: term must be positive", engine.ErrInvalidLoanConfiguration)
	}

	var installment decimal.Decimal
	switch input.PaymentType {
	case models.PaymentTypeInterest:
		installment = engine.LevelInstallment(input.Principal, input.InterestRateAnnual, input.TermMonths)
		if installment.IsZero() {
			return nil, fmt.Errorf("%w: no schedule for rate %s over %d months",
				engine.ErrInvalidLoanConfiguration, input.InterestRateAnnual, input.TermMonths)
		}
	case models.PaymentTypeFixed:
		if input.FixedCharge.IsNegative() {
			return nil, fmt.Errorf("%w: fixed charge may not be negative", engine.ErrInvalidLoanConfiguration)
		}
		chargeFreq := input.FixedChargeFreq
		if chargeFreq == "" {
			chargeFreq = input.PaymentFrequency
		}
		monthlyCharge := engine.Convert(input.FixedCharge, chargeFreq, models.FrequencyMonthly)
		installment = input.Principal.Div(decimal.NewFromInt(int64(input.TermMonths))).Add(monthlyCharge)
	default:
		return nil, fmt.Errorf("%w: payment type %q", engine.ErrInvalidLoanConfiguration, input.PaymentType)
	}

	now := l.now()
	nextDue := engine.AddPeriod(now, input.PaymentFrequency)
	if input.FirstDueDate != nil {
		nextDue = *input.FirstDueDate
	}

	loan := &models.Loan{
		ID:                 uuid.New(),
		Name:               input.Name,
		Principal:          input.Principal,
		RemainingAmount:    input.Principal,
		PaymentType:        input.PaymentType,
		InterestRateAnnual: input.InterestRateAnnual,
		FixedCharge:        input.FixedCharge,
		FixedChargeFreq:    input.FixedChargeFreq,
		PaymentFrequency:   input.PaymentFrequency,
		InstallmentAmount:  installment,
		TermMonths:         input.TermMonths,
		ManualTotalToPay:   input.ManualTotalToPay,
		NextDueDate:        nextDue,
		Status:             models.LoanStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := l.storage.CreateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}

	transaction := models.Transaction{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		Amount:    input.Principal,
		Type:      models.TransactionTypeDisbursement,
		Timestamp: now,
	}
	if err := l.storage.CreateTransaction(&transaction); err != nil {
		return nil, fmt.Errorf("failed to store disbursement transaction: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"loan":        loan.ID,
		"type":        loan.PaymentType,
		"installment": installment.StringFixed(2),
	}).Info("loan created")
	return loan, nil
}

// RecordPayment applies one payment against a loan from the given payment
// method's account. The engine runs over a working copy of the balance, so a
// rejected payment leaves both loan and account exactly as they were.
func (l *Ledger) RecordPayment(loanID uuid.UUID, amount decimal.Decimal, method models.PaymentMethod, at time.Time) (*engine.PaymentResult, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return nil, err
	}
	accountID := method.AccountID()
	account, err := l.storage.GetAccount(accountID)
	if err != nil {
		return nil, err
	}

	working := assets.NewMemoryLedger()
	if err := working.SetBalance(accountID, account.Balance); err != nil {
		return nil, err
	}

	result, err := engine.ApplyPayment(*loan, working, amount, accountID, at)
	if err != nil {
		return nil, err
	}

	// The original absorbs a payment smaller than the period charge: zero
	// principal, full debit, no refund. Leave a trace of the shortfall.
	charge := result.Breakdown.Interest.Add(result.Breakdown.Charge)
	if result.Breakdown.Principal.IsZero() && amount.LessThan(charge) {
		l.log.WithFields(logrus.Fields{
			"loan":      loanID,
			"amount":    amount.StringFixed(2),
			"charge":    charge.StringFixed(2),
			"shortfall": charge.Sub(amount).StringFixed(2),
		}).Warn("payment below period charge; amount absorbed with no principal reduction")
	}

	updated := result.Loan
	if err := l.storage.UpdateLoan(&updated); err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	account.Balance = result.Balance
	account.UpdatedAt = at
	if err := l.storage.UpsertAccount(account); err != nil {
		return nil, fmt.Errorf("failed to update account %s: %w", accountID, err)
	}

	transaction := models.Transaction{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		AccountID: accountID,
		Amount:    amount,
		Principal: result.Breakdown.Principal,
		Interest:  result.Breakdown.Interest,
		Charge:    result.Breakdown.Charge,
		Type:      models.TransactionTypePayment,
		Timestamp: at,
	}
	if err := l.storage.CreateTransaction(&transaction); err != nil {
		return nil, fmt.Errorf("failed to store payment transaction: %w", err)
	}

	entry := l.log.WithFields(logrus.Fields{
		"loan":      loanID,
		"amount":    amount.StringFixed(2),
		"principal": result.Breakdown.Principal.StringFixed(2),
		"remaining": updated.RemainingAmount.StringFixed(2),
	})
	if result.Completed {
		entry.Info("loan paid off")
	} else {
		entry.Info("payment recorded")
	}
	return result, nil
}

// MinimumPayment returns the amount needed to bring a loan current at the
// given time.
func (l *Ledger) MinimumPayment(loanID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return engine.MinimumPayment(loan, at), nil
}

// PreviewSplit shows how a payment of the given amount would break down,
// without applying it.
func (l *Ledger) PreviewSplit(loanID uuid.UUID, amount decimal.Decimal) (models.PaymentBreakdown, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return models.PaymentBreakdown{}, err
	}
	return engine.Split(loan, amount)
}

// TotalToPay returns the loan's total cost over its term for display.
func (l *Ledger) TotalToPay(loanID uuid.UUID) (decimal.Decimal, error) {
	loan, err := l.storage.GetLoan(loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return engine.TotalToPay(loan)
}

// QuoteInstallment computes the level monthly installment for the given
// terms, memoized through the cache. Cache failures are logged and ignored;
// the quote is always computed.
func (l *Ledger) QuoteInstallment(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	key := fmt.Sprintf("quote:%s:%s:%d", principal, annualRatePercent, termMonths)
	if cached, ok := l.cache.Get(key); ok {
		if d, err := decimal.NewFromString(cached); err == nil {
			return d
		}
	}
	installment := engine.LevelInstallment(principal, annualRatePercent, termMonths)
	if err := l.cache.Set(key, installment.String()); err != nil {
		l.log.WithError(err).Debug("quote cache write failed")
	}
	return installment
}

// SweepOverdue walks the active loans and logs each one that is past due
// together with its catch-up minimum. Observation only; nothing is mutated.
func (l *Ledger) SweepOverdue(at time.Time) int {
	loans, err := l.storage.GetAllActiveLoans()
	if err != nil {
		l.log.WithError(err).Error("overdue sweep: listing active loans failed")
		return 0
	}

	overdue := 0
	for _, loan := range loans {
		if !engine.IsOverdue(loan, at) {
			continue
		}
		overdue++
		l.log.WithFields(logrus.Fields{
			"loan":      loan.ID,
			"due":       loan.NextDueDate.Format(time.RFC3339),
			"minimum":   engine.MinimumPayment(loan, at).StringFixed(2),
			"remaining": loan.RemainingAmount.StringFixed(2),
		}).Warn("loan overdue")
	}
	return overdue
}

// Deposit adds funds to an asset account.
func (l *Ledger) Deposit(accountID string, amount decimal.Decimal) (*models.Account, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, engine.ErrInvalidAmount
	}
	account, err := l.storage.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	account.Balance = account.Balance.Add(amount)
	account.UpdatedAt = l.now()
	if err := l.storage.UpsertAccount(account); err != nil {
		return nil, fmt.Errorf("failed to update account %s: %w", accountID, err)
	}
	return account, nil
}

// GetAccount retrieves an asset account.
func (l *Ledger) GetAccount(accountID string) (*models.Account, error) {
	return l.storage.GetAccount(accountID)
}

// GetLoan retrieves a loan by its ID.
func (l *Ledger) GetLoan(id uuid.UUID) (*models.Loan, error) {
	return l.storage.GetLoan(id)
}

// GetAllLoans retrieves all loans.
func (l *Ledger) GetAllLoans() ([]*models.Loan, error) {
	return l.storage.GetAllLoans()
}

// DeleteLoan deletes a loan and its journal.
func (l *Ledger) DeleteLoan(id uuid.UUID) error {
	return l.storage.DeleteLoan(id)
}

// GetTransactionsForLoan retrieves a loan's journal, oldest first.
func (l *Ledger) GetTransactionsForLoan(loanID uuid.UUID) ([]*models.Transaction, error) {
	return l.storage.GetTransactionsForLoan(loanID)
}
