package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleLoan() *models.Loan {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Loan{
		ID:                 uuid.New(),
		Name:               "car loan",
		Principal:          decimal.RequireFromString("1200.50"),
		RemainingAmount:    decimal.RequireFromString("1100.25"),
		PaymentType:        models.PaymentTypeInterest,
		InterestRateAnnual: decimal.NewFromInt(12),
		FixedCharge:        decimal.Zero,
		PaymentFrequency:   models.FrequencyMonthly,
		InstallmentAmount:  decimal.RequireFromString("106.62"),
		TermMonths:         12,
		NextDueDate:        now.AddDate(0, 1, 0),
		Status:             models.LoanStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestLoanRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	loan := sampleLoan()
	manual := decimal.RequireFromString("1400.00")
	loan.ManualTotalToPay = &manual

	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	got, err := s.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("GetLoan: %v", err)
	}
	if !got.Principal.Equal(loan.Principal) || !got.RemainingAmount.Equal(loan.RemainingAmount) {
		t.Errorf("Amounts lost precision: %+v", got)
	}
	if got.PaymentType != models.PaymentTypeInterest || got.PaymentFrequency != models.FrequencyMonthly {
		t.Errorf("Enums mangled: %+v", got)
	}
	if got.ManualTotalToPay == nil || !got.ManualTotalToPay.Equal(manual) {
		t.Errorf("Manual total lost: %v", got.ManualTotalToPay)
	}
	if got.CompletedDate != nil {
		t.Errorf("Expected nil completed date, got %v", got.CompletedDate)
	}
}

func TestUpdateLoanToCompleted(t *testing.T) {
	s := setupTestStore(t)

	loan := sampleLoan()
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	completed := time.Now().UTC().Truncate(time.Second)
	loan.RemainingAmount = decimal.Zero
	loan.Status = models.LoanStatusCompleted
	loan.CompletedDate = &completed
	if err := s.UpdateLoan(loan); err != nil {
		t.Fatalf("UpdateLoan: %v", err)
	}

	got, err := s.GetLoan(loan.ID)
	if err != nil {
		t.Fatalf("GetLoan: %v", err)
	}
	if got.Status != models.LoanStatusCompleted || !got.RemainingAmount.IsZero() {
		t.Errorf("Completion not persisted: %+v", got)
	}
	if got.CompletedDate == nil || !got.CompletedDate.Equal(completed) {
		t.Errorf("Completed date not persisted: %v", got.CompletedDate)
	}
}

func TestUpdateLoanNotFound(t *testing.T) {
	s := setupTestStore(t)
	if err := s.UpdateLoan(sampleLoan()); !errors.Is(err, ErrLoanNotFound) {
		t.Errorf("Expected ErrLoanNotFound updating missing loan, got %v", err)
	}
}

func TestGetLoanNotFound(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetLoan(uuid.New()); !errors.Is(err, ErrLoanNotFound) {
		t.Errorf("Expected ErrLoanNotFound for missing loan, got %v", err)
	}
	if _, err := s.GetAccount("acc_nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound for missing account, got %v", err)
	}
}

func TestNewSQLiteStoreBadPath(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewSQLiteStore(filepath.Join(dir, "missing", "nested", "test.db")); err == nil {
		t.Error("Expected error opening store in nonexistent directory")
	}
}

func TestGetAllActiveLoans(t *testing.T) {
	s := setupTestStore(t)

	active := sampleLoan()
	done := sampleLoan()
	completed := time.Now()
	done.Status = models.LoanStatusCompleted
	done.CompletedDate = &completed

	if err := s.CreateLoan(active); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if err := s.CreateLoan(done); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	loans, err := s.GetAllActiveLoans()
	if err != nil {
		t.Fatalf("GetAllActiveLoans: %v", err)
	}
	if len(loans) != 1 || loans[0].ID != active.ID {
		t.Errorf("Expected only the active loan, got %d", len(loans))
	}
}

func TestDeleteLoanCascadesTransactions(t *testing.T) {
	s := setupTestStore(t)

	loan := sampleLoan()
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	tx := &models.Transaction{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		Amount:    loan.Principal,
		Type:      models.TransactionTypeDisbursement,
		Timestamp: time.Now(),
	}
	if err := s.CreateTransaction(tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := s.DeleteLoan(loan.ID); err != nil {
		t.Fatalf("DeleteLoan: %v", err)
	}
	if _, err := s.GetLoan(loan.ID); err == nil {
		t.Error("Loan still present after delete")
	}
	txs, err := s.GetTransactionsForLoan(loan.ID)
	if err != nil {
		t.Fatalf("GetTransactionsForLoan: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("Expected no transactions after delete, got %d", len(txs))
	}
}

func TestAccountUpsertAndGet(t *testing.T) {
	s := setupTestStore(t)

	account := &models.Account{
		ID:        "acc_bank",
		Name:      "Bank",
		Balance:   decimal.RequireFromString("250.75"),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.UpsertAccount(account); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}

	got, err := s.GetAccount("acc_bank")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !got.Balance.Equal(account.Balance) {
		t.Errorf("Expected balance %s, got %s", account.Balance, got.Balance)
	}

	account.Balance = decimal.RequireFromString("100.00")
	if err := s.UpsertAccount(account); err != nil {
		t.Fatalf("UpsertAccount update: %v", err)
	}
	got, _ = s.GetAccount("acc_bank")
	if !got.Balance.Equal(account.Balance) {
		t.Errorf("Upsert did not update balance: %s", got.Balance)
	}

	if _, err := s.GetAccount("acc_nope"); err == nil {
		t.Error("Expected error for missing account")
	}
}

func TestTransactionBreakdownRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	loan := sampleLoan()
	if err := s.CreateLoan(loan); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	tx := &models.Transaction{
		ID:        uuid.New(),
		LoanID:    loan.ID,
		AccountID: "acc_bank",
		Amount:    decimal.RequireFromString("110.00"),
		Principal: decimal.RequireFromString("100.00"),
		Interest:  decimal.RequireFromString("10.00"),
		Charge:    decimal.Zero,
		Type:      models.TransactionTypePayment,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateTransaction(tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	txs, err := s.GetTransactionsForLoan(loan.ID)
	if err != nil {
		t.Fatalf("GetTransactionsForLoan: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(txs))
	}
	got := txs[0]
	if !got.Principal.Equal(tx.Principal) || !got.Interest.Equal(tx.Interest) || got.AccountID != "acc_bank" {
		t.Errorf("Breakdown lost: %+v", got)
	}
}
