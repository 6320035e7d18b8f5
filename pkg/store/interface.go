package store

import (
	"errors"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/google/uuid"
)

// Lookup failures every Storage implementation reports, so callers can match
// with errors.Is instead of on message text.
var (
	ErrLoanNotFound    = errors.New("loan not found")
	ErrAccountNotFound = errors.New("account not found")
)

// Storage defines the persistence operations for loans, accounts, and the
// transaction journal.
type Storage interface {
	CreateLoan(loan *models.Loan) error
	GetLoan(id uuid.UUID) (*models.Loan, error)
	UpdateLoan(loan *models.Loan) error
	DeleteLoan(id uuid.UUID) error
	GetAllLoans() ([]*models.Loan, error)
	GetAllActiveLoans() ([]*models.Loan, error)

	GetAccount(id string) (*models.Account, error)
	UpsertAccount(account *models.Account) error

	CreateTransaction(transaction *models.Transaction) error
	GetTransactionsForLoan(loanID uuid.UUID) ([]*models.Transaction, error)

	Close() error
}
