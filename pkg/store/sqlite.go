package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/finwise/loanengine/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, enables foreign keys and WAL mode, and
// initializes the schema.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the tables if they don't already exist. Decimal fields
// are stored as TEXT so no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		principal TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		interest_rate_annual TEXT NOT NULL DEFAULT '0',
		fixed_charge TEXT NOT NULL DEFAULT '0',
		fixed_charge_frequency TEXT NOT NULL DEFAULT '',
		payment_frequency TEXT NOT NULL,
		installment_amount TEXT NOT NULL DEFAULT '0',
		term_months INTEGER NOT NULL DEFAULT 0,
		manual_total_to_pay TEXT,
		next_due_date DATETIME NOT NULL,
		status TEXT NOT NULL,
		completed_date DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		account_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		principal TEXT NOT NULL DEFAULT '0',
		interest TEXT NOT NULL DEFAULT '0',
		charge TEXT NOT NULL DEFAULT '0',
		type TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY(loan_id) REFERENCES loans(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const loanColumns = `id, name, principal, remaining_amount, payment_type, interest_rate_annual, fixed_charge, fixed_charge_frequency, payment_frequency, installment_amount, term_months, manual_total_to_pay, next_due_date, status, completed_date, created_at, updated_at`

// CreateLoan inserts a new loan into the database.
func (s *SQLiteStore) CreateLoan(loan *models.Loan) error {
	_, err := s.db.Exec(
		`INSERT INTO loans (`+loanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID.String(), loan.Name, loan.Principal, loan.RemainingAmount,
		string(loan.PaymentType), loan.InterestRateAnnual, loan.FixedCharge,
		string(loan.FixedChargeFreq), string(loan.PaymentFrequency),
		loan.InstallmentAmount, loan.TermMonths, manualTotal(loan),
		loan.NextDueDate, string(loan.Status), loan.CompletedDate,
		loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

func manualTotal(loan *models.Loan) interface{} {
	if loan.ManualTotalToPay == nil {
		return nil
	}
	return loan.ManualTotalToPay.String()
}

// GetLoan retrieves a loan by its ID.
func (s *SQLiteStore) GetLoan(id uuid.UUID) (*models.Loan, error) {
	row := s.db.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id.String())
	loan, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var loan models.Loan
	var idStr, paymentType, chargeFreq, payFreq, status string
	var manualTotal sql.NullString
	var completedDate sql.NullTime

	err := row.Scan(
		&idStr, &loan.Name, &loan.Principal, &loan.RemainingAmount,
		&paymentType, &loan.InterestRateAnnual, &loan.FixedCharge,
		&chargeFreq, &payFreq, &loan.InstallmentAmount, &loan.TermMonths,
		&manualTotal, &loan.NextDueDate, &status, &completedDate,
		&loan.CreatedAt, &loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	loan.ID = uuid.MustParse(idStr)
	loan.PaymentType = models.PaymentType(paymentType)
	loan.FixedChargeFreq = models.Frequency(chargeFreq)
	loan.PaymentFrequency = models.Frequency(payFreq)
	loan.Status = models.LoanStatus(status)
	if manualTotal.Valid {
		d, err := decimal.NewFromString(manualTotal.String)
		if err != nil {
			return nil, fmt.Errorf("bad manual_total_to_pay for loan %s: %w", idStr, err)
		}
		loan.ManualTotalToPay = &d
	}
	if completedDate.Valid {
		t := completedDate.Time
		loan.CompletedDate = &t
	}
	return &loan, nil
}

// UpdateLoan updates an existing loan in the database.
func (s *SQLiteStore) UpdateLoan(loan *models.Loan) error {
	result, err := s.db.Exec(
		`UPDATE loans SET name = ?, principal = ?, remaining_amount = ?, payment_type = ?, interest_rate_annual = ?, fixed_charge = ?, fixed_charge_frequency = ?, payment_frequency = ?, installment_amount = ?, term_months = ?, manual_total_to_pay = ?, next_due_date = ?, status = ?, completed_date = ?, updated_at = ? WHERE id = ?`,
		loan.Name, loan.Principal, loan.RemainingAmount, string(loan.PaymentType),
		loan.InterestRateAnnual, loan.FixedCharge, string(loan.FixedChargeFreq),
		string(loan.PaymentFrequency), loan.InstallmentAmount, loan.TermMonths,
		manualTotal(loan), loan.NextDueDate, string(loan.Status),
		loan.CompletedDate, loan.UpdatedAt, loan.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLoanNotFound
	}
	return nil
}

// DeleteLoan removes a loan and its transactions within a transaction.
func (s *SQLiteStore) DeleteLoan(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM transactions WHERE loan_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete associated transactions: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM loans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrLoanNotFound
	}

	return tx.Commit()
}

// GetAllLoans retrieves all loans.
func (s *SQLiteStore) GetAllLoans() ([]*models.Loan, error) {
	return s.queryLoans(`SELECT ` + loanColumns + ` FROM loans`)
}

// GetAllActiveLoans retrieves all loans that are not yet completed.
func (s *SQLiteStore) GetAllActiveLoans() ([]*models.Loan, error) {
	return s.queryLoans(`SELECT ` + loanColumns + ` FROM loans WHERE status = 'active'`)
}

func (s *SQLiteStore) queryLoans(query string) ([]*models.Loan, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// GetAccount retrieves an asset account by its ID.
func (s *SQLiteStore) GetAccount(id string) (*models.Account, error) {
	var account models.Account
	row := s.db.QueryRow(`SELECT id, name, balance, updated_at FROM accounts WHERE id = ?`, id)
	if err := row.Scan(&account.ID, &account.Name, &account.Balance, &account.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// UpsertAccount inserts an account or updates its balance.
func (s *SQLiteStore) UpsertAccount(account *models.Account) error {
	_, err := s.db.Exec(
		`INSERT INTO accounts (id, name, balance, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		account.ID, account.Name, account.Balance, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// CreateTransaction inserts a new journal entry.
func (s *SQLiteStore) CreateTransaction(transaction *models.Transaction) error {
	_, err := s.db.Exec(
		`INSERT INTO transactions (id, loan_id, account_id, amount, principal, interest, charge, type, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transaction.ID.String(), transaction.LoanID.String(), transaction.AccountID,
		transaction.Amount, transaction.Principal, transaction.Interest,
		transaction.Charge, string(transaction.Type), transaction.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransactionsForLoan retrieves all journal entries for a loan, oldest first.
func (s *SQLiteStore) GetTransactionsForLoan(loanID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT id, loan_id, account_id, amount, principal, interest, charge, type, timestamp
		FROM transactions WHERE loan_id = ? ORDER BY timestamp ASC`, loanID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var transaction models.Transaction
		var txIDStr, loanIDStr, txType string
		var timestamp time.Time
		if err := rows.Scan(&txIDStr, &loanIDStr, &transaction.AccountID, &transaction.Amount, &transaction.Principal, &transaction.Interest, &transaction.Charge, &txType, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transaction.ID = uuid.MustParse(txIDStr)
		transaction.LoanID = uuid.MustParse(loanIDStr)
		transaction.Type = models.TransactionType(txType)
		transaction.Timestamp = timestamp
		transactions = append(transactions, &transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for loan transactions: %w", err)
	}
	return transactions, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
