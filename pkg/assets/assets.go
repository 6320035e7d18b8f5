// Package assets defines the cash-asset collaborator the payment engine
// debits against. The engine only ever reads and writes a balance by account
// id; who owns and persists the accounts is the host application's business.
package assets

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger exposes asset balances to the payment engine.
type Ledger interface {
	GetBalance(accountID string) (decimal.Decimal, error)
	SetBalance(accountID string, amount decimal.Decimal) error
}

// MemoryLedger is a map-backed Ledger. It is used as the engine-facing
// working copy during payment orchestration and directly in tests. Callers
// serialize access; there is one logical actor per account.
type MemoryLedger struct {
	balances map[string]decimal.Decimal
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]decimal.Decimal)}
}

func (m *MemoryLedger) GetBalance(accountID string) (decimal.Decimal, error) {
	bal, ok := m.balances[accountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s not found", accountID)
	}
	return bal, nil
}

func (m *MemoryLedger) SetBalance(accountID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("account %s: balance may not go negative", accountID)
	}
	m.balances[accountID] = amount
	return nil
}
