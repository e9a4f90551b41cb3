package ledger

import (
	"context"
	"sync"
)

// Memory is an in-memory ledger used by tests and local development.
// It honors the same atomic-debit contract as the Postgres ledger.
type Memory struct {
	mu           sync.Mutex
	balances     map[string]int64
	startBalance int64
}

// NewMemory creates an in-memory ledger. Unknown users are provisioned with
// startBalance on first contact.
func NewMemory(startBalance int64) *Memory {
	return &Memory{
		balances:     make(map[string]int64),
		startBalance: startBalance,
	}
}

// Debit deducts amount if the balance covers it.
func (l *Memory) Debit(ctx context.Context, userID string, amount int64, txType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[userID]
	if !ok {
		bal = l.startBalance
	}
	if bal < amount {
		l.balances[userID] = bal
		return false, nil
	}
	l.balances[userID] = bal - amount
	return true, nil
}

// Credit deposits amount unconditionally.
func (l *Memory) Credit(ctx context.Context, userID string, amount int64, txType string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[userID]
	if !ok {
		bal = l.startBalance
	}
	l.balances[userID] = bal + amount
	return nil
}

// EnsureAccount provisions the user with the starting balance.
func (l *Memory) EnsureAccount(ctx context.Context, userID, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.balances[userID]; !ok {
		l.balances[userID] = l.startBalance
	}
	return nil
}

// Balance returns the user's current balance.
func (l *Memory) Balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[userID]
	if !ok {
		return l.startBalance
	}
	return bal
}

// SetBalance sets the user's balance to an exact value.
func (l *Memory) SetBalance(userID string, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = balance
}
