// Package ledger exposes the coin ledger the game engine wagers against.
// Debits are atomic per call: a debit either deducts the full amount or
// leaves the balance untouched.
package ledger

import (
	"context"

	"github.com/rs/zerolog/log"

	"room-game-bot/internal/pkg/lock"
	"room-game-bot/internal/repository"
)

// Ledger is the engine's view of the account store.
type Ledger interface {
	// Debit attempts to deduct amount from the user's balance. It returns
	// false (and performs no mutation) when the balance is insufficient.
	Debit(ctx context.Context, userID string, amount int64, txType string) (bool, error)

	// Credit unconditionally deposits amount into the user's balance.
	Credit(ctx context.Context, userID string, amount int64, txType string) error

	// EnsureAccount provisions an account on first contact.
	EnsureAccount(ctx context.Context, userID, username string) error
}

// Postgres is the production ledger backed by the users/transactions tables.
type Postgres struct {
	users        *repository.UserRepository
	txs          *repository.TransactionRepository
	userLock     *lock.UserLock
	startBalance int64
}

// NewPostgres creates a ledger over the given repositories.
func NewPostgres(users *repository.UserRepository, txs *repository.TransactionRepository, userLock *lock.UserLock, startBalance int64) *Postgres {
	return &Postgres{
		users:        users,
		txs:          txs,
		userLock:     userLock,
		startBalance: startBalance,
	}
}

// Debit deducts amount from the user's balance if it covers the full amount.
// The conditional UPDATE is atomic on its own; the per-user lock additionally
// serializes it against concurrent credits for the same user.
func (l *Postgres) Debit(ctx context.Context, userID string, amount int64, txType string) (bool, error) {
	l.userLock.Lock(userID)
	defer l.userLock.Unlock(userID)

	ok, err := l.users.DeductIfSufficient(ctx, userID, amount)
	if err != nil || !ok {
		return false, err
	}

	if _, err := l.txs.Create(ctx, userID, -amount, txType, nil); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to journal debit")
	}
	return true, nil
}

// Credit deposits amount into the user's balance.
func (l *Postgres) Credit(ctx context.Context, userID string, amount int64, txType string) error {
	l.userLock.Lock(userID)
	defer l.userLock.Unlock(userID)

	if _, err := l.users.AddBalance(ctx, userID, amount); err != nil {
		return err
	}

	if _, err := l.txs.Create(ctx, userID, amount, txType, nil); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to journal credit")
	}
	return nil
}

// EnsureAccount provisions an account with the starting balance if the user
// has never been seen before.
func (l *Postgres) EnsureAccount(ctx context.Context, userID, username string) error {
	_, created, err := l.users.GetOrCreate(ctx, userID, username, l.startBalance)
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("user", userID).Str("username", username).Msg("provisioned account")
	}
	return nil
}
