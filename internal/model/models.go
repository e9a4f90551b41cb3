// Package model defines the data models for the room game bot.
package model

import "time"

// User represents a chat user account in the coin economy.
type User struct {
	UserID    string    `db:"user_id"`
	Username  string    `db:"username"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeLowCardBet    = "lowcard_bet"    // LowCard wager on join
	TxTypeLowCardWin    = "lowcard_win"    // LowCard pot payout
	TxTypeLowCardRefund = "lowcard_refund" // LowCard wager returned
	TxTypeSicboBet      = "sicbo_bet"      // Sicbo wager on join
	TxTypeSicboWin      = "sicbo_win"      // Sicbo pot payout
	TxTypeSicboRefund   = "sicbo_refund"   // Sicbo wager returned
)

// GameTransactionTypes returns the transaction types produced by game play.
func GameTransactionTypes() []string {
	return []string{
		TxTypeLowCardBet, TxTypeLowCardWin, TxTypeLowCardRefund,
		TxTypeSicboBet, TxTypeSicboWin, TxTypeSicboRefund,
	}
}
