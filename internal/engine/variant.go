package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"room-game-bot/internal/model"
)

// Variant is the game-specific policy layered over the shared admission,
// timer, ledger and broadcast plumbing. LowCard plays elimination rounds;
// Sicbo settles in one pooled roll.
type Variant interface {
	// Label is the bot's sender name on broadcast lines.
	Label() string

	// BetTxType, WinTxType and RefundTxType categorize ledger entries.
	BetTxType() string
	WinTxType() string
	RefundTxType() string

	// AcceptsDraw reports whether the !d command is meaningful.
	AcceptsDraw() bool

	// Begin starts play once the join window closes with at least two
	// players. Called with the room lock held.
	Begin(e *Engine, st *RoomState)
}

// LowCard is the elimination card game: one player is knocked out per round
// until a single survivor claims the pot.
type LowCard struct{}

// Label returns the LowCard bot name.
func (LowCard) Label() string { return "LowCardBot" }

// BetTxType returns the wager transaction type.
func (LowCard) BetTxType() string { return model.TxTypeLowCardBet }

// WinTxType returns the payout transaction type.
func (LowCard) WinTxType() string { return model.TxTypeLowCardWin }

// RefundTxType returns the refund transaction type.
func (LowCard) RefundTxType() string { return model.TxTypeLowCardRefund }

// AcceptsDraw reports that LowCard players draw cards.
func (LowCard) AcceptsDraw() bool { return true }

// Begin freezes the roster and opens round one.
func (LowCard) Begin(e *Engine, st *RoomState) {
	st.Active = make([]*Player, len(st.Roster))
	copy(st.Active, st.Roster)
	st.TotalRounds = len(st.Roster) - 1
	st.CurrentRound = 1

	pot := st.BetAmount * int64(len(st.Roster))
	e.toRoom(st.RoomID, fmt.Sprintf(
		"Betting closed! %d players, %d coins in the pot. Lowest card each round is out!",
		len(st.Roster), pot), "")

	e.startRound(st)
}

// Sicbo is the dice sibling: no per-player draws, a single pooled roll, and
// the pot (minus the house cut) goes to one uniformly chosen participant.
type Sicbo struct{}

// Label returns the Sicbo bot name.
func (Sicbo) Label() string { return "SicboBot" }

// BetTxType returns the wager transaction type.
func (Sicbo) BetTxType() string { return model.TxTypeSicboBet }

// WinTxType returns the payout transaction type.
func (Sicbo) WinTxType() string { return model.TxTypeSicboWin }

// RefundTxType returns the refund transaction type.
func (Sicbo) RefundTxType() string { return model.TxTypeSicboRefund }

// AcceptsDraw reports that Sicbo has no player draws.
func (Sicbo) AcceptsDraw() bool { return false }

// Begin schedules the single dice roll that settles the game.
func (Sicbo) Begin(e *Engine, st *RoomState) {
	st.Active = make([]*Player, len(st.Roster))
	copy(st.Active, st.Roster)
	st.TotalRounds = 1
	st.CurrentRound = 1
	st.advance()
	st.Phase = PhaseRoundActive

	e.toRoom(st.RoomID, fmt.Sprintf(
		"Betting closed! %d players in. Shaking the dice cup...", len(st.Roster)), "")

	e.schedule(st, timerRound, e.cfg.FinishDelay, e.settleDice)
}

// settleDice rolls the dice, picks the winner uniformly from the roster and
// pays out the pot minus the house cut. Called with the room lock held.
func (e *Engine) settleDice(st *RoomState) {
	if st.Phase != PhaseRoundActive {
		return
	}
	st.advance()
	st.Phase = PhaseFinished

	dice := e.rollDice()
	sum := dice[0] + dice[1] + dice[2]
	e.toRoom(st.RoomID, fmt.Sprintf("🎲 The dice show %d, %d, %d — total %d!",
		dice[0], dice[1], dice[2], sum), diceImage(dice))

	eligible := make([]*Player, 0, len(st.Roster))
	for _, p := range st.Roster {
		if !p.Forfeited {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		e.abortGame(st)
		return
	}
	winner := eligible[e.pickIndex(len(eligible))]
	pot := st.BetAmount * int64(len(st.Roster))
	payout := WinnerPayout(pot, e.cfg.HouseCutPercent)

	if err := e.ledger.Credit(context.Background(), winner.UserID, payout, e.variant.WinTxType()); err != nil {
		log.Error().Err(err).Str("room", st.RoomID).Str("user", winner.UserID).Msg("payout failed")
	}

	names := make([]string, 0, len(st.Roster))
	for _, p := range st.Roster {
		names = append(names, p.Username)
	}
	e.toRoom(st.RoomID, fmt.Sprintf("🏆 The dice favor %s — they take %d coins! Players: %s",
		winner.Username, payout, strings.Join(names, ", ")), "")

	log.Info().
		Str("room", st.RoomID).
		Str("winner", winner.UserID).
		Int64("payout", payout).
		Msg("sicbo settled")

	e.resetIdle(st)
}
