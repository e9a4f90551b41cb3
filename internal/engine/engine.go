package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"room-game-bot/internal/broadcast"
	"room-game-bot/internal/ledger"
)

// Config holds the engine timings and caps.
type Config struct {
	JoinWindow      time.Duration
	DrawWindow      time.Duration
	InterRoundDelay time.Duration
	FinishDelay     time.Duration
	MaxBet          int64
	MaxPlayers      int
	HouseCutPercent int64
}

// DefaultConfig returns the production timings and caps.
func DefaultConfig() Config {
	return Config{
		JoinWindow:      30 * time.Second,
		DrawWindow:      20 * time.Second,
		InterRoundDelay: 5 * time.Second,
		FinishDelay:     3 * time.Second,
		MaxBet:          10000,
		MaxPlayers:      200,
		HouseCutPercent: 10,
	}
}

// Engine drives a room's game through its phases, schedules and cancels
// timers, and settles wagers through the ledger. One Engine serves many
// rooms; each room's state is independent and guarded by its own lock.
type Engine struct {
	cfg     Config
	variant Variant
	store   *Store
	ledger  ledger.Ledger
	bc      broadcast.Broadcaster

	// Randomness hooks, overridable in tests. Defaults draw from the
	// process-wide source.
	drawCard  func() Card
	rollDice  func() [3]int
	pickIndex func(n int) int
}

// New creates an engine for the given variant over shared plumbing.
func New(variant Variant, store *Store, lgr ledger.Ledger, bc broadcast.Broadcaster, cfg Config) *Engine {
	return &Engine{
		cfg:       cfg,
		variant:   variant,
		store:     store,
		ledger:    lgr,
		bc:        bc,
		drawCard:  randomCard,
		rollDice:  randomDice,
		pickIndex: rand.Intn,
	}
}

// Store exposes the room store, mainly for status inspection.
func (e *Engine) Store() *Store {
	return e.store
}

// toRoom broadcasts a bot line to the whole room.
func (e *Engine) toRoom(roomID, text, image string) {
	e.bc.ToRoom(roomID, e.variant.Label(), text, image)
}

// reply answers a single user, falling back to the room when the command
// arrived without a bound socket.
func (e *Engine) reply(roomID, socketID, text string) {
	if socketID != "" {
		e.bc.ToSocket(socketID, e.variant.Label(), text, "")
		return
	}
	e.bc.ToRoom(roomID, e.variant.Label(), text, "")
}

// schedule replaces the timer in the given slot. The callback re-checks the
// state generation under the room lock, so a timer that lost its race with
// a user action (or another timer) is a silent no-op.
func (e *Engine) schedule(st *RoomState, kind timerKind, d time.Duration, fn func(*RoomState)) {
	st.stopTimer(kind)
	gen := st.gen
	st.timers[kind] = time.AfterFunc(d, func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if st.gen != gen {
			return
		}
		fn(st)
	})
}

// closeJoinWindow ends the Joining phase: with fewer than two players the
// game is cancelled and wagers refunded, otherwise play begins.
// Called with the room lock held.
func (e *Engine) closeJoinWindow(st *RoomState) {
	if st.Phase != PhaseJoining {
		return
	}
	if len(st.Roster) < 2 {
		e.cancelGame(st, "Not enough players. Game cancelled, bets refunded.")
		return
	}
	st.advance()
	e.variant.Begin(e, st)
}

// cancelGame refunds every roster member, announces the cancellation and
// deletes the room record. Called with the room lock held.
func (e *Engine) cancelGame(st *RoomState, notice string) {
	st.advance()
	for _, p := range st.Roster {
		e.refund(st.RoomID, p)
	}
	st.Roster = nil
	st.Active = nil
	st.Eliminated = nil
	st.Phase = PhaseIdle
	e.store.Delete(st.RoomID)
	e.toRoom(st.RoomID, notice, "")
	log.Info().Str("room", st.RoomID).Msg("game cancelled")
}

// refund returns a player's wager.
func (e *Engine) refund(roomID string, p *Player) {
	if p.Bet <= 0 {
		return
	}
	if err := e.ledger.Credit(context.Background(), p.UserID, p.Bet, e.variant.RefundTxType()); err != nil {
		log.Error().Err(err).Str("room", roomID).Str("user", p.UserID).Msg("refund failed")
	}
}

// startRound opens a draw round for the remaining active players. Cards are
// cleared for everyone at once; forfeited players are immediately handed
// the worst card so the round cannot stall on them.
// Called with the room lock held.
func (e *Engine) startRound(st *RoomState) {
	st.advance()
	st.Phase = PhaseRoundActive
	for _, p := range st.Active {
		p.Card = nil
	}

	names := make([]string, 0, len(st.Active))
	for _, p := range st.Active {
		names = append(names, p.Username)
	}
	e.toRoom(st.RoomID, fmt.Sprintf(
		"Round %d of %d! %s — type !d to draw your card. %ds before cards are drawn for you.",
		st.CurrentRound, st.TotalRounds, strings.Join(names, ", "), int(e.cfg.DrawWindow.Seconds())), "")

	for _, p := range st.Active {
		if p.Forfeited {
			c := lowestCard()
			p.Card = &c
		}
	}
	if st.allDrawn() {
		e.resolveRound(st)
		return
	}
	e.schedule(st, timerDraw, e.cfg.DrawWindow, e.autoDraw)
}

// autoDraw assigns a random card to every active player who has not drawn,
// then resolves the round. Called with the room lock held.
func (e *Engine) autoDraw(st *RoomState) {
	if st.Phase != PhaseRoundActive {
		return
	}
	for _, p := range st.Active {
		if p.Card != nil {
			continue
		}
		card := e.drawCard()
		p.Card = &card
		e.toRoom(st.RoomID, fmt.Sprintf("%s was dealt %s automatically.", p.Username, card), card.Image())
	}
	e.resolveRound(st)
}

// resolveRound eliminates the single lowest-card holder. Ties on the
// minimum rank are broken uniformly at random, never by roster order.
// Called with the room lock held; requires every active player to hold a
// card (or be forfeited).
func (e *Engine) resolveRound(st *RoomState) {
	st.advance()
	st.Phase = PhaseRoundResolving

	ranked := make([]*Player, len(st.Active))
	copy(ranked, st.Active)
	sort.SliceStable(ranked, func(i, j int) bool {
		return effectiveRank(ranked[i]) < effectiveRank(ranked[j])
	})

	lines := make([]string, 0, len(ranked))
	for _, p := range ranked {
		if p.Card != nil {
			lines = append(lines, fmt.Sprintf("%s: %s", p.Username, p.Card))
		}
	}
	e.toRoom(st.RoomID, fmt.Sprintf("Round %d results — %s", st.CurrentRound, strings.Join(lines, " | ")), "")

	minRank := effectiveRank(ranked[0])
	tied := make([]*Player, 0, 2)
	for _, p := range ranked {
		if effectiveRank(p) == minRank {
			tied = append(tied, p)
		}
	}
	loser := tied[e.pickIndex(len(tied))]

	st.removeActive(loser.UserID)
	st.Eliminated = append(st.Eliminated, loser)
	e.toRoom(st.RoomID, fmt.Sprintf("%s holds the lowest card and is eliminated!", loser.Username), "")

	log.Debug().
		Str("room", st.RoomID).
		Int("round", st.CurrentRound).
		Str("eliminated", loser.UserID).
		Int("remaining", len(st.Active)).
		Msg("round resolved")

	if len(st.Active) <= 1 {
		e.schedule(st, timerRound, e.cfg.FinishDelay, e.finishGame)
		return
	}
	e.schedule(st, timerRound, e.cfg.InterRoundDelay, func(st *RoomState) {
		st.CurrentRound++
		e.startRound(st)
	})
}

// finishGame pays the sole survivor the pot minus the house cut and resets
// the room to Idle. The pot covers every original wager, including those of
// eliminated players. Called with the room lock held.
func (e *Engine) finishGame(st *RoomState) {
	if len(st.Active) != 1 {
		// A finished game without exactly one survivor is a logic fault;
		// abort this instance and make every wager whole.
		e.abortGame(st)
		return
	}
	winner := st.Active[0]
	pot := st.BetAmount * int64(len(st.Roster))
	payout := WinnerPayout(pot, e.cfg.HouseCutPercent)

	st.advance()
	st.Phase = PhaseFinished

	if err := e.ledger.Credit(context.Background(), winner.UserID, payout, e.variant.WinTxType()); err != nil {
		log.Error().Err(err).Str("room", st.RoomID).Str("user", winner.UserID).Msg("payout failed")
	}

	standings := []string{fmt.Sprintf("1. %s (+%d)", winner.Username, payout)}
	for i := len(st.Eliminated) - 1; i >= 0; i-- {
		standings = append(standings, fmt.Sprintf("%d. %s", len(standings)+1, st.Eliminated[i].Username))
	}
	e.toRoom(st.RoomID, fmt.Sprintf(
		"🏆 %s wins %d coins! Final standings: %s",
		winner.Username, payout, strings.Join(standings, " | ")), "")

	log.Info().
		Str("room", st.RoomID).
		Str("winner", winner.UserID).
		Int64("pot", pot).
		Int64("payout", payout).
		Msg("game finished")

	e.resetIdle(st)
}

// abortGame handles an unrecoverable per-room fault: refund every wager,
// apologize and drop the record. Other rooms are unaffected.
// Called with the room lock held.
func (e *Engine) abortGame(st *RoomState) {
	log.Error().Str("room", st.RoomID).Stringer("phase", st.Phase).Msg("aborting game instance")
	e.cancelGame(st, "Something went wrong with this game. All bets have been refunded, sorry!")
}

// resetIdle clears the finished game but keeps the record so !status still
// answers for the room. Called with the room lock held.
func (e *Engine) resetIdle(st *RoomState) {
	st.advance()
	st.Phase = PhaseIdle
	st.Roster = nil
	st.Active = nil
	st.Eliminated = nil
	st.BetAmount = 0
	st.StartedBy = ""
	st.CurrentRound = 0
	st.TotalRounds = 0
}

// Shutdown tears down every running game with full refunds. Used on
// process exit so no wager is stranded in memory.
func (e *Engine) Shutdown() {
	for _, st := range e.store.Rooms() {
		st.mu.Lock()
		if st.Phase != PhaseIdle {
			e.cancelGame(st, "The bot is going offline. All bets have been refunded.")
		} else {
			e.store.Delete(st.RoomID)
		}
		st.mu.Unlock()
	}
}

// WinnerPayout computes the winner's share of a pot: the pot minus the
// house cut, using integer division (the house rounds its cut down).
func WinnerPayout(pot, houseCutPercent int64) int64 {
	return pot - pot*houseCutPercent/100
}
