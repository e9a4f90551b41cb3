package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// HandleCommand is the engine's command input boundary. The caller has
// already authenticated userID/username; the raw message is re-validated
// defensively here. SocketID may be empty when the command arrives through
// a path that is not socket-bound.
func (e *Engine) HandleCommand(roomID, raw, userID, username, socketID string) {
	raw = strings.TrimSpace(raw)
	if roomID == "" || raw == "" || userID == "" {
		return
	}

	// "/bot off" is out-of-band: recognized before the !-prefix grammar,
	// tears everything down and short-circuits.
	if strings.HasPrefix(raw, "/bot") {
		fields := strings.Fields(raw)
		if len(fields) >= 2 && fields[1] == "off" {
			e.BotOff(roomID)
		}
		return
	}

	if !strings.HasPrefix(raw, "!") {
		return
	}
	fields := strings.Fields(raw)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "!bot", "!start", "!j", "!d", "!leave", "!status", "!help":
		e.announcePresence(roomID)
	default:
		// Not one of ours.
		return
	}

	log.Debug().
		Str("room", roomID).
		Str("user", userID).
		Str("cmd", cmd).
		Msg("command received")

	switch cmd {
	case "!start":
		e.handleStart(roomID, args, userID, username, socketID)
	case "!j":
		e.handleJoin(roomID, userID, username, socketID)
	case "!d":
		e.handleDraw(roomID, userID, socketID)
	case "!leave":
		e.handleLeave(roomID, userID, socketID)
	case "!status":
		e.handleStatus(roomID, socketID)
	case "!help":
		e.handleHelp(roomID, socketID)
	}
}

// announcePresence broadcasts the bot's arrival the first time any
// recognized command is seen in a room.
func (e *Engine) announcePresence(roomID string) {
	if e.store.MarkPresence(roomID) {
		e.toRoom(roomID, fmt.Sprintf(
			"%s is in the room! Type !start <bet> to open a game, !help for the rules.",
			e.variant.Label()), "")
	}
}

// handleStart opens the join window for a new game instance.
func (e *Engine) handleStart(roomID string, args []string, userID, username, socketID string) {
	if len(args) < 1 {
		e.reply(roomID, socketID, "Usage: !start <bet>, e.g. !start 100")
		return
	}
	bet, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || bet <= 0 {
		e.reply(roomID, socketID, "The bet must be a positive number.")
		return
	}
	if bet > e.cfg.MaxBet {
		e.reply(roomID, socketID, fmt.Sprintf("The bet can be at most %d coins.", e.cfg.MaxBet))
		return
	}

	if err := e.ledger.EnsureAccount(context.Background(), userID, username); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("account provisioning failed")
	}

	st := e.store.GetOrCreate(roomID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.Phase != PhaseIdle {
		e.reply(roomID, socketID, "A game is already in progress in this room.")
		return
	}

	st.advance()
	st.Phase = PhaseJoining
	st.BetAmount = bet
	st.StartedBy = username

	e.toRoom(roomID, fmt.Sprintf(
		"%s opened a game for %d coins! Type !j to join — %d seconds!",
		username, bet, int(e.cfg.JoinWindow.Seconds())), "")
	e.schedule(st, timerJoin, e.cfg.JoinWindow, e.closeJoinWindow)

	log.Info().Str("room", roomID).Str("user", userID).Int64("bet", bet).Msg("game opened")
}

// handleJoin admits a player during the join window. The wager is debited
// before the roster is touched, so a failed debit leaves no trace.
func (e *Engine) handleJoin(roomID, userID, username, socketID string) {
	st, ok := e.store.Get(roomID)
	if !ok {
		e.reply(roomID, socketID, "No game to join. Type !start <bet> to open one.")
		return
	}

	if err := e.ledger.EnsureAccount(context.Background(), userID, username); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("account provisioning failed")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.Phase {
	case PhaseJoining:
	case PhaseIdle:
		e.reply(roomID, socketID, "No game to join. Type !start <bet> to open one.")
		return
	default:
		e.reply(roomID, socketID, "The game has already started — catch the next one.")
		return
	}

	if p := st.findRoster(userID); p != nil {
		if p.SocketID == "" {
			p.SocketID = socketID
		}
		e.reply(roomID, socketID, "You're already in!")
		return
	}
	if len(st.Roster) >= e.cfg.MaxPlayers {
		e.reply(roomID, socketID, "The table is full.")
		return
	}

	ok, err := e.ledger.Debit(context.Background(), userID, st.BetAmount, e.variant.BetTxType())
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Str("user", userID).Msg("debit failed")
		e.reply(roomID, socketID, "The bank is not answering — try again in a moment.")
		return
	}
	if !ok {
		e.reply(roomID, socketID, fmt.Sprintf("You need %d coins to join.", st.BetAmount))
		return
	}

	st.Roster = append(st.Roster, &Player{
		UserID:   userID,
		Username: username,
		SocketID: socketID,
		Bet:      st.BetAmount,
	})
	e.toRoom(roomID, fmt.Sprintf("%s is in! (%d players)", username, len(st.Roster)), "")
}

// handleDraw assigns the caller their card for the current round.
func (e *Engine) handleDraw(roomID, userID, socketID string) {
	if !e.variant.AcceptsDraw() {
		e.reply(roomID, socketID, "There's nothing to draw in this game — the dice decide!")
		return
	}
	st, ok := e.store.Get(roomID)
	if !ok {
		e.reply(roomID, socketID, "No game running.")
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.Phase != PhaseRoundActive {
		e.reply(roomID, socketID, "It's not drawing time.")
		return
	}
	p := st.findActive(userID)
	if p == nil {
		e.reply(roomID, socketID, "You're not in this round.")
		return
	}
	if p.SocketID == "" {
		p.SocketID = socketID
	}
	if p.Card != nil {
		e.reply(roomID, socketID, fmt.Sprintf("You already drew %s.", p.Card))
		return
	}

	card := e.drawCard()
	p.Card = &card
	e.toRoom(roomID, fmt.Sprintf("%s draws %s", p.Username, card), card.Image())

	if st.allDrawn() {
		e.resolveRound(st)
	}
}

// handleLeave removes a player during the join window and refunds their
// wager. Leaving mid-round is not allowed.
func (e *Engine) handleLeave(roomID, userID, socketID string) {
	st, ok := e.store.Get(roomID)
	if !ok {
		e.reply(roomID, socketID, "No game running.")
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.Phase != PhaseJoining {
		e.reply(roomID, socketID, "You can only leave before the game starts.")
		return
	}
	p := st.findRoster(userID)
	if p == nil {
		e.reply(roomID, socketID, "You haven't joined.")
		return
	}

	e.refund(roomID, p)
	st.removeRoster(p.UserID)
	e.toRoom(roomID, fmt.Sprintf("%s left, bet refunded. (%d players)", p.Username, len(st.Roster)), "")

	// Same rule as a mid-join disconnect: once the table can no longer
	// seat a game, don't wait for the join timer to tell us.
	if len(st.Roster) < 2 {
		e.cancelGame(st, "Not enough players left. Game cancelled, bets refunded.")
	}
}

// handleStatus reports the room's current game state. Always answerable.
func (e *Engine) handleStatus(roomID, socketID string) {
	st, ok := e.store.Get(roomID)
	if !ok {
		e.reply(roomID, socketID, "No game in this room. Type !start <bet> to open one.")
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.Phase {
	case PhaseIdle:
		e.reply(roomID, socketID, "No game running. Type !start <bet> to open one.")
	case PhaseJoining:
		names := make([]string, 0, len(st.Roster))
		for _, p := range st.Roster {
			names = append(names, p.Username)
		}
		e.reply(roomID, socketID, fmt.Sprintf(
			"Joining: %d coins a seat, %d in so far (%s). Type !j to join!",
			st.BetAmount, len(st.Roster), strings.Join(names, ", ")))
	case PhaseRoundActive, PhaseRoundResolving:
		e.reply(roomID, socketID, fmt.Sprintf(
			"Round %d of %d, %d players left in, %d coins in the pot.",
			st.CurrentRound, st.TotalRounds, len(st.Active),
			st.BetAmount*int64(len(st.Roster))))
	case PhaseFinished:
		e.reply(roomID, socketID, "Wrapping up the last game.")
	}
}

// handleHelp sends the command reference.
func (e *Engine) handleHelp(roomID, socketID string) {
	e.reply(roomID, socketID, strings.Join([]string{
		"!start <bet> — open a game",
		"!j — join for the bet amount",
		"!d — draw your card",
		"!leave — leave before the game starts (refund)",
		"!status — what's going on",
		"/bot off — turn the bot off (refunds everyone)",
	}, "\n"))
}

// BotOff tears down any in-progress game with full refunds, deletes the
// room record and clears presence.
func (e *Engine) BotOff(roomID string) {
	hadPresence := e.store.HasPresence(roomID)

	if st, ok := e.store.Get(roomID); ok {
		st.mu.Lock()
		if st.Phase != PhaseIdle {
			e.cancelGame(st, "Bot switched off — all bets refunded.")
		} else {
			e.store.Delete(st.RoomID)
		}
		st.mu.Unlock()
	}

	e.store.ClearPresence(roomID)
	if hadPresence {
		e.toRoom(roomID, fmt.Sprintf("%s has left the room.", e.variant.Label()), "")
	}
	log.Info().Str("room", roomID).Msg("bot turned off")
}
