package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// HandleDisconnect reacts to a player's transport dropping. Every
// disconnect is terminal for that player's current game participation;
// there is no reconnection path.
func (e *Engine) HandleDisconnect(roomID, userID string) {
	st, ok := e.store.Get(roomID)
	if !ok {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.Phase {
	case PhaseJoining:
		p := st.findRoster(userID)
		if p == nil {
			return
		}
		e.refund(roomID, p)
		st.removeRoster(p.UserID)
		e.toRoom(roomID, fmt.Sprintf("%s disconnected, bet refunded. (%d players)", p.Username, len(st.Roster)), "")

		// The join timer would only confirm what we already know.
		if len(st.Roster) < 2 {
			e.cancelGame(st, "Not enough players left. Game cancelled, bets refunded.")
		}

	case PhaseRoundActive, PhaseRoundResolving:
		p := st.findActive(userID)
		if p == nil {
			// Already eliminated or never in this game: no-op.
			return
		}
		p.Forfeited = true
		log.Info().Str("room", roomID).Str("user", userID).Msg("player forfeited on disconnect")

		if !e.variant.AcceptsDraw() {
			// Dice games settle from the pot in one roll; the forfeit only
			// drops the player from winner eligibility.
			return
		}

		if st.Phase == PhaseRoundActive && p.Card == nil {
			c := lowestCard()
			p.Card = &c
			e.toRoom(roomID, fmt.Sprintf("%s disconnected and is dealt the lowest card.", p.Username), c.Image())
			if st.allDrawn() {
				e.resolveRound(st)
			}
			return
		}
		e.toRoom(roomID, fmt.Sprintf("%s disconnected and forfeits the round.", p.Username), "")
	}
}
