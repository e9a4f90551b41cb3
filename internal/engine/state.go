package engine

import (
	"sync"
	"time"
)

// Phase is the current stage of a room's game state machine.
type Phase int

// Game phases. Idle is both initial and terminal: a finished game resets to
// Idle rather than deleting the record, so !status still answers.
const (
	PhaseIdle Phase = iota
	PhaseJoining
	PhaseRoundActive
	PhaseRoundResolving
	PhaseFinished
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseJoining:
		return "joining"
	case PhaseRoundActive:
		return "round-active"
	case PhaseRoundResolving:
		return "round-resolving"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Player is one roster entry for the current game instance.
type Player struct {
	UserID   string
	Username string
	// SocketID is bound lazily: a player may join through a command path
	// that does not carry a socket id.
	SocketID string
	// Bet is copied from the room bet at join time and used for refunds.
	Bet int64
	// Card is nil until drawn. Once drawn it is only cleared when a new
	// round starts for all remaining active players at once.
	Card *Card
	// Forfeited marks a disconnected player; they rank below every real
	// card so they are guaranteed to lose their current round.
	Forfeited bool
}

// timerKind names the three timer slots a room may hold. At most one timer
// of each kind is live at a time, and only one kind per phase.
type timerKind int

const (
	timerJoin timerKind = iota // join window, Joining phase
	timerDraw                  // auto-draw, RoundActive phase
	timerRound                 // inter-round delay / pre-finish, RoundResolving phase
	timerKinds
)

// RoomState is the mutable per-room game record. All access goes through mu;
// there is no state shared between rooms.
type RoomState struct {
	mu sync.Mutex

	RoomID    string
	Phase     Phase
	BetAmount int64
	StartedBy string

	// Roster preserves insertion order for deterministic !status display.
	Roster []*Player
	// Active is the subset of Roster still eligible for elimination. It
	// shrinks by exactly one per completed round and never grows.
	Active []*Player
	// Eliminated holds players in elimination order.
	Eliminated []*Player

	CurrentRound int
	TotalRounds  int

	// gen is bumped on every phase transition. Timer callbacks capture the
	// generation they were scheduled under and no-op when it has moved on.
	gen    uint64
	timers [timerKinds]*time.Timer
}

func newRoomState(roomID string) *RoomState {
	return &RoomState{RoomID: roomID, Phase: PhaseIdle}
}

// advance marks a phase transition: it invalidates every pending timer so a
// stale callback can never re-trigger a transition.
func (st *RoomState) advance() {
	st.gen++
	for k := timerKind(0); k < timerKinds; k++ {
		st.stopTimer(k)
	}
}

// stopTimer cancels the timer in the given slot, if any.
func (st *RoomState) stopTimer(kind timerKind) {
	if st.timers[kind] != nil {
		st.timers[kind].Stop()
		st.timers[kind] = nil
	}
}

// findRoster returns the roster entry for a user, or nil.
func (st *RoomState) findRoster(userID string) *Player {
	for _, p := range st.Roster {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// findActive returns the active-roster entry for a user, or nil.
func (st *RoomState) findActive(userID string) *Player {
	for _, p := range st.Active {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// removeRoster removes a player from the roster, preserving order.
func (st *RoomState) removeRoster(userID string) {
	for i, p := range st.Roster {
		if p.UserID == userID {
			st.Roster = append(st.Roster[:i], st.Roster[i+1:]...)
			return
		}
	}
}

// removeActive removes a player from the active roster, preserving order.
func (st *RoomState) removeActive(userID string) {
	for i, p := range st.Active {
		if p.UserID == userID {
			st.Active = append(st.Active[:i], st.Active[i+1:]...)
			return
		}
	}
}

// allDrawn reports whether every active player holds a card.
func (st *RoomState) allDrawn() bool {
	for _, p := range st.Active {
		if p.Card == nil {
			return false
		}
	}
	return true
}

// effectiveRank orders players for elimination. Forfeited players rank
// below the lowest real card so a disconnect is a guaranteed loss.
func effectiveRank(p *Player) int {
	if p.Forfeited {
		return MinRank - 1
	}
	if p.Card == nil {
		return MaxRank + 1
	}
	return p.Card.Rank
}
