// Package engine implements the room game-bot engine: a per-room state
// machine coordinating player admission, timed rounds, elimination and
// payout for the LowCard card game and its Sicbo dice sibling.
package engine

import (
	"fmt"
	"math/rand"
)

// Suit identifies a card suit. Suits are cosmetic only and never break
// rank ties.
type Suit int

// The four suits.
const (
	SuitClubs Suit = iota
	SuitDiamonds
	SuitHearts
	SuitSpades
)

// String returns the suit glyph.
func (s Suit) String() string {
	switch s {
	case SuitClubs:
		return "♣"
	case SuitDiamonds:
		return "♦"
	case SuitHearts:
		return "♥"
	default:
		return "♠"
	}
}

// letter returns the suit letter used in image asset paths.
func (s Suit) letter() string {
	switch s {
	case SuitClubs:
		return "c"
	case SuitDiamonds:
		return "d"
	case SuitHearts:
		return "h"
	default:
		return "s"
	}
}

// Rank bounds. Ranks run 2..10, J(11), Q(12), K(13), A(14). Ace is high.
const (
	MinRank   = 2
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13
	RankAce   = 14
	MaxRank   = RankAce
)

// Card is a rank/suit pair. Cards are drawn with replacement: ranks and
// suits may repeat across players and rounds.
type Card struct {
	Rank int
	Suit Suit
}

// rankToken returns the short rank token ("2".."10", "j", "q", "k", "a").
func rankToken(rank int) string {
	switch rank {
	case RankJack:
		return "j"
	case RankQueen:
		return "q"
	case RankKing:
		return "k"
	case RankAce:
		return "a"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

// RankName returns the display name of a rank ("2".."10", "J", "Q", "K", "A").
func RankName(rank int) string {
	switch rank {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

// String renders the card for chat display, e.g. "K♠" or "10♥".
func (c Card) String() string {
	return RankName(c.Rank) + c.Suit.String()
}

// Image returns the asset path for the card face.
func (c Card) Image() string {
	return fmt.Sprintf("cards/%s%s.png", rankToken(c.Rank), c.Suit.letter())
}

// randomCard returns a uniformly random rank and suit. There is no deck
// memory: this is explicitly not a without-replacement model.
func randomCard() Card {
	return Card{
		Rank: MinRank + rand.Intn(MaxRank-MinRank+1),
		Suit: Suit(rand.Intn(4)),
	}
}

// lowestCard is the deterministic worst card, assigned to players who
// disconnect mid-round so the round never stalls waiting for their draw.
func lowestCard() Card {
	return Card{Rank: MinRank, Suit: SuitClubs}
}

// randomDice returns three independent uniform dice values in [1,6].
func randomDice() [3]int {
	return [3]int{
		rand.Intn(6) + 1,
		rand.Intn(6) + 1,
		rand.Intn(6) + 1,
	}
}

// diceImage returns the asset path for a three-dice result.
func diceImage(d [3]int) string {
	return fmt.Sprintf("dice/%d%d%d.png", d[0], d[1], d[2])
}
