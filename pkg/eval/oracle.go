// Package eval wraps the chehsunliu/poker hand evaluator as the engine's
// scoring oracle: score(hand [7]Card) -> higher is stronger, ties on
// equal scores.
package eval

import (
	"fmt"

	"github.com/chehsunliu/poker"

	"github.com/bkushigian/postflop-solver/pkg/cards"
)

// worstRank is chehsunliu/poker's maximum (weakest) rank value; Evaluate
// returns 1 for a royal flush and worstRank for the weakest high card.
const worstRank = 7462

// Score evaluates the best 5-card hand out of exactly 7 cards and returns
// an int32 where higher is stronger. chehsunliu/poker.Evaluate returns
// lower-is-better, so the result is inverted here to match the oracle
// contract every caller in this repo relies on.
func Score(hand [7]cards.Card) (int32, error) {
	converted := make([]poker.Card, 7)
	for i, c := range hand {
		pc, err := convert(c)
		if err != nil {
			return 0, fmt.Errorf("convert card %d (%s): %w", i, c, err)
		}
		converted[i] = pc
	}

	rank := poker.Evaluate(converted)
	return int32(worstRank+1) - int32(rank), nil
}

// ScoreSlice is a convenience wrapper for callers holding a variable-length
// slice (e.g. hole cards + board) instead of a fixed [7]cards.Card array.
func ScoreSlice(hand []cards.Card) (int32, error) {
	if len(hand) != 7 {
		return 0, fmt.Errorf("ScoreSlice requires exactly 7 cards, got %d", len(hand))
	}
	var arr [7]cards.Card
	copy(arr[:], hand)
	return Score(arr)
}

// convert maps our Card encoding to chehsunliu/poker's Card type, which
// encodes rank and suit as independent enums rather than a packed index.
func convert(c cards.Card) (poker.Card, error) {
	rankStr, err := rankString(c.Rank())
	if err != nil {
		return 0, err
	}
	suitStr, err := suitString(c.Suit())
	if err != nil {
		return 0, err
	}
	return poker.NewCard(rankStr + suitStr), nil
}

func rankString(r cards.Rank) (string, error) {
	switch r {
	case cards.Two:
		return "2", nil
	case cards.Three:
		return "3", nil
	case cards.Four:
		return "4", nil
	case cards.Five:
		return "5", nil
	case cards.Six:
		return "6", nil
	case cards.Seven:
		return "7", nil
	case cards.Eight:
		return "8", nil
	case cards.Nine:
		return "9", nil
	case cards.Ten:
		return "T", nil
	case cards.Jack:
		return "J", nil
	case cards.Queen:
		return "Q", nil
	case cards.King:
		return "K", nil
	case cards.Ace:
		return "A", nil
	default:
		return "", fmt.Errorf("invalid rank: %d", r)
	}
}

func suitString(s cards.Suit) (string, error) {
	switch s {
	case cards.Spades:
		return "s", nil
	case cards.Hearts:
		return "h", nil
	case cards.Diamonds:
		return "d", nil
	case cards.Clubs:
		return "c", nil
	default:
		return "", fmt.Errorf("invalid suit: %d", s)
	}
}
