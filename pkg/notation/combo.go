package notation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bkushigian/postflop-solver/pkg/cards"
)

// Combo is a specific two-card hole-card combination, stored with the lower
// card index first so Combo values compare and map-key deterministically.
type Combo struct {
	Card1 cards.Card
	Card2 cards.Card
}

// NewCombo builds a Combo with its cards in canonical (ascending) order.
func NewCombo(a, b cards.Card) Combo {
	if a > b {
		a, b = b, a
	}
	return Combo{Card1: a, Card2: b}
}

// String returns the combo in standard notation (e.g. "AsKh").
func (c Combo) String() string {
	return fmt.Sprintf("%s%s", c.Card1, c.Card2)
}

// Mask returns the card mask covering both hole cards.
func (c Combo) Mask() cards.Mask {
	return cards.BoardMask(c.Card1, c.Card2)
}

// Range is a weighted hole-card range: every combo maps to a weight in
// [0,1], the fraction of that combo's frequency included at this node. A
// combo absent from the map has weight 0 and is excluded entirely.
type Range map[Combo]float64

// Combos returns the range's combos in a deterministic order (by Card1 then
// Card2), for callers that need stable iteration (printing, serialization).
func (r Range) Combos() []Combo {
	out := make([]Combo, 0, len(r))
	for c := range r {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Card1 != out[j].Card1 {
			return out[i].Card1 < out[j].Card1
		}
		return out[i].Card2 < out[j].Card2
	})
	return out
}

// RemoveBlockers zeroes the weight of every combo that shares a card with
// dead, returning a new Range. Used when dealing board cards: any combo
// that contains a board card can no longer occur.
func (r Range) RemoveBlockers(dead cards.Mask) Range {
	out := make(Range, len(r))
	for c, w := range r {
		if dead.Has(c.Card1) || dead.Has(c.Card2) {
			continue
		}
		out[c] = w
	}
	return out
}

// TotalWeight sums every combo's weight.
func (r Range) TotalWeight() float64 {
	var total float64
	for _, w := range r {
		total += w
	}
	return total
}

// ParseRange parses a range string into a weighted Range. Each
// comma-separated component is a hand notation ("AA", "AKs", "AKo"), a
// dash range ("KK-JJ", "AKs-ATs"), or any of those with an optional
// ":weight" suffix (e.g. "AA:0.5", "KQs-KTs:0.75"). Components with no
// weight suffix default to weight 1.0. Later components overwrite earlier
// weights for the same combo.
func ParseRange(rangeStr string) (Range, error) {
	rangeStr = strings.TrimSpace(rangeStr)
	if rangeStr == "" {
		return nil, fmt.Errorf("empty range string")
	}

	result := make(Range)
	for _, part := range strings.Split(rangeStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		notation, weight, err := splitWeight(part)
		if err != nil {
			return nil, fmt.Errorf("error parsing component %q: %w", part, err)
		}

		var combos []Combo
		if strings.Contains(notation, "-") {
			combos, err = parseRangeWithDash(notation)
		} else {
			combos, err = parseSingleHand(notation)
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing component %q: %w", part, err)
		}

		for _, c := range combos {
			result[c] = weight
		}
	}

	return result, nil
}

// splitWeight separates a trailing ":weight" suffix from hand notation,
// returning the default weight of 1.0 when no suffix is present.
func splitWeight(part string) (notation string, weight float64, err error) {
	idx := strings.LastIndex(part, ":")
	if idx < 0 {
		return part, 1.0, nil
	}
	weightStr := strings.TrimSpace(part[idx+1:])
	w, err := strconv.ParseFloat(weightStr, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid weight %q: %w", weightStr, err)
	}
	if w < 0 || w > 1 {
		return "", 0, fmt.Errorf("weight %v out of range [0,1]", w)
	}
	return strings.TrimSpace(part[:idx]), w, nil
}

// parseSingleHand parses a single hand notation (e.g. "AA", "AKs", "AKo").
func parseSingleHand(hand string) ([]Combo, error) {
	hand = strings.TrimSpace(hand)
	if len(hand) < 2 || len(hand) > 3 {
		return nil, fmt.Errorf("invalid hand notation: %q", hand)
	}

	rank1, err := parseRankChar(hand[0])
	if err != nil {
		return nil, err
	}
	rank2, err := parseRankChar(hand[1])
	if err != nil {
		return nil, err
	}

	var suited bool
	if len(hand) == 3 {
		switch hand[2] {
		case 's', 'S':
			suited = true
		case 'o', 'O':
			suited = false
		default:
			return nil, fmt.Errorf("invalid suited/offsuit indicator: %c (expected 's' or 'o')", hand[2])
		}
	} else if rank1 != rank2 {
		return nil, fmt.Errorf("ambiguous hand %q (use 's' for suited or 'o' for offsuit)", hand)
	}

	return generateCombos(rank1, rank2, suited), nil
}

// parseRangeWithDash parses a range with a dash (e.g. "KK-JJ", "AKs-ATs").
func parseRangeWithDash(rangeStr string) ([]Combo, error) {
	parts := strings.Split(rangeStr, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range format: %q (expected format: AA-KK)", rangeStr)
	}

	start := strings.TrimSpace(parts[0])
	end := strings.TrimSpace(parts[1])

	startRank1, startRank2, startSuited, err := parseHandComponents(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start hand %q: %w", start, err)
	}
	endRank1, endRank2, endSuited, err := parseHandComponents(end)
	if err != nil {
		return nil, fmt.Errorf("invalid end hand %q: %w", end, err)
	}
	if startSuited != endSuited {
		return nil, fmt.Errorf("mismatched suited/offsuit in range %q", rangeStr)
	}

	var allCombos []Combo

	if startRank1 == startRank2 && endRank1 == endRank2 {
		for r := int(startRank1); r >= int(endRank1); r-- {
			rank := cards.Rank(r)
			allCombos = append(allCombos, generateCombos(rank, rank, startSuited)...)
		}
		return allCombos, nil
	}

	if startRank1 != endRank1 {
		return nil, fmt.Errorf("invalid range %q (first rank must match)", rangeStr)
	}

	for r := int(startRank2); r >= int(endRank2); r-- {
		rank2 := cards.Rank(r)
		allCombos = append(allCombos, generateCombos(startRank1, rank2, startSuited)...)
	}

	return allCombos, nil
}

// parseHandComponents parses hand notation into (rank1, rank2, suited).
func parseHandComponents(hand string) (cards.Rank, cards.Rank, bool, error) {
	hand = strings.TrimSpace(hand)
	if len(hand) < 2 || len(hand) > 3 {
		return 0, 0, false, fmt.Errorf("invalid hand notation: %q", hand)
	}

	rank1, err := parseRankChar(hand[0])
	if err != nil {
		return 0, 0, false, err
	}
	rank2, err := parseRankChar(hand[1])
	if err != nil {
		return 0, 0, false, err
	}

	var suited bool
	if len(hand) == 3 {
		if rank1 == rank2 {
			return 0, 0, false, fmt.Errorf("pair %q cannot have suited/offsuit indicator", hand)
		}
		switch hand[2] {
		case 's', 'S':
			suited = true
		case 'o', 'O':
			suited = false
		default:
			return 0, 0, false, fmt.Errorf("invalid suited/offsuit indicator: %c", hand[2])
		}
	} else if rank1 != rank2 {
		return 0, 0, false, fmt.Errorf("ambiguous hand %q", hand)
	}

	return rank1, rank2, suited, nil
}

// parseRankChar converts a character to a Rank.
func parseRankChar(b byte) (cards.Rank, error) {
	switch b {
	case 'A', 'a':
		return cards.Ace, nil
	case 'K', 'k':
		return cards.King, nil
	case 'Q', 'q':
		return cards.Queen, nil
	case 'J', 'j':
		return cards.Jack, nil
	case 'T', 't':
		return cards.Ten, nil
	case '9':
		return cards.Nine, nil
	case '8':
		return cards.Eight, nil
	case '7':
		return cards.Seven, nil
	case '6':
		return cards.Six, nil
	case '5':
		return cards.Five, nil
	case '4':
		return cards.Four, nil
	case '3':
		return cards.Three, nil
	case '2':
		return cards.Two, nil
	default:
		return 0, fmt.Errorf("invalid rank: %c", b)
	}
}

// generateCombos generates all card combinations for a rank pair.
func generateCombos(rank1, rank2 cards.Rank, suited bool) []Combo {
	suits := []cards.Suit{cards.Spades, cards.Hearts, cards.Diamonds, cards.Clubs}
	var combos []Combo

	if rank1 == rank2 {
		for i := 0; i < len(suits); i++ {
			for j := i + 1; j < len(suits); j++ {
				combos = append(combos, NewCombo(cards.NewCard(rank1, suits[i]), cards.NewCard(rank2, suits[j])))
			}
		}
	} else if suited {
		for _, suit := range suits {
			combos = append(combos, NewCombo(cards.NewCard(rank1, suit), cards.NewCard(rank2, suit)))
		}
	} else {
		for _, suit1 := range suits {
			for _, suit2 := range suits {
				if suit1 != suit2 {
					combos = append(combos, NewCombo(cards.NewCard(rank1, suit1), cards.NewCard(rank2, suit2)))
				}
			}
		}
	}

	return combos
}
