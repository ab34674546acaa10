// Package equity computes raw hand-vs-range equity by exhaustive runout
// enumeration, for the range bucketer and for diagnostics. The solver has
// its own reach-weighted equity readout; this package answers the simpler
// "how does this hand fare against that range" question.
package equity

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/eval"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

// EquityResult is the outcome of an equity calculation.
type EquityResult struct {
	WinPct float64 // weighted fraction of matchups the hero wins
	TiePct float64 // weighted fraction of matchups that tie
	Equity float64 // WinPct + TiePct/2
}

// PotentialResult measures how much a hand's equity moves across runouts:
// made hands hold steady, draws swing.
type PotentialResult struct {
	PositivePot float64 // chance of improving when currently behind
	NegativePot float64 // chance of falling behind when currently ahead
	ImprovePct  float64 // overall equity volatility
}

// Calculator computes hand equity against weighted opponent ranges.
type Calculator struct{}

// NewCalculator creates an equity calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// CalculateEquity computes the hero combo's equity against a weighted
// opponent range on a 3-5 card board, enumerating every remaining runout.
// Opponent combos blocked by the hero or the board contribute nothing.
func (c *Calculator) CalculateEquity(hero notation.Combo, board cards.Board, opponentRange notation.Range) EquityResult {
	var wins, ties, total float64
	c.enumerate(hero, board, opponentRange, &wins, &ties, &total)

	if total == 0 {
		return EquityResult{Equity: 0.5}
	}
	winPct := wins / total
	tiePct := ties / total
	return EquityResult{
		WinPct: winPct,
		TiePct: tiePct,
		Equity: winPct + tiePct/2.0,
	}
}

// enumerate accumulates weighted win/tie/total counts over every remaining
// runout of the board.
func (c *Calculator) enumerate(hero notation.Combo, board cards.Board, opp notation.Range, wins, ties, total *float64) {
	if len(board) == 5 {
		c.tallyRiver(hero, board, opp, wins, ties, total)
		return
	}
	used := cards.BoardMask(board...).Add(hero.Card1).Add(hero.Card2)
	for _, next := range cards.RemainingCards(used) {
		c.enumerate(hero, append(board, next), opp, wins, ties, total)
	}
}

func (c *Calculator) tallyRiver(hero notation.Combo, board cards.Board, opp notation.Range, wins, ties, total *float64) {
	heroScore := score(hero, board)
	dead := cards.BoardMask(board...).Add(hero.Card1).Add(hero.Card2)

	for oppCombo, w := range opp {
		if w == 0 || dead.Has(oppCombo.Card1) || dead.Has(oppCombo.Card2) {
			continue
		}
		oppScore := score(oppCombo, board)
		switch {
		case heroScore > oppScore:
			*wins += w
		case heroScore == oppScore:
			*ties += w
		}
		*total += w
	}
}

// CalculatePotential measures a flop hand's equity volatility across turn
// cards; on later streets there is no potential left and the zero value is
// returned. Behind with volatility reads as positive potential, ahead with
// volatility as vulnerability.
func (c *Calculator) CalculatePotential(hero notation.Combo, board cards.Board, opponentRange notation.Range) PotentialResult {
	if len(board) != 3 {
		return PotentialResult{}
	}

	used := cards.BoardMask(board...).Add(hero.Card1).Add(hero.Card2)
	var equities []float64
	for _, turn := range cards.RemainingCards(used) {
		r := c.CalculateEquity(hero, append(board, turn), opponentRange)
		equities = append(equities, r.Equity)
	}
	if len(equities) == 0 {
		return PotentialResult{}
	}

	var mean float64
	for _, eq := range equities {
		mean += eq
	}
	mean /= float64(len(equities))

	var variance float64
	for _, eq := range equities {
		diff := eq - mean
		variance += diff * diff
	}
	variance /= float64(len(equities))

	// 0.25 is the variance ceiling (an even coin flip across runouts).
	normalized := variance / 0.25
	if normalized > 1.0 {
		normalized = 1.0
	}

	out := PotentialResult{ImprovePct: normalized}
	if mean < 0.5 {
		out.PositivePot = normalized
	} else if mean > 0.5 {
		out.NegativePot = normalized
	}
	return out
}

// score evaluates a combo on a complete board. The oracle only fails on
// malformed cards, which is a caller bug here.
func score(cb notation.Combo, board cards.Board) int32 {
	hand := make([]cards.Card, 0, 7)
	hand = append(hand, cb.Card1, cb.Card2)
	hand = append(hand, board...)
	s, err := eval.ScoreSlice(hand)
	if err != nil {
		panic("equity: " + err.Error())
	}
	return s
}
