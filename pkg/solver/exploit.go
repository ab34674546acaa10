package solver

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// Exploitability measures how far the current average strategy pair is
// from equilibrium: the mean of each player's best-response gain over
// their current value, in chips. Zero at an exact equilibrium.
func (s *Solver) Exploitability() (float64, error) {
	brOOP, err := s.rootValue(tree.OOP, policyBestResponse)
	if err != nil {
		return 0, err
	}
	brIP, err := s.rootValue(tree.IP, policyBestResponse)
	if err != nil {
		return 0, err
	}
	curOOP, err := s.rootValue(tree.OOP, policyAverage)
	if err != nil {
		return 0, err
	}
	curIP, err := s.rootValue(tree.IP, policyAverage)
	if err != nil {
		return 0, err
	}
	return ((brOOP - curOOP) + (brIP - curIP)) / 2, nil
}

// GameValue returns the hero's expected value at the root, in chips net of
// investment, under the average strategy pair.
func (s *Solver) GameValue(hero tree.Player) (float64, error) {
	return s.rootValue(hero, policyAverage)
}

// rootValue runs a no-update pass from the root with the opponent playing
// the average strategy and the hero playing per heroPolicy, then collapses
// the hero's counterfactual values into one expected chip count.
func (s *Solver) rootValue(hero tree.Player, heroPolicy policyKind) (float64, error) {
	p := &pass{
		g:          s.g,
		hero:       hero,
		params:     s.params,
		heroPolicy: heroPolicy,
		oppPolicy:  policyAverage,
		scores:     s.scores,
	}
	cfv, err := p.runFromRoot()
	if err != nil {
		return 0, err
	}

	oopC, ipC, oopR, ipR := rootRanges(s.g)
	heroCombos, heroReach, oppCombos, oppReach := oopC, oopR, ipC, ipR
	if hero == tree.IP {
		heroCombos, heroReach, oppCombos, oppReach = ipC, ipR, oopC, oopR
	}
	return collapseCFV(cfv, heroCombos, heroReach, oppCombos, oppReach), nil
}

// collapseCFV reduces a counterfactual-value vector to a single expected
// value: reach-weighted sum over hero hands, normalized by the total
// weight of non-conflicting deal pairs.
func collapseCFV(cfv []float64, heroCombos []notation.Combo, heroReach []float64, oppCombos []notation.Combo, oppReach []float64) float64 {
	var total float64
	var perCard [cards.NumCards]float64
	exact := make(map[notation.Combo]float64, len(oppCombos))
	for i, o := range oppCombos {
		w := oppReach[i]
		total += w
		perCard[o.Card1] += w
		perCard[o.Card2] += w
		exact[o] = w
	}

	var num, den float64
	for i, h := range heroCombos {
		valid := total - perCard[h.Card1] - perCard[h.Card2] + exact[h]
		num += heroReach[i] * cfv[i]
		den += heroReach[i] * valid
	}
	if den == 0 {
		return 0
	}
	return num / den
}
