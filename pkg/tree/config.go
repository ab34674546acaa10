package tree

import "github.com/bkushigian/postflop-solver/pkg/cards"

// StreetOptions bundles the normal bet/raise sizes and the donk-lead sizes
// available at one street.
type StreetOptions struct {
	BetSizeOptions
	DonkSizeOptions
}

// TreeConfig describes the abstract betting structure of a hand, with no
// reference to specific cards.
type TreeConfig struct {
	InitialState cards.BoardState

	StartingPot     float64
	EffectiveStack  float64
	RakeRate        float64 // in [0,1]
	RakeCap         float64 // >= 0

	Flop  StreetOptions
	Turn  StreetOptions
	River StreetOptions

	// AddAllInThreshold: a resolved bet amount within this fraction of
	// all-in (relative to all-in) is snapped to all-in.
	AddAllInThreshold float64
	// ForceAllInThreshold: once the smallest legal raise exceeds this
	// fraction of all-in, the only remaining aggressive option is all-in.
	ForceAllInThreshold float64
	// MergingThreshold: candidate sizes within this relative tolerance of
	// one another are merged into a single size.
	MergingThreshold float64
}

// streetOptions returns the StreetOptions for a given board state.
func (c *TreeConfig) streetOptions(s cards.BoardState) StreetOptions {
	switch s {
	case cards.Flop:
		return c.Flop
	case cards.Turn:
		return c.Turn
	default:
		return c.River
	}
}
