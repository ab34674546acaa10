// Package game implements PostFlopGame: the concrete game-tree arena
// formed by crossing an abstract ActionTree (pkg/tree) with chance deals,
// backed by dense node records and four shared byte pools.
package game

import (
	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

// CardConfig pins an ActionTree to concrete cards: both players' starting
// ranges and the board cards known so far.
type CardConfig struct {
	RangeOOP notation.Range
	RangeIP  notation.Range

	Flop  [3]cards.Card
	Turn  *cards.Card
	River *cards.Card
}

// Board returns the known board cards as of this config.
func (c *CardConfig) Board() cards.Board {
	b := cards.Board{c.Flop[0], c.Flop[1], c.Flop[2]}
	if c.Turn != nil {
		b = append(b, *c.Turn)
	}
	if c.River != nil {
		b = append(b, *c.River)
	}
	return b
}

// Validate checks the board is well-formed, ranges are non-empty, and no
// range combo collides with a board card.
func (c *CardConfig) Validate() error {
	board := c.Board()
	if err := board.Validate(); err != nil {
		return errs.WrapConfigError(err, "invalid card config board")
	}
	if len(c.RangeOOP) == 0 {
		return errs.NewConfigError("OOP range is empty")
	}
	if len(c.RangeIP) == 0 {
		return errs.NewConfigError("IP range is empty")
	}
	return nil
}

// EffectiveRanges returns both players' ranges with board-blocked combos
// removed, suitable for sizing arena storage.
func (c *CardConfig) EffectiveRanges() (oop, ip notation.Range) {
	mask := cards.BoardMask(c.Board()...)
	return c.RangeOOP.RemoveBlockers(mask), c.RangeIP.RemoveBlockers(mask)
}
