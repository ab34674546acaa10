// Package abstraction buckets hole-card combos by equity and improvement
// potential: a 2D histogram over both axes compacts a range into a
// manageable number of strategically similar groups. Used as an opt-in
// diagnostic ahead of large flop solves.
package abstraction

import (
	"fmt"
	"math"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/equity"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

// Bucketer assigns combos to buckets based on equity and potential
// against a fixed board and opponent range.
type Bucketer struct {
	board         cards.Board
	opponentRange notation.Range
	calculator    *equity.Calculator

	// Grid dimensions for the 2D histogram; numBuckets rounds down to the
	// nearest square grid.
	equityBins    int
	potentialBins int

	cache map[notation.Combo]int
}

// NewBucketer creates a bucketer for a board and weighted opponent range.
// numBuckets is the requested total (typically 50-200).
func NewBucketer(board cards.Board, opponentRange notation.Range, numBuckets int) *Bucketer {
	gridSize := int(math.Sqrt(float64(numBuckets)))
	if gridSize < 1 {
		gridSize = 1
	}
	return &Bucketer{
		board:         board,
		opponentRange: opponentRange,
		calculator:    equity.NewCalculator(),
		equityBins:    gridSize,
		potentialBins: gridSize,
		cache:         make(map[notation.Combo]int),
	}
}

// Bucket assigns one combo to a bucket ID in [0, NumBuckets).
func (b *Bucketer) Bucket(combo notation.Combo) int {
	if bucket, ok := b.cache[combo]; ok {
		return bucket
	}

	eq := b.calculator.CalculateEquity(combo, b.board, b.opponentRange)
	pot := b.calculator.CalculatePotential(combo, b.board, b.opponentRange)

	equityBin := int(eq.Equity * float64(b.equityBins))
	if equityBin >= b.equityBins {
		equityBin = b.equityBins - 1
	}
	potentialBin := int(pot.ImprovePct * float64(b.potentialBins))
	if potentialBin >= b.potentialBins {
		potentialBin = b.potentialBins - 1
	}

	bucketID := equityBin*b.potentialBins + potentialBin
	b.cache[combo] = bucketID
	return bucketID
}

// BucketRange assigns every combo in a weighted range in one pass,
// returning the combo-to-bucket mapping.
func (b *Bucketer) BucketRange(r notation.Range) map[notation.Combo]int {
	out := make(map[notation.Combo]int, len(r))
	for _, combo := range r.Combos() {
		out[combo] = b.Bucket(combo)
	}
	return out
}

// BucketInfo returns a human-readable description of a bucket's ranges.
func (b *Bucketer) BucketInfo(bucketID int) string {
	equityBin := bucketID / b.potentialBins
	potentialBin := bucketID % b.potentialBins

	equityMin := float64(equityBin) / float64(b.equityBins)
	equityMax := float64(equityBin+1) / float64(b.equityBins)
	potentialMin := float64(potentialBin) / float64(b.potentialBins)
	potentialMax := float64(potentialBin+1) / float64(b.potentialBins)

	return fmt.Sprintf("Bucket %d: Equity [%.2f-%.2f], Potential [%.2f-%.2f]",
		bucketID, equityMin, equityMax, potentialMin, potentialMax)
}

// NumBuckets returns the total bucket count after grid rounding.
func (b *Bucketer) NumBuckets() int {
	return b.equityBins * b.potentialBins
}

// ClearCache drops memoized assignments, e.g. after changing boards.
func (b *Bucketer) ClearCache() {
	b.cache = make(map[notation.Combo]int)
}
