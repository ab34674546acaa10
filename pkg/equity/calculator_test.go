package equity

import (
	"testing"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

func combo(t *testing.T, s string) notation.Combo {
	t.Helper()
	cs, err := cards.ParseCards(s)
	if err != nil || len(cs) != 2 {
		t.Fatalf("bad combo %q: %v", s, err)
	}
	return notation.NewCombo(cs[0], cs[1])
}

func board(t *testing.T, s string) cards.Board {
	t.Helper()
	cs, err := cards.ParseCards(s)
	if err != nil {
		t.Fatalf("bad board %q: %v", s, err)
	}
	return cards.Board(cs)
}

func TestRiverEquity_Dominated(t *testing.T) {
	c := NewCalculator()
	opp, _ := notation.ParseRange("QQ")

	r := c.CalculateEquity(combo(t, "AsAd"), board(t, "Kh9s4c7d2s"), opp)
	if r.Equity != 1.0 {
		t.Errorf("AA vs QQ equity = %v, want 1.0", r.Equity)
	}
	if r.WinPct != 1.0 || r.TiePct != 0 {
		t.Errorf("win/tie = %v/%v, want 1/0", r.WinPct, r.TiePct)
	}
}

func TestRiverEquity_Tie(t *testing.T) {
	c := NewCalculator()
	opp := notation.Range{combo(t, "AhAc"): 1.0}

	r := c.CalculateEquity(combo(t, "AsAd"), board(t, "Kh9s4c7d2s"), opp)
	if r.TiePct != 1.0 {
		t.Errorf("AA vs AA tie = %v, want 1.0", r.TiePct)
	}
	if r.Equity != 0.5 {
		t.Errorf("AA vs AA equity = %v, want 0.5", r.Equity)
	}
}

func TestRiverEquity_Weighted(t *testing.T) {
	c := NewCalculator()
	// Opponent is the better set half the time: equity is weighted, not
	// combo-counted.
	opp := notation.Range{
		combo(t, "KsKd"): 1.0, // top set beats bottom set
		combo(t, "QsQd"): 1.0, // underpair loses
	}
	r := c.CalculateEquity(combo(t, "4d4h"), board(t, "Kh9s4c7d2s"), opp)
	if r.Equity != 0.5 {
		t.Errorf("weighted equity = %v, want 0.5", r.Equity)
	}

	opp[combo(t, "QsQd")] = 3.0
	r = c.CalculateEquity(combo(t, "4d4h"), board(t, "Kh9s4c7d2s"), opp)
	if r.Equity != 0.75 {
		t.Errorf("reweighted equity = %v, want 0.75", r.Equity)
	}
}

func TestEquity_BlockedOpponent(t *testing.T) {
	c := NewCalculator()
	// Opponent's only combo shares a card with the hero: no valid matchup.
	opp := notation.Range{combo(t, "AsKs"): 1.0}
	r := c.CalculateEquity(combo(t, "AsAd"), board(t, "Kh9s4c7d2s"), opp)
	if r.Equity != 0.5 {
		t.Errorf("equity with no valid matchups = %v, want the 0.5 fallback", r.Equity)
	}
}

func TestTurnEquity_DrawHasOuts(t *testing.T) {
	c := NewCalculator()
	opp, _ := notation.ParseRange("KK")

	// Flush draw on the turn vs an overpair: some rivers win, most lose.
	r := c.CalculateEquity(combo(t, "Ah7h"), board(t, "Kh9h4c2d"), opp)
	if r.Equity <= 0 || r.Equity >= 0.5 {
		t.Errorf("draw equity = %v, want between 0 and 0.5", r.Equity)
	}
}

func TestPotential_FlopOnly(t *testing.T) {
	c := NewCalculator()
	opp, _ := notation.ParseRange("99")

	if p := c.CalculatePotential(combo(t, "AhKh"), board(t, "Kh9s4c7d"), opp); p != (PotentialResult{}) {
		t.Errorf("turn potential should be zero, got %+v", p)
	}
}

func TestPotential_DrawExceedsMadeHand(t *testing.T) {
	c := NewCalculator()
	opp, _ := notation.ParseRange("99,88")

	draw := c.CalculatePotential(combo(t, "Ah7h"), board(t, "Kh9h4c"), opp)
	made := c.CalculatePotential(combo(t, "KsKd"), board(t, "Kh9h4c"), opp)
	if draw.ImprovePct <= made.ImprovePct {
		t.Errorf("draw potential %v should exceed made-hand potential %v", draw.ImprovePct, made.ImprovePct)
	}
}
