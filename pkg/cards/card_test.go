package cards

import "testing"

func TestParseCard(t *testing.T) {
	tests := []struct {
		input string
		rank  Rank
		suit  Suit
	}{
		{"As", Ace, Spades},
		{"Kh", King, Hearts},
		{"Td", Ten, Diamonds},
		{"2c", Two, Clubs},
		{"9S", Nine, Spades},
	}

	for _, tt := range tests {
		c, err := ParseCard(tt.input)
		if err != nil {
			t.Errorf("ParseCard(%q) error = %v", tt.input, err)
			continue
		}
		if c.Rank() != tt.rank || c.Suit() != tt.suit {
			t.Errorf("ParseCard(%q) = rank %v suit %v, want %v %v", tt.input, c.Rank(), c.Suit(), tt.rank, tt.suit)
		}
	}
}

func TestParseCard_Invalid(t *testing.T) {
	for _, input := range []string{"", "A", "Asd", "Xs", "Az"} {
		if _, err := ParseCard(input); err == nil {
			t.Errorf("ParseCard(%q) expected error", input)
		}
	}
}

func TestCardRoundTrip(t *testing.T) {
	for c := Card(0); c < NumCards; c++ {
		parsed, err := ParseCard(c.String())
		if err != nil {
			t.Fatalf("ParseCard(%q) error = %v", c.String(), err)
		}
		if parsed != c {
			t.Errorf("round trip of card %d gave %d", c, parsed)
		}
	}
}

func TestParseCards(t *testing.T) {
	cs, err := ParseCards("AsKhQd")
	if err != nil {
		t.Fatalf("ParseCards error = %v", err)
	}
	if len(cs) != 3 {
		t.Fatalf("got %d cards, want 3", len(cs))
	}
	if cs[0].String() != "As" || cs[2].String() != "Qd" {
		t.Errorf("unexpected cards %v", cs)
	}

	if _, err := ParseCards("AsK"); err == nil {
		t.Error("expected error for odd-length string")
	}
}

func TestBoardValidate(t *testing.T) {
	flop, _ := ParseCards("Kh9s4c")
	if err := Board(flop).Validate(); err != nil {
		t.Errorf("valid flop rejected: %v", err)
	}

	dup, _ := ParseCards("KhKh4c")
	if err := Board(dup).Validate(); err == nil {
		t.Error("expected error for duplicate board card")
	}

	short, _ := ParseCards("Kh9s")
	if err := Board(short).Validate(); err == nil {
		t.Error("expected error for 2-card board")
	}
}

func TestBoardState(t *testing.T) {
	tests := []struct {
		board string
		state BoardState
	}{
		{"Kh9s4c", Flop},
		{"Kh9s4c7d", Turn},
		{"Kh9s4c7d2s", River},
	}
	for _, tt := range tests {
		cs, _ := ParseCards(tt.board)
		if got := Board(cs).State(); got != tt.state {
			t.Errorf("Board(%s).State() = %v, want %v", tt.board, got, tt.state)
		}
	}
}

func TestMask(t *testing.T) {
	flop, _ := ParseCards("Kh9s4c")
	m := BoardMask(flop...)
	for _, c := range flop {
		if !m.Has(c) {
			t.Errorf("mask missing %s", c)
		}
	}

	remaining := RemainingCards(m)
	if len(remaining) != 49 {
		t.Errorf("RemainingCards after flop = %d, want 49", len(remaining))
	}
	for _, c := range remaining {
		if m.Has(c) {
			t.Errorf("remaining card %s is in the mask", c)
		}
	}
}
