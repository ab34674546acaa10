package notation

import "testing"

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario("OOP:AA:S90/IP:QQ-JJ:S90|P10|Kh9s4c|>OOP")
	if err != nil {
		t.Fatalf("ParseScenario error = %v", err)
	}
	if len(sc.Players) != 2 {
		t.Fatalf("got %d players, want 2", len(sc.Players))
	}
	if sc.Players[0].Position != OOP || sc.Players[0].Stack != 90 {
		t.Errorf("player 0 = %+v", sc.Players[0])
	}
	if len(sc.Players[0].Range) != 6 {
		t.Errorf("OOP range has %d combos, want 6", len(sc.Players[0].Range))
	}
	if sc.Pot != 10 {
		t.Errorf("pot = %v, want 10", sc.Pot)
	}
	if len(sc.Board) != 3 || sc.Street != Flop {
		t.Errorf("board = %v street = %v", sc.Board, sc.Street)
	}
	if sc.ToAct != 0 {
		t.Errorf("to act = %d, want 0 (OOP)", sc.ToAct)
	}
}

func TestParseScenario_WithHistory(t *testing.T) {
	sc, err := ParseScenario("OOP:AA:S94/IP:KK:S94|P26|Kh9s4c|b10c|>IP")
	if err != nil {
		t.Fatalf("ParseScenario error = %v", err)
	}
	if len(sc.ActionHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(sc.ActionHistory))
	}
	if sc.ActionHistory[0].Type != Bet || sc.ActionHistory[0].Chips != 10 {
		t.Errorf("history[0] = %+v", sc.ActionHistory[0])
	}
	if sc.ActionHistory[1].Type != Call {
		t.Errorf("history[1] = %+v", sc.ActionHistory[1])
	}
}

func TestParseScenario_SpecificCards(t *testing.T) {
	sc, err := ParseScenario("OOP:AsKd:S100/IP:??:S100|P20|Qh7s2c|>OOP")
	if err != nil {
		t.Fatalf("ParseScenario error = %v", err)
	}
	if len(sc.Players[0].Range) != 1 {
		t.Errorf("specific hand should be a single combo, got %d", len(sc.Players[0].Range))
	}
	if len(sc.Players[1].Range) != 0 {
		t.Errorf("?? should be an empty range, got %d", len(sc.Players[1].Range))
	}
}

func TestParseScenario_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"OOP:AA:S90|P10|Kh9s4c",
		"OOP:AA:S90/IP:KK:S90|P10|Kh9s4c|>BTN",
		"OOP:AA:S90/IP:KK:S90|X10|Kh9s4c|>OOP",
	} {
		if _, err := ParseScenario(input); err == nil {
			t.Errorf("ParseScenario(%q) expected error", input)
		}
	}
}

func TestActionString(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Action{Type: Check}, "x"},
		{Action{Type: Call}, "c"},
		{Action{Type: Fold}, "f"},
		{Action{Type: Bet, Chips: 10}, "b10.00"},
		{Action{Type: Raise, Chips: 30}, "r30.00"},
	}
	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.action, got, tt.want)
		}
	}
}
