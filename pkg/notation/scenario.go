package notation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bkushigian/postflop-solver/pkg/cards"
)

// PlayerRange is one player's range and remaining stack at the start of a
// scenario.
type PlayerRange struct {
	Position Position
	Range    Range
	Stack    float64
}

// Scenario describes a postflop spot to build a tree and game around: both
// players' ranges, the starting pot and stacks, and the board dealt so far.
type Scenario struct {
	Players       []PlayerRange
	Pot           float64
	Board         cards.Board
	ActionHistory []Action
	ToAct         int
	Street        Street
}

// ParseScenario parses a scenario string of the form
// "<players>|<pot>|<board>|[<history>|]<action>".
// Example: "OOP:AA,KK:S97/IP:QQ-JJ,AKs:S97|P20|Kh9s4c|>OOP"
// Example with history: "OOP:AA:S94/IP:KK:S94|P26|Kh9s4c|b10|>IP"
func ParseScenario(s string) (*Scenario, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty scenario string")
	}

	parts := strings.Split(s, "|")
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid scenario format: expected at least 4 parts separated by |, got %d", len(parts))
	}

	playersStr := parts[0]
	potStr := parts[1]
	boardStr := parts[2]

	var historyStr, actionStr string
	switch len(parts) {
	case 4:
		actionStr = parts[3]
	case 5:
		historyStr = parts[3]
		actionStr = parts[4]
	default:
		return nil, fmt.Errorf("invalid scenario format: too many parts (%d)", len(parts))
	}

	players, err := parsePlayers(playersStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing players: %w", err)
	}

	pot, err := parseAmount(potStr, 'P')
	if err != nil {
		return nil, fmt.Errorf("error parsing pot: %w", err)
	}

	board, err := parseBoard(boardStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing board: %w", err)
	}
	if len(board) > 0 {
		if err := board.Validate(); err != nil {
			return nil, fmt.Errorf("invalid board: %w", err)
		}
	}

	history, err := parseHistory(historyStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing history: %w", err)
	}

	toAct, err := parseToAct(actionStr, players)
	if err != nil {
		return nil, fmt.Errorf("error parsing action: %w", err)
	}

	street := Flop
	if len(board) > 0 {
		street = Street(board.State())
	}

	return &Scenario{
		Players:       players,
		Pot:           pot,
		Board:         board,
		ActionHistory: history,
		ToAct:         toAct,
		Street:        street,
	}, nil
}

// parsePlayers parses "POS:RANGE:STACK/POS:RANGE:STACK".
func parsePlayers(playersStr string) ([]PlayerRange, error) {
	playersStr = strings.TrimSpace(playersStr)
	if playersStr == "" {
		return nil, fmt.Errorf("empty players string")
	}

	playerParts := strings.Split(playersStr, "/")
	players := make([]PlayerRange, 0, len(playerParts))
	for _, playerStr := range playerParts {
		player, err := parsePlayer(playerStr)
		if err != nil {
			return nil, fmt.Errorf("error parsing player %q: %w", playerStr, err)
		}
		players = append(players, player)
	}
	return players, nil
}

// parsePlayer parses a single "POS:RANGE:STACK" component. RANGE may be a
// specific two-card hand (e.g. "AsKd") or range notation (e.g. "AA,KK:0.5").
func parsePlayer(playerStr string) (PlayerRange, error) {
	playerStr = strings.TrimSpace(playerStr)
	parts := strings.Split(playerStr, ":")
	if len(parts) < 3 {
		return PlayerRange{}, fmt.Errorf("invalid player format %q (expected POS:RANGE:STACK)", playerStr)
	}

	position := Position(strings.TrimSpace(parts[0]))
	stackStr := strings.TrimSpace(parts[len(parts)-1])
	rangeStr := strings.TrimSpace(strings.Join(parts[1:len(parts)-1], ":"))

	stack, err := parseAmount(stackStr, 'S')
	if err != nil {
		return PlayerRange{}, fmt.Errorf("invalid stack: %w", err)
	}

	var r Range
	if rangeStr == "??" {
		r = Range{}
	} else if len(rangeStr) == 4 && isSpecificCards(rangeStr) {
		c1, err := cards.ParseCard(rangeStr[0:2])
		if err != nil {
			return PlayerRange{}, fmt.Errorf("error parsing card1 from %q: %w", rangeStr, err)
		}
		c2, err := cards.ParseCard(rangeStr[2:4])
		if err != nil {
			return PlayerRange{}, fmt.Errorf("error parsing card2 from %q: %w", rangeStr, err)
		}
		r = Range{NewCombo(c1, c2): 1.0}
	} else {
		r, err = ParseRange(rangeStr)
		if err != nil {
			return PlayerRange{}, fmt.Errorf("error parsing range %q: %w", rangeStr, err)
		}
	}

	return PlayerRange{Position: position, Range: r, Stack: stack}, nil
}

// isSpecificCards reports whether s looks like two concrete hole cards.
func isSpecificCards(s string) bool {
	if len(s) != 4 {
		return false
	}
	ranks := "AKQJT98765432"
	suits := "shdc"
	return strings.ContainsRune(ranks, rune(s[0])) &&
		strings.ContainsRune(suits, rune(s[1])) &&
		strings.ContainsRune(ranks, rune(s[2])) &&
		strings.ContainsRune(suits, rune(s[3]))
}

// parseAmount parses a value prefixed by a single letter, e.g. "P20" -> 20,
// "S97" -> 97.
func parseAmount(s string, prefix byte) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != prefix {
		return 0, fmt.Errorf("invalid format %q (expected %c{amount})", s, prefix)
	}
	v, err := strconv.ParseFloat(s[1:], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// parseBoard parses "Kh9s4c", "Kh9s4c/Js", or "Kh9s4c/Js/3d". Empty or "-"
// means no board dealt yet.
func parseBoard(boardStr string) (cards.Board, error) {
	boardStr = strings.TrimSpace(boardStr)
	if boardStr == "" || boardStr == "-" {
		return nil, nil
	}
	boardStr = strings.ReplaceAll(boardStr, "/", "")

	cs, err := cards.ParseCards(boardStr)
	if err != nil {
		return nil, err
	}
	if len(cs) != 3 && len(cs) != 4 && len(cs) != 5 {
		return nil, fmt.Errorf("invalid board %q (must have 3, 4, or 5 cards)", boardStr)
	}
	return cards.Board(cs), nil
}

// parseHistory parses an action sequence like "b10c" or "xr30c".
func parseHistory(historyStr string) ([]Action, error) {
	historyStr = strings.TrimSpace(historyStr)
	if historyStr == "" {
		return nil, nil
	}

	var actions []Action
	i := 0
	for i < len(historyStr) {
		c := historyStr[i]
		switch c {
		case 'x', 'X':
			actions = append(actions, Action{Type: Check})
			i++
		case 'c', 'C':
			actions = append(actions, Action{Type: Call})
			i++
		case 'f', 'F':
			actions = append(actions, Action{Type: Fold})
			i++
		case 'b', 'B':
			amount, consumed, err := parseActionAmount(historyStr[i+1:])
			if err != nil {
				return nil, fmt.Errorf("error parsing bet amount at position %d: %w", i, err)
			}
			actions = append(actions, Action{Type: Bet, Chips: amount})
			i += 1 + consumed
		case 'r', 'R':
			amount, consumed, err := parseActionAmount(historyStr[i+1:])
			if err != nil {
				return nil, fmt.Errorf("error parsing raise amount at position %d: %w", i, err)
			}
			actions = append(actions, Action{Type: Raise, Chips: amount})
			i += 1 + consumed
		case 'a', 'A':
			amount, consumed, err := parseActionAmount(historyStr[i+1:])
			if err != nil {
				return nil, fmt.Errorf("error parsing allin amount at position %d: %w", i, err)
			}
			actions = append(actions, Action{Type: AllIn, Chips: amount})
			i += 1 + consumed
		default:
			return nil, fmt.Errorf("invalid action character %q at position %d", c, i)
		}
	}
	return actions, nil
}

// parseActionAmount parses the numeric amount following a bet/raise/allin
// character, returning the amount and how many bytes it consumed.
func parseActionAmount(s string) (float64, int, error) {
	if len(s) == 0 {
		return 0, 0, fmt.Errorf("missing amount after bet/raise/allin")
	}
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' {
			end++
		} else {
			break
		}
	}
	if end == 0 {
		return 0, 0, fmt.Errorf("missing numeric amount")
	}
	amount, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid amount %q: %w", s[:end], err)
	}
	return amount, end, nil
}

// parseToAct parses ">OOP" / ">IP" into the acting player's index.
func parseToAct(actionStr string, players []PlayerRange) (int, error) {
	actionStr = strings.TrimSpace(actionStr)
	if len(actionStr) < 2 || actionStr[0] != '>' {
		return 0, fmt.Errorf("invalid action format %q (expected >{POSITION})", actionStr)
	}
	position := Position(actionStr[1:])
	for i, p := range players {
		if p.Position == position {
			return i, nil
		}
	}
	return 0, fmt.Errorf("position %q not found in players", position)
}
