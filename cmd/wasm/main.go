//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/solver"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// current holds the in-flight solver so cancel() can reach it.
var current *solver.Solver

func main() {
	js.Global().Set("postflopSolver", makeAPI())
	select {}
}

func makeAPI() js.Value {
	api := map[string]interface{}{
		"solve":   js.FuncOf(solveWrapper),
		"cancel":  js.FuncOf(cancelWrapper),
		"version": "1.0.0",
	}
	return js.ValueOf(api)
}

// solveWrapper exposes solve(scenarioStr, iterations) as a Promise that
// resolves to {exploitability, actions: [{action, frequency}]} for the
// root node.
func solveWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{
			"error": "Usage: solve(scenarioStr, iterations)",
		})
	}
	scenarioStr := args[0].String()
	iterations := args[1].Int()

	promiseConstructor := js.Global().Get("Promise")
	handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) interface{} {
		resolve := promiseArgs[0]
		reject := promiseArgs[1]

		go func() {
			result, err := runSolve(scenarioStr, uint32(iterations))
			if err != nil {
				reject.Invoke(js.ValueOf(err.Error()))
				return
			}
			resolve.Invoke(js.ValueOf(result))
		}()
		return nil
	})
	return promiseConstructor.New(handler)
}

func cancelWrapper(this js.Value, args []js.Value) interface{} {
	if current != nil {
		current.Cancel()
	}
	return nil
}

func runSolve(scenarioStr string, iterations uint32) (map[string]interface{}, error) {
	sc, err := notation.ParseScenario(scenarioStr)
	if err != nil {
		return nil, err
	}
	if len(sc.Players) != 2 || len(sc.Board) < 3 {
		return nil, fmt.Errorf("scenario needs two players and at least a flop")
	}

	bet, err := tree.ParseBetSizeList("50%, allin")
	if err != nil {
		return nil, err
	}
	raise, err := tree.ParseBetSizeList("100%")
	if err != nil {
		return nil, err
	}
	opts := tree.StreetOptions{BetSizeOptions: tree.BetSizeOptions{Bet: bet, Raise: raise}}

	stack := sc.Players[0].Stack
	if sc.Players[1].Stack < stack {
		stack = sc.Players[1].Stack
	}
	tc := tree.TreeConfig{
		InitialState:   sc.Board.State(),
		StartingPot:    sc.Pot,
		EffectiveStack: stack,
		Flop:           opts,
		Turn:           opts,
		River:          opts,
	}

	cc := &game.CardConfig{}
	copy(cc.Flop[:], sc.Board[:3])
	if len(sc.Board) >= 4 {
		c := sc.Board[3]
		cc.Turn = &c
	}
	if len(sc.Board) == 5 {
		c := sc.Board[4]
		cc.River = &c
	}
	for _, p := range sc.Players {
		if p.Position == notation.OOP {
			cc.RangeOOP = p.Range
		} else {
			cc.RangeIP = p.Range
		}
	}

	at, err := tree.Build(tc)
	if err != nil {
		return nil, err
	}
	g, err := game.Build(at, cc)
	if err != nil {
		return nil, err
	}
	if err := g.AllocateMemory(true); err != nil {
		return nil, err
	}

	s, err := solver.New(g, solver.DefaultParams())
	if err != nil {
		return nil, err
	}
	current = s
	expl, err := s.Solve(iterations, 0, false)
	current = nil
	if err != nil {
		return nil, err
	}

	strat, err := g.Strategy()
	if err != nil {
		return nil, err
	}
	n := g.CurrentNode()
	combos := g.PrivateCards(n.ActingPlayer())
	rng := g.RangeAt(g.CurrentIndex(), n.ActingPlayer())
	numHands := len(combos)

	var actions []interface{}
	for a, act := range n.Actions() {
		var freq, total float64
		for h, cb := range combos {
			w := rng[cb]
			freq += w * strat[a*numHands+h]
			total += w
		}
		if total > 0 {
			freq /= total
		}
		actions = append(actions, map[string]interface{}{
			"action":    act.String(),
			"frequency": freq,
		})
	}

	return map[string]interface{}{
		"exploitability": expl,
		"actions":        actions,
	}, nil
}
