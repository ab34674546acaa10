package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bkushigian/postflop-solver/pkg/abstraction"
	"github.com/bkushigian/postflop-solver/pkg/config"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/persist"
	"github.com/bkushigian/postflop-solver/pkg/solver"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Solve   SolveCmd   `cmd:"" help:"build a game tree, solve it, and optionally save a snapshot"`
	Resolve ResolveCmd `cmd:"" help:"load a partial snapshot and reconstruct the missing streets"`
	Inspect InspectCmd `cmd:"" help:"load a snapshot and print strategies along a line"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("postflop-solver"),
		kong.Description("postflop game-tree solver"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	if err := ctx.Run(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

type SolveCmd struct {
	Config   string `help:"path to an HCL run definition" type:"existingfile" optional:""`
	Scenario string `help:"inline scenario, e.g. 'OOP:AA:S90/IP:QQ-JJ:S90|P10|Kh9s4c|>OOP'" optional:""`

	Bet   string `help:"bet sizes for all streets when using --scenario" default:"50%, allin"`
	Raise string `help:"raise sizes for all streets when using --scenario" default:"100%"`
	Donk  string `help:"OOP donk-lead sizes when using --scenario" default:""`

	RakeRate float64 `help:"rake rate in [0,1]" default:"0"`
	RakeCap  float64 `help:"rake cap in chips" default:"0"`

	Iterations uint32  `help:"maximum CFR iterations" default:"1000"`
	Target     float64 `help:"stop once exploitability drops below this many chips" default:"0"`
	Compressed bool    `help:"use 16-bit compressed storage"`
	Parallel   bool    `help:"parallelize the solver over sibling subtrees"`
	DCFR       bool    `help:"use discounted CFR instead of CFR+"`
	Buckets    int     `help:"log an equity/potential bucket breakdown of both ranges" default:"0"`

	Out      string `help:"write a snapshot here after solving" optional:""`
	SaveMode string `help:"streets to include in the snapshot" enum:"flop,turn,river" default:"river"`
}

func (cmd *SolveCmd) Run() error {
	tc, cc, err := cmd.loadSpot()
	if err != nil {
		return err
	}
	if cmd.RakeRate != 0 {
		tc.RakeRate = cmd.RakeRate
	}
	if cmd.RakeCap != 0 {
		tc.RakeCap = cmd.RakeCap
	}

	at, err := tree.Build(tc)
	if err != nil {
		return err
	}
	g, err := game.Build(at, cc)
	if err != nil {
		return err
	}
	if err := g.AllocateMemory(cmd.Compressed); err != nil {
		return err
	}
	log.Info().
		Int("nodes", len(g.Nodes)).
		Bool("compressed", cmd.Compressed).
		Msg("arena built")

	if cmd.Buckets > 0 {
		logBuckets(g, cmd.Buckets)
	}

	params := solver.DefaultParams()
	if cmd.DCFR {
		params = solver.DCFRParams()
	}
	params.UseParallel = cmd.Parallel

	s, err := solver.New(g, params)
	if err != nil {
		return err
	}
	expl, err := s.Solve(cmd.Iterations, cmd.Target, cli.Debug)
	if err != nil {
		return err
	}
	log.Info().
		Uint32("iterations", s.Iterations()).
		Float64("exploitability", expl).
		Msg("solve finished")

	printNodeStrategy(g)

	if cmd.Out != "" {
		mode := parseSaveMode(cmd.SaveMode)
		if err := persist.SaveFile(cmd.Out, g, mode); err != nil {
			return err
		}
		log.Info().Str("path", cmd.Out).Str("mode", mode.String()).Msg("snapshot written")
	}
	return nil
}

// loadSpot resolves the tree and card configs from either an HCL file or
// an inline scenario string; flags fill in what the scenario cannot carry.
func (cmd *SolveCmd) loadSpot() (tree.TreeConfig, *game.CardConfig, error) {
	if cmd.Config != "" {
		doc, err := config.Load(cmd.Config)
		if err != nil {
			return tree.TreeConfig{}, nil, err
		}
		tc, err := doc.TreeConfig()
		if err != nil {
			return tree.TreeConfig{}, nil, err
		}
		cc, err := doc.CardConfig()
		if err != nil {
			return tree.TreeConfig{}, nil, err
		}
		return tc, cc, nil
	}
	if cmd.Scenario == "" {
		return tree.TreeConfig{}, nil, fmt.Errorf("either --config or --scenario is required")
	}

	sc, err := notation.ParseScenario(cmd.Scenario)
	if err != nil {
		return tree.TreeConfig{}, nil, err
	}
	return cmd.spotFromScenario(sc)
}

func (cmd *SolveCmd) spotFromScenario(sc *notation.Scenario) (tree.TreeConfig, *game.CardConfig, error) {
	if len(sc.Players) != 2 {
		return tree.TreeConfig{}, nil, fmt.Errorf("scenario must have exactly 2 players, got %d", len(sc.Players))
	}
	if len(sc.Board) < 3 {
		return tree.TreeConfig{}, nil, fmt.Errorf("scenario needs at least a flop")
	}

	var opts tree.StreetOptions
	var err error
	if opts.Bet, err = tree.ParseBetSizeList(cmd.Bet); err != nil {
		return tree.TreeConfig{}, nil, err
	}
	if opts.Raise, err = tree.ParseBetSizeList(cmd.Raise); err != nil {
		return tree.TreeConfig{}, nil, err
	}
	if opts.Donk, err = tree.ParseBetSizeList(cmd.Donk); err != nil {
		return tree.TreeConfig{}, nil, err
	}

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
		switch p.Position {
		case notation.OOP:
			cc.RangeOOP = p.Range
		case notation.IP:
			cc.RangeIP = p.Range
		default:
			return tree.TreeConfig{}, nil, fmt.Errorf("scenario positions must be OOP and IP, got %q", p.Position)
		}
	}
	if cc.RangeOOP == nil || cc.RangeIP == nil {
		return tree.TreeConfig{}, nil, fmt.Errorf("scenario must define both OOP and IP")
	}
	return tc, cc, nil
}

type ResolveCmd struct {
	In         string  `help:"path to a snapshot" required:"" type:"existingfile"`
	Iterations uint32  `help:"maximum CFR iterations for the unknown streets" default:"1000"`
	Target     float64 `help:"stop once exploitability drops below this many chips" default:"0"`
	Parallel   bool    `help:"parallelize the solver over sibling subtrees"`
	Out        string  `help:"write the reconstructed full snapshot here" optional:""`
}

func (cmd *ResolveCmd) Run() error {
	g, err := persist.LoadFile(cmd.In)
	if err != nil {
		return err
	}
	log.Info().
		Str("storage_mode", g.StorageMode.String()).
		Str("state", g.State.String()).
		Msg("snapshot loaded")

	params := solver.DefaultParams()
	params.UseParallel = cmd.Parallel
	if err := solver.ReloadAndResolve(g, params, cmd.Iterations, cmd.Target, cli.Debug); err != nil {
		return err
	}
	log.Info().Msg("resolve finished")

	printNodeStrategy(g)

	if cmd.Out != "" {
		if err := persist.SaveFile(cmd.Out, g, game.StorageRiver); err != nil {
			return err
		}
		log.Info().Str("path", cmd.Out).Msg("full snapshot written")
	}
	return nil
}

type InspectCmd struct {
	In   string `help:"path to a snapshot" required:"" type:"existingfile"`
	Line string `help:"slash-separated actions to walk before printing, e.g. 'x/b5.00'" optional:""`
}

func (cmd *InspectCmd) Run() error {
	g, err := persist.LoadFile(cmd.In)
	if err != nil {
		return err
	}
	log.Info().
		Str("storage_mode", g.StorageMode.String()).
		Str("state", g.State.String()).
		Int("nodes", len(g.Nodes)).
		Msg("snapshot loaded")

	if cmd.Line != "" {
		for _, tok := range strings.Split(cmd.Line, "/") {
			if tok == "" {
				continue
			}
			a, ok := findAction(g, tok)
			if !ok {
				return fmt.Errorf("no action %q at the current node (have %v)", tok, g.Actions())
			}
			if err := g.Play(a); err != nil {
				return err
			}
		}
	}
	printNodeStrategy(g)
	return nil
}

// findAction matches a token like "x", "c", "b5.00" against the cursor's
// available actions by their string form, with a prefix fallback so
// "b5" finds "b5.00".
func findAction(g *game.PostFlopGame, tok string) (notation.Action, bool) {
	for _, a := range g.Actions() {
		if a.String() == tok || strings.HasPrefix(a.String(), tok) {
			return a, true
		}
	}
	return notation.Action{}, false
}

// printNodeStrategy prints the aggregate action frequencies at the game's
// cursor, range-weighted, followed by the highest-weight combos per
// action.
func printNodeStrategy(g *game.PostFlopGame) {
	n := g.CurrentNode()
	if n.Kind() != tree.PlayerNodeKind {
		fmt.Println("no player decision at this node; nothing to print")
		return
	}

	strat, err := g.Strategy()
	if err != nil {
		log.Warn().Err(err).Msg("no strategy available")
		return
	}
	actions := n.Actions()
	player := n.ActingPlayer()
	combos := g.PrivateCards(player)
	rng := g.RangeAt(g.CurrentIndex(), player)
	numHands := len(combos)

	fmt.Printf("%s to act, pot %.1f\n", player, n.Src.Pot)
	for a, act := range actions {
		var freq, total float64
		for h, cb := range combos {
			w := rng[cb]
			freq += w * strat[a*numHands+h]
			total += w
		}
		if total > 0 {
			freq /= total
		}
		fmt.Printf("  %-10s %5.1f%%\n", act, freq*100)

		type hw struct {
			c notation.Combo
			p float64
		}
		top := make([]hw, 0, numHands)
		for h, cb := range combos {
			if p := strat[a*numHands+h]; p > 0.001 {
				top = append(top, hw{cb, p})
			}
		}
		sort.Slice(top, func(i, j int) bool { return top[i].p > top[j].p })
		if len(top) > 5 {
			top = top[:5]
		}
		for _, t := range top {
			fmt.Printf("      %s %5.1f%%\n", t.c, t.p*100)
		}
	}
}

// logBuckets reports an equity/potential bucket breakdown of both ranges,
// a quick texture diagnostic before a long solve.
func logBuckets(g *game.PostFlopGame, numBuckets int) {
	board := g.CardConfig.Board()
	oop := g.RangeAt(0, tree.OOP)
	ip := g.RangeAt(0, tree.IP)

	for _, side := range []struct {
		name  string
		r     notation.Range
		vs    notation.Range
	}{{"OOP", oop, ip}, {"IP", ip, oop}} {
		b := abstraction.NewBucketer(board, side.vs, numBuckets)
		counts := make(map[int]int)
		for _, cb := range side.r.Combos() {
			counts[b.Bucket(cb)]++
		}
		log.Info().
			Str("player", side.name).
			Int("combos", len(side.r)).
			Int("buckets_used", len(counts)).
			Int("buckets_max", numBuckets).
			Msg("range bucket breakdown")
	}
}

func parseSaveMode(s string) game.StorageMode {
	switch s {
	case "flop":
		return game.StorageFlop
	case "turn":
		return game.StorageTurn
	default:
		return game.StorageRiver
	}
}
