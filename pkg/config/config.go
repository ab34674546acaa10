// Package config loads solver run definitions from HCL files: the betting
// abstraction, the spot's ranges and board, and solver options, each as a
// top-level block. CLI flags override decoded values; see cmd/.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// Document is the decoded form of a solver HCL file.
type Document struct {
	Game    GameBlock      `hcl:"game,block"`
	Ranges  []RangeBlock   `hcl:"range,block"`
	Streets []StreetBlock  `hcl:"street,block"`
	Options *OptionsBlock  `hcl:"options,block"`
	Solver  *SolverBlock   `hcl:"solver,block"`
}

// GameBlock describes the spot: pot, stacks, rake, and the board.
type GameBlock struct {
	StartingPot    float64 `hcl:"starting_pot"`
	EffectiveStack float64 `hcl:"effective_stack"`
	RakeRate       float64 `hcl:"rake_rate,optional"`
	RakeCap        float64 `hcl:"rake_cap,optional"`
	Board          string  `hcl:"board"`
}

// RangeBlock holds one player's range notation, labeled "oop" or "ip".
type RangeBlock struct {
	Player string `hcl:"player,label"`
	Hands  string `hcl:"hands"`
}

// StreetBlock holds one street's bet-size options, labeled
// "flop"/"turn"/"river". Values use the bet-size token syntax: "50%",
// "geo(3,100%)", "allin".
type StreetBlock struct {
	Street string `hcl:"street,label"`
	Bet    string `hcl:"bet,optional"`
	Raise  string `hcl:"raise,optional"`
	Donk   string `hcl:"donk,optional"`
}

// OptionsBlock holds the tree-shaping thresholds.
type OptionsBlock struct {
	AddAllInThreshold   float64 `hcl:"add_allin_threshold,optional"`
	ForceAllInThreshold float64 `hcl:"force_allin_threshold,optional"`
	MergingThreshold    float64 `hcl:"merging_threshold,optional"`
}

// SolverBlock holds run parameters. Load decodes it; the CLI does not read
// it and takes these values from its own flags.
type SolverBlock struct {
	Iterations      int     `hcl:"iterations,optional"`
	TargetExploit   float64 `hcl:"target_exploitability,optional"`
	CompressedMemory bool   `hcl:"compressed_memory,optional"`
	UseParallel     bool    `hcl:"use_parallel,optional"`
}

// Load parses and decodes a solver HCL file.
func Load(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var doc Document
	diags = gohcl.DecodeBody(file.Body, nil, &doc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	return &doc, nil
}

// TreeConfig assembles the document into the engine's tree configuration.
func (d *Document) TreeConfig() (tree.TreeConfig, error) {
	board, err := cards.ParseCards(d.Game.Board)
	if err != nil {
		return tree.TreeConfig{}, fmt.Errorf("invalid board %q: %w", d.Game.Board, err)
	}

	cfg := tree.TreeConfig{
		InitialState:   cards.Board(board).State(),
		StartingPot:    d.Game.StartingPot,
		EffectiveStack: d.Game.EffectiveStack,
		RakeRate:       d.Game.RakeRate,
		RakeCap:        d.Game.RakeCap,
	}
	if d.Options != nil {
		cfg.AddAllInThreshold = d.Options.AddAllInThreshold
		cfg.ForceAllInThreshold = d.Options.ForceAllInThreshold
		cfg.MergingThreshold = d.Options.MergingThreshold
	}

	for _, sb := range d.Streets {
		opts, err := sb.streetOptions()
		if err != nil {
			return tree.TreeConfig{}, err
		}
		switch strings.ToLower(sb.Street) {
		case "flop":
			cfg.Flop = opts
		case "turn":
			cfg.Turn = opts
		case "river":
			cfg.River = opts
		default:
			return tree.TreeConfig{}, fmt.Errorf("unknown street block %q", sb.Street)
		}
	}
	return cfg, nil
}

func (sb *StreetBlock) streetOptions() (tree.StreetOptions, error) {
	var opts tree.StreetOptions
	var err error
	if opts.Bet, err = tree.ParseBetSizeList(sb.Bet); err != nil {
		return opts, fmt.Errorf("street %s: %w", sb.Street, err)
	}
	if opts.Raise, err = tree.ParseBetSizeList(sb.Raise); err != nil {
		return opts, fmt.Errorf("street %s: %w", sb.Street, err)
	}
	if opts.Donk, err = tree.ParseBetSizeList(sb.Donk); err != nil {
		return opts, fmt.Errorf("street %s: %w", sb.Street, err)
	}
	return opts, nil
}

// CardConfig assembles the document's board and range blocks.
func (d *Document) CardConfig() (*game.CardConfig, error) {
	board, err := cards.ParseCards(d.Game.Board)
	if err != nil {
		return nil, fmt.Errorf("invalid board %q: %w", d.Game.Board, err)
	}
	if len(board) < 3 || len(board) > 5 {
		return nil, fmt.Errorf("board %q must have 3-5 cards", d.Game.Board)
	}

	cc := &game.CardConfig{}
	copy(cc.Flop[:], board[:3])
	if len(board) >= 4 {
		c := board[3]
		cc.Turn = &c
	}
	if len(board) == 5 {
		c := board[4]
		cc.River = &c
	}

	for _, rb := range d.Ranges {
		r, err := notation.ParseRange(rb.Hands)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", rb.Player, err)
		}
		switch strings.ToLower(rb.Player) {
		case "oop":
			cc.RangeOOP = r
		case "ip":
			cc.RangeIP = r
		default:
			return nil, fmt.Errorf("unknown range label %q (want \"oop\" or \"ip\")", rb.Player)
		}
	}
	if cc.RangeOOP == nil || cc.RangeIP == nil {
		return nil, fmt.Errorf("config must define both an \"oop\" and an \"ip\" range block")
	}
	return cc, nil
}
