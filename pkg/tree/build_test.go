package tree

import (
	"testing"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

func simpleConfig() TreeConfig {
	opts := StreetOptions{
		BetSizeOptions: BetSizeOptions{
			Bet:   []BetSize{{Kind: PotRelative, Ratio: 1.0}},
			Raise: []BetSize{{Kind: PotRelative, Ratio: 1.0}},
		},
	}
	return TreeConfig{
		InitialState:        cards.River,
		StartingPot:         10,
		EffectiveStack:      90,
		RakeRate:            0,
		RakeCap:             0,
		Flop:                opts,
		Turn:                opts,
		River:               opts,
		AddAllInThreshold:   0.15,
		ForceAllInThreshold: 0.5,
		MergingThreshold:    0.1,
	}
}

func TestBuild_RootIsPlayerNode(t *testing.T) {
	tr, err := Build(simpleConfig())
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	root := tr.Root()
	if root.Kind != PlayerNodeKind {
		t.Fatalf("root kind = %v, want PlayerNodeKind", root.Kind)
	}
	if root.Turn != OOP {
		t.Errorf("root turn = %v, want OOP", root.Turn)
	}
}

func TestBuild_RiverFoldIsTerminal(t *testing.T) {
	tr, err := Build(simpleConfig())
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	root := tr.Root()

	var foldChild *Node
	for _, c := range tr.Children(root) {
		if c.PrevAction.Type == notation.Bet {
			for _, gc := range tr.Children(&c) {
				if gc.PrevAction.Type == notation.Fold {
					cp := gc
					foldChild = &cp
				}
			}
		}
	}
	if foldChild == nil {
		t.Fatal("expected a fold child reachable after a bet")
	}
	if !foldChild.IsTerminal() {
		t.Errorf("fold node should be terminal")
	}
	if foldChild.Terminal != TerminalFold {
		t.Errorf("terminal kind = %v, want TerminalFold", foldChild.Terminal)
	}
}

func TestBuild_CheckCheckIsShowdown(t *testing.T) {
	tr, err := Build(simpleConfig())
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	root := tr.Root()

	var checkChild *Node
	for _, c := range tr.Children(root) {
		if c.PrevAction.Type == notation.Check {
			cp := c
			checkChild = &cp
		}
	}
	if checkChild == nil {
		t.Fatal("expected a check child at root")
	}

	var secondCheck *Node
	for _, c := range tr.Children(checkChild) {
		if c.PrevAction.Type == notation.Check {
			cp := c
			secondCheck = &cp
		}
	}
	if secondCheck == nil {
		t.Fatal("expected a check child after check")
	}
	if !secondCheck.IsTerminal() || secondCheck.Terminal != TerminalShowdownNormal {
		t.Errorf("check-check should reach a showdown terminal, got %+v", secondCheck)
	}
}

func TestBuild_ChildrenContiguous(t *testing.T) {
	tr, err := Build(simpleConfig())
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	for i := range tr.Nodes {
		n := &tr.Nodes[i]
		if n.NumChildren == 0 {
			continue
		}
		if n.ChildrenStart <= int32(i) {
			t.Errorf("node %d: ChildrenStart %d must be > parent index", i, n.ChildrenStart)
		}
		if int(n.ChildrenStart)+int(n.NumChildren) > len(tr.Nodes) {
			t.Errorf("node %d: children run exceeds arena length", i)
		}
	}
}

func TestBuild_AllInMerging(t *testing.T) {
	cfg := simpleConfig()
	cfg.EffectiveStack = 10 // pot-sized bet (10) already equals the stack
	tr, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	root := tr.Root()

	allinCount := 0
	for _, c := range tr.Children(root) {
		if c.PrevAction.Type == notation.AllIn {
			allinCount++
		}
	}
	if allinCount != 1 {
		t.Errorf("expected exactly 1 all-in child at root, got %d", allinCount)
	}
}

func TestValidateConfig_Errors(t *testing.T) {
	cfg := simpleConfig()
	cfg.RakeRate = 1.5
	if _, err := Build(cfg); err == nil {
		t.Error("expected error for rake_rate out of bounds")
	}

	cfg = simpleConfig()
	cfg.EffectiveStack = 0
	if _, err := Build(cfg); err == nil {
		t.Error("expected error for zero effective stack")
	}
}

func TestBetSizeResolve(t *testing.T) {
	bs := BetSize{Kind: PotRelative, Ratio: 0.5}
	if got := bs.Resolve(100, 0, 1000); got != 50 {
		t.Errorf("PotRelative(0.5).Resolve(100) = %v, want 50", got)
	}

	allin := BetSize{Kind: AllIn}
	if got := allin.Resolve(100, 0, 250); got != 250 {
		t.Errorf("AllIn.Resolve() = %v, want 250", got)
	}
}

func TestParseBetSizeList(t *testing.T) {
	sizes, err := ParseBetSizeList("50%, 75%, allin")
	if err != nil {
		t.Fatalf("ParseBetSizeList error = %v", err)
	}
	if len(sizes) != 3 {
		t.Fatalf("got %d sizes, want 3", len(sizes))
	}
	if sizes[0].Kind != PotRelative || sizes[0].Ratio != 0.5 {
		t.Errorf("sizes[0] = %+v, want PotRelative(0.5)", sizes[0])
	}
	if sizes[2].Kind != AllIn {
		t.Errorf("sizes[2] = %+v, want AllIn", sizes[2])
	}
}

func TestParseBetSizeList_RejectsBareNumber(t *testing.T) {
	if _, err := ParseBetSizeList("50"); err == nil {
		t.Error("expected error for bare numeric bet size")
	}
}
