package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

const sampleHCL = `
game {
  starting_pot    = 10
  effective_stack = 90
  rake_rate       = 0.05
  rake_cap        = 3
  board           = "Kh9s4c"
}

range "oop" {
  hands = "AA,KK:0.5"
}

range "ip" {
  hands = "QQ-JJ,AKs"
}

street "flop" {
  bet   = "33%, 75%"
  raise = "100%"
}

street "turn" {
  bet   = "75%"
  raise = "100%"
  donk  = "33%"
}

street "river" {
  bet   = "75%, allin"
  raise = "geo(1,100%)"
}

options {
  add_allin_threshold   = 0.15
  force_allin_threshold = 0.2
  merging_threshold     = 0.1
}

solver {
  iterations            = 500
  target_exploitability = 0.3
  use_parallel          = true
}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	doc, err := Load(writeConfig(t, sampleHCL))
	require.NoError(t, err)

	tc, err := doc.TreeConfig()
	require.NoError(t, err)
	assert.Equal(t, cards.Flop, tc.InitialState)
	assert.Equal(t, 10.0, tc.StartingPot)
	assert.Equal(t, 90.0, tc.EffectiveStack)
	assert.Equal(t, 0.05, tc.RakeRate)
	assert.Equal(t, 3.0, tc.RakeCap)
	assert.Equal(t, 0.15, tc.AddAllInThreshold)

	assert.Len(t, tc.Flop.Bet, 2)
	assert.Len(t, tc.Turn.Donk, 1)
	require.Len(t, tc.River.Bet, 2)
	assert.Equal(t, tree.AllIn, tc.River.Bet[1].Kind)
	require.Len(t, tc.River.Raise, 1)
	assert.Equal(t, tree.Geometric, tc.River.Raise[0].Kind)

	cc, err := doc.CardConfig()
	require.NoError(t, err)
	assert.Nil(t, cc.Turn)
	assert.Len(t, cc.RangeOOP, 12)
	assert.Len(t, cc.RangeIP, 16)

	require.NotNil(t, doc.Solver)
	assert.Equal(t, 500, doc.Solver.Iterations)
	assert.True(t, doc.Solver.UseParallel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}

func TestLoad_MissingRange(t *testing.T) {
	body := `
game {
  starting_pot    = 10
  effective_stack = 90
  board           = "Kh9s4c"
}

range "oop" {
  hands = "AA"
}
`
	doc, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	_, err = doc.CardConfig()
	require.Error(t, err)
}

func TestLoad_BareBetSizeRejected(t *testing.T) {
	body := `
game {
  starting_pot    = 10
  effective_stack = 90
  board           = "Kh9s4c"
}

range "oop" { hands = "AA" }
range "ip" { hands = "KK" }

street "flop" {
  bet = "50"
}
`
	doc, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	_, err = doc.TreeConfig()
	require.Error(t, err)
}
