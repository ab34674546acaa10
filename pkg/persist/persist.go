// Package persist implements the versioned binary snapshot codec for
// PostFlopGame: a fixed header followed by a cbor-encoded struct graph
// whose pool payloads are carried as flat byte strings, so a street-slice
// save is a handful of contiguous copies rather than a per-element walk.
package persist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/game"
	"github.com/bkushigian/postflop-solver/pkg/notation"
	"github.com/bkushigian/postflop-solver/pkg/tree"
)

// Magic identifies a snapshot stream; Version gates decoding.
const (
	Magic   uint32 = 0x50464753 // "PFGS"
	Version uint16 = 1
)

// header is the hand-written fixed prefix: cbor carries the body, but the
// file magic, format version, storage mode, and compression flag live
// outside it so a reader can reject a stream before decoding anything.
type header struct {
	Magic      uint32
	Version    uint16
	Mode       uint8
	Compressed uint8
}

// snapshot is the cbor-encoded struct graph.
type snapshot struct {
	Tree         treeDTO      `cbor:"tree"`
	Card         cardDTO      `cbor:"card"`
	State        uint8        `cbor:"state"`
	Locks        []lockDTO    `cbor:"locks,omitempty"`
	Scales       [][3]float32 `cbor:"scales"`
	StrategyPool []byte       `cbor:"strategy_pool"`
	RegretPool   []byte       `cbor:"regret_pool"`
	IPCFVPool    []byte       `cbor:"ip_cfv_pool"`
	ChancePool   []byte       `cbor:"chance_pool"`
}

type treeDTO struct {
	Config  tree.TreeConfig `cbor:"config"`
	Added   []addedLineDTO  `cbor:"added,omitempty"`
	Removed []string        `cbor:"removed,omitempty"`
}

type addedLineDTO struct {
	Path    string            `cbor:"path"`
	Actions []notation.Action `cbor:"actions"`
}

type cardDTO struct {
	OOP   []comboWeight `cbor:"oop"`
	IP    []comboWeight `cbor:"ip"`
	Flop  [3]uint8      `cbor:"flop"`
	Turn  int16         `cbor:"turn"`
	River int16         `cbor:"river"`
}

type comboWeight struct {
	C1 uint8   `cbor:"c1"`
	C2 uint8   `cbor:"c2"`
	W  float64 `cbor:"w"`
}

type lockDTO struct {
	Node     int32     `cbor:"node"`
	Strategy []float64 `cbor:"strategy"`
}

// Encode writes g's snapshot constrained to streets at or below target:
// the full tree and card configs, the lock map, and the pool bytes and
// scales of every node on a saved street. Node records themselves are not
// written; the arena is rebuilt deterministically from the configs.
func Encode(w io.Writer, g *game.PostFlopGame, target game.StorageMode) error {
	if g.StrategyPool == nil {
		return errs.NewStateError("cannot save a game with no allocated storage (state=%s)", g.State)
	}
	if target > g.StorageMode {
		return errs.NewStateError("target storage mode %s exceeds allocated mode %s", target, g.StorageMode)
	}

	h := header{Magic: Magic, Version: Version, Mode: uint8(target)}
	if g.Compressed {
		h.Compressed = 1
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	snap := buildSnapshot(g, target)
	if err := cbor.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot body: %w", err)
	}
	return nil
}

func buildSnapshot(g *game.PostFlopGame, target game.StorageMode) *snapshot {
	added, removed := g.ActionTree.Edits()
	snap := &snapshot{
		Tree: treeDTO{Config: g.ActionTree.Config, Removed: removed},
		Card: encodeCard(g.CardConfig),
	}
	for path, actions := range added {
		snap.Tree.Added = append(snap.Tree.Added, addedLineDTO{Path: path, Actions: actions})
	}

	switch target {
	case game.StorageFlop:
		snap.State = uint8(game.SolvedFlop)
	case game.StorageTurn:
		snap.State = uint8(game.SolvedTurn)
	default:
		snap.State = uint8(g.State)
	}

	for idx, vec := range g.LockingStrategy() {
		if g.Nodes[idx].Street <= cards.BoardState(target) {
			snap.Locks = append(snap.Locks, lockDTO{Node: idx, Strategy: vec})
		}
	}

	limit := cards.BoardState(target)
	elem := int64(4)
	if g.Compressed {
		elem = 2
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Street > limit || n.StorageOffsetsUnset() {
			continue
		}
		snap.Scales = append(snap.Scales, [3]float32{n.Scale1, n.Scale2, n.Scale3})
		if n.IsChance() {
			snap.ChancePool = appendPool(snap.ChancePool, g.ChancePool, n.Storage1Off, n.ChanceCount(), elem)
		} else {
			snap.StrategyPool = appendPool(snap.StrategyPool, g.StrategyPool, n.Storage1Off, n.StrategyCount(), elem)
		}
		snap.RegretPool = appendPool(snap.RegretPool, g.RegretPool, n.Storage2Off, n.RegretCount(), elem)
		snap.IPCFVPool = appendPool(snap.IPCFVPool, g.IPCFVPool, n.Storage3Off, n.IPCFVCount(), elem)
	}
	return snap
}

func appendPool(dst []byte, p *game.Pool, off int64, count int, elem int64) []byte {
	if count == 0 {
		return dst
	}
	b := p.Bytes()
	return append(dst, b[off*elem:off*elem+int64(count)*elem]...)
}

// Decode reads a snapshot and reconstructs a PostFlopGame: the tree and
// arena are rebuilt from the configs, storage is allocated up to the
// snapshot's mode, and the saved payloads are copied back in. A snapshot
// below River yields a partially backed game whose deeper streets are
// navigation errors until reload-and-resolve reconstructs them.
func Decode(r io.Reader) (*game.PostFlopGame, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errs.WrapDecodeError(err, "read snapshot header")
	}
	if h.Magic != Magic {
		return nil, errs.NewDecodeError("bad magic 0x%08x", h.Magic)
	}
	if h.Version != Version {
		return nil, errs.NewDecodeError("unsupported snapshot version %d (want %d)", h.Version, Version)
	}

	var snap snapshot
	if err := cbor.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errs.WrapDecodeError(err, "decode snapshot body")
	}

	at, err := tree.Build(snap.Tree.Config)
	if err != nil {
		return nil, errs.WrapDecodeError(err, "rebuild action tree")
	}
	if len(snap.Tree.Added) > 0 || len(snap.Tree.Removed) > 0 {
		added := make(map[string][]notation.Action, len(snap.Tree.Added))
		for _, a := range snap.Tree.Added {
			added[a.Path] = a.Actions
		}
		at.ApplyEdits(added, snap.Tree.Removed)
	}

	cc, err := decodeCard(&snap.Card)
	if err != nil {
		return nil, err
	}

	g, err := game.Build(at, cc)
	if err != nil {
		return nil, errs.WrapDecodeError(err, "rebuild arena")
	}
	mode := game.StorageMode(h.Mode)
	if err := g.AllocateMemoryUpTo(cards.BoardState(mode), h.Compressed == 1); err != nil {
		return nil, errs.WrapDecodeError(err, "allocate storage")
	}

	if err := restorePools(g, &snap); err != nil {
		return nil, err
	}

	for _, l := range snap.Locks {
		if l.Node < 0 || int(l.Node) >= len(g.Nodes) {
			return nil, errs.NewDecodeError("lock on node %d outside arena of %d nodes", l.Node, len(g.Nodes))
		}
		if err := g.LockCurrentStrategy(l.Node, l.Strategy); err != nil {
			return nil, errs.WrapDecodeError(err, "restore lock on node %d", l.Node)
		}
	}

	g.State = game.State(snap.State)
	return g, nil
}

// restorePools copies saved payloads back into the freshly allocated
// pools. Allocation assigns offsets in the same arena walk order the
// encoder concatenated in, so each saved slice lands exactly where it
// came from.
func restorePools(g *game.PostFlopGame, snap *snapshot) error {
	limit := cards.BoardState(g.StorageMode)
	elem := int64(4)
	if g.Compressed {
		elem = 2
	}

	var si int
	var sOff, rOff, iOff, cOff int64
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Street > limit || n.StorageOffsetsUnset() {
			continue
		}
		if si >= len(snap.Scales) {
			return errs.NewDecodeError("snapshot has %d scale records for %d saved nodes", len(snap.Scales), si+1)
		}
		n.Scale1, n.Scale2, n.Scale3 = snap.Scales[si][0], snap.Scales[si][1], snap.Scales[si][2]
		si++

		if n.IsChance() {
			if err := copyIn(g.ChancePool, n.Storage1Off, snap.ChancePool, &cOff, n.ChanceCount(), elem, "chance"); err != nil {
				return err
			}
		} else if err := copyIn(g.StrategyPool, n.Storage1Off, snap.StrategyPool, &sOff, n.StrategyCount(), elem, "strategy"); err != nil {
			return err
		}
		if err := copyIn(g.RegretPool, n.Storage2Off, snap.RegretPool, &rOff, n.RegretCount(), elem, "regret"); err != nil {
			return err
		}
		if err := copyIn(g.IPCFVPool, n.Storage3Off, snap.IPCFVPool, &iOff, n.IPCFVCount(), elem, "ip_cfv"); err != nil {
			return err
		}
	}
	return nil
}

func copyIn(p *game.Pool, dstOff int64, src []byte, srcOff *int64, count int, elem int64, name string) error {
	if count == 0 {
		return nil
	}
	nb := int64(count) * elem
	if *srcOff+nb > int64(len(src)) {
		return errs.NewDecodeError("%s pool truncated: need %d bytes at %d, have %d", name, nb, *srcOff, len(src))
	}
	copy(p.Bytes()[dstOff*elem:], src[*srcOff:*srcOff+nb])
	*srcOff += nb
	return nil
}

func encodeCard(cc *game.CardConfig) cardDTO {
	d := cardDTO{Turn: -1, River: -1}
	for i, c := range cc.Flop {
		d.Flop[i] = uint8(c)
	}
	if cc.Turn != nil {
		d.Turn = int16(*cc.Turn)
	}
	if cc.River != nil {
		d.River = int16(*cc.River)
	}
	d.OOP = encodeRange(cc.RangeOOP)
	d.IP = encodeRange(cc.RangeIP)
	return d
}

func encodeRange(r notation.Range) []comboWeight {
	out := make([]comboWeight, 0, len(r))
	for _, c := range r.Combos() {
		out = append(out, comboWeight{C1: uint8(c.Card1), C2: uint8(c.Card2), W: r[c]})
	}
	return out
}

func decodeCard(d *cardDTO) (*game.CardConfig, error) {
	cc := &game.CardConfig{
		RangeOOP: decodeRange(d.OOP),
		RangeIP:  decodeRange(d.IP),
	}
	for i, c := range d.Flop {
		if c >= cards.NumCards {
			return nil, errs.NewDecodeError("flop card %d out of range", c)
		}
		cc.Flop[i] = cards.Card(c)
	}
	if d.Turn >= 0 {
		c := cards.Card(d.Turn)
		cc.Turn = &c
	}
	if d.River >= 0 {
		c := cards.Card(d.River)
		cc.River = &c
	}
	return cc, nil
}

func decodeRange(ws []comboWeight) notation.Range {
	r := make(notation.Range, len(ws))
	for _, w := range ws {
		r[notation.NewCombo(cards.Card(w.C1), cards.Card(w.C2))] = w.W
	}
	return r
}

// SaveFile and LoadFile are path-based conveniences over Encode/Decode.
func SaveFile(path string, g *game.PostFlopGame, target game.StorageMode) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()
	if err := Encode(f, g, target); err != nil {
		return err
	}
	return f.Close()
}

func LoadFile(path string) (*game.PostFlopGame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
