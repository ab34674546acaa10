package tree

import (
	"github.com/bkushigian/postflop-solver/pkg/errs"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

// NodeByPath walks the arena from the root following the given action
// sequence and returns the index of the node it lands on.
func (t *ActionTree) NodeByPath(path []notation.Action) (int32, error) {
	idx := int32(0)
	for _, a := range path {
		n := &t.Nodes[idx]
		found := false
		for i := int32(0); i < n.NumChildren; i++ {
			child := n.ChildrenStart + i
			if t.Nodes[child].PrevAction == a {
				idx = child
				found = true
				break
			}
		}
		if !found {
			return 0, errs.NewConfigError("no line %q from node at %q", a, pathKey(path))
		}
	}
	return idx, nil
}

// AddLine inserts the final action of line as an extra child of the node
// reached by the preceding actions, then rebuilds the arena. Only
// aggressive actions can be added; fold/check/call are always present
// where legal.
func (t *ActionTree) AddLine(line []notation.Action) error {
	if len(line) == 0 {
		return errs.NewConfigError("cannot add an empty line")
	}
	last := line[len(line)-1]
	if !last.IsAggressive() {
		return errs.NewConfigError("only bet/raise/allin lines can be added, got %q", last)
	}
	parent := line[:len(line)-1]
	if _, err := t.NodeByPath(parent); err != nil {
		return err
	}

	if t.addedLines == nil {
		t.addedLines = make(map[string][]notation.Action)
	}
	key := pathKey(parent)
	t.addedLines[key] = append(t.addedLines[key], last)
	t.rebuild()

	if _, err := t.NodeByPath(line); err != nil {
		return errs.NewConfigError("added line %q did not survive legality filtering", pathKey(line))
	}
	return nil
}

// RemoveLine prunes the node reached by line (and its whole subtree) from
// the enumeration, then rebuilds the arena.
func (t *ActionTree) RemoveLine(line []notation.Action) error {
	if len(line) == 0 {
		return errs.NewConfigError("cannot remove the root")
	}
	if _, err := t.NodeByPath(line); err != nil {
		return err
	}

	if t.removedLines == nil {
		t.removedLines = make(map[string]bool)
	}
	t.removedLines[pathKey(line)] = true
	t.rebuild()
	return nil
}

// Edits returns the recorded structural edits, for persistence.
func (t *ActionTree) Edits() (added map[string][]notation.Action, removed []string) {
	added = make(map[string][]notation.Action, len(t.addedLines))
	for k, v := range t.addedLines {
		added[k] = append([]notation.Action(nil), v...)
	}
	removed = make([]string, 0, len(t.removedLines))
	for k := range t.removedLines {
		removed = append(removed, k)
	}
	return
}

// ApplyEdits replaces the recorded structural edits wholesale and rebuilds
// the arena, for restoring a persisted tree.
func (t *ActionTree) ApplyEdits(added map[string][]notation.Action, removed []string) {
	t.addedLines = nil
	t.removedLines = nil
	if len(added) > 0 {
		t.addedLines = make(map[string][]notation.Action, len(added))
		for k, v := range added {
			t.addedLines[k] = append([]notation.Action(nil), v...)
		}
	}
	if len(removed) > 0 {
		t.removedLines = make(map[string]bool, len(removed))
		for _, k := range removed {
			t.removedLines[k] = true
		}
	}
	t.rebuild()
}

// InvalidTerminals returns the paths of Player nodes left with no actions
// at all by RemoveLine edits. Such nodes make the tree unsolvable until
// the offending removals are undone or replaced with AddLine insertions.
func (t *ActionTree) InvalidTerminals() [][]notation.Action {
	var bad [][]notation.Action
	var walk func(idx int32, path []notation.Action)
	walk = func(idx int32, path []notation.Action) {
		n := &t.Nodes[idx]
		if n.Kind == PlayerNodeKind && n.NumChildren == 0 {
			bad = append(bad, append([]notation.Action(nil), path...))
			return
		}
		for i := int32(0); i < n.NumChildren; i++ {
			child := n.ChildrenStart + i
			walk(child, append(path, t.Nodes[child].PrevAction))
		}
	}
	walk(0, nil)
	return bad
}
