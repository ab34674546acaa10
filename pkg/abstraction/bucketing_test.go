package abstraction

import (
	"testing"

	"github.com/bkushigian/postflop-solver/pkg/cards"
	"github.com/bkushigian/postflop-solver/pkg/notation"
)

func combo(t *testing.T, s string) notation.Combo {
	t.Helper()
	cs, err := cards.ParseCards(s)
	if err != nil || len(cs) != 2 {
		t.Fatalf("bad combo %q: %v", s, err)
	}
	return notation.NewCombo(cs[0], cs[1])
}

func testBucketer(t *testing.T) *Bucketer {
	t.Helper()
	board, err := cards.ParseCards("Kh9s4c7d2s")
	if err != nil {
		t.Fatal(err)
	}
	opp, err := notation.ParseRange("QQ-TT")
	if err != nil {
		t.Fatal(err)
	}
	return NewBucketer(cards.Board(board), opp, 100)
}

func TestBucket_InRange(t *testing.T) {
	b := testBucketer(t)
	id := b.Bucket(combo(t, "AsAd"))
	if id < 0 || id >= b.NumBuckets() {
		t.Errorf("bucket %d out of [0, %d)", id, b.NumBuckets())
	}
}

func TestBucket_Deterministic(t *testing.T) {
	b := testBucketer(t)
	c := combo(t, "AsAd")
	first := b.Bucket(c)
	second := b.Bucket(c)
	if first != second {
		t.Errorf("bucket unstable: %d then %d", first, second)
	}

	b.ClearCache()
	if third := b.Bucket(c); third != first {
		t.Errorf("bucket changed after cache clear: %d then %d", first, third)
	}
}

func TestBucket_OrdersByStrength(t *testing.T) {
	b := testBucketer(t)
	// On a river board the potential axis is flat, so bucket IDs order by
	// equity: the overpair must land in a higher bucket than the dominated
	// underpair.
	strong := b.Bucket(combo(t, "AsAd"))
	weak := b.Bucket(combo(t, "3h3d"))
	if strong <= weak {
		t.Errorf("AA bucket %d should exceed 33 bucket %d", strong, weak)
	}
}

func TestBucketRange(t *testing.T) {
	b := testBucketer(t)
	r, err := notation.ParseRange("AA,33")
	if err != nil {
		t.Fatal(err)
	}
	assigned := b.BucketRange(r)
	if len(assigned) != len(r) {
		t.Fatalf("BucketRange assigned %d combos, want %d", len(assigned), len(r))
	}
	for c, id := range assigned {
		if id != b.Bucket(c) {
			t.Errorf("combo %s: BucketRange gave %d, Bucket gives %d", c, id, b.Bucket(c))
		}
	}
}

func TestNumBuckets_GridRounding(t *testing.T) {
	board, _ := cards.ParseCards("Kh9s4c7d2s")
	opp, _ := notation.ParseRange("QQ")
	b := NewBucketer(cards.Board(board), opp, 200)
	// 200 rounds down to a 14x14 grid.
	if b.NumBuckets() != 196 {
		t.Errorf("NumBuckets = %d, want 196", b.NumBuckets())
	}
}

func TestBucketInfo(t *testing.T) {
	b := testBucketer(t)
	info := b.BucketInfo(0)
	if info == "" {
		t.Error("BucketInfo returned empty string")
	}
}
