package join

import (
	"testing"

	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

func TestCloseMergesOnMatchingKeyLeftPreferred(t *testing.T) {
	c := NewCoordinator([]string{"dst_ip"}, []string{"src_ip"})
	l := tuple.New().Set("dst_ip", tuple.Text("10.0.0.1")).Set("left_count", tuple.U16(3))
	r := tuple.New().Set("src_ip", tuple.Text("10.0.0.1")).Set("right_count", tuple.U16(2)).Set("left_count", tuple.U16(99))
	c.BufferLeft(l)
	c.BufferRight(r)

	out := c.Close()
	if len(out) != 1 {
		t.Fatalf("expected 1 joined tuple, got %d", len(out))
	}
	lc, _ := out[0].Get("left_count")
	if v, _ := lc.AsU16(); v != 3 {
		t.Fatalf("expected left tuple's left_count to win on collision, got %d", v)
	}
	rc, ok := out[0].Get("right_count")
	if !ok {
		t.Fatalf("expected right_count to be present in merged tuple")
	}
	if v, _ := rc.AsU16(); v != 2 {
		t.Fatalf("unexpected right_count: %d", v)
	}
}

func TestCloseEmptyBufferYieldsNoResults(t *testing.T) {
	c := NewCoordinator([]string{"dst_ip"}, []string{"src_ip"})
	c.BufferLeft(tuple.New().Set("dst_ip", tuple.Text("x")))
	if out := c.Close(); out != nil {
		t.Fatalf("expected nil result with empty right buffer, got %v", out)
	}
}

func TestCloseResetsBuffers(t *testing.T) {
	c := NewCoordinator([]string{"k"}, []string{"k"})
	c.BufferLeft(tuple.New().Set("k", tuple.Text("a")))
	c.BufferRight(tuple.New().Set("k", tuple.Text("a")))
	c.Close()
	if out := c.Close(); out != nil {
		t.Fatalf("expected empty result after reset, got %v", out)
	}
}

func TestCommutativityOnKeys(t *testing.T) {
	forward := NewCoordinator([]string{"dst_ip"}, []string{"src_ip"})
	l := tuple.New().Set("dst_ip", tuple.Text("a")).Set("left_count", tuple.U16(1))
	r := tuple.New().Set("src_ip", tuple.Text("a")).Set("right_count", tuple.U16(2))
	forward.BufferLeft(l)
	forward.BufferRight(r)
	fwdOut := forward.Close()

	backward := NewCoordinator([]string{"src_ip"}, []string{"dst_ip"})
	backward.BufferLeft(r)
	backward.BufferRight(l)
	bwdOut := backward.Close()

	if len(fwdOut) != 1 || len(bwdOut) != 1 {
		t.Fatalf("expected exactly one joined tuple on both sides")
	}
	fc, _ := fwdOut[0].Get("left_count")
	fv, _ := fc.AsU16()
	bc, _ := bwdOut[0].Get("left_count")
	bv, _ := bc.AsU16()
	if fv != bv {
		t.Fatalf("expected commutative join result, got %d vs %d", fv, bv)
	}
}
