package tuple

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetIsCopyOnWrite(t *testing.T) {
	base := New().Set("src_ip", Text("1.1.1.1"))
	next := base.Set("dst_ip", Text("2.2.2.2"))

	if _, ok := base.Get("dst_ip"); ok {
		t.Fatalf("Set must not mutate the receiver")
	}
	if v, ok := next.Get("src_ip"); !ok || v.AsText() != "1.1.1.1" {
		t.Fatalf("Set must carry forward existing fields")
	}
}

func TestEqualsWideningU8ToU16(t *testing.T) {
	a := New().Set("protocol", U8(6))
	b := New().Set("protocol", U16(6))
	if !a.Equals("protocol", b, "protocol") {
		t.Fatalf("u8 and u16 carrying the same numeric value must compare equal")
	}
}

func TestEqualsStringFallback(t *testing.T) {
	a := New().Set("src_ip", Text("10.0.0.1"))
	b := New().Set("tag", Text("10.0.0.1"))
	if !a.Equals("src_ip", b, "tag") {
		t.Fatalf("text fields with equal string form must compare equal")
	}
}

func TestGroupKeyUnknownField(t *testing.T) {
	tup := New().Set("src_ip", Text("10.0.0.1"))
	if _, err := tup.GroupKey([]string{"src_ip", "missing"}); err == nil {
		t.Fatalf("expected error referencing missing field")
	}
}

func TestGroupKeyOrderAndJoin(t *testing.T) {
	tup := New().Set("dst_ip", Text("A")).Set("src_ip", Text("B"))
	key, err := tup.GroupKey([]string{"dst_ip", "src_ip"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "A_B" {
		t.Fatalf("expected group key A_B, got %s", key)
	}
}

func TestMergePrefersReceiver(t *testing.T) {
	left := New().Set("dst_ip", Text("A")).Set("count", U16(5))
	right := New().Set("dst_ip", Text("B")).Set("extra", U16(1))

	merged := left.Merge(right)
	if v, _ := merged.Get("dst_ip"); v.AsText() != "A" {
		t.Fatalf("left side must win on collision")
	}
	if v, ok := merged.Get("extra"); !ok || v.AsText() != "1" {
		t.Fatalf("right-only field must survive the merge")
	}
}

func TestFieldsAreSortedDeterministically(t *testing.T) {
	tup := New().Set("dst_ip", Text("A")).Set("src_ip", Text("B")).Set("count", U16(1))
	got := tup.Fields()
	want := []string{"count", "dst_ip", "src_ip"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Fields() mismatch (-want +got):\n%s", diff)
	}
}

func TestOptU16None(t *testing.T) {
	v := OptU16None()
	if _, ok := v.AsU16(); ok {
		t.Fatalf("absent optional must not widen to a number")
	}
}
