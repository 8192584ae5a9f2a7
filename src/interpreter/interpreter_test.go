package interpreter

import (
	"testing"

	"github.com/shayanshabanzadeh/netquery/src/config"
	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

func defaultSettings(t *testing.T) config.Settings {
	t.Helper()
	s, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	return s
}

func synPacket(dst string) tuple.Tuple {
	return tuple.New().
		Set("src_ip", tuple.Text("10.0.0.9")).
		Set("dst_ip", tuple.Text(dst)).
		Set("src_port", tuple.U16(1234)).
		Set("dst_port", tuple.U16(80)).
		Set("total_len", tuple.U16(60)).
		Set("protocol", tuple.U8(6)).
		Set("tcp_flags", tuple.U8(2))
}

// TestQuery1SYNFlood reproduces scenario S1: five SYNs to A, two to B,
// three non-SYN packets to A. Only A survives with count=5.
func TestQuery1SYNFlood(t *testing.T) {
	plan, err := queryplan.ByID(1, defaultSettings(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it, err := New(plan, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		it.Execute(synPacket("A"))
	}
	for i := 0; i < 2; i++ {
		it.Execute(synPacket("B"))
	}
	finPacket := synPacket("A").Set("tcp_flags", tuple.U8(16))
	for i := 0; i < 3; i++ {
		it.Execute(finPacket)
	}

	results := it.Results()
	aKey, _ := synPacket("A").GroupKey([]string{"dst_ip"})
	bKey, _ := synPacket("B").GroupKey([]string{"dst_ip"})

	a, ok := results[aKey]
	if !ok {
		t.Fatalf("expected a result row for A")
	}
	count, _ := a.Get("count")
	if v, _ := count.AsU16(); v != 5 {
		t.Fatalf("expected count=5 for A, got %d", v)
	}
	if _, ok := results[bKey]; ok {
		t.Fatalf("expected no row for B (below threshold)")
	}
}

// TestQuery5HeavyHitterBytes reproduces scenario S4: three packets of
// total_len=500 between the same (dst,src) accumulate to 1500.
func TestQuery5HeavyHitterBytes(t *testing.T) {
	plan, err := queryplan.ByID(5, defaultSettings(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it, err := New(plan, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pkt := tuple.New().
		Set("src_ip", tuple.Text("B")).
		Set("dst_ip", tuple.Text("A")).
		Set("total_len", tuple.U16(500))

	for i := 0; i < 3; i++ {
		it.Execute(pkt)
	}

	key, _ := pkt.GroupKey([]string{"dst_ip", "src_ip"})
	row, ok := it.Results()[key]
	if !ok {
		t.Fatalf("expected a result row")
	}
	v, _ := row.Get("total_len")
	n, _ := v.AsU16()
	if n != 1500 {
		t.Fatalf("expected total_len=1500, got %d", n)
	}
}

// TestQuery6SYNFloodJoin reproduces scenario S5: three SYNs to V and two
// SYN-ACKs from V join to count=5. The canonical query_6 plan defaults to
// a FilterJoin threshold of 40, which would prune that row, so the plan
// is run at S5's threshold=4.
func TestQuery6SYNFloodJoin(t *testing.T) {
	plan, err := queryplan.ByID(6, defaultSettings(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan = plan.WithThreshold(4)
	it, err := New(plan, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	syn := tuple.New().
		Set("dst_ip", tuple.Text("V")).
		Set("src_ip", tuple.Text("9.9.9.9")).
		Set("protocol", tuple.U8(6)).
		Set("tcp_flags", tuple.U8(2))
	synAck := tuple.New().
		Set("src_ip", tuple.Text("V")).
		Set("dst_ip", tuple.Text("9.9.9.9")).
		Set("protocol", tuple.U8(6)).
		Set("tcp_flags", tuple.U8(17))

	for i := 0; i < 3; i++ {
		it.Execute(syn)
	}
	for i := 0; i < 2; i++ {
		it.Execute(synAck)
	}

	it.CloseEpoch()

	key, _ := tuple.New().Set("dst_ip", tuple.Text("V")).GroupKey([]string{"dst_ip"})
	row, ok := it.Results()[key]
	if !ok {
		t.Fatalf("expected a joined result row, got %v", it.Results())
	}
	v, _ := row.Get("count")
	n, _ := v.AsU16()
	if n != 5 {
		t.Fatalf("expected joined count=5, got %d", n)
	}
}

func TestResetClearsStateForNextEpoch(t *testing.T) {
	plan, err := queryplan.ByID(1, defaultSettings(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it, err := New(plan, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		it.Execute(synPacket("A"))
	}
	if len(it.Results()) == 0 {
		t.Fatalf("expected a populated result map before reset")
	}
	it.Reset()
	if len(it.Results()) != 0 {
		t.Fatalf("expected empty result map after reset")
	}
	for i := 0; i < 5; i++ {
		it.Execute(synPacket("A"))
	}
	key, _ := synPacket("A").GroupKey([]string{"dst_ip"})
	row := it.Results()[key]
	v, _ := row.Get("count")
	n, _ := v.AsU16()
	if n != 5 {
		t.Fatalf("expected fresh count=5 after reset, got %d (no carryover allowed)", n)
	}
}

func TestFilterShortCircuitsNonSYN(t *testing.T) {
	plan, err := queryplan.ByID(1, defaultSettings(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	it, err := New(plan, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nonSyn := synPacket("A").Set("tcp_flags", tuple.U8(16))
	if _, ok := it.Execute(nonSyn); ok {
		t.Fatalf("expected non-SYN packet to be dropped by Filter")
	}
	if len(it.Results()) != 0 {
		t.Fatalf("expected no result-map mutation from a filtered packet")
	}
}
