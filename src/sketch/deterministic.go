package sketch

// deterministicSketch is an exact per-key counter backed by a hash map:
// the "no approximation" Reduce/Distinct mode (spec §4.2.6). It never
// loses precision and never reports a false positive for Contains.
type deterministicSketch struct {
	counts map[string]uint64
}

func newDeterministicSketch() *deterministicSketch {
	return &deterministicSketch{counts: make(map[string]uint64)}
}

func (d *deterministicSketch) Insert(key []byte, delta uint64) {
	d.counts[string(key)] += delta
}

func (d *deterministicSketch) Estimate(key []byte) (uint64, error) {
	return d.counts[string(key)], nil
}

func (d *deterministicSketch) Contains(key []byte) bool {
	v, ok := d.counts[string(key)]
	return ok && v > 0
}

func (d *deterministicSketch) InsertMembership(key []byte) {
	d.counts[string(key)] = 1
}

func (d *deterministicSketch) Clear() {
	d.counts = make(map[string]uint64)
}
