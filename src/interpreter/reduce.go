package interpreter

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// reduce implements the Reduce operator (spec §4.3): derive the group
// key, insert the measured field's delta into the namespaced sketch,
// write the fresh estimate back into the tuple, and upsert the result
// map. The returned tuple always reflects the sketch's state at the
// moment of this update — never a stale snapshot (spec §3 invariants).
func (it *Interpreter) reduce(r *queryplan.ReduceSpec, in tuple.Tuple) (tuple.Tuple, error) {
	key, err := in.GroupKey(r.Keys)
	if err != nil {
		return tuple.Tuple{}, err
	}

	v, ok := in.Get(r.Field)
	if !ok {
		return tuple.Tuple{}, fmt.Errorf("interpreter: reduce references unknown field %q", r.Field)
	}
	delta, ok := v.AsU64()
	if !ok {
		return tuple.Tuple{}, fmt.Errorf("interpreter: reduce field %q is not numeric", r.Field)
	}

	s, err := it.sketchFor(r.Kind)
	if err != nil {
		return tuple.Tuple{}, err
	}
	s.Insert([]byte(key), delta)

	estimate, err := s.Estimate([]byte(key))
	if err != nil {
		return tuple.Tuple{}, fmt.Errorf("interpreter: reduce estimate for %q: %w", key, err)
	}

	out := in.Set(r.Field, tuple.U16(saturateU16(estimate)))
	it.results[key] = out
	return out, nil
}

func saturateU16(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
