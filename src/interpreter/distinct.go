package interpreter

import (
	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// distinct implements the Distinct operator (spec §4.3): derive the
// group key, and suppress the tuple if the key has already been seen
// this epoch by the namespaced sketch's membership test, else record it.
// Deterministic and Bloom share the same Contains/InsertMembership shape
// via the Sketch facade, so no per-variant branching is needed beyond
// picking which sketch the plan's DistinctSpec names.
func (it *Interpreter) distinct(d *queryplan.DistinctSpec, in tuple.Tuple) (bool, error) {
	key, err := in.GroupKey(d.Keys)
	if err != nil {
		return false, err
	}

	s, err := it.sketchFor(d.Kind)
	if err != nil {
		return false, err
	}

	if s.Contains([]byte(key)) {
		return true, nil
	}
	s.InsertMembership([]byte(key))
	return false, nil
}
