package interpreter

import (
	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// pruneResults implements FilterResult's result-map side (spec §4.3):
// "at every call, retain only entries in result_map where field >=
// threshold." It returns a predicate the caller applies to the tuple
// currently flowing through the plan, implementing FilterResult's other
// half: "discards the currently flowing tuple if its field is below
// threshold."
func (it *Interpreter) pruneResults(spec *queryplan.ThresholdSpec) func(tuple.Tuple) bool {
	for key, t := range it.results {
		if !meetsThreshold(t, spec) {
			delete(it.results, key)
		}
	}
	return func(t tuple.Tuple) bool {
		return meetsThreshold(t, spec)
	}
}

func meetsThreshold(t tuple.Tuple, spec *queryplan.ThresholdSpec) bool {
	v, ok := t.Get(spec.Field)
	if !ok {
		return false
	}
	n, numOK := v.AsU64()
	return numOK && n >= spec.Threshold
}
