// Package interpreter implements the operator interpreter (spec §4.3,
// component C5): the single per-packet entry point that streams a tuple
// through a QueryPlan's operations, owning that plan's sketch map,
// result map, and (recursively) its join coordinators. Grounded in
// dispatch shape on the teacher's stats-decorator pattern
// (src/metrics/reporter.go wraps a plain interface with instrumentation)
// generalized here to a plan-shaped operator switch.
package interpreter

import (
	"github.com/sirupsen/logrus"

	"github.com/shayanshabanzadeh/netquery/src/join"
	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/sketch"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// joinState is the per-Join-operator-instance state: its own left/right
// sub-interpreters (each with independent sketch state) and the
// coordinator buffering their output for the current epoch. Scoping
// this to the Interpreter that owns the Join operator, rather than a
// package-level map, is exactly the fix spec §9 calls for against the
// source's static-mutable join buffers.
type joinState struct {
	spec  *queryplan.JoinSpec
	left  *Interpreter
	right *Interpreter
	coord *join.Coordinator
}

// Interpreter executes one QueryPlan. It owns every piece of state that
// must reset at epoch boundaries: sketches (shared by Reduce and
// Distinct, namespaced by sketch.Kind), the result map, and the join
// states of any Join operators the plan contains.
type Interpreter struct {
	plan *queryplan.QueryPlan
	log  *logrus.Entry

	sketches map[sketch.Kind]sketch.Sketch
	results  map[string]tuple.Tuple
	joins    []*joinState

	dropped uint64
}

// New builds an Interpreter for plan, recursively constructing
// sub-interpreters for any Join operators it contains, and constructs
// the sketch of every Distinct/Reduce operation up front so an invalid
// sketch.Kind is returned here as a Configuration error.
func New(plan *queryplan.QueryPlan, log *logrus.Entry) (*Interpreter, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	it := &Interpreter{
		plan:     plan,
		log:      log,
		sketches: make(map[sketch.Kind]sketch.Sketch),
		results:  make(map[string]tuple.Tuple),
	}
	for _, op := range plan.Operations {
		if op.Kind != queryplan.OpJoin {
			continue
		}
		left, err := New(op.Join.Left, log)
		if err != nil {
			return nil, err
		}
		right, err := New(op.Join.Right, log)
		if err != nil {
			return nil, err
		}
		it.joins = append(it.joins, &joinState{
			spec:  op.Join,
			left:  left,
			right: right,
			coord: join.NewCoordinator(op.Join.LeftKeys, op.Join.RightKeys),
		})
	}
	for _, op := range plan.Operations {
		var kind sketch.Kind
		switch op.Kind {
		case queryplan.OpDistinct:
			kind = op.Distinct.Kind
		case queryplan.OpReduce:
			kind = op.Reduce.Kind
		default:
			continue
		}
		if _, err := it.sketchFor(kind); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// sketchFor returns (creating if necessary) the sketch namespaced by
// kind. Construction errors here are a Configuration error (spec §7)
// since kind parameters are fixed at plan-construction time; New calls
// this for every Distinct/Reduce kind of the plan, so a plan that passed
// New never fails here.
func (it *Interpreter) sketchFor(kind sketch.Kind) (sketch.Sketch, error) {
	if s, ok := it.sketches[kind]; ok {
		return s, nil
	}
	s, err := sketch.New(kind)
	if err != nil {
		return nil, err
	}
	it.sketches[kind] = s
	return s, nil
}

// Execute runs the packet tuple in through the plan's per-packet
// operations (Filter, Map, Distinct, Reduce, FilterResult) in order, and
// feeds Join operators their buffered left/right results. MapJoin and
// FilterJoin never touch the flowing tuple; they apply only at epoch
// close (CloseEpoch). Returns the surviving tuple and whether it
// survived; a dropped tuple (failed Filter, failed FilterResult,
// suppressed Distinct, or a Plan-level error) is not an error to the
// caller. Only Plan-level errors are logged and counted in Dropped
// (spec §4.6); the other drops are silent.
func (it *Interpreter) Execute(in tuple.Tuple) (tuple.Tuple, bool) {
	cur := in
	for _, op := range it.plan.Operations {
		switch op.Kind {
		case queryplan.OpFilter:
			if !matchFilter(op.Filter, cur) {
				return tuple.Tuple{}, false
			}

		case queryplan.OpMap:
			next, err := evalExpr(op.Expr, cur)
			if err != nil {
				it.drop("map", err)
				return tuple.Tuple{}, false
			}
			cur = next

		case queryplan.OpDistinct:
			suppress, err := it.distinct(op.Distinct, cur)
			if err != nil {
				it.drop("distinct", err)
				return tuple.Tuple{}, false
			}
			if suppress {
				return tuple.Tuple{}, false
			}

		case queryplan.OpReduce:
			next, err := it.reduce(op.Reduce, cur)
			if err != nil {
				it.drop("reduce", err)
				return tuple.Tuple{}, false
			}
			cur = next

		case queryplan.OpFilterResult:
			keep := it.pruneResults(op.FilterResult)
			if !keep(cur) {
				return tuple.Tuple{}, false
			}

		case queryplan.OpJoin:
			it.runJoin(it.joinStateFor(op.Join), in)

		case queryplan.OpMapJoin, queryplan.OpFilterJoin:
			// Act on the result map only at epoch close.
		}
	}
	return cur, true
}

func (it *Interpreter) joinStateFor(spec *queryplan.JoinSpec) *joinState {
	for _, js := range it.joins {
		if js.spec == spec {
			return js
		}
	}
	return nil
}

func (it *Interpreter) runJoin(js *joinState, in tuple.Tuple) {
	if js == nil {
		return
	}
	if out, ok := js.left.Execute(in); ok {
		js.coord.BufferLeft(out)
	}
	if out, ok := js.right.Execute(in); ok {
		js.coord.BufferRight(out)
	}
}

func (it *Interpreter) drop(stage string, err error) {
	it.dropped++
	it.log.WithError(err).WithField("stage", stage).Warn("dropping packet")
}

// Dropped reports how many packets this interpreter (not counting its
// join sub-interpreters) has dropped since the last Reset.
func (it *Interpreter) Dropped() uint64 { return it.dropped }

func matchFilter(tests []queryplan.FieldTest, t tuple.Tuple) bool {
	for _, test := range tests {
		v, ok := t.Get(test.Field)
		if !ok {
			return false
		}
		if v.AsText() != test.Literal {
			return false
		}
	}
	return true
}

// CloseEpoch closes every Join operator's coordinator, seeds the result
// map from the joined tuples, and applies any trailing MapJoin/FilterJoin
// operations in plan order. It must run before Results and before Reset.
func (it *Interpreter) CloseEpoch() {
	for _, op := range it.plan.Operations {
		switch op.Kind {
		case queryplan.OpJoin:
			js := it.joinStateFor(op.Join)
			if js == nil {
				continue
			}
			joined := js.coord.Close()
			it.results = make(map[string]tuple.Tuple, len(joined))
			for _, t := range joined {
				key, err := t.GroupKey(js.spec.LeftKeys)
				if err != nil {
					it.drop("join", err)
					continue
				}
				it.results[key] = t
			}

		case queryplan.OpMapJoin:
			next := make(map[string]tuple.Tuple, len(it.results))
			for key, t := range it.results {
				out, err := evalExpr(op.Expr, t)
				if err != nil {
					it.drop("map_join", err)
					continue
				}
				next[key] = out
			}
			it.results = next

		case queryplan.OpFilterJoin:
			for key, t := range it.results {
				v, ok := t.Get(op.FilterJoin.Field)
				n, numOK := v.AsU64()
				if !ok || !numOK || n < op.FilterJoin.Threshold {
					delete(it.results, key)
				}
			}
		}
	}
}

// Results returns the current result map. Callers must not retain
// references across a Reset.
func (it *Interpreter) Results() map[string]tuple.Tuple { return it.results }

// Reset clears every sketch, the result map, and (recursively) every
// join sub-interpreter's state — the epoch-boundary reset spec §3/§4.5
// mandates happens exactly once per epoch.
func (it *Interpreter) Reset() {
	for _, s := range it.sketches {
		s.Clear()
	}
	it.results = make(map[string]tuple.Tuple)
	it.dropped = 0
	for _, js := range it.joins {
		js.coord.Reset()
		js.left.Reset()
		js.right.Reset()
	}
}
