// Package queryplan implements the immutable query-plan tree (spec §3,
// component C4): a small, closed set of Operations built once per run and
// never mutated afterward. Map/MapJoin expressions and Join key lists are
// validated here at construction; the field names of Filter, Distinct,
// Reduce and FilterResult are not checked here, since field existence at
// runtime is an Operator interpreter concern (spec §4.6).
package queryplan

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/sketch"
)

// OpKind tags which variant an Operation holds. The set is small and
// closed (spec §9 "Operator dispatch"): a tagged struct with one pointer
// field populated per kind is simpler to exhaustively switch over than an
// interface hierarchy, and keeps the plan a plain value tree.
type OpKind int

const (
	OpFilter OpKind = iota
	OpMap
	OpDistinct
	OpReduce
	OpFilterResult
	OpJoin
	OpMapJoin
	OpFilterJoin
)

func (k OpKind) String() string {
	switch k {
	case OpFilter:
		return "Filter"
	case OpMap:
		return "Map"
	case OpDistinct:
		return "Distinct"
	case OpReduce:
		return "Reduce"
	case OpFilterResult:
		return "FilterResult"
	case OpJoin:
		return "Join"
	case OpMapJoin:
		return "MapJoin"
	case OpFilterJoin:
		return "FilterJoin"
	default:
		return "Unknown"
	}
}

// FieldTest is one (field, literal) equality test of a Filter's
// conjunction.
type FieldTest struct {
	Field   string
	Literal string
}

// DistinctSpec names the group-key fields and the membership sketch kind
// a Distinct clause uses.
type DistinctSpec struct {
	Keys []string
	Kind sketch.Kind
}

// ReduceSpec names the group-key fields, the counting sketch kind, and
// the measured field a Reduce clause updates.
type ReduceSpec struct {
	Keys  []string
	Kind  sketch.Kind
	Field string
}

// ThresholdSpec is the shared shape of FilterResult and FilterJoin: keep
// entries whose Field is >= Threshold.
type ThresholdSpec struct {
	Threshold uint64
	Field     string
}

// JoinSpec is a two-sided equi-join: Left and Right are independently
// executed sub-plans, joined on their respective key lists at epoch
// close (spec §4.4).
type JoinSpec struct {
	Left      *QueryPlan
	Right     *QueryPlan
	LeftKeys  []string
	RightKeys []string
}

// Operation is one step of a QueryPlan. Exactly one of the kind-specific
// fields is populated, selected by Kind.
type Operation struct {
	Kind OpKind

	Filter       []FieldTest
	Expr         *Expr
	Distinct     *DistinctSpec
	Reduce       *ReduceSpec
	FilterResult *ThresholdSpec
	Join         *JoinSpec
	FilterJoin   *ThresholdSpec
}

// NewFilter builds a Filter operation from a conjunction of equality
// tests.
func NewFilter(tests ...FieldTest) Operation {
	return Operation{Kind: OpFilter, Filter: tests}
}

// NewMap parses expr and builds a Map operation. Returns a Configuration
// error (spec §7) if expr is malformed.
func NewMap(expr string) (Operation, error) {
	e, err := ParseExpr(expr)
	if err != nil {
		return Operation{}, err
	}
	return Operation{Kind: OpMap, Expr: e}, nil
}

// NewDistinct builds a Distinct operation.
func NewDistinct(keys []string, kind sketch.Kind) Operation {
	return Operation{Kind: OpDistinct, Distinct: &DistinctSpec{Keys: keys, Kind: kind}}
}

// NewReduce builds a Reduce operation.
func NewReduce(keys []string, kind sketch.Kind, field string) Operation {
	return Operation{Kind: OpReduce, Reduce: &ReduceSpec{Keys: keys, Kind: kind, Field: field}}
}

// NewFilterResult builds a FilterResult operation.
func NewFilterResult(threshold uint64, field string) Operation {
	return Operation{Kind: OpFilterResult, FilterResult: &ThresholdSpec{Threshold: threshold, Field: field}}
}

// NewJoin builds a Join operation over independently constructed
// sub-plans.
func NewJoin(left, right *QueryPlan, leftKeys, rightKeys []string) (Operation, error) {
	if len(leftKeys) != len(rightKeys) || len(leftKeys) == 0 {
		return Operation{}, fmt.Errorf("queryplan: join key lists must be equal length and non-empty")
	}
	return Operation{Kind: OpJoin, Join: &JoinSpec{Left: left, Right: right, LeftKeys: leftKeys, RightKeys: rightKeys}}, nil
}

// NewMapJoin parses expr and builds a MapJoin operation.
func NewMapJoin(expr string) (Operation, error) {
	e, err := ParseExpr(expr)
	if err != nil {
		return Operation{}, err
	}
	return Operation{Kind: OpMapJoin, Expr: e}, nil
}

// NewFilterJoin builds a FilterJoin operation.
func NewFilterJoin(threshold uint64, field string) Operation {
	return Operation{Kind: OpFilterJoin, FilterJoin: &ThresholdSpec{Threshold: threshold, Field: field}}
}

// QueryPlan is an ordered, immutable sequence of Operations (spec §3).
type QueryPlan struct {
	Operations []Operation
}
