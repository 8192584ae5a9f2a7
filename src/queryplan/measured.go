package queryplan

// MeasuredField reports the field name the plan's output is judged on:
// the threshold field of its last FilterResult/FilterJoin operation, or
// failing that the field of its last Reduce. Used by the Results output
// stream (spec §6) to label the per-row measured value; returns "" for
// a plan with neither (e.g. query_8, whose top-level plan is a single
// Join).
func (p *QueryPlan) MeasuredField() string {
	for i := len(p.Operations) - 1; i >= 0; i-- {
		op := p.Operations[i]
		switch op.Kind {
		case OpFilterResult:
			return op.FilterResult.Field
		case OpFilterJoin:
			return op.FilterJoin.Field
		case OpReduce:
			return op.Reduce.Field
		}
	}
	return ""
}

// WithThreshold overrides the threshold of p's last FilterResult or
// FilterJoin operation and returns p, letting a caller (the CLI,
// or a test driving a canonical query at a different operating point)
// apply its own cutoff on top of a query built by ByID.
func (p *QueryPlan) WithThreshold(threshold uint64) *QueryPlan {
	for i := len(p.Operations) - 1; i >= 0; i-- {
		op := &p.Operations[i]
		switch op.Kind {
		case OpFilterResult:
			op.FilterResult.Threshold = threshold
			return p
		case OpFilterJoin:
			op.FilterJoin.Threshold = threshold
			return p
		}
	}
	return p
}
