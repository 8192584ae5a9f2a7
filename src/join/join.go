// Package join implements the two-sided equi-join coordinator owned by
// each Join operator instance (spec §4.4, component C6). A Coordinator
// must never be shared across Join operators or process-global state —
// spec §9 calls out exactly that pattern, observed in the source as
// static mutables, as a defect to avoid.
package join

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// Coordinator buffers left/right tuples for one Join operator instance
// across the current epoch and performs the equi-join at epoch close.
type Coordinator struct {
	leftKeys  []string
	rightKeys []string

	left  []tuple.Tuple
	right []tuple.Tuple
}

// NewCoordinator builds a Coordinator scoped to one Join operator's key
// lists.
func NewCoordinator(leftKeys, rightKeys []string) *Coordinator {
	return &Coordinator{leftKeys: leftKeys, rightKeys: rightKeys}
}

// BufferLeft appends t to the left buffer.
func (c *Coordinator) BufferLeft(t tuple.Tuple) { c.left = append(c.left, t) }

// BufferRight appends t to the right buffer.
func (c *Coordinator) BufferRight(t tuple.Tuple) { c.right = append(c.right, t) }

// Close computes the equi-join over the buffered tuples and resets both
// buffers. The join key is the composite group-key of each side's key
// list (spec §4.4); a tuple missing one of its key fields is dropped
// from the join rather than aborting the whole close. An empty buffer on
// either side yields an empty result set (spec §4.3 edge cases).
func (c *Coordinator) Close() []tuple.Tuple {
	defer c.Reset()

	if len(c.left) == 0 || len(c.right) == 0 {
		return nil
	}

	byKey := make(map[string][]tuple.Tuple, len(c.left))
	for _, l := range c.left {
		key, err := l.GroupKey(c.leftKeys)
		if err != nil {
			continue
		}
		byKey[key] = append(byKey[key], l)
	}

	var out []tuple.Tuple
	for _, r := range c.right {
		key, err := r.GroupKey(c.rightKeys)
		if err != nil {
			continue
		}
		for _, l := range byKey[key] {
			out = append(out, l.Merge(r))
		}
	}
	return out
}

// Reset empties both buffers without computing a join; Close calls this
// implicitly.
func (c *Coordinator) Reset() {
	c.left = nil
	c.right = nil
}

// Validate reports a Configuration error if the two key lists are not
// the same length, mirroring queryplan.NewJoin's construction-time check
// for coordinators built independently of a QueryPlan (e.g. in tests).
func Validate(leftKeys, rightKeys []string) error {
	if len(leftKeys) != len(rightKeys) || len(leftKeys) == 0 {
		return fmt.Errorf("join: key lists must be equal length and non-empty")
	}
	return nil
}
