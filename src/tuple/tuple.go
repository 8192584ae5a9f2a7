// Package tuple implements the dynamic field-tagged record that flows
// through a query plan: spec §3/§4.1's Tuple model.
package tuple

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the variant carried by a Value.
type Kind int

const (
	// KindText is a UTF-8 string field (e.g. src_ip, dst_ip).
	KindText Kind = iota
	// KindU16 is an unsigned 16-bit field (e.g. total_len, dst_port).
	KindU16
	// KindU8 is an unsigned 8-bit field (e.g. protocol, tcp_flags).
	KindU8
	// KindOptU16 is an optional unsigned 16-bit field (e.g. dns_ns_type).
	KindOptU16
)

// Value is the small tagged union of field values a Tuple may hold.
type Value struct {
	kind    Kind
	text    string
	num     uint16
	present bool // meaningful only for KindOptU16
}

// Text constructs a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// U16 constructs an unsigned 16-bit value.
func U16(v uint16) Value { return Value{kind: KindU16, num: v} }

// U8 constructs an unsigned 8-bit value.
func U8(v uint8) Value { return Value{kind: KindU8, num: uint16(v)} }

// OptU16Some constructs a present optional u16.
func OptU16Some(v uint16) Value { return Value{kind: KindOptU16, num: v, present: true} }

// OptU16None constructs an absent optional u16.
func OptU16None() Value { return Value{kind: KindOptU16} }

// Kind reports the value's variant.
func (v Value) Kind() Kind { return v.kind }

// AsU16 widens the value to u16, lossless per spec §4.1: u8 widens,
// optional u16 unwraps when present. The second return is false when the
// value cannot be read as a number (text, or an absent optional).
func (v Value) AsU16() (uint16, bool) {
	switch v.kind {
	case KindU16, KindU8:
		return v.num, true
	case KindOptU16:
		return v.num, v.present
	default:
		return 0, false
	}
}

// AsU64 widens further to u64, the form Reduce deltas are accumulated in.
func (v Value) AsU64() (uint64, bool) {
	n, ok := v.AsU16()
	return uint64(n), ok
}

// AsText renders the value in its string form, used both for KindText
// values and as the equality/group-key fallback for numeric values.
func (v Value) AsText() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindOptU16:
		if !v.present {
			return ""
		}
		return strconv.FormatUint(uint64(v.num), 10)
	default:
		return strconv.FormatUint(uint64(v.num), 10)
	}
}

// Equal compares two values per spec §4.1: when both are numeric kinds
// compare by the narrower variant's numeric value, otherwise compare by
// string form.
func (v Value) Equal(other Value) bool {
	vn, vNum := v.AsU16()
	on, oNum := other.AsU16()
	if vNum && oNum {
		return vn == on
	}
	return v.AsText() == other.AsText()
}

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindU8:
		return fmt.Sprintf("u8:%d", v.num)
	case KindU16:
		return fmt.Sprintf("u16:%d", v.num)
	case KindOptU16:
		if !v.present {
			return "u16?:<none>"
		}
		return fmt.Sprintf("u16?:%d", v.num)
	default:
		return "<invalid>"
	}
}

// Tuple is an immutable-at-operator-boundaries, field-name-addressed
// record (spec §3/§4.1). The zero value is an empty tuple; New returns
// one with a preallocated field map.
type Tuple struct {
	fields map[string]Value
}

// New returns an empty tuple.
func New() Tuple {
	return Tuple{fields: make(map[string]Value, 8)}
}

// FromFields builds a tuple from a field map, taking ownership of it.
func FromFields(fields map[string]Value) Tuple {
	return Tuple{fields: fields}
}

// Get returns the named field and whether it was present.
func (t Tuple) Get(name string) (Value, bool) {
	v, ok := t.fields[name]
	return v, ok
}

// Set returns a new tuple with name bound to v, leaving t unmodified —
// operators yield a new tuple rather than mutating their input (spec §3).
func (t Tuple) Set(name string, v Value) Tuple {
	next := make(map[string]Value, len(t.fields)+1)
	for k, existing := range t.fields {
		next[k] = existing
	}
	next[name] = v
	return Tuple{fields: next}
}

// Equals compares field `name` of t against field `otherName` of other.
func (t Tuple) Equals(name string, other Tuple, otherName string) bool {
	a, aok := t.Get(name)
	b, bok := other.Get(otherName)
	if !aok || !bok {
		return false
	}
	return a.Equal(b)
}

// Clone returns a shallow, independent copy — cheap because Tuple is
// already copy-on-write via Set; Clone exists for callers that want to
// be explicit about taking ownership of a snapshot.
func (t Tuple) Clone() Tuple {
	next := make(map[string]Value, len(t.fields))
	for k, v := range t.fields {
		next[k] = v
	}
	return Tuple{fields: next}
}

// Fields returns the sorted field names, for deterministic iteration
// (group-key construction, output formatting).
func (t Tuple) Fields() []string {
	names := make([]string, 0, len(t.fields))
	for k := range t.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Merge unions the fields of t and other, preferring t's value on
// collision — the Join coordinator's merge rule (spec §4.4).
func (t Tuple) Merge(other Tuple) Tuple {
	next := make(map[string]Value, len(t.fields)+len(other.fields))
	for k, v := range other.fields {
		next[k] = v
	}
	for k, v := range t.fields {
		next[k] = v
	}
	return Tuple{fields: next}
}

// GroupKey joins the values of keys (in the given order) with "_",
// the group-key construction rule shared by Distinct and Reduce (spec §3,
// GLOSSARY).
func (t Tuple) GroupKey(keys []string) (string, error) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, ok := t.Get(k)
		if !ok {
			return "", fmt.Errorf("tuple: unknown field %q referenced by group key", k)
		}
		parts[i] = v.AsText()
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "_"
		}
		out += p
	}
	return out, nil
}
