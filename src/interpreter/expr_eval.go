package interpreter

import (
	"fmt"

	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// evalExpr applies an already-parsed, already-validated Map/MapJoin
// expression against in, producing the output tuple containing exactly
// the named items (spec §4.3). Every remaining failure mode here —
// an item referencing a field absent from in — is a runtime Plan error
// (spec §7): logged and the packet/entry dropped by the caller.
func evalExpr(e *queryplan.Expr, in tuple.Tuple) (tuple.Tuple, error) {
	out := tuple.New()
	for _, item := range e.Items {
		switch item.Kind {
		case queryplan.ItemCopy:
			v, ok := in.Get(item.Name)
			if !ok {
				return tuple.Tuple{}, fmt.Errorf("interpreter: map references unknown field %q", item.Name)
			}
			out = out.Set(item.Name, v)

		case queryplan.ItemLiteral:
			out = out.Set(item.Name, tuple.U16(item.Literal))

		case queryplan.ItemFieldRef:
			v, ok := in.Get(item.Ref)
			if !ok {
				return tuple.Tuple{}, fmt.Errorf("interpreter: map references unknown field %q", item.Ref)
			}
			out = out.Set(item.Name, v)

		case queryplan.ItemBinOp:
			lv, lok := in.Get(item.Left)
			rv, rok := in.Get(item.Right)
			if !lok || !rok {
				return tuple.Tuple{}, fmt.Errorf("interpreter: map references unknown field in %q op %q", item.Left, item.Right)
			}
			ln, lnum := lv.AsU16()
			rn, rnum := rv.AsU16()
			if !lnum || !rnum {
				return tuple.Tuple{}, fmt.Errorf("interpreter: map binary operand is not numeric (%q, %q)", item.Left, item.Right)
			}
			out = out.Set(item.Name, tuple.U16(applyOp(item.Op, ln, rn)))

		default:
			return tuple.Tuple{}, fmt.Errorf("interpreter: unrecognized expression item")
		}
	}
	return out, nil
}

// applyOp evaluates a saturating u16 binary operation (spec §4.3: "+,-
// saturating, *, / with divide-by-zero -> 0").
func applyOp(op byte, l, r uint16) uint16 {
	switch op {
	case '+':
		sum := uint32(l) + uint32(r)
		if sum > 0xFFFF {
			return 0xFFFF
		}
		return uint16(sum)
	case '-':
		if r > l {
			return 0
		}
		return l - r
	case '*':
		prod := uint32(l) * uint32(r)
		if prod > 0xFFFF {
			return 0xFFFF
		}
		return uint16(prod)
	case '/':
		if r == 0 {
			return 0
		}
		return l / r
	default:
		return 0
	}
}
