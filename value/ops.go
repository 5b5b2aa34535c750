package value

import "fmt"

// TypeError reports an operation attempted on operand types that do not
// support it, per spec.md §4.2's "TypeError: cannot <op> <lhs-type> and
// <rhs-type>" format.
type TypeError struct {
	Op  string
	Lhs string
	Rhs string // empty for unary operations
}

func (e TypeError) Error() string {
	if e.Rhs == "" {
		return fmt.Sprintf("TypeError: cannot %s %s", e.Op, e.Lhs)
	}
	return fmt.Sprintf("TypeError: cannot %s %s and %s", e.Op, e.Lhs, e.Rhs)
}

func numeric(v Value) (float64, bool, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true, false
	case Float:
		return float64(n), true, true
	default:
		return 0, false, false
	}
}

// Add implements "+": numeric widening, or Str concatenation.
func Add(a, b Value) (Value, error) {
	if sa, ok := a.(Str); ok {
		if sb, ok := b.(Str); ok {
			return Str{Ref: &StrData{Text: sa.Ref.Text + sb.Ref.Text, Mutable: true}}, nil
		}
		return nil, TypeError{"add", a.TypeName(), b.TypeName()}
	}
	return arith("add", a, b,
		func(x, y int64) int64 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub implements "-".
func Sub(a, b Value) (Value, error) {
	return arith("subtract", a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mult implements "*".
func Mult(a, b Value) (Value, error) {
	return arith("multiply", a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div implements "/". Integer division by zero and float division by
// zero are both runtime errors; floating point allows Inf/NaN just like
// IEEE 754 only when neither side is Int, but in keeping with the
// original this treats a zero divisor as an error uniformly.
func Div(a, b Value) (Value, error) {
	if isZero(b) {
		return nil, fmt.Errorf("RuntimeError: division by zero")
	}
	return arith("divide", a, b,
		func(x, y int64) int64 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// Rem implements "%".
func Rem(a, b Value) (Value, error) {
	if isZero(b) {
		return nil, fmt.Errorf("RuntimeError: division by zero")
	}
	return arith("% by", a, b,
		func(x, y int64) int64 { return x % y },
		func(x, y float64) float64 {
			r := x - y*float64(int64(x/y))
			return r
		})
}

func isZero(v Value) bool {
	switch n := v.(type) {
	case Int:
		return n == 0
	case Float:
		return n == 0
	default:
		return false
	}
}

func arith(op string, a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) (Value, error) {
	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)
	if aIsInt && bIsInt {
		return Int(intOp(int64(ai), int64(bi))), nil
	}
	af, aIsNum, _ := numeric(a)
	bf, bIsNum, _ := numeric(b)
	if aIsNum && bIsNum {
		return Float(floatOp(af, bf)), nil
	}
	return nil, TypeError{op, a.TypeName(), b.TypeName()}
}

// Negate implements unary "-".
func Negate(v Value) (Value, error) {
	switch n := v.(type) {
	case Int:
		return Int(-n), nil
	case Float:
		return Float(-n), nil
	default:
		return nil, TypeError{"negate", v.TypeName(), ""}
	}
}

// NegateBool implements unary "!".
func NegateBool(v Value) (Value, error) {
	b, ok := v.(Bool)
	if !ok {
		return nil, TypeError{"negate (boolean)", v.TypeName(), ""}
	}
	return Bool(!b), nil
}

// Equal is structural equality. Heap aggregates compare contents, not
// identity. Empty only compares equal inside pattern matching
// (vm.match, not here) — used outside that context it is a type error,
// enforced by the VM before calling Equal.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Nil:
		return true
	case Empty:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Float:
		return av == b.(Float)
	case Atom:
		return av.Name == b.(Atom).Name
	case VarName:
		return av.Name == b.(VarName).Name
	case Tuple:
		bv := b.(Tuple)
		if len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case Str:
		return av.Ref.Text == b.(Str).Ref.Text
	case List:
		bv := b.(List)
		if len(av.Ref.Elems) != len(bv.Ref.Elems) {
			return false
		}
		for i := range av.Ref.Elems {
			if !Equal(av.Ref.Elems[i], bv.Ref.Elems[i]) {
				return false
			}
		}
		return true
	case Object:
		bv := b.(Object)
		if len(av.Ref.Fields) != len(bv.Ref.Fields) {
			return false
		}
		for k, v := range av.Ref.Fields {
			ov, ok := bv.Ref.Fields[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		return true
	case Function:
		return av.Ref == b.(Function).Ref
	case Native:
		return av.Name == b.(Native).Name
	default:
		return false
	}
}

// compareNumOrStr implements spec.md §4.2's ordering rule: Int/Float
// pairs (with mixed widening) and String pairs, lexicographically.
func compareNumOrStr(a, b Value) (int, error) {
	if sa, ok := a.(Str); ok {
		if sb, ok := b.(Str); ok {
			switch {
			case sa.Ref.Text < sb.Ref.Text:
				return -1, nil
			case sa.Ref.Text > sb.Ref.Text:
				return 1, nil
			default:
				return 0, nil
			}
		}
		return 0, TypeError{"compare", a.TypeName(), b.TypeName()}
	}
	af, aIsNum, _ := numeric(a)
	bf, bIsNum, _ := numeric(b)
	if !aIsNum || !bIsNum {
		return 0, TypeError{"compare", a.TypeName(), b.TypeName()}
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

func GreaterThan(a, b Value) (bool, error) {
	c, err := compareNumOrStr(a, b)
	return c > 0, err
}

func LessThan(a, b Value) (bool, error) {
	c, err := compareNumOrStr(a, b)
	return c < 0, err
}

func GreaterThanOrEq(a, b Value) (bool, error) {
	c, err := compareNumOrStr(a, b)
	return c >= 0, err
}

func LessThanOrEq(a, b Value) (bool, error) {
	c, err := compareNumOrStr(a, b)
	return c <= 0, err
}
