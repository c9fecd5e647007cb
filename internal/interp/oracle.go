package interp

import (
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/types"
)

// Bindings maps the variables a pattern bound to their values.
type Bindings map[hir.VarID]Value

// MatchArm matches v against pat directly on the pattern tree, without
// lowering. Or-patterns take their first matching alternative.
func MatchArm(pat *hir.Pat, v Value) (Bindings, bool) {
	bs := Bindings{}
	if !matchCell(pat, NewCell(v), bs) {
		return nil, false
	}
	return bs, true
}

// FirstMatch returns the index of the first pattern matching v, or -1.
func FirstMatch(pats []*hir.Pat, v Value) int {
	for i, p := range pats {
		if _, ok := MatchArm(p, v); ok {
			return i
		}
	}
	return -1
}

func matchCell(pat *hir.Pat, c *Cell, bs Bindings) bool {
	switch k := pat.Kind.(type) {
	case *hir.PatWild:
		return true

	case *hir.PatBinding:
		if k.Subpattern != nil && !matchCell(k.Subpattern, c, bs) {
			return false
		}
		switch k.Mode.ByRef {
		case hir.ByValue:
			bs[k.Var] = c.V
		default:
			bs[k.Var] = &Ref{Target: c, Mutable: k.Mode.ByRef == hir.ByRefMut}
		}
		return true

	case *hir.PatConstant:
		return Equal(c.V, constant(k.Value))

	case *hir.PatRange:
		n, ok := bits(c.V)
		return ok && k.Contains(n)

	case *hir.PatVariant:
		e, ok := c.V.(*Enum)
		if !ok || e.Variant != k.Variant {
			return false
		}
		return matchFields(k.Subpatterns, e.Fields, bs)

	case *hir.PatLeaf:
		a, ok := c.V.(*Agg)
		return ok && matchFields(k.Subpatterns, a.Elems, bs)

	case *hir.PatSlice:
		return matchSlice(pat, k, c, bs)

	case *hir.PatDeref:
		r, ok := c.V.(*Ref)
		return ok && matchCell(k.Subpattern, r.Target, bs)

	case *hir.PatDerefPattern:
		b, ok := c.V.(*Box)
		return ok && matchCell(k.Subpattern, b.Target, bs)

	case *hir.PatOr:
		for _, alt := range k.Pats {
			sub := Bindings{}
			if matchCell(alt, c, sub) {
				for id, v := range sub {
					bs[id] = v
				}
				return true
			}
		}
		return false

	case *hir.PatNever:
		return false

	case *hir.PatAscribe:
		return matchCell(k.Subpattern, c, bs)
	}

	return false
}

func matchFields(fps []hir.FieldPat, cells []*Cell, bs Bindings) bool {
	for _, fp := range fps {
		if fp.Field >= len(cells) || !matchCell(fp.Pattern, cells[fp.Field], bs) {
			return false
		}
	}
	return true
}

func matchSlice(pat *hir.Pat, k *hir.PatSlice, c *Cell, bs Bindings) bool {
	a, ok := c.V.(*Agg)
	if !ok {
		return false
	}

	n := len(a.Elems)
	min := len(k.Prefix) + len(k.Suffix)
	if n < min || (k.Slice == nil && n != min) {
		return false
	}

	for i, p := range k.Prefix {
		if !matchCell(p, a.Elems[i], bs) {
			return false
		}
	}

	if k.Slice != nil {
		sub := NewCell(&Agg{Type: k.Slice.Type, Elems: a.Elems[len(k.Prefix) : n-len(k.Suffix)]})
		if !matchCell(k.Slice, sub, bs) {
			return false
		}
	}

	for i, p := range k.Suffix {
		if !matchCell(p, a.Elems[n-len(k.Suffix)+i], bs) {
			return false
		}
	}

	return true
}

// Ints are the integers Enumerate produces for int types.
var Ints = []int64{-1, 0, 1, 2, 3, 4, 5, 10}

// Chars are the chars Enumerate produces for char.
var Chars = []rune{'a', 'b', 'z'}

// MaxSliceLen bounds the length of enumerated slices.
var MaxSliceLen = 3

// MaxValues bounds the number of values Enumerate returns.
var MaxValues = 4096

// Enumerate returns a small, finite sample of the values of ty covering
// every variant, both booleans and the boundary integers in Ints.
// Uninhabited types have no values.
func Enumerate(ty types.Type) []Value {
	return enumerate(ty, MaxValues)
}

func enumerate(ty types.Type, limit int) []Value {
	switch t := ty.(type) {
	case *types.Primitive:
		switch t.Kind {
		case types.Bool:
			return []Value{Bool(false), Bool(true)}
		case types.Int, types.Usize:
			out := make([]Value, 0, len(Ints))
			for _, n := range Ints {
				if t.Kind == types.Usize && n < 0 {
					continue
				}
				out = append(out, Int(n))
			}
			return out
		case types.Char:
			out := make([]Value, len(Chars))
			for i, r := range Chars {
				out[i] = Char(r)
			}
			return out
		case types.Str:
			return []Value{Str(""), Str("a")}
		case types.Unit:
			return []Value{Unit{}}
		}
		return nil

	case *types.Tuple:
		return product(t.Elems, limit, func(vs []Value) Value { return NewAgg(t, vs...) })

	case *types.Struct:
		return product(types.FieldTypes(t), limit, func(vs []Value) Value { return NewAgg(t, vs...) })

	case *types.Array:
		elems := make([]types.Type, t.Len)
		for i := range elems {
			elems[i] = t.Elem
		}
		return product(elems, limit, func(vs []Value) Value { return NewAgg(t, vs...) })

	case *types.Slice:
		var out []Value
		for n := 0; n <= MaxSliceLen && len(out) < limit; n++ {
			elems := make([]types.Type, n)
			for i := range elems {
				elems[i] = t.Elem
			}
			out = append(out, product(elems, limit-len(out), func(vs []Value) Value { return NewAgg(t, vs...) })...)
		}
		return out

	case *types.Enum:
		var out []Value
		for i, v := range t.Variants {
			if !t.VariantInhabited(i) {
				continue
			}
			out = append(out, product(v.Payload, limit-len(out), func(vs []Value) Value { return NewEnum(t, i, vs...) })...)
			if len(out) >= limit {
				break
			}
		}
		return out

	case *types.Reference:
		inner := enumerate(t.Elem, limit)
		out := make([]Value, len(inner))
		for i, v := range inner {
			out[i] = &Ref{Target: NewCell(v), Mutable: t.Mutable}
		}
		return out

	case *types.Box:
		inner := enumerate(t.Elem, limit)
		out := make([]Value, len(inner))
		for i, v := range inner {
			out[i] = NewBox(v)
		}
		return out
	}

	return nil
}

// product builds mk(vs) for every combination of values of tys, up to
// limit results.
func product(tys []types.Type, limit int, mk func([]Value) Value) []Value {
	if limit <= 0 {
		return nil
	}

	domains := make([][]Value, len(tys))
	for i, t := range tys {
		domains[i] = enumerate(t, limit)
		if len(domains[i]) == 0 {
			return nil
		}
	}

	var out []Value
	idx := make([]int, len(tys))

	for len(out) < limit {
		vs := make([]Value, len(tys))
		for i, d := range domains {
			v, err := Clone(d[idx[i]])
			if err != nil {
				v = d[idx[i]]
			}
			vs[i] = v
		}
		out = append(out, mk(vs))

		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(domains[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			break
		}
	}

	return out
}
