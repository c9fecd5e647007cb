package syntax

import (
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/types"
)

// Refutable reports whether some value of the pattern type fails to
// match p.
//
// The pattern is checked as a one row matrix that is specialized column
// by column. Enums, bools, tuples, structs, arrays and pointers are split
// into their constructors. Integers, chars, strings and slices are only
// covered by a row whose head accepts every value, so `0 | 1..` is still
// reported as refutable.
func Refutable(p *hir.Pat) bool {
	return !covers([][]*hir.Pat{{p}}, []types.Type{p.Type})
}

// covers reports whether every vector of values of tys matches some row.
func covers(rows [][]*hir.Pat, tys []types.Type) bool {
	if len(tys) == 0 {
		return len(rows) != 0
	}

	rows = expandHeads(rows)

	ty, rest := tys[0], tys[1:]

	if types.IsUninhabited(ty) {
		return true
	}

	switch t := ty.(type) {
	case *types.Enum:
		for i, v := range t.Variants {
			if !t.VariantInhabited(i) {
				continue
			}

			sub := specialize(rows, len(v.Payload), func(k hir.PatKind) ([]hir.FieldPat, bool) {
				pv, ok := k.(*hir.PatVariant)
				if !ok || pv.Variant != i {
					return nil, false
				}
				return pv.Subpatterns, true
			})

			if !covers(sub, concat(v.Payload, rest)) {
				return false
			}
		}

		return true

	case *types.Tuple, *types.Struct:
		fields := types.FieldTypes(t)
		sub := specialize(rows, len(fields), leafFields)

		return covers(sub, concat(fields, rest))

	case *types.Reference:
		sub := specialize(rows, 1, func(k hir.PatKind) ([]hir.FieldPat, bool) {
			d, ok := k.(*hir.PatDeref)
			if !ok {
				return nil, false
			}
			return []hir.FieldPat{{Pattern: d.Subpattern}}, true
		})

		return covers(sub, concat([]types.Type{t.Elem}, rest))

	case *types.Box:
		sub := specialize(rows, 1, func(k hir.PatKind) ([]hir.FieldPat, bool) {
			d, ok := k.(*hir.PatDerefPattern)
			if !ok {
				return nil, false
			}
			return []hir.FieldPat{{Pattern: d.Subpattern}}, true
		})

		return covers(sub, concat([]types.Type{t.Elem}, rest))

	case *types.Array:
		elems := make([]types.Type, t.Len)
		for i := range elems {
			elems[i] = t.Elem
		}

		sub := specialize(rows, t.Len, func(k hir.PatKind) ([]hir.FieldPat, bool) {
			return arrayElems(k, t.Len)
		})

		return covers(sub, concat(elems, rest))

	case *types.Primitive:
		switch t.Kind {
		case types.Bool:
			for _, b := range []bool{false, true} {
				sub := specialize(rows, 0, func(k hir.PatKind) ([]hir.FieldPat, bool) {
					c, ok := k.(*hir.PatConstant)
					return nil, ok && c.Value.Value == b
				})

				if !covers(sub, rest) {
					return false
				}
			}

			return true
		case types.Unit:
			return covers(specialize(rows, 0, leafFields), rest)
		}
	}

	return covers(defaultRows(rows), rest)
}

// expandHeads splits rows on or-patterns in the first column and strips
// the first column down to the pattern that does the matching. Rows
// headed by a never pattern match no value and are dropped.
func expandHeads(rows [][]*hir.Pat) [][]*hir.Pat {
	var out [][]*hir.Pat

	for len(rows) != 0 {
		row := rows[0]
		rows = rows[1:]

		head := row[0]

		switch k := head.Kind.(type) {
		case *hir.PatBinding:
			if k.Subpattern == nil {
				out = append(out, withHead(row, wildcard()))
				continue
			}

			rows = append([][]*hir.Pat{withHead(row, k.Subpattern)}, rows...)
		case *hir.PatAscribe:
			rows = append([][]*hir.Pat{withHead(row, k.Subpattern)}, rows...)
		case *hir.PatOr:
			alts := make([][]*hir.Pat, len(k.Pats))
			for i, alt := range k.Pats {
				alts[i] = withHead(row, alt)
			}

			rows = append(alts, rows...)
		case *hir.PatNever:
		default:
			out = append(out, row)
		}
	}

	return out
}

// specialize keeps the rows whose head matches one constructor and
// replaces the head with its arity subpatterns. ctor returns the fields
// of a head of that constructor, or false for another constructor.
func specialize(rows [][]*hir.Pat, arity int, ctor func(hir.PatKind) ([]hir.FieldPat, bool)) [][]*hir.Pat {
	var out [][]*hir.Pat

	for _, row := range rows {
		sub := make([]*hir.Pat, arity, arity+len(row)-1)
		for i := range sub {
			sub[i] = wildcard()
		}

		if !acceptsAll(row[0]) {
			fps, ok := ctor(row[0].Kind)
			if !ok {
				continue
			}

			for _, fp := range fps {
				sub[fp.Field] = fp.Pattern
			}
		}

		out = append(out, append(sub, row[1:]...))
	}

	return out
}

// defaultRows keeps the rows whose head accepts every value.
func defaultRows(rows [][]*hir.Pat) [][]*hir.Pat {
	var out [][]*hir.Pat

	for _, row := range rows {
		if acceptsAll(row[0]) {
			out = append(out, row[1:])
		}
	}

	return out
}

func acceptsAll(p *hir.Pat) bool {
	switch k := p.Kind.(type) {
	case *hir.PatWild:
		return true
	case *hir.PatRange:
		return k.IsFull()
	case *hir.PatSlice:
		_, isSlice := p.Type.(*types.Slice)
		return isSlice && k.Slice != nil && len(k.Prefix) == 0 && len(k.Suffix) == 0 && !Refutable(k.Slice)
	}

	return false
}

func leafFields(k hir.PatKind) ([]hir.FieldPat, bool) {
	l, ok := k.(*hir.PatLeaf)
	if !ok {
		return nil, false
	}
	return l.Subpatterns, true
}

// arrayElems lines an array pattern up with the n elements of the array.
func arrayElems(k hir.PatKind, n int) ([]hir.FieldPat, bool) {
	s, ok := k.(*hir.PatSlice)
	if !ok {
		return nil, false
	}

	fixed := len(s.Prefix) + len(s.Suffix)
	if fixed > n || s.Slice == nil && fixed != n {
		return nil, false
	}

	fps := make([]hir.FieldPat, 0, fixed)
	for i, p := range s.Prefix {
		fps = append(fps, hir.FieldPat{Field: i, Pattern: p})
	}
	for i, p := range s.Suffix {
		fps = append(fps, hir.FieldPat{Field: n - len(s.Suffix) + i, Pattern: p})
	}

	return fps, true
}

func withHead(row []*hir.Pat, head *hir.Pat) []*hir.Pat {
	out := make([]*hir.Pat, len(row))
	out[0] = head
	copy(out[1:], row[1:])
	return out
}

func wildcard() *hir.Pat {
	return &hir.Pat{Kind: &hir.PatWild{}}
}

func concat(a, b []types.Type) []types.Type {
	out := make([]types.Type, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
