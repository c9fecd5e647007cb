package syntax

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// binder collects the variables a pattern binds. Later alternatives of an
// or-pattern bind the same variables as the first one.
type binder struct {
	vars   map[string]*varDef
	order  []*varDef
	frames []*orFrame
}

type orFrame struct {
	first  map[string]bool
	cur    map[string]bool
	second bool
}

func newBinder() *binder {
	return &binder{vars: map[string]*varDef{}}
}

func (r *resolver) bind(pb *binder, name string, ty types.Type, mutable bool, span diag.Span) (hir.VarID, bool) {
	for _, f := range pb.frames {
		f.cur[name] = true
	}

	for i := len(pb.frames) - 1; i >= 0; i-- {
		f := pb.frames[i]
		if !f.second || !f.first[name] {
			continue
		}

		d := pb.vars[name]
		if !types.Equal(d.ty, ty) {
			r.fail(span, diag.CodeResolveOrBindings, "variable %s is bound with type %v in one alternative and %v in another", name, d.ty, ty)
		}

		return d.id, false
	}

	if _, ok := pb.vars[name]; ok {
		r.fail(span, diag.CodeResolveInvalidPattern, "identifier %s is bound more than once in the same pattern", name)
	}

	d := r.newVar(name, ty, mutable)
	pb.vars[name] = d
	pb.order = append(pb.order, d)

	return d.id, true
}

// declarePattern resolves pat against ty and brings its bindings in scope.
func (r *resolver) declarePattern(pat Pattern, ty types.Type) *hir.Pat {
	pb := newBinder()
	p := r.resolvePat(pat, ty, pb)

	for _, d := range pb.order {
		r.declare(d)
	}

	return p
}

func (r *resolver) resolvePat(pat Pattern, ty types.Type, pb *binder) *hir.Pat {
	out := &hir.Pat{Type: ty, Span: pat.Span()}

	switch pat := pat.(type) {
	case *WildPat:
		out.Kind = &hir.PatWild{}

	case *IdentPat:
		if e, ok := ty.(*types.Enum); ok && !pat.Ref && !pat.Mutable && pat.Sub == nil {
			if v := e.VariantIndex(pat.Name); v >= 0 {
				r.checkArity(e, v, 0, pat.Span())
				out.Kind = &hir.PatVariant{Enum: e, Variant: v}
				return out
			}
		}

		mode := hir.BindingMode{Mutable: pat.Mutable && !pat.Ref}
		varTy := ty
		if pat.Ref {
			mode.ByRef = hir.ByRefShared
			if pat.Mutable {
				mode.ByRef = hir.ByRefMut
			}
			varTy = types.NewRef(ty, pat.Mutable)
		}

		k := &hir.PatBinding{Name: pat.Name, Mode: mode, VarType: varTy}
		k.Var, k.IsPrimary = r.bind(pb, pat.Name, varTy, mode.Mutable, pat.Span())

		if pat.Sub != nil {
			k.Subpattern = r.resolvePat(pat.Sub, ty, pb)
		}

		out.Kind = k

	case *LitPat:
		out.Kind = &hir.PatConstant{Value: r.constant(pat.Lit, ty)}

	case *RangePat:
		if !types.IsSwitchable(ty) || types.IsBool(ty) {
			r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "range patterns need an integer or char type, found %v", ty)
		}

		k := &hir.PatRange{End: hir.RangeExcluded}
		if pat.Inclusive {
			k.End = hir.RangeIncluded
		}
		if pat.Lo != nil {
			k.Lo = r.bound(pat.Lo, ty)
		}
		if pat.Hi != nil {
			k.Hi = r.bound(pat.Hi, ty)
		}
		if k.Lo != nil && k.Hi != nil && (*k.Lo > *k.Hi || *k.Lo == *k.Hi && k.End == hir.RangeExcluded) {
			r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "empty range pattern")
		}

		out.Kind = k

	case *PathPat:
		out.Kind = r.resolvePathPat(pat, ty, pb)

	case *TuplePat:
		out.Kind = &hir.PatLeaf{Subpatterns: r.resolveTupleFields(pat.Elems, types.FieldTypes(ty), ty, pat.Span(), pb)}

	case *SlicePat:
		out.Kind = r.resolveSlicePat(pat, ty, pb)

	case *RefPat:
		ref, ok := ty.(*types.Reference)
		if !ok {
			r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "reference pattern against %v", ty)
		}
		if ref.Mutable != pat.Mutable {
			r.fail(pat.Span(), diag.CodeResolveTypeMismatch, "mismatched reference mutability: expected %v", ty)
		}
		out.Kind = &hir.PatDeref{Subpattern: r.resolvePat(pat.Sub, ref.Elem, pb)}

	case *BoxPat:
		box, ok := ty.(*types.Box)
		if !ok {
			r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "box pattern against %v", ty)
		}
		out.Kind = &hir.PatDerefPattern{Subpattern: r.resolvePat(pat.Sub, box.Elem, pb)}

	case *OrPat:
		out.Kind = r.resolveOrPat(pat, ty, pb)

	case *NeverPat:
		out.Kind = &hir.PatNever{}

	case *RestPat:
		r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "`..` is only allowed in tuple, variant and slice patterns")

	default:
		r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "unsupported pattern %s", describe(pat))
	}

	return out
}

func (r *resolver) bound(l *LitExpr, ty types.Type) *int64 {
	c := r.constant(l, ty)
	v := c.Value.(int64)
	return &v
}

func (r *resolver) resolveOrPat(pat *OrPat, ty types.Type, pb *binder) hir.PatKind {
	f := &orFrame{}
	pb.frames = append(pb.frames, f)
	defer func() { pb.frames = pb.frames[:len(pb.frames)-1] }()

	k := &hir.PatOr{}

	// Never alternatives cannot match, so they need not bind anything.
	for _, alt := range pat.Alts {
		f.cur = map[string]bool{}
		f.second = f.first != nil

		p := r.resolvePat(alt, ty, pb)
		k.Pats = append(k.Pats, p)

		switch {
		case p.IsNeverPattern():
			continue
		case f.first == nil:
			f.first = f.cur
			continue
		}

		for name := range f.first {
			if !f.cur[name] {
				r.fail(alt.Span(), diag.CodeResolveOrBindings, "variable %s is not bound in all alternatives", name)
			}
		}
		for name := range f.cur {
			if !f.first[name] {
				r.fail(alt.Span(), diag.CodeResolveOrBindings, "variable %s is not bound in all alternatives", name)
			}
		}
	}

	return k
}

func (r *resolver) resolvePathPat(pat *PathPat, ty types.Type, pb *binder) hir.PatKind {
	if pat.Braced {
		if len(pat.Path) != 1 {
			r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "struct pattern %s: variants have positional fields", fmtPath(pat.Path))
		}

		s, ok := r.env.Types[pat.Path[0]].(*types.Struct)
		if !ok || !types.Equal(s, ty) {
			r.fail(pat.Span(), diag.CodeResolveTypeMismatch, "mismatched types: expected %v, found %s", ty, pat.Path[0])
		}

		k := &hir.PatLeaf{}
		seen := map[int]bool{}
		for _, f := range pat.Fields {
			i := s.FieldIndex(f.Name)
			if i < 0 {
				r.fail(f.Span, diag.CodeResolveUnknownName, "struct %s has no field %s", s.Name, f.Name)
			}
			if seen[i] {
				r.fail(f.Span, diag.CodeResolveInvalidPattern, "field %s is bound twice", f.Name)
			}
			seen[i] = true
			k.Subpatterns = append(k.Subpatterns, hir.FieldPat{Field: i, Pattern: r.resolvePat(f.Pattern, s.Fields[i].Type, pb)})
		}

		if !pat.Rest && len(seen) != len(s.Fields) {
			r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "pattern does not mention all fields of %s", s.Name)
		}

		return k
	}

	e, v := r.variant(pat.Path, ty, pat.Span())
	payload := e.Variants[v].Payload

	if !pat.HasArgs {
		r.checkArity(e, v, 0, pat.Span())
		return &hir.PatVariant{Enum: e, Variant: v}
	}

	return &hir.PatVariant{Enum: e, Variant: v, Subpatterns: r.resolveTupleFields(pat.Args, payload, ty, pat.Span(), pb)}
}

func (r *resolver) checkArity(e *types.Enum, v, n int, span diag.Span) {
	want := len(e.Variants[v].Payload)
	if n == want {
		return
	}
	r.fail(span, diag.CodeResolveInvalidPattern, "%s::%s has %d fields, pattern has %d", e.Name, e.Variants[v].Name, want, n)
}

// resolveTupleFields resolves positional subpatterns, at most one of which
// is `..` standing for the fields not mentioned.
func (r *resolver) resolveTupleFields(elems []Pattern, fields []types.Type, ty types.Type, span diag.Span, pb *binder) []hir.FieldPat {
	rest := -1
	for i, e := range elems {
		rp, ok := e.(*RestPat)
		if !ok {
			continue
		}
		if rest >= 0 || rp.Binding != nil {
			r.fail(e.Span(), diag.CodeResolveInvalidPattern, "invalid `..` in tuple pattern")
		}
		rest = i
	}

	n := len(elems)
	if rest >= 0 {
		n--
	}

	if n > len(fields) || rest < 0 && n != len(fields) {
		r.fail(span, diag.CodeResolveTypeMismatch, "pattern has %d fields, %v has %d", n, ty, len(fields))
	}

	var out []hir.FieldPat
	for i, e := range elems {
		switch {
		case i == rest:
			continue
		case rest >= 0 && i > rest:
			idx := len(fields) - (len(elems) - i)
			out = append(out, hir.FieldPat{Field: idx, Pattern: r.resolvePat(e, fields[idx], pb)})
		default:
			out = append(out, hir.FieldPat{Field: i, Pattern: r.resolvePat(e, fields[i], pb)})
		}
	}

	return out
}

func (r *resolver) resolveSlicePat(pat *SlicePat, ty types.Type, pb *binder) hir.PatKind {
	var elem types.Type
	arrayLen := -1

	switch t := ty.(type) {
	case *types.Slice:
		elem = t.Elem
	case *types.Array:
		elem = t.Elem
		arrayLen = t.Len
	default:
		r.fail(pat.Span(), diag.CodeResolveInvalidPattern, "slice pattern against %v", ty)
	}

	k := &hir.PatSlice{}
	var rest *RestPat

	for _, e := range pat.Elems {
		if rp, ok := e.(*RestPat); ok {
			if rest != nil {
				r.fail(e.Span(), diag.CodeResolveInvalidPattern, "`..` can only be used once per slice pattern")
			}
			rest = rp
			continue
		}

		p := r.resolvePat(e, elem, pb)
		if rest == nil {
			k.Prefix = append(k.Prefix, p)
		} else {
			k.Suffix = append(k.Suffix, p)
		}
	}

	fixed := len(k.Prefix) + len(k.Suffix)

	if arrayLen >= 0 {
		if rest == nil && fixed != arrayLen || fixed > arrayLen {
			r.fail(pat.Span(), diag.CodeResolveTypeMismatch, "pattern has %d elements, %v has %d", fixed, ty, arrayLen)
		}
	}

	if rest == nil {
		return k
	}

	restTy := ty
	if arrayLen >= 0 {
		restTy = &types.Array{Elem: elem, Len: arrayLen - fixed}
	}

	if rest.Binding != nil {
		k.Slice = r.resolvePat(rest.Binding, restTy, pb)
	} else {
		k.Slice = &hir.Pat{Kind: &hir.PatWild{}, Type: restTy, Span: rest.Span()}
	}

	return k
}

// ascribe wraps p in a user type ascription of ty.
func ascribe(p *hir.Pat, ty types.Type, span diag.Span) *hir.Pat {
	return &hir.Pat{
		Type: ty,
		Span: p.Span,
		Kind: &hir.PatAscribe{
			Subpattern: p,
			Annotation: mir.UserTypeAnnotation{Type: ty, Span: span},
			Variance:   mir.Covariant,
		},
	}
}
