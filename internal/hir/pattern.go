package hir

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// VarID identifies a variable across its declaration and uses.
type VarID int

// ByRef tells how a binding captures the matched value.
type ByRef int

const (
	ByValue ByRef = iota
	ByRefShared
	ByRefMut
)

// BindingMode is the capture mode and mutability of a binding.
type BindingMode struct {
	ByRef   ByRef
	Mutable bool
}

func (m BindingMode) String() string {
	s := ""
	switch m.ByRef {
	case ByRefShared:
		s = "ref "
	case ByRefMut:
		s = "ref mut "
	}
	if m.Mutable {
		s += "mut "
	}
	return s
}

// Pat is a typed pattern. Type is the type of the value the pattern matches.
type Pat struct {
	Kind PatKind
	Type types.Type
	Span diag.Span
}

// PatKind is the closed set of pattern shapes.
type PatKind interface {
	patKind()
}

// PatWild matches anything: `_`.
type PatWild struct{}

// PatBinding binds the matched value: `x`, `ref x`, `x @ p`.
type PatBinding struct {
	Name       string
	Var        VarID
	Mode       BindingMode
	VarType    types.Type // type of the variable; &T for ref bindings
	Subpattern *Pat
	// IsPrimary is false for the repeated bindings of later or-pattern alternatives.
	IsPrimary bool
}

// PatConstant matches one value.
type PatConstant struct {
	Value *mir.Constant
}

// RangeEnd distinguishes `a..=b` from `a..b`.
type RangeEnd int

const (
	RangeIncluded RangeEnd = iota
	RangeExcluded
)

// PatRange matches integers (or chars) in a range. Nil bounds are open.
type PatRange struct {
	Lo  *int64
	Hi  *int64
	End RangeEnd
}

// PatVariant matches one variant of an enum and its payload.
type PatVariant struct {
	Enum        *types.Enum
	Variant     int
	Subpatterns []FieldPat
}

// PatLeaf matches a tuple or struct field by field.
type PatLeaf struct {
	Subpatterns []FieldPat
}

// FieldPat pairs a field index with its pattern.
type FieldPat struct {
	Field   int
	Pattern *Pat
}

// PatSlice matches `[prefix.., slice @ .., suffix..]`. The pattern is an
// array pattern when Type is an array.
type PatSlice struct {
	Prefix []*Pat
	Slice  *Pat
	Suffix []*Pat
}

// PatDeref matches through a builtin reference: `&p`.
type PatDeref struct {
	Subpattern *Pat
}

// PatDerefPattern matches through a smart pointer: `box p`.
type PatDerefPattern struct {
	Subpattern *Pat
	Mutable    bool
}

// PatOr matches if any alternative matches: `p | q`.
type PatOr struct {
	Pats []*Pat
}

// PatNever asserts the place holds a value of an uninhabited type: `!`.
type PatNever struct{}

// PatAscribe asserts a user written type: `p: T`.
type PatAscribe struct {
	Subpattern *Pat
	Annotation mir.UserTypeAnnotation
	Variance   mir.Variance
}

func (*PatWild) patKind()         {}
func (*PatBinding) patKind()      {}
func (*PatConstant) patKind()     {}
func (*PatRange) patKind()        {}
func (*PatVariant) patKind()      {}
func (*PatLeaf) patKind()         {}
func (*PatSlice) patKind()        {}
func (*PatDeref) patKind()        {}
func (*PatDerefPattern) patKind() {}
func (*PatOr) patKind()           {}
func (*PatNever) patKind()        {}
func (*PatAscribe) patKind()      {}

// Children returns the direct subpatterns in source order.
func (p *Pat) Children() []*Pat {
	switch k := p.Kind.(type) {
	case *PatBinding:
		if k.Subpattern != nil {
			return []*Pat{k.Subpattern}
		}
	case *PatVariant:
		return fieldPats(k.Subpatterns)
	case *PatLeaf:
		return fieldPats(k.Subpatterns)
	case *PatSlice:
		out := append([]*Pat{}, k.Prefix...)
		if k.Slice != nil {
			out = append(out, k.Slice)
		}
		return append(out, k.Suffix...)
	case *PatDeref:
		return []*Pat{k.Subpattern}
	case *PatDerefPattern:
		return []*Pat{k.Subpattern}
	case *PatOr:
		return k.Pats
	case *PatAscribe:
		return []*Pat{k.Subpattern}
	}
	return nil
}

func fieldPats(fps []FieldPat) []*Pat {
	out := make([]*Pat, len(fps))
	for i, fp := range fps {
		out[i] = fp.Pattern
	}
	return out
}

// Walk visits p and its subpatterns in pre-order. Returning false from f
// skips the children of the visited pattern.
func (p *Pat) Walk(f func(*Pat) bool) {
	stack := []*Pat{p}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f(n) {
			continue
		}
		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// IsNeverPattern reports whether the pattern can never match: it contains a
// never pattern outside of or-patterns, or every alternative of an
// or-pattern is itself a never pattern.
func (p *Pat) IsNeverPattern() bool {
	never := false
	p.Walk(func(n *Pat) bool {
		switch k := n.Kind.(type) {
		case *PatNever:
			never = true
			return false
		case *PatOr:
			all := true
			for _, alt := range k.Pats {
				if !alt.IsNeverPattern() {
					all = false
					break
				}
			}
			if all {
				never = true
			}
			return false
		}
		return true
	})
	return never
}

// VisitPrimaryBindings calls f for every binding that declares a variable,
// in source order. Repeated bindings of later or-pattern alternatives are
// not primary and are skipped.
func (p *Pat) VisitPrimaryBindings(f func(b *PatBinding, span diag.Span)) {
	p.Walk(func(n *Pat) bool {
		if k, ok := n.Kind.(*PatBinding); ok && k.IsPrimary {
			f(k, n.Span)
		}
		return true
	})
}

// Contains reports whether v lies in the range.
func (r *PatRange) Contains(v int64) bool {
	if r.Lo != nil && v < *r.Lo {
		return false
	}
	if r.Hi != nil {
		if r.End == RangeIncluded && v > *r.Hi {
			return false
		}
		if r.End == RangeExcluded && v >= *r.Hi {
			return false
		}
	}
	return true
}

// IsFull reports whether the range covers every value.
func (r *PatRange) IsFull() bool {
	return r.Lo == nil && r.Hi == nil
}

// Equal compares bounds and end kind.
func (r *PatRange) Equal(o *PatRange) bool {
	return eqBound(r.Lo, o.Lo) && eqBound(r.Hi, o.Hi) && (r.Hi == nil || r.End == o.End)
}

// Overlaps reports whether some value lies in both ranges.
func (r *PatRange) Overlaps(o *PatRange) bool {
	lo := maxBound(r.Lo, o.Lo)
	if lo == nil {
		return r.nonEmpty() && o.nonEmpty()
	}
	return r.Contains(*lo) && o.Contains(*lo)
}

func (r *PatRange) nonEmpty() bool {
	if r.Lo == nil || r.Hi == nil {
		return true
	}
	if r.End == RangeIncluded {
		return *r.Lo <= *r.Hi
	}
	return *r.Lo < *r.Hi
}

func eqBound(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func maxBound(a, b *int64) *int64 {
	if a == nil {
		return b
	}
	if b == nil || *a >= *b {
		return a
	}
	return b
}
