package mir

import (
	"fmt"

	"github.com/malphas-lang/matchc/internal/types"
)

// ProjKind is the kind of one place projection.
type ProjKind int

const (
	ProjField ProjKind = iota
	ProjDowncast
	ProjDeref
	ProjConstantIndex
	ProjSubslice
)

// PlaceElem is one projection step. Type is the type of the projected place.
type PlaceElem struct {
	Kind ProjKind
	Type types.Type

	Index int    // field index or variant index
	Name  string // variant name, for printing

	Offset    int // constant index
	MinLength int
	FromEnd   bool

	From int // subslice
	To   int
}

func (e PlaceElem) equal(o PlaceElem) bool {
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case ProjField, ProjDowncast:
		return e.Index == o.Index
	case ProjConstantIndex:
		return e.Offset == o.Offset && e.MinLength == o.MinLength && e.FromEnd == o.FromEnd
	case ProjSubslice:
		return e.From == o.From && e.To == o.To && e.FromEnd == o.FromEnd
	}
	return true
}

// Place is a memory location: a local followed by projections.
// Projection slices are never shared between places.
type Place struct {
	Local      Local
	Projection []PlaceElem
}

// PlaceOf returns the place of a whole local.
func PlaceOf(l Local) Place { return Place{Local: l} }

func (p Place) project(e PlaceElem) Place {
	proj := make([]PlaceElem, len(p.Projection), len(p.Projection)+1)
	copy(proj, p.Projection)
	return Place{Local: p.Local, Projection: append(proj, e)}
}

// Field projects field i of a tuple, struct or downcast variant.
func (p Place) Field(i int, ty types.Type) Place {
	return p.project(PlaceElem{Kind: ProjField, Index: i, Type: ty})
}

// Downcast views an enum place as one of its variants.
func (p Place) Downcast(variant int, name string, enum types.Type) Place {
	return p.project(PlaceElem{Kind: ProjDowncast, Index: variant, Name: name, Type: enum})
}

// Deref follows a reference.
func (p Place) Deref(ty types.Type) Place {
	return p.project(PlaceElem{Kind: ProjDeref, Type: ty})
}

// ConstantIndex projects a statically known element of a slice or array.
func (p Place) ConstantIndex(offset, minLength int, fromEnd bool, ty types.Type) Place {
	return p.project(PlaceElem{Kind: ProjConstantIndex, Offset: offset, MinLength: minLength, FromEnd: fromEnd, Type: ty})
}

// Subslice projects elements [from, to) or, with fromEnd, [from, len-to).
func (p Place) Subslice(from, to int, fromEnd bool, ty types.Type) Place {
	return p.project(PlaceElem{Kind: ProjSubslice, From: from, To: to, FromEnd: fromEnd, Type: ty})
}

// Prefix returns the place made of the first n projections.
func (p Place) Prefix(n int) Place {
	proj := make([]PlaceElem, n)
	copy(proj, p.Projection[:n])
	return Place{Local: p.Local, Projection: proj}
}

// Equal compares locals and projections.
func (p Place) Equal(o Place) bool {
	if p.Local != o.Local || len(p.Projection) != len(o.Projection) {
		return false
	}
	for i := range p.Projection {
		if !p.Projection[i].equal(o.Projection[i]) {
			return false
		}
	}
	return true
}

// IsLocal reports whether p is a bare local.
func (p Place) IsLocal() bool { return len(p.Projection) == 0 }

// HasDeref reports whether any projection is a dereference.
func (p Place) HasDeref() bool {
	for _, e := range p.Projection {
		if e.Kind == ProjDeref {
			return true
		}
	}
	return false
}

// Type returns the type of the place.
func (p Place) Type(f *Function) types.Type {
	if n := len(p.Projection); n > 0 {
		return p.Projection[n-1].Type
	}
	return f.Locals[p.Local].Type
}

// Key returns a string usable as a map key.
func (p Place) Key() string { return p.String() }

func (p Place) String() string {
	s := fmt.Sprintf("_%d", p.Local)
	for _, e := range p.Projection {
		switch e.Kind {
		case ProjField:
			s = fmt.Sprintf("%s.%d", s, e.Index)
		case ProjDowncast:
			s = fmt.Sprintf("(%s as %s)", s, e.Name)
		case ProjDeref:
			s = "(*" + s + ")"
		case ProjConstantIndex:
			if e.FromEnd {
				s = fmt.Sprintf("%s[-%d of %d]", s, e.Offset, e.MinLength)
			} else {
				s = fmt.Sprintf("%s[%d of %d]", s, e.Offset, e.MinLength)
			}
		case ProjSubslice:
			if e.FromEnd {
				s = fmt.Sprintf("%s[%d:-%d]", s, e.From, e.To)
			} else {
				s = fmt.Sprintf("%s[%d:%d]", s, e.From, e.To)
			}
		}
	}
	return s
}
