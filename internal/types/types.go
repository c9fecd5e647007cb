package types

import (
	"strconv"
	"strings"
)

// Type represents a type as seen by match lowering.
type Type interface {
	String() string
	// IsType is a marker method to ensure type safety.
	IsType()
}

// PrimitiveKind represents the kind of a primitive type.
type PrimitiveKind string

const (
	Int   PrimitiveKind = "int"
	Bool  PrimitiveKind = "bool"
	Char  PrimitiveKind = "char"
	Str   PrimitiveKind = "str"
	Unit  PrimitiveKind = "()"
	Never PrimitiveKind = "!"
	Usize PrimitiveKind = "usize"
)

// Primitive represents a primitive type.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) IsType()        {}

// Common primitive instances
var (
	TypeInt   = &Primitive{Kind: Int}
	TypeBool  = &Primitive{Kind: Bool}
	TypeChar  = &Primitive{Kind: Char}
	TypeStr   = &Primitive{Kind: Str}
	TypeUnit  = &Primitive{Kind: Unit}
	TypeNever = &Primitive{Kind: Never}
	TypeUsize = &Primitive{Kind: Usize}
)

// Tuple represents an anonymous product type.
type Tuple struct {
	Elems []Type
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *Tuple) IsType() {}

// Struct represents a named product type.
type Struct struct {
	Name   string
	Fields []Field
}

type Field struct {
	Name string
	Type Type
}

func (s *Struct) String() string { return s.Name }
func (s *Struct) IsType()        {}

// FieldIndex returns the index of the named field, or -1.
func (s *Struct) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Enum represents a sum type. The discriminant of a variant is its index.
type Enum struct {
	Name     string
	Variants []Variant
}

type Variant struct {
	Name    string
	Payload []Type // Can be empty for unit variants
}

func (e *Enum) String() string { return e.Name }
func (e *Enum) IsType()        {}

// VariantIndex returns the index of the named variant, or -1.
func (e *Enum) VariantIndex(name string) int {
	for i, v := range e.Variants {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// VariantInhabited reports whether values of variant i can exist.
func (e *Enum) VariantInhabited(i int) bool {
	for _, p := range e.Variants[i].Payload {
		if IsUninhabited(p) {
			return false
		}
	}
	return true
}

// Reference represents a borrowed pointer `&T` or `&mut T`.
type Reference struct {
	Elem    Type
	Mutable bool
}

func (r *Reference) String() string {
	if r.Mutable {
		return "&mut " + r.Elem.String()
	}
	return "&" + r.Elem.String()
}
func (r *Reference) IsType() {}

// Slice represents a dynamically sized sequence `[T]`.
type Slice struct {
	Elem Type
}

func (s *Slice) String() string { return "[" + s.Elem.String() + "]" }
func (s *Slice) IsType()        {}

// Array represents a fixed size sequence `[T; N]`.
type Array struct {
	Elem Type
	Len  int
}

func (a *Array) String() string { return "[" + a.Elem.String() + "; " + strconv.Itoa(a.Len) + "]" }
func (a *Array) IsType()        {}

// Box represents an owning smart pointer whose contents are reached
// through a deref call rather than a builtin dereference.
type Box struct {
	Elem Type
}

func (b *Box) String() string { return "Box<" + b.Elem.String() + ">" }
func (b *Box) IsType()        {}

// NewRef returns `&elem` or `&mut elem`.
func NewRef(elem Type, mutable bool) *Reference {
	return &Reference{Elem: elem, Mutable: mutable}
}

// Equal reports structural equality. Nominal types compare by identity.
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	switch a := a.(type) {
	case *Primitive:
		b, ok := b.(*Primitive)
		return ok && a.Kind == b.Kind
	case *Tuple:
		b, ok := b.(*Tuple)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case *Reference:
		b, ok := b.(*Reference)
		return ok && a.Mutable == b.Mutable && Equal(a.Elem, b.Elem)
	case *Slice:
		b, ok := b.(*Slice)
		return ok && Equal(a.Elem, b.Elem)
	case *Array:
		b, ok := b.(*Array)
		return ok && a.Len == b.Len && Equal(a.Elem, b.Elem)
	case *Box:
		b, ok := b.(*Box)
		return ok && Equal(a.Elem, b.Elem)
	}
	return false
}
