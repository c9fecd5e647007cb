package interp

import (
	"strconv"
	"strings"

	"github.com/malphas-lang/matchc/internal/types"
)

// Value is a runtime value.
type Value interface {
	String() string
	value()
}

// Cell is one addressable memory slot. Aggregates hold their elements in
// cells so that references and projections can point inside them.
type Cell struct {
	V Value
}

// NewCell returns a cell holding v.
func NewCell(v Value) *Cell { return &Cell{V: v} }

type (
	// Int is an int or usize value.
	Int int64

	// Char is a char value.
	Char rune

	// Bool is a bool value.
	Bool bool

	// Str is a string value.
	Str string

	// Unit is the value of ().
	Unit struct{}

	// Agg is a tuple, struct, array or slice.
	Agg struct {
		Type  types.Type
		Elems []*Cell
	}

	// Enum is one variant of an enum with its payload.
	Enum struct {
		Type    *types.Enum
		Variant int
		Fields  []*Cell
	}

	// Ref points at a cell.
	Ref struct {
		Target  *Cell
		Mutable bool
	}

	// Box owns the cell it points at.
	Box struct {
		Target *Cell
	}

	moved  struct{}
	uninit struct{}
)

// Moved is the state of a slot whose value was moved out.
var Moved Value = moved{}

// Uninit is the state of a slot that holds no value.
var Uninit Value = uninit{}

func (Int) value()    {}
func (Char) value()   {}
func (Bool) value()   {}
func (Str) value()    {}
func (Unit) value()   {}
func (*Agg) value()   {}
func (*Enum) value()  {}
func (*Ref) value()   {}
func (*Box) value()   {}
func (moved) value()  {}
func (uninit) value() {}

func (v Int) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Char) String() string { return strconv.QuoteRune(rune(v)) }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }
func (v Str) String() string  { return strconv.Quote(string(v)) }
func (Unit) String() string   { return "()" }
func (moved) String() string  { return "<moved>" }
func (uninit) String() string { return "<uninit>" }

func (v *Agg) String() string {
	var b strings.Builder

	open, close := "(", ")"
	switch t := v.Type.(type) {
	case *types.Struct:
		b.WriteString(t.Name)
		open, close = " { ", " }"
	case *types.Array, *types.Slice:
		open, close = "[", "]"
	}

	b.WriteString(open)
	writeCells(&b, v.Elems)
	if _, ok := v.Type.(*types.Tuple); ok && len(v.Elems) == 1 {
		b.WriteString(",")
	}
	b.WriteString(close)

	return b.String()
}

func (v *Enum) String() string {
	var b strings.Builder

	if v.Type != nil {
		b.WriteString(v.Type.Name)
		b.WriteString("::")
		b.WriteString(v.Type.Variants[v.Variant].Name)
	} else {
		b.WriteString("variant")
		b.WriteString(strconv.Itoa(v.Variant))
	}

	if len(v.Fields) != 0 {
		b.WriteString("(")
		writeCells(&b, v.Fields)
		b.WriteString(")")
	}

	return b.String()
}

func (v *Ref) String() string {
	if v.Mutable {
		return "&mut " + v.Target.V.String()
	}
	return "&" + v.Target.V.String()
}

func (v *Box) String() string { return "box " + v.Target.V.String() }

func writeCells(b *strings.Builder, cells []*Cell) {
	for i, c := range cells {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.V.String())
	}
}

// NewAgg builds an aggregate of type ty.
func NewAgg(ty types.Type, elems ...Value) *Agg {
	return &Agg{Type: ty, Elems: cells(elems)}
}

// NewEnum builds variant v of e.
func NewEnum(e *types.Enum, v int, fields ...Value) *Enum {
	return &Enum{Type: e, Variant: v, Fields: cells(fields)}
}

// NewRef returns a shared reference to a fresh cell holding v.
func NewRef(v Value) *Ref { return &Ref{Target: NewCell(v)} }

// NewBox returns a box holding v.
func NewBox(v Value) *Box { return &Box{Target: NewCell(v)} }

func cells(vals []Value) []*Cell {
	out := make([]*Cell, len(vals))
	for i, v := range vals {
		out[i] = NewCell(v)
	}
	return out
}

// Clone copies v deeply. References keep pointing at the same cell.
// It fails if any part of v was moved out or never initialized.
func Clone(v Value) (Value, error) {
	switch v := v.(type) {
	case moved:
		return nil, ErrMovedValue
	case uninit:
		return nil, ErrUninit
	case *Agg:
		elems, err := cloneCells(v.Elems)
		if err != nil {
			return nil, err
		}
		return &Agg{Type: v.Type, Elems: elems}, nil
	case *Enum:
		fields, err := cloneCells(v.Fields)
		if err != nil {
			return nil, err
		}
		return &Enum{Type: v.Type, Variant: v.Variant, Fields: fields}, nil
	case *Ref:
		return &Ref{Target: v.Target, Mutable: v.Mutable}, nil
	case *Box:
		inner, err := Clone(v.Target.V)
		if err != nil {
			return nil, err
		}
		return &Box{Target: NewCell(inner)}, nil
	}

	return v, nil
}

func cloneCells(cs []*Cell) ([]*Cell, error) {
	out := make([]*Cell, len(cs))
	for i, c := range cs {
		v, err := Clone(c.V)
		if err != nil {
			return nil, err
		}
		out[i] = NewCell(v)
	}
	return out, nil
}

// Equal compares values structurally. References compare their targets.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case *Agg:
		b, ok := b.(*Agg)
		return ok && cellsEqual(a.Elems, b.Elems)
	case *Enum:
		b, ok := b.(*Enum)
		return ok && a.Variant == b.Variant && cellsEqual(a.Fields, b.Fields)
	case *Ref:
		b, ok := b.(*Ref)
		return ok && Equal(a.Target.V, b.Target.V)
	case *Box:
		b, ok := b.(*Box)
		return ok && Equal(a.Target.V, b.Target.V)
	}

	if ab, ok := bits(a); ok {
		bb, ok := bits(b)
		return ok && ab == bb
	}

	return a == b
}

func cellsEqual(a, b []*Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i].V, b[i].V) {
			return false
		}
	}
	return true
}

// bits returns the switch value of scalar values.
func bits(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case Char:
		return int64(v), true
	case Bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
