package mir

import (
	"github.com/malphas-lang/matchc/internal/types"
)

// Operand represents a value used in an operation
type Operand interface {
	operandNode()
}

// Copy reads a place, leaving it intact.
type Copy struct {
	Place Place
}

func (*Copy) operandNode() {}

// Move reads a place and leaves it moved-out.
type Move struct {
	Place Place
}

func (*Move) operandNode() {}

// Constant represents a constant value
type Constant struct {
	Type  types.Type
	Value interface{} // int64, bool, string or nil for ()
}

func (*Constant) operandNode() {}

// Bool returns a boolean constant.
func Bool(v bool) *Constant { return &Constant{Type: types.TypeBool, Value: v} }

// Int returns an integer constant of type ty.
func Int(ty types.Type, v int64) *Constant { return &Constant{Type: ty, Value: v} }

// Unit returns the unit constant.
func Unit() *Constant { return &Constant{Type: types.TypeUnit} }

// Rvalue represents a right-hand-side value (expression result)
type Rvalue interface {
	rvalueNode()
}

// Use yields the operand.
type Use struct {
	Operand Operand
}

func (*Use) rvalueNode() {}

// BorrowKind distinguishes real and fake borrows.
type BorrowKind int

const (
	BorrowShared BorrowKind = iota
	BorrowMut
	// BorrowFakeShallow freezes the discriminant-level shape of a place during a guard.
	BorrowFakeShallow
	// BorrowFakeDeep freezes the whole value behind a place during a guard.
	BorrowFakeDeep
)

func (k BorrowKind) String() string {
	switch k {
	case BorrowMut:
		return "&mut "
	case BorrowFakeShallow:
		return "&fake shallow "
	case BorrowFakeDeep:
		return "&fake deep "
	}
	return "&"
}

// IsFake reports whether the borrow exists for analysis only.
func (k BorrowKind) IsFake() bool {
	return k == BorrowFakeShallow || k == BorrowFakeDeep
}

// Ref takes a reference to a place.
type Ref struct {
	Kind  BorrowKind
	Place Place
}

func (*Ref) rvalueNode() {}

// Discriminant reads the variant index of an enum place.
type Discriminant struct {
	Place Place
}

func (*Discriminant) rvalueNode() {}

// Len reads the length of a slice or array place.
type Len struct {
	Place Place
}

func (*Len) rvalueNode() {}

// BinOp is a binary operator.
type BinOp string

const (
	OpEq  BinOp = "=="
	OpNe  BinOp = "!="
	OpLt  BinOp = "<"
	OpLe  BinOp = "<="
	OpGt  BinOp = ">"
	OpGe  BinOp = ">="
	OpAdd BinOp = "+"
	OpSub BinOp = "-"
	OpMul BinOp = "*"
)

// BinaryOp combines two operands.
type BinaryOp struct {
	Op    BinOp
	Left  Operand
	Right Operand
}

func (*BinaryOp) rvalueNode() {}

// Not negates a boolean.
type Not struct {
	Operand Operand
}

func (*Not) rvalueNode() {}

// Aggregate builds a tuple, struct, array or enum value.
// Variant is -1 unless Type is an enum.
type Aggregate struct {
	Type    types.Type
	Variant int
	Fields  []Operand
}

func (*Aggregate) rvalueNode() {}
