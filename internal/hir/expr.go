package hir

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// Expr is a typed expression.
type Expr interface {
	exprNode()
	Type() types.Type
	Span() diag.Span
}

// ExprBase carries the fields every expression has.
type ExprBase struct {
	Ty types.Type
	Sp diag.Span
}

func (*ExprBase) exprNode()          {}
func (e *ExprBase) Type() types.Type { return e.Ty }
func (e *ExprBase) Span() diag.Span  { return e.Sp }

// Lit is a constant.
type Lit struct {
	ExprBase
	Value *mir.Constant
}

// VarRef reads a variable.
type VarRef struct {
	ExprBase
	Var VarID
}

// Field projects a tuple or struct field of a place expression.
type Field struct {
	ExprBase
	Base  Expr
	Index int
}

// Deref follows a reference held by a place expression.
type Deref struct {
	ExprBase
	X Expr
}

// Borrow takes a reference to a place expression.
type Borrow struct {
	ExprBase
	Mutable bool
	X       Expr
}

// Call invokes an opaque function with observable effects.
type Call struct {
	ExprBase
	Func string
	Args []Expr
}

// Binary applies a comparison or arithmetic operator.
type Binary struct {
	ExprBase
	Op    mir.BinOp
	Left  Expr
	Right Expr
}

// And is short-circuit conjunction.
type And struct {
	ExprBase
	Left  Expr
	Right Expr
}

// Or is short-circuit disjunction.
type Or struct {
	ExprBase
	Left  Expr
	Right Expr
}

// Not is boolean negation.
type Not struct {
	ExprBase
	X Expr
}

// Let is a refutable `let PAT = EXPR` inside a condition.
type Let struct {
	ExprBase
	Pat  *Pat
	Init Expr
}

// If evaluates Then when Cond holds, otherwise Else (which may be nil).
type If struct {
	ExprBase
	Cond Expr
	Then Expr
	Else Expr
}

// Match selects the first arm whose pattern and guard accept the scrutinee.
type Match struct {
	ExprBase
	Scrutinee Expr
	Arms      []*Arm
}

// Block runs statements then yields Tail (unit when nil).
type Block struct {
	ExprBase
	Stmts []Stmt
	Tail  Expr
}

// Assign stores into a variable.
type Assign struct {
	ExprBase
	Var   VarID
	Value Expr
}

// Construct builds a tuple, struct, array or enum variant value.
// Variant is -1 for non-enum types.
type Construct struct {
	ExprBase
	Variant int
	Fields  []Expr
}

// Return leaves the function.
type Return struct {
	ExprBase
	Value Expr
}

// Arm is one `PAT [if GUARD] => BODY` of a match.
type Arm struct {
	Pattern *Pat
	Guard   Expr
	Body    Expr
	Span    diag.Span
}

// Stmt is a statement inside a block.
type Stmt interface {
	stmtNode()
}

// LetStmt is `let PAT [= INIT] [else { ELSE }];`.
type LetStmt struct {
	Pat  *Pat
	Init Expr
	Else Expr
	Span diag.Span
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	X Expr
}

func (*LetStmt) stmtNode()  {}
func (*ExprStmt) stmtNode() {}

// Param is a function parameter bound to a variable.
type Param struct {
	Var     VarID
	Name    string
	Type    types.Type
	Mutable bool
	Span    diag.Span
}

// Func is a function body ready for lowering.
type Func struct {
	Name   string
	Params []Param
	Ret    types.Type
	Body   Expr
	Span   diag.Span
}

// IsPlaceExpr reports whether e denotes a memory location.
func IsPlaceExpr(e Expr) bool {
	switch e := e.(type) {
	case *VarRef:
		return true
	case *Field:
		return IsPlaceExpr(e.Base)
	case *Deref:
		return true
	}
	return false
}
