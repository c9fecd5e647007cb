package syntax

import "github.com/malphas-lang/matchc/internal/diag"

// Node is anything the parser produces.
type Node interface {
	Span() diag.Span
}

type node struct {
	span diag.Span
}

func (n *node) Span() diag.Span { return n.span }

// Type expressions.
type (
	TypeExpr interface {
		Node
		typeExpr()
	}

	// NamedType is a primitive, enum or struct name.
	NamedType struct {
		node
		Name string
	}

	TupleType struct {
		node
		Elems []TypeExpr
	}

	RefType struct {
		node
		Mutable bool
		Elem    TypeExpr
	}

	// SliceType is `[T]`, or `[T; N]` when Len >= 0.
	SliceType struct {
		node
		Elem TypeExpr
		Len  int
	}

	BoxType struct {
		node
		Elem TypeExpr
	}

	NeverType struct {
		node
	}
)

func (*NamedType) typeExpr() {}
func (*TupleType) typeExpr() {}
func (*RefType) typeExpr()   {}
func (*SliceType) typeExpr() {}
func (*BoxType) typeExpr()   {}
func (*NeverType) typeExpr() {}

// Patterns.
type (
	Pattern interface {
		Node
		pattern()
	}

	WildPat struct {
		node
	}

	// IdentPat binds a name, or names a unit variant of the expected enum.
	IdentPat struct {
		node
		Name    string
		Ref     bool
		Mutable bool
		Sub     Pattern // x @ Sub
	}

	LitPat struct {
		node
		Lit *LitExpr
	}

	// RangePat is `lo..hi`, `lo..=hi`, `lo..` or `..=hi`.
	RangePat struct {
		node
		Lo, Hi    *LitExpr
		Inclusive bool
	}

	// PathPat is `Enum::Variant`, `Variant(p, q)` or `Struct { f: p, .. }`.
	PathPat struct {
		node
		Path    []string
		Args    []Pattern // tuple-like payload, may contain one RestPat
		HasArgs bool
		Fields  []FieldPattern
		Braced  bool
		Rest    bool // `..` in a braced pattern
	}

	FieldPattern struct {
		Name    string
		Pattern Pattern
		Span    diag.Span
	}

	TuplePat struct {
		node
		Elems []Pattern
	}

	SlicePat struct {
		node
		Elems []Pattern
	}

	// RestPat is `..` or `name @ ..` inside tuple and slice patterns.
	RestPat struct {
		node
		Binding *IdentPat
	}

	RefPat struct {
		node
		Mutable bool
		Sub     Pattern
	}

	BoxPat struct {
		node
		Sub Pattern
	}

	OrPat struct {
		node
		Alts []Pattern
	}

	NeverPat struct {
		node
	}
)

func (*WildPat) pattern()  {}
func (*IdentPat) pattern() {}
func (*LitPat) pattern()   {}
func (*RangePat) pattern() {}
func (*PathPat) pattern()  {}
func (*TuplePat) pattern() {}
func (*SlicePat) pattern() {}
func (*RestPat) pattern()  {}
func (*RefPat) pattern()   {}
func (*BoxPat) pattern()   {}
func (*OrPat) pattern()    {}
func (*NeverPat) pattern() {}

// Expressions.
type (
	Expr interface {
		Node
		expr()
	}

	LitExpr struct {
		node
		Kind  TokenType // INT, CHAR, STRING, TRUE, FALSE
		Value string
		Neg   bool
	}

	IdentExpr struct {
		node
		Name string
	}

	PathExpr struct {
		node
		Path []string
	}

	CallExpr struct {
		node
		Callee Expr
		Args   []Expr
	}

	StructExpr struct {
		node
		Name   string
		Fields []FieldInit
	}

	FieldInit struct {
		Name  string
		Value Expr
		Span  diag.Span
	}

	FieldExpr struct {
		node
		X    Expr
		Name string // field name or tuple index
	}

	UnaryExpr struct {
		node
		Op      TokenType // BANG, MINUS, ASTERISK, AMPERSAND
		Mutable bool      // &mut
		X       Expr
	}

	BinaryExpr struct {
		node
		Op    TokenType
		Left  Expr
		Right Expr
	}

	LetExpr struct {
		node
		Pat  Pattern
		Init Expr
	}

	IfExpr struct {
		node
		Cond Expr
		Then *BlockExpr
		Else Expr
	}

	MatchExpr struct {
		node
		Scrutinee Expr
		Arms      []*MatchArm
	}

	MatchArm struct {
		Pattern Pattern
		Guard   Expr
		Body    Expr
		Span    diag.Span
	}

	BlockExpr struct {
		node
		Stmts []Stmt
		Tail  Expr
	}

	AssignExpr struct {
		node
		Name  string
		Value Expr
	}

	TupleExpr struct {
		node
		Elems []Expr
	}

	ArrayExpr struct {
		node
		Elems []Expr
	}

	BoxExpr struct {
		node
		X Expr
	}

	ReturnExpr struct {
		node
		Value Expr
	}
)

func (*LitExpr) expr()    {}
func (*IdentExpr) expr()  {}
func (*PathExpr) expr()   {}
func (*CallExpr) expr()   {}
func (*StructExpr) expr() {}
func (*FieldExpr) expr()  {}
func (*UnaryExpr) expr()  {}
func (*BinaryExpr) expr() {}
func (*LetExpr) expr()    {}
func (*IfExpr) expr()     {}
func (*MatchExpr) expr()  {}
func (*BlockExpr) expr()  {}
func (*AssignExpr) expr() {}
func (*TupleExpr) expr()  {}
func (*ArrayExpr) expr()  {}
func (*BoxExpr) expr()    {}
func (*ReturnExpr) expr() {}

// Statements.
type (
	Stmt interface {
		Node
		stmt()
	}

	LetStmt struct {
		node
		Pat  Pattern
		Type TypeExpr
		Init Expr
		Else *BlockExpr
	}

	ExprStmt struct {
		node
		X Expr
	}
)

func (*LetStmt) stmt()  {}
func (*ExprStmt) stmt() {}

// Declarations.
type (
	Decl interface {
		Node
		decl()
	}

	EnumDecl struct {
		node
		Name     string
		Variants []VariantDecl
	}

	VariantDecl struct {
		Name    string
		Payload []TypeExpr
		Span    diag.Span
	}

	StructDecl struct {
		node
		Name   string
		Fields []FieldDecl
	}

	FieldDecl struct {
		Name string
		Type TypeExpr
		Span diag.Span
	}

	// FnDecl is a function. Functions without a body are host functions
	// implemented by interpreter hooks.
	FnDecl struct {
		node
		Name   string
		Params []ParamDecl
		Ret    TypeExpr
		Body   *BlockExpr
	}

	ParamDecl struct {
		Name    string
		Mutable bool
		Type    TypeExpr
		Span    diag.Span
	}
)

func (*EnumDecl) decl()   {}
func (*StructDecl) decl() {}
func (*FnDecl) decl()     {}

// File is a parsed source file.
type File struct {
	Decls []Decl
}
