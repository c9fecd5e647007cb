package mir

import (
	"github.com/nikandfor/loc"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/types"
)

// Local indexes Function.Locals. Local 0 is the return place.
type Local int

const ReturnPlace Local = 0

// LocalKind tells why a local exists.
type LocalKind int

const (
	LocalTemp LocalKind = iota
	LocalReturn
	LocalArg
	LocalUserVar
	// LocalRefForGuard is the reference a guard sees in place of a by-value binding.
	LocalRefForGuard
	LocalFakeBorrow
)

func (k LocalKind) String() string {
	switch k {
	case LocalReturn:
		return "return"
	case LocalArg:
		return "arg"
	case LocalUserVar:
		return "user"
	case LocalRefForGuard:
		return "ref for guard"
	case LocalFakeBorrow:
		return "fake borrow"
	default:
		return "temp"
	}
}

// LocalDecl describes one local slot.
type LocalDecl struct {
	Name    string
	Type    types.Type
	Mutable bool
	Kind    LocalKind
	Span    diag.Span
}

// VarDebugInfo ties a source-level name to the place holding it.
type VarDebugInfo struct {
	Name  string
	Place Place
	Span  diag.Span
}

// UserTypeAnnotation is an entry of the ascription table.
type UserTypeAnnotation struct {
	Type types.Type
	Span diag.Span
}

// Function represents a MIR function with a control-flow graph
type Function struct {
	Name        string
	ReturnType  types.Type
	ArgCount    int
	Locals      []*LocalDecl
	Blocks      []*BasicBlock
	Entry       *BasicBlock
	DebugInfo   []VarDebugInfo
	Annotations []UserTypeAnnotation
}

// Args returns the argument locals in order.
func (f *Function) Args() []Local {
	out := make([]Local, f.ArgCount)
	for i := range out {
		out[i] = Local(i + 1)
	}
	return out
}

// BasicBlock represents a basic block in the CFG
type BasicBlock struct {
	ID         int
	Label      string
	Statements []Statement
	Terminator Terminator

	// From is the lowering function that created the block.
	From loc.PC
}

// Statement represents a non-terminating operation
type Statement interface {
	stmtNode()
}

// Terminator represents control flow (branch, return, etc.)
type Terminator interface {
	terminatorNode()
}

// Assign statement: place = rvalue
type Assign struct {
	Place  Place
	Rvalue Rvalue
}

func (*Assign) stmtNode() {}

// Call statement: dest = func(args...)
type Call struct {
	Dest Place
	Func string
	Args []Operand
}

func (*Call) stmtNode() {}

// FakeReadCause explains why a FakeRead was emitted.
type FakeReadCause int

const (
	// ForMatchGuard keeps fake borrows alive until the guard is done.
	ForMatchGuard FakeReadCause = iota
	// ForMatchedPlace makes the scrutinee count as read even when no test inspects it.
	ForMatchedPlace
	// ForGuardBinding keeps guard references alive across the guard.
	ForGuardBinding
	// ForLet makes the initializer of a let count as read.
	ForLet
)

func (c FakeReadCause) String() string {
	switch c {
	case ForMatchGuard:
		return "ForMatchGuard"
	case ForMatchedPlace:
		return "ForMatchedPlace"
	case ForGuardBinding:
		return "ForGuardBinding"
	case ForLet:
		return "ForLet"
	}
	return "FakeReadCause(?)"
}

// FakeRead is visible to analysis only; it does nothing at runtime.
type FakeRead struct {
	Cause FakeReadCause
	Place Place
}

func (*FakeRead) stmtNode() {}

// PlaceMention marks a place as evaluated without reading it.
type PlaceMention struct {
	Place Place
}

func (*PlaceMention) stmtNode() {}

// StorageLive starts the lifetime of a local's storage.
type StorageLive struct {
	Local Local
}

func (*StorageLive) stmtNode() {}

// StorageDead ends the lifetime of a local's storage.
type StorageDead struct {
	Local Local
}

func (*StorageDead) stmtNode() {}

// Drop runs the destructor of the value at Place.
type Drop struct {
	Place Place
}

func (*Drop) stmtNode() {}

// Variance of a user type ascription.
type Variance int

const (
	Covariant Variance = iota
	Invariant
	Contravariant
)

func (v Variance) String() string {
	switch v {
	case Invariant:
		return "+-"
	case Contravariant:
		return "-"
	}
	return "+"
}

// AscribeUserType asserts that Place has the annotated type.
type AscribeUserType struct {
	Place      Place
	Annotation int // index into Function.Annotations
	Variance   Variance
}

func (*AscribeUserType) stmtNode() {}

// Return terminator
type Return struct{}

func (*Return) terminatorNode() {}

// Goto terminator (unconditional jump)
type Goto struct {
	Target *BasicBlock
}

func (*Goto) terminatorNode() {}

// Branch terminator (conditional jump)
type Branch struct {
	Condition Operand
	True      *BasicBlock
	False     *BasicBlock
}

func (*Branch) terminatorNode() {}

// SwitchInt jumps to Targets[i] when the discriminant equals Values[i],
// otherwise to Otherwise.
type SwitchInt struct {
	Discr     Operand
	Values    []int64
	Targets   []*BasicBlock
	Otherwise *BasicBlock
}

func (*SwitchInt) terminatorNode() {}

// FalseEdge always continues to Real. Imaginary exists only for analysis.
type FalseEdge struct {
	Real      *BasicBlock
	Imaginary *BasicBlock
}

func (*FalseEdge) terminatorNode() {}

// Unreachable marks a block that can never execute.
type Unreachable struct{}

func (*Unreachable) terminatorNode() {}

// Successors returns every target of t, imaginary edges included.
func Successors(t Terminator) []*BasicBlock {
	switch t := t.(type) {
	case *Goto:
		return []*BasicBlock{t.Target}
	case *Branch:
		return []*BasicBlock{t.True, t.False}
	case *SwitchInt:
		out := make([]*BasicBlock, 0, len(t.Targets)+1)
		out = append(out, t.Targets...)
		return append(out, t.Otherwise)
	case *FalseEdge:
		return []*BasicBlock{t.Real, t.Imaginary}
	}
	return nil
}

// RealSuccessors returns the targets control can actually reach.
func RealSuccessors(t Terminator) []*BasicBlock {
	if fe, ok := t.(*FalseEdge); ok {
		return []*BasicBlock{fe.Real}
	}
	return Successors(t)
}
