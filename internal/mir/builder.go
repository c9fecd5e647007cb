package mir

import (
	"fmt"

	"github.com/nikandfor/loc"
	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/types"
)

// NewFunction creates a function with its return place and arguments declared.
func NewFunction(name string, ret types.Type, args ...LocalDecl) *Function {
	f := &Function{Name: name, ReturnType: ret, ArgCount: len(args)}
	f.Locals = append(f.Locals, &LocalDecl{Type: ret, Mutable: true, Kind: LocalReturn})
	for i := range args {
		a := args[i]
		a.Kind = LocalArg
		f.Locals = append(f.Locals, &a)
	}
	return f
}

// Builder appends blocks, locals and statements to a Function.
// Blocks are terminated exactly once.
type Builder struct {
	fn *Function
}

// NewBuilder returns a builder for f. The entry block is created on first use.
func NewBuilder(f *Function) *Builder {
	return &Builder{fn: f}
}

// Function returns the function under construction.
func (b *Builder) Function() *Function { return b.fn }

// NewBlock creates an empty unterminated block.
func (b *Builder) NewBlock() *BasicBlock {
	id := len(b.fn.Blocks)
	bb := &BasicBlock{
		ID:    id,
		Label: fmt.Sprintf("bb%d", id),
		From:  loc.Caller(1),
	}
	b.fn.Blocks = append(b.fn.Blocks, bb)
	if b.fn.Entry == nil {
		b.fn.Entry = bb
	}

	tlog.V("cfg").Printw("new block", "block", bb.Label, "from", loc.Callers(1, 2))

	return bb
}

// NewLocal declares a local slot.
func (b *Builder) NewLocal(decl LocalDecl) Local {
	d := decl
	b.fn.Locals = append(b.fn.Locals, &d)
	return Local(len(b.fn.Locals) - 1)
}

// Temp declares an anonymous temporary.
func (b *Builder) Temp(ty types.Type) Local {
	return b.NewLocal(LocalDecl{Type: ty, Mutable: true, Kind: LocalTemp})
}

// LocalDecl returns the declaration of l.
func (b *Builder) LocalDecl(l Local) *LocalDecl { return b.fn.Locals[l] }

// PlaceType returns the type of p.
func (b *Builder) PlaceType(p Place) types.Type { return p.Type(b.fn) }

// Push appends a statement.
func (b *Builder) Push(bb *BasicBlock, s Statement) {
	if bb.Terminator != nil {
		diag.Bugf(diag.CodeLowerTerminated, "push into terminated block %s", bb.Label)
	}
	bb.Statements = append(bb.Statements, s)
}

// PushAssign appends `place = rv`.
func (b *Builder) PushAssign(bb *BasicBlock, place Place, rv Rvalue) {
	b.Push(bb, &Assign{Place: place, Rvalue: rv})
}

// PushAssignConst appends `place = const`.
func (b *Builder) PushAssignConst(bb *BasicBlock, place Place, c *Constant) {
	b.PushAssign(bb, place, &Use{Operand: c})
}

// PushFakeRead appends a fake read of place.
func (b *Builder) PushFakeRead(bb *BasicBlock, cause FakeReadCause, place Place) {
	b.Push(bb, &FakeRead{Cause: cause, Place: place})
}

// PushPlaceMention appends a place mention.
func (b *Builder) PushPlaceMention(bb *BasicBlock, place Place) {
	b.Push(bb, &PlaceMention{Place: place})
}

// Terminate sets the terminator of bb.
func (b *Builder) Terminate(bb *BasicBlock, t Terminator) {
	if bb.Terminator != nil {
		diag.Bugf(diag.CodeLowerTerminated, "terminate %s twice: had %s, got %s",
			bb.Label, prettyPrintTerminator(bb.Terminator), prettyPrintTerminator(t))
	}
	bb.Terminator = t
}

// Goto terminates from with a jump to to.
func (b *Builder) Goto(from, to *BasicBlock) {
	b.Terminate(from, &Goto{Target: to})
}

// TerminateUnreachable marks bb as unreachable.
func (b *Builder) TerminateUnreachable(bb *BasicBlock) {
	b.Terminate(bb, &Unreachable{})
}

// AddDebugInfo records a name for a place.
func (b *Builder) AddDebugInfo(name string, place Place, span diag.Span) {
	b.fn.DebugInfo = append(b.fn.DebugInfo, VarDebugInfo{Name: name, Place: place, Span: span})
}

// AddAnnotation adds a user type annotation and returns its index.
func (b *Builder) AddAnnotation(a UserTypeAnnotation) int {
	b.fn.Annotations = append(b.fn.Annotations, a)
	return len(b.fn.Annotations) - 1
}
