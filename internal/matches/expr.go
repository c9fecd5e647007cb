package matches

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// exprIntoDest evaluates e into dest and returns the block control
// continues in.
func (b *Builder) exprIntoDest(dest mir.Place, block *mir.BasicBlock, e hir.Expr) *mir.BasicBlock {
	switch e := e.(type) {
	case *hir.Lit:
		b.cfg.PushAssignConst(block, dest, e.Value)

	case *hir.VarRef, *hir.Field, *hir.Deref:
		var place mir.Place
		block, place = b.asPlace(block, e)
		b.cfg.PushAssign(block, dest, &mir.Use{Operand: b.consume(place)})

	case *hir.Borrow:
		var place mir.Place
		block, place = b.asPlace(block, e.X)
		kind := mir.BorrowShared
		if e.Mutable {
			kind = mir.BorrowMut
		}
		b.cfg.PushAssign(block, dest, &mir.Ref{Kind: kind, Place: place})

	case *hir.Call:
		args := make([]mir.Operand, len(e.Args))
		for i, a := range e.Args {
			block, args[i] = b.asOperand(block, a)
		}
		b.cfg.Push(block, &mir.Call{Dest: dest, Func: e.Func, Args: args})

	case *hir.Binary:
		var l, r mir.Operand
		block, l = b.asOperand(block, e.Left)
		block, r = b.asOperand(block, e.Right)
		b.cfg.PushAssign(block, dest, &mir.BinaryOp{Op: e.Op, Left: l, Right: r})

	case *hir.Not:
		var x mir.Operand
		block, x = b.asOperand(block, e.X)
		b.cfg.PushAssign(block, dest, &mir.Not{Operand: x})

	case *hir.And, *hir.Or:
		then, els := b.inIfThenScope(b.topScope(), func() *mir.BasicBlock {
			return b.thenElseBreak(block, e, letNotPermitted)
		})
		b.cfg.PushAssignConst(then, dest, mir.Bool(true))
		b.cfg.PushAssignConst(els, dest, mir.Bool(false))

		block = b.cfg.NewBlock()
		b.cfg.Goto(then, block)
		b.cfg.Goto(els, block)

	case *hir.If:
		block = b.ifExpr(dest, block, e)

	case *hir.Match:
		block = b.MatchExpr(dest, block, e.Scrutinee, e.Arms, e.Span())

	case *hir.Block:
		block = b.blockExpr(dest, block, e)

	case *hir.Assign:
		place := b.varPlace(e.Var, e.Span())
		block = b.exprIntoDest(place, block, e.Value)
		b.cfg.PushAssignConst(block, dest, mir.Unit())

	case *hir.Construct:
		fields := make([]mir.Operand, len(e.Fields))
		for i, f := range e.Fields {
			block, fields[i] = b.asOperand(block, f)
		}
		b.cfg.PushAssign(block, dest, &mir.Aggregate{Type: e.Type(), Variant: e.Variant, Fields: fields})

	case *hir.Return:
		if e.Value != nil {
			block = b.exprIntoDest(mir.PlaceOf(mir.ReturnPlace), block, e.Value)
		} else {
			b.cfg.PushAssignConst(block, mir.PlaceOf(mir.ReturnPlace), mir.Unit())
		}
		b.exitAllScopes(block)
		b.cfg.Terminate(block, &mir.Return{})

		block = b.cfg.NewBlock()

	case *hir.Let:
		diag.BugAt(e.Span(), diag.CodeLowerUnsupported, "let expression outside of a condition")

	default:
		diag.BugAt(e.Span(), diag.CodeLowerUnsupported, "unsupported expression %T", e)
	}

	return block
}

func (b *Builder) ifExpr(dest mir.Place, block *mir.BasicBlock, e *hir.If) *mir.BasicBlock {
	outer := b.topScope()
	s := b.pushScope()

	then, els := b.inIfThenScope(outer, func() *mir.BasicBlock {
		then := b.thenElseBreak(block, e.Cond, declareYes)
		return b.exprIntoDest(dest, then, e.Then)
	})

	b.popScope(s, then)

	if e.Else != nil {
		els = b.exprIntoDest(dest, els, e.Else)
	} else {
		b.cfg.PushAssignConst(els, dest, mir.Unit())
	}

	join := b.cfg.NewBlock()
	b.cfg.Goto(then, join)
	b.cfg.Goto(els, join)

	return join
}

func (b *Builder) blockExpr(dest mir.Place, block *mir.BasicBlock, e *hir.Block) *mir.BasicBlock {
	s := b.pushScope()

	for _, st := range e.Stmts {
		block = b.stmt(block, st)
	}

	if e.Tail != nil {
		block = b.exprIntoDest(dest, block, e.Tail)
	} else {
		b.cfg.PushAssignConst(block, dest, mir.Unit())
	}

	b.popScope(s, block)

	return block
}

func (b *Builder) stmt(block *mir.BasicBlock, st hir.Stmt) *mir.BasicBlock {
	switch st := st.(type) {
	case *hir.LetStmt:
		switch {
		case st.Else != nil:
			return b.LetElse(block, st.Pat, st.Init, st.Else)

		case st.Init != nil:
			b.declareBindings(st.Pat, nil)
			return b.ExprIntoPattern(block, st.Pat, st.Init)

		default:
			b.declareBindings(st.Pat, nil)
			st.Pat.VisitPrimaryBindings(func(k *hir.PatBinding, _ diag.Span) {
				b.storageLiveBinding(block, k.Var, outsideGuard, true)
				b.scheduleDropForBinding(k.Var, outsideGuard)
			})
			return block
		}

	case *hir.ExprStmt:
		temp := b.cfg.Temp(st.X.Type())
		return b.exprIntoDest(mir.PlaceOf(temp), block, st.X)
	}

	diag.Bugf(diag.CodeLowerUnsupported, "unsupported statement %T", st)
	return nil
}

// asPlace returns the place e denotes, evaluating e into a temporary if
// it is not a place expression.
func (b *Builder) asPlace(block *mir.BasicBlock, e hir.Expr) (*mir.BasicBlock, mir.Place) {
	switch e := e.(type) {
	case *hir.VarRef:
		return block, b.varPlace(e.Var, e.Span())

	case *hir.Field:
		block, base := b.asPlace(block, e.Base)
		return block, base.Field(e.Index, e.Type())

	case *hir.Deref:
		block, base := b.asPlace(block, e.X)
		return block, base.Deref(e.Type())
	}

	block, temp := b.asTemp(block, e)

	return block, mir.PlaceOf(temp)
}

func (b *Builder) asTemp(block *mir.BasicBlock, e hir.Expr) (*mir.BasicBlock, mir.Local) {
	temp := b.cfg.Temp(e.Type())
	block = b.exprIntoDest(mir.PlaceOf(temp), block, e)
	return block, temp
}

func (b *Builder) asOperand(block *mir.BasicBlock, e hir.Expr) (*mir.BasicBlock, mir.Operand) {
	if lit, ok := e.(*hir.Lit); ok {
		return block, lit.Value
	}

	if hir.IsPlaceExpr(e) {
		block, place := b.asPlace(block, e)
		return block, b.consume(place)
	}

	block, temp := b.asTemp(block, e)

	return block, &mir.Move{Place: mir.PlaceOf(temp)}
}

// consume reads place. Values reached through a guard reference are
// only ever copied.
func (b *Builder) consume(place mir.Place) mir.Operand {
	if types.IsCopy(b.cfg.PlaceType(place)) || b.cfg.LocalDecl(place.Local).Kind == mir.LocalRefForGuard {
		return &mir.Copy{Place: place}
	}
	return &mir.Move{Place: place}
}

// varPlace resolves a variable. Inside a guard, variables bound by the
// guarded pattern are read through their guard reference.
func (b *Builder) varPlace(v hir.VarID, span diag.Span) mir.Place {
	vi, ok := b.vars[v]
	if !ok {
		diag.BugAt(span, diag.CodeLowerUnknownVariable, "variable %d is not declared", v)
	}

	for i := len(b.guardContext) - 1; i >= 0; i-- {
		for _, gv := range b.guardContext[i].vars {
			if gv == v {
				return mir.PlaceOf(vi.locals.RefForGuard).Deref(vi.ty)
			}
		}
	}

	return mir.PlaceOf(vi.locals.ForArmBody)
}
