package matches

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
)

type declareLetBindings int

const (
	declareYes declareLetBindings = iota
	// declareNo leaves declaring to the caller, as guards do.
	declareNo
	letNotPermitted
)

// thenElseBreak lowers a condition. It returns the block reached when
// cond holds; every path on which it does not hold breaks to the else
// path of the innermost if-then scope.
func (b *Builder) thenElseBreak(block *mir.BasicBlock, cond hir.Expr, declare declareLetBindings) *mir.BasicBlock {
	switch e := cond.(type) {
	case *hir.And:
		block = b.thenElseBreak(block, e.Left, declare)
		return b.thenElseBreak(block, e.Right, declare)

	case *hir.Or:
		lhsSuccess, failure := b.inIfThenScope(b.topScope(), func() *mir.BasicBlock {
			return b.thenElseBreak(block, e.Left, letNotPermitted)
		})
		rhsSuccess := b.thenElseBreak(failure, e.Right, letNotPermitted)

		success := b.cfg.NewBlock()
		b.cfg.Goto(lhsSuccess, success)
		b.cfg.Goto(rhsSuccess, success)

		return success

	case *hir.Not:
		success, failure := b.inIfThenScope(b.topScope(), func() *mir.BasicBlock {
			return b.thenElseBreak(block, e.X, letNotPermitted)
		})
		b.breakForElse(success)

		return failure

	case *hir.Let:
		if declare == letNotPermitted {
			diag.BugAt(e.Span(), diag.CodeLowerUnsupported, "let expression not expected in this context")
		}
		return b.lowerLetExpr(block, e.Init, e.Pat, declare == declareYes, true)
	}

	block, temp := b.asTemp(block, cond)

	then := b.cfg.NewBlock()
	els := b.cfg.NewBlock()
	b.cfg.Terminate(block, &mir.Branch{
		Condition: &mir.Move{Place: mir.PlaceOf(temp)},
		True:      then,
		False:     els,
	})
	b.breakForElse(els)

	return then
}

// lowerLetExpr lowers a refutable `let PAT = INIT` inside a condition.
// The failure path breaks to the else path of the innermost if-then
// scope.
func (b *Builder) lowerLetExpr(block *mir.BasicBlock, init hir.Expr, pat *hir.Pat, declare, emitStorageLive bool) *mir.BasicBlock {
	block, scrutinee := b.lowerScrutinee(block, init)

	c := b.newCandidate(scrutinee, pat, false)
	otherwise := b.lowerMatchTree(block, scrutinee, []*Candidate{c}, true)

	b.breakForElse(otherwise)

	if declare {
		b.declareBindings(pat, nil)
	}

	return b.bindPattern(c, nil, nil, emitStorageLive)
}
