// Package matches lowers match expressions and pattern bindings to MIR.
//
// Every arm, or let pattern, becomes a Candidate. The decision tree
// tests the candidates against the scrutinee until each either matched
// or was ruled out, sharing tests between candidates where possible.
// False edges then link every candidate to the next one, so analysis
// sees arms tried in source order whatever the tests actually skip.
// Finally bindings are established and guards run.
package matches

import (
	"context"

	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/config"
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// Builder lowers one function body.
type Builder struct {
	cfg  *mir.Builder
	conf config.Config

	vars         map[hir.VarID]*varInfo
	guardContext []guardFrame

	scopes    []*scope
	nextScope scopeID
	ifThen    *ifThenScope

	depth int
	hops  int
}

// NewBuilder returns a builder appending to fn.
func NewBuilder(fn *mir.Function, conf config.Config) *Builder {
	return &Builder{
		cfg:  mir.NewBuilder(fn),
		conf: conf,
		vars: map[hir.VarID]*varInfo{},
	}
}

// Hops returns how many times lowering continued on a new goroutine stack.
func (b *Builder) Hops() int { return b.hops }

// LowerFunction lowers f to MIR. Internal invariant violations are
// returned as *diag.Bug errors.
func LowerFunction(ctx context.Context, f *hir.Func, conf config.Config) (*mir.Function, error) {
	_, fn, err := lowerFunction(ctx, f, conf)
	return fn, err
}

func lowerFunction(ctx context.Context, f *hir.Func, conf config.Config) (b *Builder, fn *mir.Function, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lower function", "name", f.Name, "params", len(f.Params))
	defer tr.Finish("err", &err)

	defer diag.Recover(&err)

	args := make([]mir.LocalDecl, len(f.Params))
	for i, p := range f.Params {
		args[i] = mir.LocalDecl{Name: p.Name, Type: p.Type, Mutable: p.Mutable, Span: p.Span}
	}

	fn = mir.NewFunction(f.Name, f.Ret, args...)
	b = NewBuilder(fn, conf)

	block := b.cfg.NewBlock()
	s := b.pushScope()

	for i, p := range f.Params {
		arg := mir.Local(i + 1)
		b.vars[p.Var] = &varInfo{
			name:   p.Name,
			ty:     p.Type,
			locals: LocalsForNode{ForArmBody: arg},
			scope:  s,
		}
		b.cfg.AddDebugInfo(p.Name, mir.PlaceOf(arg), p.Span)
	}

	block = b.exprIntoDest(mir.PlaceOf(mir.ReturnPlace), block, f.Body)
	b.popScope(s, block)
	b.cfg.Terminate(block, &mir.Return{})

	if conf.Verify {
		if errs := mir.Validate(fn); len(errs) != 0 {
			diag.BugAt(f.Span, diag.CodeLowerInvalidCFG, "invalid MIR for %s: %v", f.Name, errs)
		}
	}

	tr.Printw("lowered", "blocks", len(fn.Blocks), "locals", len(fn.Locals), "stack_hops", b.hops)

	if tr.If("mir") {
		tr.Printw("mir", "text", fn.PrettyPrint())
	}

	return b, fn, nil
}

// MatchExpr lowers `match scrutinee { arms }` storing the result of the
// taken arm into dest.
func (b *Builder) MatchExpr(dest mir.Place, block *mir.BasicBlock, scrutinee hir.Expr, arms []*hir.Arm, span diag.Span) *mir.BasicBlock {
	block, place := b.lowerScrutinee(block, scrutinee)

	candidates := make([]*Candidate, len(arms))
	hasGuard := false
	for i, arm := range arms {
		candidates[i] = b.newCandidate(place, arm.Pattern, arm.Guard != nil)
		hasGuard = hasGuard || arm.Guard != nil
	}

	tlog.V("matches").Printw("match", "span", span, "scrutinee", place, "arms", len(arms), "guarded", hasGuard)

	var fakeBorrows []fakeBorrow
	if hasGuard {
		fakeBorrows = b.collectFakeBorrows(candidates, place)
	}

	b.lowerMatchTree(block, place, candidates, false)

	return b.lowerMatchArms(dest, arms, candidates, fakeBorrows)
}

// lowerScrutinee evaluates e to a place and mentions it, so that
// matching on it counts as evaluating it even if no test reads it.
func (b *Builder) lowerScrutinee(block *mir.BasicBlock, e hir.Expr) (*mir.BasicBlock, mir.Place) {
	block, place := b.asPlace(block, e)
	b.cfg.PushPlaceMention(block, place)
	return block, place
}

func (b *Builder) lowerMatchArms(dest mir.Place, arms []*hir.Arm, candidates []*Candidate, fakeBorrows []fakeBorrow) *mir.BasicBlock {
	matchScope := b.topScope()

	ends := make([]*mir.BasicBlock, len(arms))
	for i, arm := range arms {
		s := b.pushScope()

		b.declareBindings(arm.Pattern, arm.Guard)

		armBlock := b.bindPattern(candidates[i], fakeBorrows, &armContext{
			arm:        arm,
			scope:      s,
			matchScope: matchScope,
		}, true)

		end := b.exprIntoDest(dest, armBlock, arm.Body)
		b.popScope(s, end)

		ends[i] = end
	}

	endBlock := b.cfg.NewBlock()
	for _, end := range ends {
		b.cfg.Goto(end, endBlock)
	}

	return endBlock
}

// ExprIntoPattern binds the irrefutable pattern pat to the value of init.
// A plain by-value binding is evaluated directly into the variable.
func (b *Builder) ExprIntoPattern(block *mir.BasicBlock, pat *hir.Pat, init hir.Expr) *mir.BasicBlock {
	var asc *hir.PatAscribe
	target := pat
	if k, ok := pat.Kind.(*hir.PatAscribe); ok {
		asc = k
		target = k.Subpattern
	}

	k, ok := target.Kind.(*hir.PatBinding)
	if !ok || k.Mode.ByRef != hir.ByValue || k.Subpattern != nil {
		block, place := b.lowerScrutinee(block, init)
		return b.PlaceIntoPattern(block, pat, place)
	}

	place := b.storageLiveBinding(block, k.Var, outsideGuard, true)
	block = b.exprIntoDest(place, block, init)

	b.cfg.PushFakeRead(block, mir.ForLet, place)

	if asc != nil {
		idx := b.cfg.AddAnnotation(asc.Annotation)
		// The declared type must be exactly the type of the variable.
		b.cfg.Push(block, &mir.AscribeUserType{Place: place, Annotation: idx, Variance: mir.Invariant})
	}

	b.scheduleDropForBinding(k.Var, outsideGuard)

	return block
}

// PlaceIntoPattern binds the irrefutable pattern pat to the value at place.
func (b *Builder) PlaceIntoPattern(block *mir.BasicBlock, pat *hir.Pat, place mir.Place) *mir.BasicBlock {
	c := b.newCandidate(place, pat, false)
	b.lowerMatchTree(block, place, []*Candidate{c}, false)

	return b.bindPattern(c, nil, nil, true)
}

// LetElse lowers `let pat = init else { els };`. The else block must
// diverge.
func (b *Builder) LetElse(block *mir.BasicBlock, pat *hir.Pat, init, els hir.Expr) *mir.BasicBlock {
	b.declareBindings(pat, nil)

	pat.VisitPrimaryBindings(func(k *hir.PatBinding, _ diag.Span) {
		b.storageLiveBinding(block, k.Var, outsideGuard, true)
		b.scheduleDropForBinding(k.Var, outsideGuard)
	})

	matching, failure := b.inIfThenScope(b.topScope(), func() *mir.BasicBlock {
		return b.lowerLetExpr(block, init, pat, false, false)
	})

	unit := b.cfg.Temp(types.TypeUnit)
	failure = b.exprIntoDest(mir.PlaceOf(unit), failure, els)
	b.cfg.TerminateUnreachable(failure)

	return matching
}
