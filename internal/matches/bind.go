package matches

import (
	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// LocalsForNode is where a variable lives. A variable of a guarded arm
// has two locals: the reference the guard reads it through and the
// value the arm body owns. Otherwise ForArmBody is the only one.
type LocalsForNode struct {
	Guarded     bool
	RefForGuard mir.Local
	ForArmBody  mir.Local
}

type forGuard int

const (
	outsideGuard forGuard = iota
	refWithinGuard
)

type varInfo struct {
	name   string
	ty     types.Type
	locals LocalsForNode
	scope  scopeID
}

// guardFrame lists the variables a guard being lowered sees through
// their guard references.
type guardFrame struct {
	vars []hir.VarID
}

// armContext is what binding needs to know about the arm a candidate
// belongs to. It is nil for let statements and let expressions.
type armContext struct {
	arm        *hir.Arm
	scope      scopeID
	matchScope scopeID
}

func (b *Builder) varLocalID(v hir.VarID, fg forGuard) mir.Local {
	vi, ok := b.vars[v]
	if !ok {
		diag.Bugf(diag.CodeLowerUnknownVariable, "variable %d is not declared", v)
	}

	if fg == refWithinGuard {
		diag.Assert(vi.locals.Guarded, diag.CodeLowerUnknownVariable, "variable %s has no guard reference", vi.name)
		return vi.locals.RefForGuard
	}
	return vi.locals.ForArmBody
}

// declareBindings declares the variables bound by pat and, for a guard,
// the variables of let expressions in it.
func (b *Builder) declareBindings(pat *hir.Pat, guard hir.Expr) {
	hasGuard := guard != nil
	pat.VisitPrimaryBindings(func(k *hir.PatBinding, span diag.Span) {
		b.declareBinding(span, k.Name, k.Var, k.Mode, k.VarType, hasGuard)
	})

	if guard != nil {
		b.declareGuardBindings(guard)
	}
}

func (b *Builder) declareGuardBindings(guard hir.Expr) {
	switch e := guard.(type) {
	case *hir.Let:
		b.declareBindings(e.Pat, nil)
	case *hir.And:
		b.declareGuardBindings(e.Left)
		b.declareGuardBindings(e.Right)
	}
}

func (b *Builder) declareBinding(span diag.Span, name string, v hir.VarID, mode hir.BindingMode, ty types.Type, hasGuard bool) {
	forArmBody := b.cfg.NewLocal(mir.LocalDecl{
		Name:    name,
		Type:    ty,
		Mutable: mode.Mutable,
		Kind:    mir.LocalUserVar,
		Span:    span,
	})
	b.cfg.AddDebugInfo(name, mir.PlaceOf(forArmBody), span)

	locals := LocalsForNode{ForArmBody: forArmBody}

	if hasGuard {
		locals.Guarded = true
		locals.RefForGuard = b.cfg.NewLocal(mir.LocalDecl{
			Name: name,
			Type: types.NewRef(ty, false),
			Kind: mir.LocalRefForGuard,
			Span: span,
		})
		b.cfg.AddDebugInfo(name, mir.PlaceOf(locals.RefForGuard), span)
	}

	b.vars[v] = &varInfo{
		name:   name,
		ty:     ty,
		locals: locals,
		scope:  b.topScope(),
	}

	tlog.V("bind").Printw("declare binding", "name", name, "var", v, "local", forArmBody, "guarded", hasGuard)
}

// storageLiveBinding starts the storage of a variable local and returns
// its place.
func (b *Builder) storageLiveBinding(block *mir.BasicBlock, v hir.VarID, fg forGuard, scheduleDrops bool) mir.Place {
	local := b.varLocalID(v, fg)
	b.cfg.Push(block, &mir.StorageLive{Local: local})

	if scheduleDrops {
		b.scheduleDrop(b.vars[v].scope, local, dropStorage)
	}

	return mir.PlaceOf(local)
}

func (b *Builder) scheduleDropForBinding(v hir.VarID, fg forGuard) {
	local := b.varLocalID(v, fg)
	b.scheduleDrop(b.vars[v].scope, local, dropValue)
}

// bindPattern binds the variables of a matched candidate and runs the
// guard, if any. It returns the block the arm body starts in.
func (b *Builder) bindPattern(c *Candidate, fakeBorrows []fakeBorrow, arm *armContext, emitStorageLive bool) *mir.BasicBlock {
	if len(c.subcandidates) == 0 {
		return b.bindAndGuardMatchedCandidate(c, nil, fakeBorrows, arm, true, emitStorageLive)
	}

	b.checkOrBindings(c)

	target := b.cfg.NewBlock()
	scheduleDrops := true

	traverseCandidate(c, &[]*PatternExtraData{},
		func(leaf *Candidate, parents *[]*PatternExtraData) {
			if arm != nil {
				b.clearTopScope(arm.scope)
			}

			end := b.bindAndGuardMatchedCandidate(leaf, *parents, fakeBorrows, arm, scheduleDrops, emitStorageLive)
			if arm == nil && !isNeverLeaf(leaf, *parents) {
				scheduleDrops = false
			}

			b.cfg.Goto(end, target)
		},
		func(inner *Candidate, parents *[]*PatternExtraData) {
			*parents = append(*parents, &inner.extraData)
		},
		func(parents *[]*PatternExtraData) {
			*parents = (*parents)[:len(*parents)-1]
		},
	)

	return target
}

// isNeverLeaf reports whether leaf belongs to a never alternative. The
// alternatives of a guarded or-pattern are not filtered, so pairs tested
// after one give a never alternative leaves of its own.
func isNeverLeaf(leaf *Candidate, parents []*PatternExtraData) bool {
	if leaf.extraData.isNever {
		return true
	}

	for _, d := range parents {
		if d.isNever {
			return true
		}
	}

	return false
}

// checkOrBindings makes sure every alternative that can match binds the
// same variables.
func (b *Builder) checkOrBindings(c *Candidate) {
	var want map[hir.VarID]bool

	traverseCandidate(c, &[]*PatternExtraData{},
		func(leaf *Candidate, parents *[]*PatternExtraData) {
			if isNeverLeaf(leaf, *parents) {
				return
			}

			got := map[hir.VarID]bool{}
			for _, d := range *parents {
				for _, bind := range d.bindings {
					got[bind.varID] = true
				}
			}
			for _, bind := range leaf.extraData.bindings {
				got[bind.varID] = true
			}

			if want == nil {
				want = got
				return
			}

			if len(got) != len(want) {
				diag.BugAt(leaf.extraData.span, diag.CodeLowerOrBindings, "alternative binds %d variables, first binds %d", len(got), len(want))
			}
			for v := range got {
				if !want[v] {
					diag.BugAt(leaf.extraData.span, diag.CodeLowerOrBindings, "variable %d is not bound in every alternative", v)
				}
			}
		},
		func(inner *Candidate, parents *[]*PatternExtraData) {
			*parents = append(*parents, &inner.extraData)
		},
		func(parents *[]*PatternExtraData) {
			*parents = (*parents)[:len(*parents)-1]
		},
	)
}

// bindAndGuardMatchedCandidate establishes the bindings of a leaf
// candidate and tests its guard. By-value bindings of a guarded arm are
// only materialized once the guard succeeded; until then the guard sees
// references to the matched places.
func (b *Builder) bindAndGuardMatchedCandidate(c *Candidate, parents []*PatternExtraData, fakeBorrows []fakeBorrow, arm *armContext, scheduleDrops, emitStorageLive bool) *mir.BasicBlock {
	diag.Assert(len(c.matchPairs) == 0, diag.CodeLowerNoProgress, "binding a candidate with %d untested pairs", len(c.matchPairs))

	block := c.preBindingBlock

	if c.nextCandidateStartBlock != nil {
		fresh := b.cfg.NewBlock()
		b.falseEdges(block, fresh, c.nextCandidateStartBlock)
		block = fresh
	}

	if isNeverLeaf(c, parents) {
		b.cfg.TerminateUnreachable(block)
		return b.cfg.NewBlock()
	}

	var ascriptions []Ascription
	var bindings []Binding
	for _, d := range parents {
		ascriptions = append(ascriptions, d.ascriptions...)
		bindings = append(bindings, d.bindings...)
	}
	ascriptions = append(ascriptions, c.extraData.ascriptions...)
	bindings = append(bindings, c.extraData.bindings...)

	b.ascribeTypes(block, ascriptions)

	if arm == nil || arm.arm.Guard == nil {
		b.bindForArmBody(block, scheduleDrops, bindings, emitStorageLive)
		return block
	}

	b.bindForGuard(block, scheduleDrops, bindings)

	frame := guardFrame{}
	for _, bind := range bindings {
		frame.vars = append(frame.vars, bind.varID)
	}
	b.guardContext = append(b.guardContext, frame)

	for _, fb := range fakeBorrows {
		b.cfg.PushAssign(block, mir.PlaceOf(fb.temp), &mir.Ref{Kind: fb.kind, Place: fb.place})
	}

	post, otherwisePost := b.inIfThenScope(arm.matchScope, func() *mir.BasicBlock {
		return b.thenElseBreak(block, arm.arm.Guard, declareNo)
	})

	b.guardContext = b.guardContext[:len(b.guardContext)-1]

	for _, fb := range fakeBorrows {
		b.cfg.PushFakeRead(post, mir.ForMatchGuard, mir.PlaceOf(fb.temp))
	}

	otherwise := c.otherwiseBlock
	if otherwise == nil {
		otherwise = b.cfg.NewBlock()
		b.cfg.TerminateUnreachable(otherwise)
	}
	b.falseEdges(otherwisePost, otherwise, c.nextCandidateStartBlock)

	var byValue []Binding
	for _, bind := range bindings {
		if bind.mode.ByRef == hir.ByValue {
			byValue = append(byValue, bind)
		}
	}

	// Keep the guard references alive until the guard is done with them.
	for _, bind := range byValue {
		b.cfg.PushFakeRead(post, mir.ForGuardBinding, mir.PlaceOf(b.varLocalID(bind.varID, refWithinGuard)))
	}

	diag.Assert(scheduleDrops, diag.CodeLowerUnsupported, "guarded candidates must schedule drops")

	b.bindForArmBody(post, true, byValue, emitStorageLive)

	tlog.V("bind").Printw("guarded candidate bound", "pre", c.preBindingBlock.Label, "post", post.Label, "bindings", len(bindings))

	return post
}

func (b *Builder) ascribeTypes(block *mir.BasicBlock, ascriptions []Ascription) {
	for _, a := range ascriptions {
		idx := b.cfg.AddAnnotation(a.annotation)
		b.cfg.Push(block, &mir.AscribeUserType{Place: a.source, Annotation: idx, Variance: a.variance})
	}
}

// bindForGuard points the guard reference of every binding at the
// matched place. By-ref bindings create their arm reference first and
// the guard sees a reference to it.
func (b *Builder) bindForGuard(block *mir.BasicBlock, scheduleDrops bool, bindings []Binding) {
	for _, bind := range bindings {
		refForGuard := b.storageLiveBinding(block, bind.varID, refWithinGuard, scheduleDrops)

		if bind.mode.ByRef == hir.ByValue {
			b.cfg.PushAssign(block, refForGuard, &mir.Ref{Kind: mir.BorrowShared, Place: bind.source})
			continue
		}

		valueForArm := b.storageLiveBinding(block, bind.varID, outsideGuard, scheduleDrops)
		b.cfg.PushAssign(block, valueForArm, &mir.Ref{Kind: refBorrowKind(bind.mode), Place: bind.source})
		b.cfg.PushAssign(block, refForGuard, &mir.Ref{Kind: mir.BorrowShared, Place: valueForArm})
	}
}

// bindForArmBody initializes the arm body locals: by-value bindings copy
// or move out of the matched place, by-ref bindings borrow it.
func (b *Builder) bindForArmBody(block *mir.BasicBlock, scheduleDrops bool, bindings []Binding, emitStorageLive bool) {
	for _, bind := range bindings {
		var local mir.Place
		if emitStorageLive {
			local = b.storageLiveBinding(block, bind.varID, outsideGuard, scheduleDrops)
		} else {
			local = mir.PlaceOf(b.varLocalID(bind.varID, outsideGuard))
		}

		if scheduleDrops {
			b.scheduleDropForBinding(bind.varID, outsideGuard)
		}

		var rv mir.Rvalue
		if bind.mode.ByRef == hir.ByValue {
			rv = &mir.Use{Operand: b.consumeByCopyOrMove(bind.source)}
		} else {
			rv = &mir.Ref{Kind: refBorrowKind(bind.mode), Place: bind.source}
		}
		b.cfg.PushAssign(block, local, rv)
	}
}

func refBorrowKind(m hir.BindingMode) mir.BorrowKind {
	if m.ByRef == hir.ByRefMut {
		return mir.BorrowMut
	}
	return mir.BorrowShared
}

func (b *Builder) consumeByCopyOrMove(place mir.Place) mir.Operand {
	if types.IsCopy(b.cfg.PlaceType(place)) {
		return &mir.Copy{Place: place}
	}
	return &mir.Move{Place: place}
}
