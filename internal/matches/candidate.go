package matches

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
)

// Binding is a variable that must be established once a candidate matched.
type Binding struct {
	span   diag.Span
	source mir.Place
	varID  hir.VarID
	mode   hir.BindingMode
}

// Ascription asserts that source has a user written type.
type Ascription struct {
	source     mir.Place
	annotation mir.UserTypeAnnotation
	variance   mir.Variance
}

// PatternExtraData is what a pattern owes once it matched: it never
// influences which branch is taken.
type PatternExtraData struct {
	span        diag.Span
	bindings    []Binding
	ascriptions []Ascription
	isNever     bool
}

func (d *PatternExtraData) isEmpty() bool {
	return len(d.bindings) == 0 && len(d.ascriptions) == 0
}

// FlatPat is a pattern with its match pairs recursively simplified.
// Or-pattern pairs are sorted to the end.
type FlatPat struct {
	matchPairs []*MatchPair
	extraData  PatternExtraData
}

func (b *Builder) newFlatPat(place mir.Place, pat *hir.Pat) *FlatPat {
	pairs := []*MatchPair{b.newMatchPair(place, pat)}
	extra := PatternExtraData{
		span:    pat.Span,
		isNever: pat.IsNeverPattern(),
	}
	pairs = b.simplifyMatchPairs(pairs, &extra)

	return &FlatPat{matchPairs: pairs, extraData: extra}
}

// Candidate is the unit the decision tree lowerer works on: one arm, or
// one alternative of an expanded or-pattern.
type Candidate struct {
	// All of these must be satisfied...
	matchPairs []*MatchPair
	// ...and if non-empty, one of these must match too...
	subcandidates []*Candidate
	// ...and if there is a guard it must hold, else go to otherwiseBlock.
	hasGuard bool

	extraData PatternExtraData

	// Span of the or-pattern the subcandidates were expanded from.
	// Non-nil iff subcandidates is non-empty.
	orSpan *diag.Span

	preBindingBlock *mir.BasicBlock
	otherwiseBlock  *mir.BasicBlock

	// falseEdgeStartBlock is the earliest block from which only this and
	// later candidates are reachable.
	falseEdgeStartBlock *mir.BasicBlock
	// nextCandidateStartBlock is the falseEdgeStartBlock of the next candidate.
	nextCandidateStartBlock *mir.BasicBlock
}

func (b *Builder) newCandidate(place mir.Place, pat *hir.Pat, hasGuard bool) *Candidate {
	return candidateFromFlatPat(b.newFlatPat(place, pat), hasGuard)
}

// candidateFromFlatPat wraps fp into a candidate. The pair list is copied:
// one FlatPat can seed several candidates when its or-pattern is cloned
// into sibling leaves.
func candidateFromFlatPat(fp *FlatPat, hasGuard bool) *Candidate {
	extra := fp.extraData
	extra.bindings = append([]Binding(nil), fp.extraData.bindings...)
	extra.ascriptions = append([]Ascription(nil), fp.extraData.ascriptions...)

	return &Candidate{
		matchPairs: clonePairs(fp.matchPairs),
		hasGuard:   hasGuard,
		extraData:  extra,
	}
}

func (c *Candidate) startsWithOrPattern() bool {
	if len(c.matchPairs) == 0 {
		return false
	}
	_, ok := c.matchPairs[0].testCase.(*tcOr)
	return ok
}

// visitLeaves calls f on every leaf candidate, in order.
func (c *Candidate) visitLeaves(f func(leaf *Candidate)) {
	traverseCandidate(c, new(struct{}),
		func(leaf *Candidate, _ *struct{}) { f(leaf) },
		func(*Candidate, *struct{}) {},
		func(*struct{}) {},
	)
}

// traverseCandidate visits the leaves of the candidate tree depth first.
// enter is called before the children of an inner candidate are visited
// and complete after, so ctx can keep a stack of parent data.
// The walk keeps its own stack, so tree depth does not grow the goroutine stack.
func traverseCandidate[T any](root *Candidate, ctx *T,
	visitLeaf func(*Candidate, *T),
	enter func(*Candidate, *T),
	complete func(*T),
) {
	if len(root.subcandidates) == 0 {
		visitLeaf(root, ctx)
		return
	}

	type frame struct {
		c    *Candidate
		next int
	}

	enter(root, ctx)
	stack := []frame{{c: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.c.subcandidates) {
			stack = stack[:len(stack)-1]
			complete(ctx)
			continue
		}

		child := top.c.subcandidates[top.next]
		top.next++

		if len(child.subcandidates) == 0 {
			visitLeaf(child, ctx)
			continue
		}

		enter(child, ctx)
		stack = append(stack, frame{c: child})
	}
}

func anyStartsWithOr(cs []*Candidate) bool {
	for _, c := range cs {
		if c.startsWithOrPattern() {
			return true
		}
	}
	return false
}
