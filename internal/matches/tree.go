package matches

import (
	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/mir"
)

const defaultStackSegment = 256

// lowerMatchTree builds the decision tree for candidates starting at
// block and links every leaf to the next one with false edges. It
// returns the block reached when no candidate matches. For irrefutable
// matches that block is terminated as unreachable.
func (b *Builder) lowerMatchTree(block *mir.BasicBlock, scrutinee mir.Place, candidates []*Candidate, refutable bool) *mir.BasicBlock {
	otherwise := b.matchCandidates(block, candidates)

	var prev *Candidate
	for _, c := range candidates {
		c.visitLeaves(func(leaf *Candidate) {
			if prev != nil {
				diag.Assert(leaf.falseEdgeStartBlock != nil, diag.CodeLowerInvalidCFG, "leaf without a false edge start block")
				prev.nextCandidateStartBlock = leaf.falseEdgeStartBlock
			}
			prev = leaf
		})
	}

	if refutable {
		diag.Assert(prev != nil, diag.CodeLowerNoProgress, "refutable match without candidates")
		prev.nextCandidateStartBlock = otherwise
	} else {
		// Matching a place of an uninhabited type reads nothing by
		// itself; the fake read keeps the place required to be initialized.
		b.cfg.PushFakeRead(otherwise, mir.ForMatchedPlace, scrutinee)
		b.cfg.TerminateUnreachable(otherwise)
	}

	tlog.V("matches").Printw("match tree lowered", "start", block.Label, "otherwise", otherwise.Label, "candidates", len(candidates), "refutable", refutable)

	return otherwise
}

// matchCandidates branches from start to the pre-binding block of the
// first candidate that matches. It returns the block reached if none does.
func (b *Builder) matchCandidates(start *mir.BasicBlock, candidates []*Candidate) *mir.BasicBlock {
	return b.ensureSufficientStack(func() *mir.BasicBlock {
		return b.matchCandidatesInner(start, candidates)
	})
}

// ensureSufficientStack runs f, moving to a fresh goroutine stack every
// StackSegment nested calls. The caller blocks until f is done, and a
// panic in f is re-raised in the caller.
func (b *Builder) ensureSufficientStack(f func() *mir.BasicBlock) *mir.BasicBlock {
	b.depth++
	defer func() { b.depth-- }()

	seg := b.conf.StackSegment
	if seg <= 0 {
		seg = defaultStackSegment
	}

	if b.depth%seg != 0 {
		return f()
	}

	b.hops++

	tlog.V("matches").Printw("continue on a new stack", "depth", b.depth, "hop", b.hops)

	var res *mir.BasicBlock
	var p any

	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			p = recover()
		}()

		res = f()
	}()

	<-done

	if p != nil {
		panic(p)
	}

	return res
}

func (b *Builder) matchCandidatesInner(start *mir.BasicBlock, candidates []*Candidate) *mir.BasicBlock {
	for len(candidates) != 0 {
		first := candidates[0]
		if first.falseEdgeStartBlock == nil {
			first.falseEdgeStartBlock = start
		}

		switch {
		case len(first.matchPairs) == 0:
			start = b.selectMatchedCandidate(first, start)
			candidates = candidates[1:]
		case anyStartsWithOr(candidates):
			start, candidates = b.expandAndMatchOrCandidates(start, candidates)
		default:
			start, candidates = b.testCandidates(start, candidates)
		}
	}

	return start
}

func (b *Builder) selectMatchedCandidate(c *Candidate, start *mir.BasicBlock) *mir.BasicBlock {
	diag.Assert(c.otherwiseBlock == nil, diag.CodeLowerBlockReused, "candidate already has an otherwise block")
	diag.Assert(c.preBindingBlock == nil, diag.CodeLowerBlockReused, "candidate already has a pre-binding block")
	diag.Assert(len(c.subcandidates) == 0, diag.CodeLowerBlockReused, "selected candidate has subcandidates")

	c.preBindingBlock = start
	c.otherwiseBlock = b.cfg.NewBlock()

	tlog.V("matches").Printw("candidate matched", "pre_binding", start.Label, "otherwise", c.otherwiseBlock.Label)

	return c.otherwiseBlock
}

// expandAndMatchOrCandidates expands one level of or-patterns and lowers
// the expanded candidates. Expansion stops after the first candidate
// that has pairs left behind its or-pattern: sharing a continuation past
// it would lose track of which alternative got there. The candidates
// after it are returned for the caller to continue with.
func (b *Builder) expandAndMatchOrCandidates(start *mir.BasicBlock, candidates []*Candidate) (*mir.BasicBlock, []*Candidate) {
	expandUntil := len(candidates)
	for i, c := range candidates {
		if len(c.matchPairs) > 1 && c.startsWithOrPattern() {
			expandUntil = i + 1
			break
		}
	}

	toExpand, remaining := candidates[:expandUntil], candidates[expandUntil:]

	var expanded []*Candidate
	for _, c := range toExpand {
		if !c.startsWithOrPattern() {
			expanded = append(expanded, c)
			continue
		}

		orPair := c.matchPairs[0]
		c.matchPairs = clonePairs(c.matchPairs[1:])
		b.createOrSubcandidates(c, orPair)
		expanded = append(expanded, c.subcandidates...)
	}

	tlog.V("orpat").Printw("expand or-patterns", "candidates", len(toExpand), "expanded", len(expanded), "left", len(remaining))

	remainder := b.matchCandidates(start, expanded)

	for _, c := range toExpand {
		if len(c.subcandidates) != 0 {
			b.finalizeOrCandidate(c)
		}
	}

	return remainder, remaining
}

func (b *Builder) createOrSubcandidates(c *Candidate, orPair *MatchPair) {
	tc, ok := orPair.testCase.(*tcOr)
	if !ok {
		diag.BugAt(orPair.pattern.Span, diag.CodeLowerSimplifiable, "expected an or-pattern pair, got %T", orPair.testCase)
	}

	span := orPair.pattern.Span
	c.orSpan = &span
	c.subcandidates = make([]*Candidate, len(tc.pats))
	for i, fp := range tc.pats {
		c.subcandidates[i] = candidateFromFlatPat(fp, c.hasGuard)
	}
	c.subcandidates[0].falseEdgeStartBlock = c.falseEdgeStartBlock
}

// finalizeOrCandidate simplifies the subcandidates of an expanded
// candidate and tests the pairs that followed its or-pattern after each
// of its leaves.
func (b *Builder) finalizeOrCandidate(c *Candidate) {
	if len(c.subcandidates) == 0 {
		return
	}

	b.mergeTrivialSubcandidates(c)

	if len(c.matchPairs) == 0 {
		return
	}

	// Testing the remaining pairs separately after each leaf keeps
	// the alternatives mergeable, so `(1 | 2, 3 | 4, ...)` stays linear.
	var lastOtherwise *mir.BasicBlock
	c.visitLeaves(func(leaf *Candidate) {
		lastOtherwise = leaf.otherwiseBlock
	})

	remaining := c.matchPairs
	c.matchPairs = nil

	c.visitLeaves(func(leaf *Candidate) {
		diag.Assert(len(leaf.matchPairs) == 0, diag.CodeLowerNoProgress, "or-pattern leaf has %d untested pairs", len(leaf.matchPairs))

		leaf.matchPairs = clonePairs(remaining)
		otherwise := b.matchCandidates(leaf.preBindingBlock, []*Candidate{leaf})

		// Without a guard, once the remaining pairs fail after one
		// alternative they fail after the later ones too.
		orOtherwise := lastOtherwise
		if leaf.hasGuard {
			orOtherwise = leaf.otherwiseBlock
		}
		if orOtherwise == nil {
			orOtherwise = b.unreachableBlock()
		}

		b.cfg.Goto(otherwise, orOtherwise)
	})
}

// mergeTrivialSubcandidates joins subcandidates that bind nothing into
// one pre-binding block. Otherwise it drops never subcandidates, whose
// bindings may not agree with their siblings.
func (b *Builder) mergeTrivialSubcandidates(c *Candidate) {
	if len(c.subcandidates) == 0 || c.hasGuard {
		return
	}

	canMerge := true
	for _, sub := range c.subcandidates {
		if len(sub.subcandidates) != 0 || !sub.extraData.isEmpty() {
			canMerge = false
			break
		}
	}

	if canMerge {
		anyMatches := b.cfg.NewBlock()
		c.orSpan = nil

		if c.falseEdgeStartBlock == nil {
			c.falseEdgeStartBlock = c.subcandidates[0].falseEdgeStartBlock
		}

		var lastOtherwise *mir.BasicBlock
		for _, sub := range c.subcandidates {
			b.cfg.Goto(sub.preBindingBlock, anyMatches)
			lastOtherwise = sub.otherwiseBlock
		}

		diag.Assert(lastOtherwise != nil, diag.CodeLowerInvalidCFG, "merged subcandidates have no otherwise block")

		tlog.V("orpat").Printw("merge trivial subcandidates", "count", len(c.subcandidates), "pre_binding", anyMatches.Label)

		c.subcandidates = nil
		c.preBindingBlock = anyMatches
		c.otherwiseBlock = lastOtherwise

		return
	}

	kept := c.subcandidates[:0]
	for _, sub := range c.subcandidates {
		if !sub.extraData.isNever {
			kept = append(kept, sub)
			continue
		}

		// Already unreachable, but every block needs a terminator.
		sub.visitLeaves(func(leaf *Candidate) {
			b.cfg.TerminateUnreachable(leaf.preBindingBlock)
		})

		tlog.V("orpat").Printw("drop never subcandidate", "span", sub.extraData.span)
	}
	c.subcandidates = kept

	if len(c.subcandidates) == 0 {
		c.orSpan = nil
		c.preBindingBlock = b.cfg.NewBlock()
		c.otherwiseBlock = b.unreachableBlock()
	}
}

func (b *Builder) unreachableBlock() *mir.BasicBlock {
	bb := b.cfg.NewBlock()
	b.cfg.TerminateUnreachable(bb)
	return bb
}

// pickTest picks the test for the first pair of the first candidate.
// Any test that decides some pair of the first candidate makes progress.
func (b *Builder) pickTest(candidates []*Candidate) (mir.Place, *Test) {
	mp := candidates[0].matchPairs[0]
	return mp.place, b.test(mp)
}

// sortCandidates moves the leading candidates that test applies to into
// per-outcome lists. The first candidate the test cannot decide, and
// every one after it, is returned unsorted.
func (b *Builder) sortCandidates(place mir.Place, test *Test, candidates []*Candidate) (*targets, []*Candidate) {
	sorted := newTargets()
	total := len(candidates)

	for len(candidates) != 0 {
		br, ok := b.sortCandidate(place, test, candidates[0], sorted)
		if !ok {
			break
		}
		sorted.add(br, candidates[0])
		candidates = candidates[1:]
	}

	if len(candidates) == total {
		diag.BugAt(test.Span, diag.CodeLowerNoProgress, "%s test on %s sorts none of %d candidates", test.Kind, place, total)
	}

	tlog.V("matches").Printw("sorted candidates", "test", test.Kind, "place", place, "tested", total-len(candidates), "untested", len(candidates))

	return sorted, candidates
}

// testCandidates performs one test and lowers the candidates of each
// outcome behind it. Whatever no outcome handles continues in the
// returned remainder block, with the unsorted candidates.
func (b *Builder) testCandidates(start *mir.BasicBlock, candidates []*Candidate) (*mir.BasicBlock, []*Candidate) {
	place, test := b.pickTest(candidates)
	sorted, remaining := b.sortCandidates(place, test, candidates)

	remainderStart := b.cfg.NewBlock()

	blocks := make(map[TestBranch]*mir.BasicBlock, len(sorted.order))
	for _, br := range sorted.order {
		branchStart := b.cfg.NewBlock()
		branchOtherwise := b.matchCandidates(branchStart, sorted.lists[br])
		b.cfg.Goto(branchOtherwise, remainderStart)
		blocks[br] = branchStart
	}

	b.performTest(start, remainderStart, place, test, sorted.order, blocks)

	return remainderStart, remaining
}
