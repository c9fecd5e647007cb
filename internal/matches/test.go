package matches

import (
	"fmt"

	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// TestKind is the runtime check a test performs.
type TestKind int

const (
	// TestSwitch branches on the variant of an enum.
	TestSwitch TestKind = iota
	// TestSwitchInt branches on an integer or char value.
	TestSwitchInt
	// TestIf branches on a bool.
	TestIf
	// TestEq compares against one constant.
	TestEq
	// TestRange checks range membership.
	TestRange
	// TestLen checks the length of a slice.
	TestLen
	// TestDeref calls the deref hook of a smart pointer.
	TestDeref
	// TestNever asserts the place is never reached.
	TestNever
)

func (k TestKind) String() string {
	switch k {
	case TestSwitch:
		return "switch"
	case TestSwitchInt:
		return "switchInt"
	case TestIf:
		return "if"
	case TestEq:
		return "eq"
	case TestRange:
		return "range"
	case TestLen:
		return "len"
	case TestDeref:
		return "deref"
	case TestNever:
		return "never"
	}
	return fmt.Sprintf("TestKind(%d)", int(k))
}

// Test is a runtime check of one place.
type Test struct {
	Kind TestKind
	Span diag.Span

	enum  *types.Enum   // Switch
	value *mir.Constant // Eq
	rng   *hir.PatRange // Range
	len   int           // Len
	lenOp mir.BinOp     // Len: OpEq or OpGe
	temp  mir.Local     // Deref
	mut   bool          // Deref
}

type branchKind int

const (
	branchSuccess branchKind = iota
	branchFailure
	branchConstant
	branchVariant
)

// TestBranch is one outcome of a test.
type TestBranch struct {
	kind  branchKind
	value int64 // constant bits or variant index
}

var (
	successBranch = TestBranch{kind: branchSuccess}
	failureBranch = TestBranch{kind: branchFailure}
)

func constantBranch(bits int64) TestBranch { return TestBranch{kind: branchConstant, value: bits} }
func variantBranch(v int) TestBranch       { return TestBranch{kind: branchVariant, value: int64(v)} }

func (br TestBranch) String() string {
	switch br.kind {
	case branchSuccess:
		return "success"
	case branchFailure:
		return "failure"
	case branchConstant:
		return fmt.Sprintf("const %d", br.value)
	}
	return fmt.Sprintf("variant %d", br.value)
}

// targets keeps candidate lists per branch in insertion order.
type targets struct {
	order []TestBranch
	lists map[TestBranch][]*Candidate
}

func newTargets() *targets {
	return &targets{lists: map[TestBranch][]*Candidate{}}
}

func (t *targets) add(br TestBranch, c *Candidate) {
	if _, ok := t.lists[br]; !ok {
		t.order = append(t.order, br)
	}
	t.lists[br] = append(t.lists[br], c)
}

func (t *targets) has(br TestBranch) bool {
	_, ok := t.lists[br]
	return ok
}

func constBits(c *mir.Constant) (int64, bool) {
	switch v := c.Value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case rune:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func constEqual(a, b *mir.Constant) bool {
	if ab, ok := constBits(a); ok {
		bb, ok := constBits(b)
		return ok && ab == bb
	}
	return a.Value == b.Value
}

// test classifies the check a simplified pair needs.
func (b *Builder) test(mp *MatchPair) *Test {
	t := &Test{Span: mp.pattern.Span}

	switch tc := mp.testCase.(type) {
	case *tcVariant:
		t.Kind = TestSwitch
		t.enum = tc.enum

	case *tcConstant:
		ty := mp.pattern.Type
		switch {
		case types.IsBool(ty):
			t.Kind = TestIf
		case types.IsSwitchable(ty):
			t.Kind = TestSwitchInt
		default:
			t.Kind = TestEq
			t.value = tc.value
		}

	case *tcRange:
		t.Kind = TestRange
		t.rng = tc.rng

	case *tcSlice:
		t.Kind = TestLen
		t.len = tc.len
		t.lenOp = mir.OpEq
		if tc.variableLength {
			t.lenOp = mir.OpGe
		}

	case *tcDeref:
		t.Kind = TestDeref
		t.temp = tc.temp
		t.mut = tc.mutable

	case *tcNever:
		t.Kind = TestNever

	default:
		diag.BugAt(mp.pattern.Span, diag.CodeLowerSimplifiable, "pair %T should have been simplified", mp.testCase)
	}

	return t
}

// sortCandidate decides which outcome of test makes candidate applicable.
// It returns false if the candidate does not test matchPlace or could
// apply under several outcomes. When the outcome fully decides the pair,
// the pair is replaced by its subpairs.
func (b *Builder) sortCandidate(matchPlace mir.Place, test *Test, c *Candidate, sorted *targets) (TestBranch, bool) {
	idx := -1
	for i, mp := range c.matchPairs {
		if mp.place.Equal(matchPlace) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return TestBranch{}, false
	}

	mp := c.matchPairs[idx]
	fullyMatched := false
	var br TestBranch
	ok := false

	switch tc := mp.testCase.(type) {
	case *tcVariant:
		if test.Kind == TestSwitch {
			diag.Assert(tc.enum == test.enum, diag.CodeLowerNoProgress, "switch on %s tested against %s", test.enum, tc.enum)
			fullyMatched = true
			br, ok = variantBranch(tc.variant), true
		}

	case *tcConstant:
		switch test.Kind {
		case TestSwitchInt:
			if !types.IsSwitchable(mp.pattern.Type) {
				break
			}
			bits, _ := constBits(tc.value)
			if b.coveredByFailure(matchPlace, bits, sorted) {
				break
			}
			fullyMatched = true
			br, ok = constantBranch(bits), true

		case TestIf:
			v, _ := tc.value.Value.(bool)
			fullyMatched = true
			if v {
				br, ok = successBranch, true
			} else {
				br, ok = failureBranch, true
			}

		case TestRange:
			bits, _ := constBits(tc.value)
			if !test.rng.Contains(bits) {
				br, ok = failureBranch, true
			}

		case TestEq:
			if constEqual(test.value, tc.value) {
				fullyMatched = true
				br, ok = successBranch, true
			} else {
				br, ok = failureBranch, true
			}
		}

	case *tcRange:
		switch test.Kind {
		case TestSwitchInt:
			// A range joins the failure branch only if it contains none
			// of the values the switch distinguishes.
			contained := false
			for _, k := range sorted.order {
				if k.kind == branchConstant && tc.rng.Contains(k.value) {
					contained = true
					break
				}
			}
			if !contained {
				br, ok = failureBranch, true
			}

		case TestRange:
			if test.rng.Equal(tc.rng) {
				fullyMatched = true
				br, ok = successBranch, true
			} else if !test.rng.Overlaps(tc.rng) {
				br, ok = failureBranch, true
			}
		}

	case *tcSlice:
		if test.Kind == TestLen {
			br, ok, fullyMatched = sortLen(test, tc)
		}

	case *tcDeref:
		if test.Kind == TestDeref && test.temp == tc.temp {
			fullyMatched = true
			br, ok = successBranch, true
		}
	}

	if test.Kind == TestNever {
		fullyMatched = true
		br, ok = successBranch, true
	}

	if !ok {
		return TestBranch{}, false
	}

	if fullyMatched {
		pairs := make([]*MatchPair, 0, len(c.matchPairs)-1+len(mp.subpairs))
		pairs = append(pairs, c.matchPairs[:idx]...)
		pairs = append(pairs, c.matchPairs[idx+1:]...)
		pairs = append(pairs, mp.subpairs...)
		sortOrPairsLast(pairs)
		c.matchPairs = pairs
	}

	return br, true
}

// coveredByFailure reports whether a candidate already sorted into the
// failure branch has a range at place that may contain bits.
func (b *Builder) coveredByFailure(place mir.Place, bits int64, sorted *targets) bool {
	for _, c := range sorted.lists[failureBranch] {
		for _, mp := range c.matchPairs {
			r, ok := mp.testCase.(*tcRange)
			if ok && mp.place.Equal(place) && r.rng.Contains(bits) {
				return true
			}
		}
	}
	return false
}

func sortLen(test *Test, tc *tcSlice) (br TestBranch, ok, fullyMatched bool) {
	switch test.lenOp {
	case mir.OpEq:
		switch {
		case test.len == tc.len && !tc.variableLength:
			return successBranch, true, true
		case test.len < tc.len:
			return failureBranch, true, false
		case tc.variableLength:
			// Matches both when the length equals test.len and when it is longer.
			return TestBranch{}, false, false
		default:
			return failureBranch, true, false
		}

	case mir.OpGe:
		switch {
		case test.len == tc.len && tc.variableLength:
			return successBranch, true, true
		case test.len < tc.len || test.len == tc.len:
			// Passing the test is necessary but not sufficient.
			return successBranch, true, false
		case !tc.variableLength:
			return failureBranch, true, false
		default:
			return TestBranch{}, false, false
		}
	}
	return TestBranch{}, false, false
}

// performTest terminates block with the branch that implements test.
// Outcomes without a block in targetBlocks go to otherwise.
func (b *Builder) performTest(block, otherwise *mir.BasicBlock, place mir.Place, test *Test, order []TestBranch, targetBlocks map[TestBranch]*mir.BasicBlock) {
	target := func(br TestBranch) *mir.BasicBlock {
		if bb, ok := targetBlocks[br]; ok {
			return bb
		}
		return otherwise
	}

	tlog.V("matches").Printw("perform test", "kind", test.Kind, "place", place, "block", block.Label, "outcomes", len(order))

	switch test.Kind {
	case TestSwitch:
		sw := &mir.SwitchInt{Otherwise: target(failureBranch)}
		for v := range test.enum.Variants {
			if bb, ok := targetBlocks[variantBranch(v)]; ok {
				sw.Values = append(sw.Values, int64(v))
				sw.Targets = append(sw.Targets, bb)
			}
		}
		discr := b.cfg.Temp(types.TypeInt)
		b.cfg.PushAssign(block, mir.PlaceOf(discr), &mir.Discriminant{Place: place})
		sw.Discr = &mir.Move{Place: mir.PlaceOf(discr)}
		b.cfg.Terminate(block, sw)

	case TestSwitchInt:
		sw := &mir.SwitchInt{Discr: &mir.Copy{Place: place}, Otherwise: target(failureBranch)}
		for _, br := range order {
			if br.kind == branchConstant {
				sw.Values = append(sw.Values, br.value)
				sw.Targets = append(sw.Targets, targetBlocks[br])
			}
		}
		b.cfg.Terminate(block, sw)

	case TestIf:
		b.cfg.Terminate(block, &mir.Branch{
			Condition: &mir.Copy{Place: place},
			True:      target(successBranch),
			False:     target(failureBranch),
		})

	case TestEq:
		b.compare(block, target(successBranch), target(failureBranch), mir.OpEq, &mir.Copy{Place: place}, test.value)

	case TestRange:
		success, fail := target(successBranch), target(failureBranch)
		ty := b.cfg.PlaceType(place)
		val := &mir.Copy{Place: place}

		var mid *mir.BasicBlock
		switch {
		case test.rng.Lo == nil:
			mid = block
		case test.rng.Hi == nil:
			mid = success
		default:
			mid = b.cfg.NewBlock()
		}

		if test.rng.Lo != nil {
			b.compare(block, mid, fail, mir.OpLe, mir.Int(ty, *test.rng.Lo), val)
		}
		if test.rng.Hi != nil {
			op := mir.OpLe
			if test.rng.End == hir.RangeExcluded {
				op = mir.OpLt
			}
			b.compare(mid, success, fail, op, val, mir.Int(ty, *test.rng.Hi))
		}

	case TestLen:
		n := b.cfg.Temp(types.TypeUsize)
		b.cfg.PushAssign(block, mir.PlaceOf(n), &mir.Len{Place: place})
		b.compare(block, target(successBranch), target(failureBranch), test.lenOp,
			&mir.Move{Place: mir.PlaceOf(n)}, mir.Int(types.TypeUsize, int64(test.len)))

	case TestDeref:
		kind, fn := mir.BorrowShared, "deref"
		if test.mut {
			kind, fn = mir.BorrowMut, "deref_mut"
		}
		ptrTy := b.cfg.PlaceType(place)
		ref := b.cfg.Temp(types.NewRef(ptrTy, test.mut))
		b.cfg.PushAssign(block, mir.PlaceOf(ref), &mir.Ref{Kind: kind, Place: place})
		b.cfg.Push(block, &mir.Call{
			Dest: mir.PlaceOf(test.temp),
			Func: fn,
			Args: []mir.Operand{&mir.Move{Place: mir.PlaceOf(ref)}},
		})
		b.cfg.Goto(block, target(successBranch))

	case TestNever:
		b.cfg.PushFakeRead(block, mir.ForMatchedPlace, place)
		b.cfg.TerminateUnreachable(block)
	}
}

// compare emits `tmp = left op right` and branches on tmp.
func (b *Builder) compare(block, success, fail *mir.BasicBlock, op mir.BinOp, left, right mir.Operand) {
	res := b.cfg.Temp(types.TypeBool)
	b.cfg.PushAssign(block, mir.PlaceOf(res), &mir.BinaryOp{Op: op, Left: left, Right: right})
	b.cfg.Terminate(block, &mir.Branch{
		Condition: &mir.Move{Place: mir.PlaceOf(res)},
		True:      success,
		False:     fail,
	})
}
