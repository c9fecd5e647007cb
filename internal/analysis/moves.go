package analysis

import (
	"sort"
	"strings"

	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/mir"
)

// FlowState is the may-moved and may-uninitialized state at a program point.
type FlowState struct {
	// Moved holds places whose value may have been moved out.
	Moved map[string]mir.Place
	// Uninit holds locals that may not hold a value.
	Uninit map[mir.Local]bool
}

// NewFlowState returns the state on entry of fn: arguments are
// initialized, every other local is not.
func NewFlowState(fn *mir.Function) *FlowState {
	s := &FlowState{
		Moved:  make(map[string]mir.Place),
		Uninit: make(map[mir.Local]bool),
	}
	for i := range fn.Locals {
		l := mir.Local(i)
		if l == mir.ReturnPlace || int(l) > fn.ArgCount {
			s.Uninit[l] = true
		}
	}
	return s
}

// Clone returns an independent copy.
func (s *FlowState) Clone() *FlowState {
	c := &FlowState{
		Moved:  make(map[string]mir.Place, len(s.Moved)),
		Uninit: make(map[mir.Local]bool, len(s.Uninit)),
	}
	for k, p := range s.Moved {
		c.Moved[k] = p
	}
	for l := range s.Uninit {
		c.Uninit[l] = true
	}
	return c
}

// Merge joins other into s and reports whether s grew.
func (s *FlowState) Merge(other *FlowState) bool {
	changed := false
	for k, p := range other.Moved {
		if _, ok := s.Moved[k]; !ok {
			s.Moved[k] = p
			changed = true
		}
	}
	for l := range other.Uninit {
		if !s.Uninit[l] {
			s.Uninit[l] = true
			changed = true
		}
	}
	return changed
}

// overlaps reports whether one place is a prefix of the other.
func overlaps(a, b mir.Place) bool {
	if a.Local != b.Local {
		return false
	}
	n := len(a.Projection)
	if len(b.Projection) < n {
		n = len(b.Projection)
	}
	return a.Prefix(n).Equal(b.Prefix(n))
}

func (s *FlowState) movedOverlapping(p mir.Place) (mir.Place, bool) {
	keys := make([]string, 0, len(s.Moved))
	for k := range s.Moved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if overlaps(s.Moved[k], p) {
			return s.Moved[k], true
		}
	}
	return mir.Place{}, false
}

func (s *FlowState) assign(p mir.Place) {
	for k, m := range s.Moved {
		if len(m.Projection) >= len(p.Projection) && overlaps(m, p) {
			delete(s.Moved, k)
		}
	}
	if p.IsLocal() {
		delete(s.Uninit, p.Local)
	}
}

// MoveChecker reports reads of moved or uninitialized places. It runs on
// the checker view, so a move that happens on any path a guard could
// take is visible to the arms tested after it.
type MoveChecker struct {
	fn    *mir.Function
	diags []diag.Diagnostic
	seen  map[string]bool
}

// CheckMoves runs the move checker over fn.
func CheckMoves(fn *mir.Function) []diag.Diagnostic {
	c := &MoveChecker{fn: fn, seen: make(map[string]bool)}
	c.Analyze()
	return c.diags
}

// Analyze computes block entry states to a fixpoint, then reports.
func (c *MoveChecker) Analyze() map[*mir.BasicBlock]*FlowState {
	fn := c.fn
	if fn.Entry == nil {
		return nil
	}

	blockStates := map[*mir.BasicBlock]*FlowState{fn.Entry: NewFlowState(fn)}
	worklist := []*mir.BasicBlock{fn.Entry}
	queued := map[*mir.BasicBlock]bool{fn.Entry: true}

	for len(worklist) > 0 {
		block := worklist[0]
		worklist = worklist[1:]
		queued[block] = false

		state := blockStates[block].Clone()
		for _, stmt := range block.Statements {
			c.transferStmt(state, stmt, block, false)
		}
		c.transferTerminator(state, block, false)

		for _, succ := range Successors(block, Checker) {
			existing, ok := blockStates[succ]
			if !ok {
				blockStates[succ] = state.Clone()
			} else if !existing.Merge(state) {
				continue
			}
			if !queued[succ] {
				queued[succ] = true
				worklist = append(worklist, succ)
			}
		}
	}

	// Report once against the fixpoint states.
	for _, block := range fn.Blocks {
		in, ok := blockStates[block]
		if !ok {
			continue
		}
		state := in.Clone()
		for _, stmt := range block.Statements {
			c.transferStmt(state, stmt, block, true)
		}
		c.transferTerminator(state, block, true)
	}

	tlog.V("flow").Printw("move check", "fn", fn.Name, "blocks", len(blockStates), "diags", len(c.diags))

	return blockStates
}

func (c *MoveChecker) transferStmt(s *FlowState, stmt mir.Statement, bb *mir.BasicBlock, report bool) {
	switch st := stmt.(type) {
	case *mir.Assign:
		c.rvalue(s, st.Rvalue, bb, report)
		c.readBase(s, st.Place, bb, report)
		s.assign(st.Place)
	case *mir.Call:
		for _, a := range st.Args {
			c.operand(s, a, bb, report)
		}
		s.assign(st.Dest)
	case *mir.FakeRead:
		c.read(s, st.Place, bb, report)
	case *mir.Drop:
		// Drops of moved values are elaborated away.
		s.Moved[st.Place.Key()] = st.Place
	case *mir.StorageLive:
		s.Uninit[st.Local] = true
	case *mir.StorageDead:
		s.Uninit[st.Local] = true
		for k, m := range s.Moved {
			if m.Local == st.Local {
				delete(s.Moved, k)
			}
		}
	}
}

func (c *MoveChecker) transferTerminator(s *FlowState, bb *mir.BasicBlock, report bool) {
	switch t := bb.Terminator.(type) {
	case *mir.Branch:
		c.operand(s, t.Condition, bb, report)
	case *mir.SwitchInt:
		c.operand(s, t.Discr, bb, report)
	case *mir.Return:
		c.read(s, mir.PlaceOf(mir.ReturnPlace), bb, report)
	}
}

func (c *MoveChecker) rvalue(s *FlowState, rv mir.Rvalue, bb *mir.BasicBlock, report bool) {
	switch r := rv.(type) {
	case *mir.Use:
		c.operand(s, r.Operand, bb, report)
	case *mir.Ref:
		c.read(s, r.Place, bb, report)
	case *mir.Discriminant:
		c.read(s, r.Place, bb, report)
	case *mir.Len:
		c.read(s, r.Place, bb, report)
	case *mir.BinaryOp:
		c.operand(s, r.Left, bb, report)
		c.operand(s, r.Right, bb, report)
	case *mir.Not:
		c.operand(s, r.Operand, bb, report)
	case *mir.Aggregate:
		for _, f := range r.Fields {
			c.operand(s, f, bb, report)
		}
	}
}

func (c *MoveChecker) operand(s *FlowState, op mir.Operand, bb *mir.BasicBlock, report bool) {
	switch o := op.(type) {
	case *mir.Copy:
		c.read(s, o.Place, bb, report)
	case *mir.Move:
		c.read(s, o.Place, bb, report)
		s.Moved[o.Place.Key()] = o.Place
	}
}

// readBase checks the locals an assignment reads to find its destination.
func (c *MoveChecker) readBase(s *FlowState, p mir.Place, bb *mir.BasicBlock, report bool) {
	if p.HasDeref() {
		c.read(s, p.Prefix(firstDeref(p)), bb, report)
	}
}

func firstDeref(p mir.Place) int {
	for i, e := range p.Projection {
		if e.Kind == mir.ProjDeref {
			return i
		}
	}
	return len(p.Projection)
}

func (c *MoveChecker) read(s *FlowState, p mir.Place, bb *mir.BasicBlock, report bool) {
	if !report {
		return
	}
	decl := c.fn.Locals[p.Local]
	if s.Uninit[p.Local] && decl.Kind != mir.LocalTemp {
		c.report(diag.CodeFlowUseOfUninit, bb, p, decl, "use of possibly uninitialized %s in %s", describe(p, decl), bb.Label)
		return
	}
	if m, ok := s.movedOverlapping(p); ok {
		c.report(diag.CodeFlowUseOfMoved, bb, p, decl, "use of moved value %s in %s (moved: %s)", describe(p, decl), bb.Label, m)
	}
}

func (c *MoveChecker) report(code diag.Code, bb *mir.BasicBlock, p mir.Place, decl *mir.LocalDecl, format string, args ...any) {
	key := string(code) + bb.Label + p.Key()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	d := diag.Errorf(diag.StageFlow, code, decl.Span, format, args...).
		WithPrimarySpan(decl.Span, "declared here")
	if code == diag.CodeFlowUseOfMoved {
		d = d.WithNote("false edges keep a move in an earlier arm or guard visible to later arms")
	}
	c.diags = append(c.diags, d)
}

func describe(p mir.Place, decl *mir.LocalDecl) string {
	if decl.Name == "" {
		return p.String()
	}
	var b strings.Builder
	b.WriteString("`")
	b.WriteString(decl.Name)
	b.WriteString("` (")
	b.WriteString(p.String())
	b.WriteString(")")
	return b.String()
}
