package analysis

import (
	"github.com/malphas-lang/matchc/internal/mir"
)

// View selects which edges of a false edge terminator are followed.
type View int

const (
	// Runtime follows only the edges control can take.
	Runtime View = iota
	// Checker also follows imaginary edges, the way borrow and move
	// checking sees the graph.
	Checker
)

func (v View) String() string {
	if v == Checker {
		return "checker"
	}
	return "runtime"
}

// Successors returns the successors of bb under view.
func Successors(bb *mir.BasicBlock, view View) []*mir.BasicBlock {
	if bb.Terminator == nil {
		return nil
	}
	if view == Runtime {
		return mir.RealSuccessors(bb.Terminator)
	}
	return mir.Successors(bb.Terminator)
}

// Predecessors builds the predecessor map of fn under view.
func Predecessors(fn *mir.Function, view View) map[*mir.BasicBlock][]*mir.BasicBlock {
	preds := make(map[*mir.BasicBlock][]*mir.BasicBlock, len(fn.Blocks))
	for _, block := range fn.Blocks {
		for _, succ := range Successors(block, view) {
			preds[succ] = append(preds[succ], block)
		}
	}
	return preds
}

// Reachable marks the blocks reachable from the entry block.
func Reachable(fn *mir.Function, view View) map[*mir.BasicBlock]bool {
	if fn.Entry == nil {
		return make(map[*mir.BasicBlock]bool)
	}
	return reachableFrom(fn.Entry, view)
}

// CanReach reports whether a path leads from one block to another.
// A block reaches itself.
func CanReach(from, to *mir.BasicBlock, view View) bool {
	return reachableFrom(from, view)[to]
}

func reachableFrom(start *mir.BasicBlock, view View) map[*mir.BasicBlock]bool {
	reachable := make(map[*mir.BasicBlock]bool)
	worklist := []*mir.BasicBlock{start}

	for len(worklist) > 0 {
		block := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if reachable[block] {
			continue
		}
		reachable[block] = true

		for _, succ := range Successors(block, view) {
			if !reachable[succ] {
				worklist = append(worklist, succ)
			}
		}
	}

	return reachable
}

// Unreachable lists blocks that cannot run, in block order.
func Unreachable(fn *mir.Function, view View) []*mir.BasicBlock {
	reachable := Reachable(fn, view)
	var out []*mir.BasicBlock
	for _, block := range fn.Blocks {
		if !reachable[block] {
			out = append(out, block)
		}
	}
	return out
}
