package analysis

import (
	"github.com/malphas-lang/matchc/internal/mir"
)

// ComputeDominators computes the immediate dominator for each block
// reachable under view. The entry block maps to nil.
func ComputeDominators(fn *mir.Function, view View) map[*mir.BasicBlock]*mir.BasicBlock {
	idom := make(map[*mir.BasicBlock]*mir.BasicBlock)
	if fn.Entry == nil || len(fn.Blocks) == 0 {
		return idom
	}

	preds := Predecessors(fn, view)
	reachable := Reachable(fn, view)
	idom[fn.Entry] = nil

	changed := true
	for changed {
		changed = false

		for _, block := range fn.Blocks {
			if block == fn.Entry || !reachable[block] {
				continue
			}

			var newDom *mir.BasicBlock
			for _, pred := range preds[block] {
				// Skip predecessors that don't have a dominator yet
				if _, ok := idom[pred]; !ok {
					continue
				}
				if newDom == nil {
					newDom = pred
				} else {
					newDom = intersect(pred, newDom, idom)
				}
			}

			if newDom == nil {
				continue
			}
			if old, ok := idom[block]; !ok || old != newDom {
				idom[block] = newDom
				changed = true
			}
		}
	}

	return idom
}

// intersect finds the nearest common dominator of two blocks.
func intersect(b1, b2 *mir.BasicBlock, idom map[*mir.BasicBlock]*mir.BasicBlock) *mir.BasicBlock {
	pathFromB1 := make(map[*mir.BasicBlock]bool)
	for cur := b1; cur != nil; cur = idom[cur] {
		pathFromB1[cur] = true
	}
	for cur := b2; cur != nil; cur = idom[cur] {
		if pathFromB1[cur] {
			return cur
		}
	}
	return nil
}

// Dominates reports whether a dominates b.
func Dominates(idom map[*mir.BasicBlock]*mir.BasicBlock, a, b *mir.BasicBlock) bool {
	if _, ok := idom[b]; !ok {
		return false
	}
	for cur := b; cur != nil; cur = idom[cur] {
		if cur == a {
			return true
		}
	}
	return false
}
