package matches

import (
	"sort"
)

// simplifyMatchPairs removes irrefutable pairs, collecting their bindings
// and ascriptions into extra and splicing their subpairs in their place.
// Or-pattern pairs end up after every other pair.
func (b *Builder) simplifyMatchPairs(pairs []*MatchPair, extra *PatternExtraData) []*MatchPair {
	out := make([]*MatchPair, 0, len(pairs))

	for _, mp := range pairs {
		irr, ok := mp.testCase.(*tcIrrefutable)
		if !ok {
			if len(mp.subpairs) != 0 {
				cp := *mp
				cp.subpairs = b.simplifyMatchPairs(mp.subpairs, extra)
				mp = &cp
			}
			out = append(out, mp)
			continue
		}

		if irr.binding != nil {
			extra.bindings = append(extra.bindings, *irr.binding)
		}
		if irr.ascription != nil {
			extra.ascriptions = append(extra.ascriptions, *irr.ascription)
		}

		out = append(out, b.simplifyMatchPairs(mp.subpairs, extra)...)
	}

	sortOrPairsLast(out)

	return out
}

func sortOrPairsLast(pairs []*MatchPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		_, io := pairs[i].testCase.(*tcOr)
		_, jo := pairs[j].testCase.(*tcOr)
		return !io && jo
	})
}
