package matches

import (
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// falseEdges ends from with a jump to real that analysis also sees
// continuing to imaginary.
func (b *Builder) falseEdges(from, real, imaginary *mir.BasicBlock) {
	if imaginary != nil && imaginary != real {
		b.cfg.Terminate(from, &mir.FalseEdge{Real: real, Imaginary: imaginary})
		return
	}
	b.cfg.Goto(from, real)
}

// fakeBorrow is a place frozen while guards run, and the temporary that
// holds the fake reference to it.
type fakeBorrow struct {
	place mir.Place
	temp  mir.Local
	kind  mir.BorrowKind
}

type fakeBorrowCollector struct {
	b         *Builder
	scrutinee mir.Place

	order []string
	kinds map[string]mir.BorrowKind
	refs  map[string]mir.Place
}

// collectFakeBorrows finds the places the decision tree inspects, so a
// guard cannot change which arm would have matched. Places a deref
// pattern tests are frozen deeply; everything else only shallowly.
func (b *Builder) collectFakeBorrows(candidates []*Candidate, scrutinee mir.Place) []fakeBorrow {
	c := &fakeBorrowCollector{
		b:         b,
		scrutinee: scrutinee,
		kinds:     map[string]mir.BorrowKind{},
		refs:      map[string]mir.Place{},
	}

	for _, cand := range candidates {
		c.visitCandidate(cand.matchPairs, &cand.extraData)
	}

	out := make([]fakeBorrow, 0, len(c.order))
	for _, key := range c.order {
		place := c.refs[key]
		ty := b.cfg.PlaceType(place)
		temp := b.cfg.NewLocal(mir.LocalDecl{
			Type: types.NewRef(ty, false),
			Kind: mir.LocalFakeBorrow,
		})
		out = append(out, fakeBorrow{place: place, temp: temp, kind: c.kinds[key]})
	}

	return out
}

func (c *fakeBorrowCollector) visitCandidate(pairs []*MatchPair, extra *PatternExtraData) {
	for _, bind := range extra.bindings {
		c.visitBinding(&bind)
	}
	for _, mp := range pairs {
		c.visitMatchPair(mp)
	}
}

func (c *fakeBorrowCollector) visitMatchPair(mp *MatchPair) {
	switch tc := mp.testCase.(type) {
	case *tcOr:
		for _, fp := range tc.pats {
			c.visitCandidate(fp.matchPairs, &fp.extraData)
		}
	case *tcDeref:
		// The deref call may observe anything behind the pointer.
		c.fakeBorrow(mp.place, mir.BorrowFakeDeep)
	default:
		c.fakeBorrow(mp.place, mir.BorrowFakeShallow)
		for _, sub := range mp.subpairs {
			c.visitMatchPair(sub)
		}
	}
}

func (c *fakeBorrowCollector) visitBinding(bind *Binding) {
	// Bindings of the scrutinee through a reference need the reference
	// itself kept stable.
	src := bind.source
	if src.Local != c.scrutinee.Local || !src.HasDeref() {
		return
	}

	last := 0
	for i, e := range src.Projection {
		if e.Kind == mir.ProjDeref {
			last = i
		}
	}
	c.fakeBorrow(src.Prefix(last), mir.BorrowFakeShallow)
}

func (c *fakeBorrowCollector) fakeBorrow(place mir.Place, kind mir.BorrowKind) {
	c.fakeBorrowDerefPrefixes(place)
	c.insert(place, kind)
}

// fakeBorrowDerefPrefixes shallowly borrows each place a deref in place
// goes through, innermost first.
func (c *fakeBorrowCollector) fakeBorrowDerefPrefixes(place mir.Place) {
	for i := len(place.Projection) - 1; i >= 0; i-- {
		if place.Projection[i].Kind != mir.ProjDeref {
			continue
		}
		prefix := place.Prefix(i)
		if _, ok := c.kinds[prefix.Key()]; ok {
			return
		}
		c.insert(prefix, mir.BorrowFakeShallow)
	}
}

func (c *fakeBorrowCollector) insert(place mir.Place, kind mir.BorrowKind) {
	key := place.Key()
	prev, ok := c.kinds[key]
	if !ok {
		c.order = append(c.order, key)
		c.refs[key] = place
		c.kinds[key] = kind
		return
	}
	if prev == mir.BorrowFakeShallow && kind == mir.BorrowFakeDeep {
		c.kinds[key] = kind
	}
}
