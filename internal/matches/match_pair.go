package matches

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// MatchPair is a place together with the pattern it must satisfy.
// Pairs are not modified after simplification; candidates only reorder
// and splice their pair lists.
type MatchPair struct {
	place    mir.Place
	testCase TestCase
	subpairs []*MatchPair
	pattern  *hir.Pat
}

// TestCase is what a pair checks, before it is turned into a Test.
type TestCase interface {
	testCase()
}

type (
	tcIrrefutable struct {
		binding    *Binding
		ascription *Ascription
	}

	tcVariant struct {
		enum    *types.Enum
		variant int
	}

	tcConstant struct {
		value *mir.Constant
	}

	tcRange struct {
		rng *hir.PatRange
	}

	tcSlice struct {
		len            int
		variableLength bool
	}

	tcDeref struct {
		temp    mir.Local
		mutable bool
	}

	tcNever struct{}

	tcOr struct {
		pats []*FlatPat
	}
)

func (*tcIrrefutable) testCase() {}
func (*tcVariant) testCase()     {}
func (*tcConstant) testCase()    {}
func (*tcRange) testCase()       {}
func (*tcSlice) testCase()       {}
func (*tcDeref) testCase()       {}
func (*tcNever) testCase()       {}
func (*tcOr) testCase()          {}

func clonePairs(pairs []*MatchPair) []*MatchPair {
	return append([]*MatchPair(nil), pairs...)
}

func (b *Builder) newMatchPair(place mir.Place, pat *hir.Pat) *MatchPair {
	mp := &MatchPair{place: place, pattern: pat}

	switch k := pat.Kind.(type) {
	case *hir.PatWild:
		mp.testCase = &tcIrrefutable{}

	case *hir.PatOr:
		pats := make([]*FlatPat, len(k.Pats))
		for i, alt := range k.Pats {
			pats[i] = b.newFlatPat(place, alt)
		}
		mp.testCase = &tcOr{pats: pats}

	case *hir.PatRange:
		if k.IsFull() {
			mp.testCase = &tcIrrefutable{}
		} else {
			mp.testCase = &tcRange{rng: k}
		}

	case *hir.PatConstant:
		mp.testCase = &tcConstant{value: k.Value}

	case *hir.PatAscribe:
		mp.testCase = &tcIrrefutable{ascription: &Ascription{
			source:     place,
			annotation: k.Annotation,
			variance:   k.Variance,
		}}
		mp.subpairs = []*MatchPair{b.newMatchPair(place, k.Subpattern)}

	case *hir.PatBinding:
		mp.testCase = &tcIrrefutable{binding: &Binding{
			span:   pat.Span,
			source: place,
			varID:  k.Var,
			mode:   k.Mode,
		}}
		if k.Subpattern != nil {
			mp.subpairs = []*MatchPair{b.newMatchPair(place, k.Subpattern)}
		}

	case *hir.PatSlice:
		mp.subpairs = b.prefixSliceSuffix(place, pat.Type, k)
		_, isArray := pat.Type.(*types.Array)
		if isArray || len(k.Prefix) == 0 && len(k.Suffix) == 0 && k.Slice != nil {
			mp.testCase = &tcIrrefutable{}
		} else {
			mp.testCase = &tcSlice{
				len:            len(k.Prefix) + len(k.Suffix),
				variableLength: k.Slice != nil,
			}
		}

	case *hir.PatVariant:
		v := k.Enum.Variants[k.Variant]
		down := place.Downcast(k.Variant, v.Name, k.Enum)
		mp.subpairs = b.fieldMatchPairs(down, v.Payload, k.Subpatterns)

		irrefutable := true
		for i := range k.Enum.Variants {
			if i != k.Variant && k.Enum.VariantInhabited(i) {
				irrefutable = false
				break
			}
		}
		if irrefutable {
			mp.testCase = &tcIrrefutable{}
		} else {
			mp.testCase = &tcVariant{enum: k.Enum, variant: k.Variant}
		}

	case *hir.PatLeaf:
		mp.subpairs = b.fieldMatchPairs(place, types.FieldTypes(pat.Type), k.Subpatterns)
		mp.testCase = &tcIrrefutable{}

	case *hir.PatDeref:
		mp.subpairs = []*MatchPair{b.newMatchPair(place.Deref(k.Subpattern.Type), k.Subpattern)}
		mp.testCase = &tcIrrefutable{}

	case *hir.PatDerefPattern:
		// The pointee is reached through a deref call into a fresh
		// reference temporary, which the subpattern then matches through.
		ref := types.NewRef(k.Subpattern.Type, k.Mutable)
		temp := b.cfg.Temp(ref)
		inner := mir.PlaceOf(temp).Deref(k.Subpattern.Type)
		mp.subpairs = []*MatchPair{b.newMatchPair(inner, k.Subpattern)}
		mp.testCase = &tcDeref{temp: temp, mutable: k.Mutable}

	case *hir.PatNever:
		mp.testCase = &tcNever{}

	default:
		diag.BugAt(pat.Span, diag.CodeLowerUnsupported, "unsupported pattern %T", pat.Kind)
	}

	return mp
}

func (b *Builder) fieldMatchPairs(place mir.Place, fieldTypes []types.Type, fps []hir.FieldPat) []*MatchPair {
	out := make([]*MatchPair, 0, len(fps))
	for _, fp := range fps {
		var ty types.Type = fp.Pattern.Type
		if fp.Field < len(fieldTypes) {
			ty = fieldTypes[fp.Field]
		}
		out = append(out, b.newMatchPair(place.Field(fp.Field, ty), fp.Pattern))
	}
	return out
}

// prefixSliceSuffix creates pairs for the elements of a slice or array
// pattern. Elements of a fixed size array are all indexed from the start.
func (b *Builder) prefixSliceSuffix(place mir.Place, ty types.Type, k *hir.PatSlice) []*MatchPair {
	minLength := len(k.Prefix) + len(k.Suffix)
	exactSize := false
	if arr, ok := ty.(*types.Array); ok {
		minLength = arr.Len
		exactSize = true
	}

	elem := types.ElemType(ty)
	out := make([]*MatchPair, 0, minLength+1)

	for i, sub := range k.Prefix {
		p := place.ConstantIndex(i, minLength, false, elem)
		out = append(out, b.newMatchPair(p, sub))
	}

	if k.Slice != nil {
		from := len(k.Prefix)
		to := len(k.Suffix)
		if exactSize {
			to = minLength - len(k.Suffix)
		}
		p := place.Subslice(from, to, !exactSize, k.Slice.Type)
		out = append(out, b.newMatchPair(p, k.Slice))
	}

	for i := range k.Suffix {
		sub := k.Suffix[len(k.Suffix)-1-i]
		offset := i + 1
		if exactSize {
			offset = minLength - (i + 1)
		}
		p := place.ConstantIndex(offset, minLength, !exactSize, elem)
		out = append(out, b.newMatchPair(p, sub))
	}

	return out
}
