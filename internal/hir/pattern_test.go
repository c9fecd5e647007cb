package hir

import (
	"testing"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/types"
)

func bind(name string, v VarID, ty types.Type, primary bool) *Pat {
	return &Pat{Type: ty, Kind: &PatBinding{Name: name, Var: v, VarType: ty, IsPrimary: primary}}
}

func resultIntNever() *types.Enum {
	return &types.Enum{Name: "Result", Variants: []types.Variant{
		{Name: "Ok", Payload: []types.Type{types.TypeInt}},
		{Name: "Err", Payload: []types.Type{types.TypeNever}},
	}}
}

func TestIsNeverPattern(t *testing.T) {
	res := resultIntNever()
	never := &Pat{Type: types.TypeNever, Kind: &PatNever{}}
	errNever := &Pat{Type: res, Kind: &PatVariant{Enum: res, Variant: 1, Subpatterns: []FieldPat{{Field: 0, Pattern: never}}}}
	ok := &Pat{Type: res, Kind: &PatVariant{Enum: res, Variant: 0, Subpatterns: []FieldPat{{Field: 0, Pattern: bind("x", 1, types.TypeInt, true)}}}}

	if !errNever.IsNeverPattern() {
		t.Fatalf("Err(!) should be a never pattern")
	}
	if ok.IsNeverPattern() {
		t.Fatalf("Ok(x) is not a never pattern")
	}

	mixed := &Pat{Type: res, Kind: &PatOr{Pats: []*Pat{ok, errNever}}}
	if mixed.IsNeverPattern() {
		t.Fatalf("Ok(x) | Err(!) can match")
	}
	allNever := &Pat{Type: res, Kind: &PatOr{Pats: []*Pat{errNever, errNever}}}
	if !allNever.IsNeverPattern() {
		t.Fatalf("Err(!) | Err(!) can never match")
	}
}

func TestVisitPrimaryBindingsSkipsLaterAlternatives(t *testing.T) {
	tup := &types.Tuple{Elems: []types.Type{types.TypeInt, types.TypeInt}}
	left := &Pat{Type: tup, Kind: &PatLeaf{Subpatterns: []FieldPat{
		{Field: 0, Pattern: bind("a", 1, types.TypeInt, true)},
		{Field: 1, Pattern: bind("b", 2, types.TypeInt, true)},
	}}}
	right := &Pat{Type: tup, Kind: &PatLeaf{Subpatterns: []FieldPat{
		{Field: 0, Pattern: bind("b", 2, types.TypeInt, false)},
		{Field: 1, Pattern: bind("a", 1, types.TypeInt, false)},
	}}}
	or := &Pat{Type: tup, Kind: &PatOr{Pats: []*Pat{left, right}}}
	outer := &Pat{Type: tup, Span: diag.Span{Line: 1, Column: 1}, Kind: &PatBinding{
		Name: "all", Var: 3, VarType: tup, IsPrimary: true, Subpattern: or,
	}}

	var names []string
	outer.VisitPrimaryBindings(func(b *PatBinding, _ diag.Span) {
		names = append(names, b.Name)
	})
	want := []string{"all", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestRangeQueries(t *testing.T) {
	i := func(v int64) *int64 { return &v }
	r1 := &PatRange{Lo: i(1), Hi: i(5), End: RangeIncluded}
	r2 := &PatRange{Lo: i(5), Hi: i(9), End: RangeExcluded}
	r3 := &PatRange{Lo: i(6), Hi: i(9), End: RangeIncluded}
	open := &PatRange{Lo: i(9)}

	if !r1.Contains(5) || r2.Contains(9) || !open.Contains(1<<40) {
		t.Fatalf("containment is wrong")
	}
	if !r1.Overlaps(r2) {
		t.Fatalf("1..=5 and 5..9 overlap at 5")
	}
	if r1.Overlaps(r3) {
		t.Fatalf("1..=5 and 6..=9 are disjoint")
	}
	if r2.Overlaps(open) {
		t.Fatalf("5..9 and 9.. are disjoint")
	}
	if !r3.Overlaps(open) {
		t.Fatalf("6..=9 and 9.. overlap at 9")
	}
	if !(&PatRange{}).IsFull() || r1.IsFull() {
		t.Fatalf("fullness is wrong")
	}
	if !r1.Equal(&PatRange{Lo: i(1), Hi: i(5)}) {
		t.Fatalf("equal ranges compare unequal")
	}
}
