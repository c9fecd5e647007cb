package mir

import (
	"strings"
	"testing"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/types"
)

func optionInt() *types.Enum {
	return &types.Enum{Name: "Option", Variants: []types.Variant{
		{Name: "None"},
		{Name: "Some", Payload: []types.Type{types.TypeInt}},
	}}
}

func TestPlaceProjectionsDoNotAlias(t *testing.T) {
	opt := optionInt()
	base := PlaceOf(1).Field(0, opt)
	some := base.Downcast(1, "Some", opt)
	a := some.Field(0, types.TypeInt)
	b := base.Downcast(0, "None", opt)

	if len(base.Projection) != 1 {
		t.Fatalf("base was extended in place: %s", base)
	}
	if a.String() != "(_1.0 as Some).0" {
		t.Fatalf("unexpected place %s", a)
	}
	if b.String() != "(_1.0 as None)" {
		t.Fatalf("unexpected place %s", b)
	}
	if a.Prefix(2).Equal(b) {
		t.Fatalf("%s must differ from %s", a.Prefix(2), b)
	}
	if !a.Prefix(2).Equal(some) {
		t.Fatalf("%s should equal %s", a.Prefix(2), some)
	}
}

func TestSliceProjectionStrings(t *testing.T) {
	s := &types.Slice{Elem: types.TypeInt}
	p := PlaceOf(2).Deref(s)
	tests := map[string]Place{
		"(*_2)[0 of 2]":  p.ConstantIndex(0, 2, false, types.TypeInt),
		"(*_2)[-1 of 2]": p.ConstantIndex(1, 2, true, types.TypeInt),
		"(*_2)[1:-1]":    p.Subslice(1, 1, true, s),
	}
	for want, place := range tests {
		if place.String() != want {
			t.Errorf("got %s, want %s", place, want)
		}
	}
}

func TestBuilderTerminatesOnce(t *testing.T) {
	f := NewFunction("f", types.TypeInt, LocalDecl{Name: "x", Type: types.TypeBool})
	b := NewBuilder(f)
	entry := b.NewBlock()
	exit := b.NewBlock()
	b.Goto(entry, exit)

	defer func() {
		bug, ok := recover().(*diag.Bug)
		if !ok {
			t.Fatalf("expected a bug panic")
		}
		if bug.Diagnostic.Code != diag.CodeLowerTerminated {
			t.Fatalf("unexpected code %s", bug.Diagnostic.Code)
		}
	}()
	b.TerminateUnreachable(entry)
}

func TestBuilderRecordsOrigin(t *testing.T) {
	f := NewFunction("f", types.TypeUnit)
	b := NewBuilder(f)
	bb := b.NewBlock()
	if bb.From == 0 {
		t.Fatalf("block origin not recorded")
	}
	name, _, _ := bb.From.NameFileLine()
	if !strings.Contains(name, "TestBuilderRecordsOrigin") {
		t.Fatalf("origin %q does not name the caller", name)
	}
	if f.Entry != bb {
		t.Fatalf("first block should become the entry")
	}
}

func TestPrettyPrintFunction(t *testing.T) {
	f := NewFunction("pick", types.TypeInt, LocalDecl{Name: "v", Type: types.TypeBool})
	b := NewBuilder(f)
	x := b.NewLocal(LocalDecl{Name: "x", Type: types.TypeBool, Kind: LocalUserVar})
	g := b.NewLocal(LocalDecl{Name: "x", Type: types.NewRef(types.TypeBool, false), Kind: LocalRefForGuard})
	b.AddDebugInfo("x", PlaceOf(g), diag.Span{})
	b.AddDebugInfo("x", PlaceOf(x), diag.Span{})

	entry := b.NewBlock()
	yes := b.NewBlock()
	no := b.NewBlock()
	next := b.NewBlock()
	b.PushPlaceMention(entry, PlaceOf(1))
	b.Terminate(entry, &Branch{Condition: &Copy{Place: PlaceOf(1)}, True: yes, False: no})
	b.PushAssign(yes, PlaceOf(g), &Ref{Kind: BorrowShared, Place: PlaceOf(1)})
	b.PushFakeRead(yes, ForGuardBinding, PlaceOf(g))
	b.PushAssign(yes, PlaceOf(x), &Use{Operand: &Copy{Place: PlaceOf(1)}})
	b.PushAssignConst(yes, PlaceOf(ReturnPlace), Int(types.TypeInt, 1))
	b.Terminate(yes, &FalseEdge{Real: next, Imaginary: no})
	b.PushAssignConst(no, PlaceOf(ReturnPlace), Int(types.TypeInt, 2))
	b.Goto(no, next)
	b.Terminate(next, &Return{})

	out := f.PrettyPrint()
	for _, want := range []string{
		"fn pick(_1: bool) -> int {",
		"debug x => _3;",
		"let _3: &bool; // x (ref for guard)",
		"switchInt(copy _1) -> [false: bb2, otherwise: bb1];",
		"_3 = &_1;",
		"FakeRead(ForGuardBinding, _3);",
		"_0 = const 1_int;",
		"falseEdge -> [real: bb3, imaginary: bb2];",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	if errs := Validate(f); len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	f := NewFunction("broken", types.TypeUnit)
	b := NewBuilder(f)
	entry := b.NewBlock()
	dangling := b.NewBlock()
	foreign := &BasicBlock{ID: 99, Label: "bb99"}
	b.PushAssign(entry, PlaceOf(7), &Use{Operand: Unit()})
	b.Terminate(entry, &FalseEdge{Real: foreign, Imaginary: dangling})

	errs := Validate(f)
	joined := strings.Join(errs, "\n")
	for _, want := range []string{
		"bb1 has no terminator",
		"bb0 jumps to foreign block bb99",
		"unknown local _7",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %v", want, errs)
		}
	}
}

func TestRealSuccessorsSkipImaginary(t *testing.T) {
	rb, fb := &BasicBlock{Label: "a"}, &BasicBlock{Label: "b"}
	fe := &FalseEdge{Real: rb, Imaginary: fb}
	if got := RealSuccessors(fe); len(got) != 1 || got[0] != rb {
		t.Fatalf("unexpected real successors %v", got)
	}
	if got := Successors(fe); len(got) != 2 {
		t.Fatalf("expected both edges, got %v", got)
	}
}
