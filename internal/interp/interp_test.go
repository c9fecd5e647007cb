package interp

import (
	"testing"

	"github.com/nikandfor/errors"

	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

var optionInt = &types.Enum{Name: "Option", Variants: []types.Variant{
	{Name: "None"},
	{Name: "Some", Payload: []types.Type{types.TypeInt}},
}}

func TestFalseEdgeTakesRealTarget(t *testing.T) {
	fn := mir.NewFunction("f", types.TypeInt)
	b := mir.NewBuilder(fn)

	bb0, bb1, bb2 := b.NewBlock(), b.NewBlock(), b.NewBlock()
	b.Terminate(bb0, &mir.FalseEdge{Real: bb2, Imaginary: bb1})
	b.PushAssignConst(bb1, mir.PlaceOf(mir.ReturnPlace), mir.Int(types.TypeInt, 1))
	b.Terminate(bb1, &mir.Return{})
	b.PushAssignConst(bb2, mir.PlaceOf(mir.ReturnPlace), mir.Int(types.TypeInt, 2))
	b.Terminate(bb2, &mir.Return{})

	v, err := Run(fn, nil, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v != Int(2) {
		t.Fatalf("got %v, want 2", v)
	}
}

func TestUnreachableIsAnError(t *testing.T) {
	fn := mir.NewFunction("f", types.TypeUnit)
	b := mir.NewBuilder(fn)
	b.TerminateUnreachable(b.NewBlock())

	_, err := Run(fn, nil, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("got %v, want ErrUnreachable", err)
	}
}

func TestStepLimit(t *testing.T) {
	fn := mir.NewFunction("loop", types.TypeUnit)
	b := mir.NewBuilder(fn)
	bb := b.NewBlock()
	b.Goto(bb, bb)

	_, err := Run(fn, nil, &Hooks{StepLimit: 10})
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("got %v, want ErrStepLimit", err)
	}
}

func TestMovePoisonsSlot(t *testing.T) {
	fn := mir.NewFunction("f", types.TypeStr, mir.LocalDecl{Name: "s", Type: types.TypeStr})
	b := mir.NewBuilder(fn)
	x := b.NewLocal(mir.LocalDecl{Name: "x", Type: types.TypeStr, Kind: mir.LocalUserVar})

	bb := b.NewBlock()
	b.PushAssign(bb, mir.PlaceOf(x), &mir.Use{Operand: &mir.Move{Place: mir.PlaceOf(1)}})
	b.PushAssign(bb, mir.PlaceOf(mir.ReturnPlace), &mir.Use{Operand: &mir.Move{Place: mir.PlaceOf(1)}})
	b.Terminate(bb, &mir.Return{})

	_, err := Run(fn, []Value{Str("a")}, nil)
	if !errors.Is(err, ErrMovedValue) {
		t.Fatalf("got %v, want ErrMovedValue", err)
	}
}

func TestSwitchOnDiscriminantAndDowncast(t *testing.T) {
	fn := mir.NewFunction("f", types.TypeInt, mir.LocalDecl{Name: "o", Type: optionInt})
	b := mir.NewBuilder(fn)
	d := b.Temp(types.TypeInt)

	entry, none, some := b.NewBlock(), b.NewBlock(), b.NewBlock()
	b.PushAssign(entry, mir.PlaceOf(d), &mir.Discriminant{Place: mir.PlaceOf(1)})
	b.Terminate(entry, &mir.SwitchInt{
		Discr:     &mir.Move{Place: mir.PlaceOf(d)},
		Values:    []int64{1},
		Targets:   []*mir.BasicBlock{some},
		Otherwise: none,
	})
	b.PushAssignConst(none, mir.PlaceOf(mir.ReturnPlace), mir.Int(types.TypeInt, -1))
	b.Terminate(none, &mir.Return{})

	payload := mir.PlaceOf(1).Downcast(1, "Some", optionInt).Field(0, types.TypeInt)
	b.PushAssign(some, mir.PlaceOf(mir.ReturnPlace), &mir.Use{Operand: &mir.Copy{Place: payload}})
	b.Terminate(some, &mir.Return{})

	for _, tc := range []struct {
		arg  Value
		want Value
	}{
		{NewEnum(optionInt, 0), Int(-1)},
		{NewEnum(optionInt, 1, Int(7)), Int(7)},
	} {
		got, err := Run(fn, []Value{tc.arg}, nil)
		if err != nil {
			t.Fatalf("%v: %v", tc.arg, err)
		}
		if got != tc.want {
			t.Errorf("%v: got %v, want %v", tc.arg, got, tc.want)
		}
	}
}

func TestDerefBuiltinAndHooks(t *testing.T) {
	boxInt := &types.Box{Elem: types.TypeInt}
	fn := mir.NewFunction("f", types.TypeInt, mir.LocalDecl{Name: "b", Type: boxInt})
	b := mir.NewBuilder(fn)
	ref := b.Temp(types.NewRef(boxInt, false))
	inner := b.Temp(types.NewRef(types.TypeInt, false))

	bb := b.NewBlock()
	b.PushAssign(bb, mir.PlaceOf(ref), &mir.Ref{Kind: mir.BorrowShared, Place: mir.PlaceOf(1)})
	b.Push(bb, &mir.Call{Dest: mir.PlaceOf(inner), Func: "deref", Args: []mir.Operand{&mir.Move{Place: mir.PlaceOf(ref)}}})
	b.Push(bb, &mir.Call{
		Dest: mir.PlaceOf(mir.ReturnPlace),
		Func: "double",
		Args: []mir.Operand{&mir.Copy{Place: mir.PlaceOf(inner).Deref(types.TypeInt)}},
	})
	b.Push(bb, &mir.Drop{Place: mir.PlaceOf(1)})
	b.Terminate(bb, &mir.Return{})

	var dropped []string
	m := New(fn, &Hooks{
		Call: func(name string, args []Value) (Value, error) {
			return args[0].(Int) * 2, nil
		},
		Drop: func(place string, v Value) { dropped = append(dropped, place) },
	})

	got, err := m.Run([]Value{NewBox(Int(21))})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != Int(42) {
		t.Fatalf("got %v, want 42", got)
	}
	if len(dropped) != 1 || dropped[0] != "_1" {
		t.Fatalf("dropped %v", dropped)
	}

	var calls []string
	for _, e := range m.Events {
		if e.Kind == "call" {
			calls = append(calls, e.Name)
		}
	}
	if len(calls) != 2 || calls[0] != "deref" || calls[1] != "double" {
		t.Fatalf("calls %v", calls)
	}
}

func TestUnknownFunction(t *testing.T) {
	fn := mir.NewFunction("f", types.TypeUnit)
	b := mir.NewBuilder(fn)
	bb := b.NewBlock()
	b.Push(bb, &mir.Call{Dest: mir.PlaceOf(mir.ReturnPlace), Func: "nope"})
	b.Terminate(bb, &mir.Return{})

	_, err := Run(fn, nil, nil)
	if !errors.Is(err, ErrUnknownFunc) {
		t.Fatalf("got %v, want ErrUnknownFunc", err)
	}
}

func TestSlices(t *testing.T) {
	sl := &types.Slice{Elem: types.TypeInt}
	fn := mir.NewFunction("f", types.TypeInt, mir.LocalDecl{Name: "s", Type: sl})
	b := mir.NewBuilder(fn)
	mid := b.Temp(sl)
	n := b.Temp(types.TypeUsize)

	bb := b.NewBlock()
	b.PushAssign(bb, mir.PlaceOf(mid), &mir.Use{Operand: &mir.Copy{Place: mir.PlaceOf(1).Subslice(1, 1, true, sl)}})
	b.PushAssign(bb, mir.PlaceOf(n), &mir.Len{Place: mir.PlaceOf(mid)})
	last := mir.PlaceOf(1).ConstantIndex(1, 2, true, types.TypeInt)
	b.PushAssign(bb, mir.PlaceOf(mir.ReturnPlace), &mir.BinaryOp{
		Op:    mir.OpAdd,
		Left:  &mir.Move{Place: mir.PlaceOf(n)},
		Right: &mir.Copy{Place: last},
	})
	b.Terminate(bb, &mir.Return{})

	got, err := Run(fn, []Value{NewAgg(sl, Int(1), Int(2), Int(3), Int(40))}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != Int(42) {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestMatchArmOracle(t *testing.T) {
	pair := &types.Tuple{Elems: []types.Type{types.TypeBool, optionInt}}

	x := &hir.Pat{Type: types.TypeInt, Kind: &hir.PatBinding{Name: "x", Var: 1, VarType: types.TypeInt, IsPrimary: true}}
	some := &hir.Pat{Type: optionInt, Kind: &hir.PatVariant{Enum: optionInt, Variant: 1, Subpatterns: []hir.FieldPat{{Field: 0, Pattern: x}}}}
	tru := &hir.Pat{Type: types.TypeBool, Kind: &hir.PatConstant{Value: mir.Bool(true)}}
	pat := &hir.Pat{Type: pair, Kind: &hir.PatLeaf{Subpatterns: []hir.FieldPat{{Field: 0, Pattern: tru}, {Field: 1, Pattern: some}}}}

	bs, ok := MatchArm(pat, NewAgg(pair, Bool(true), NewEnum(optionInt, 1, Int(3))))
	if !ok || bs[1] != Int(3) {
		t.Fatalf("got %v %v", bs, ok)
	}

	if _, ok := MatchArm(pat, NewAgg(pair, Bool(false), NewEnum(optionInt, 1, Int(3)))); ok {
		t.Fatalf("false matched true")
	}

	wild := &hir.Pat{Type: pair, Kind: &hir.PatWild{}}
	if i := FirstMatch([]*hir.Pat{pat, wild}, NewAgg(pair, Bool(true), NewEnum(optionInt, 0))); i != 1 {
		t.Fatalf("first match %d, want 1", i)
	}
}

func TestEnumerate(t *testing.T) {
	never := &types.Enum{Name: "Void"}
	withNever := &types.Enum{Name: "E", Variants: []types.Variant{
		{Name: "A"},
		{Name: "B", Payload: []types.Type{never}},
	}}

	for _, tc := range []struct {
		ty   types.Type
		want int
	}{
		{types.TypeBool, 2},
		{&types.Tuple{Elems: []types.Type{types.TypeBool, types.TypeBool}}, 4},
		{optionInt, 1 + len(Ints)},
		{never, 0},
		{withNever, 1},
		{&types.Array{Elem: types.TypeBool, Len: 3}, 8},
		{&types.Slice{Elem: types.TypeBool}, 1 + 2 + 4 + 8},
		{types.NewRef(types.TypeBool, false), 2},
	} {
		if got := Enumerate(tc.ty); len(got) != tc.want {
			t.Errorf("%v: %d values, want %d: %v", tc.ty, len(got), tc.want, got)
		}
	}
}
