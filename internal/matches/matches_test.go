package matches

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/malphas-lang/matchc/internal/analysis"
	"github.com/malphas-lang/matchc/internal/config"
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/interp"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/syntax"
	"github.com/malphas-lang/matchc/internal/types"
)

const prelude = `
enum Option { None, Some(int) }
enum Void {}
enum Res { Ok(int), Err(Void) }
struct Point { x: int, y: int }

fn trace(x: int) -> int;
fn long(s: &str) -> bool;
`

func lowerSource(t *testing.T, conf config.Config, src string) (*syntax.Program, map[string]*mir.Function) {
	t.Helper()

	prog, err := syntax.Load("test", prelude+src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	fns := map[string]*mir.Function{}
	for _, f := range prog.Funcs {
		fn, err := LowerFunction(context.Background(), f, conf)
		if err != nil {
			t.Fatalf("lower %s: %v", f.Name, err)
		}

		if ds := analysis.CheckMoves(fn); len(ds) != 0 {
			t.Fatalf("%s: flow errors: %v\n%s", f.Name, ds, fn.PrettyPrint())
		}

		fns[f.Name] = fn
	}

	return prog, fns
}

func lowerOne(t *testing.T, src string) *mir.Function {
	t.Helper()

	_, fns := lowerSource(t, config.Default(), src)
	for _, fn := range fns {
		return fn
	}

	t.Fatalf("no function")
	return nil
}

func value(t *testing.T, env *syntax.Env, ty types.Type, src string) interp.Value {
	t.Helper()

	x, err := syntax.ParseExpr(env, ty, src)
	if err != nil {
		t.Fatalf("parse %s: %v", src, err)
	}

	v, err := interp.Eval(x)
	if err != nil {
		t.Fatalf("eval %s: %v", src, err)
	}

	return v
}

func run(t *testing.T, fn *mir.Function, hooks *interp.Hooks, args ...interp.Value) interp.Value {
	t.Helper()

	v, err := interp.Run(fn, args, hooks)
	if err != nil {
		t.Fatalf("run %s%v: %v\n%s", fn.Name, args, err, fn.PrettyPrint())
	}

	return v
}

func countTerminators[T mir.Terminator](fn *mir.Function) (n int) {
	for _, bb := range fn.Blocks {
		if _, ok := bb.Terminator.(T); ok {
			n++
		}
	}
	return n
}

// blockWhere returns the first block holding a statement accepted by f.
func blockWhere(t *testing.T, fn *mir.Function, what string, f func(mir.Statement) bool) *mir.BasicBlock {
	t.Helper()

	for _, bb := range fn.Blocks {
		for _, st := range bb.Statements {
			if f(st) {
				return bb
			}
		}
	}

	t.Fatalf("no block %s:\n%s", what, fn.PrettyPrint())
	return nil
}

// storing returns the block that assigns the integer constant n.
func storing(t *testing.T, fn *mir.Function, n int64) *mir.BasicBlock {
	t.Helper()

	return blockWhere(t, fn, fmt.Sprintf("storing %d", n), func(st mir.Statement) bool {
		as, ok := st.(*mir.Assign)
		if !ok {
			return false
		}
		u, ok := as.Rvalue.(*mir.Use)
		if !ok {
			return false
		}
		c, ok := u.Operand.(*mir.Constant)
		return ok && c.Value == n
	})
}

func storageLive(t *testing.T, fn *mir.Function, kind mir.LocalKind, name string) *mir.BasicBlock {
	t.Helper()

	return blockWhere(t, fn, fmt.Sprintf("starting %s %s", kind, name), func(st mir.Statement) bool {
		sl, ok := st.(*mir.StorageLive)
		if !ok {
			return false
		}
		l := fn.Locals[sl.Local]
		return l.Kind == kind && l.Name == name
	})
}

// variantTarget returns the block a switch on an enum discriminant
// jumps to for variant v.
func variantTarget(t *testing.T, fn *mir.Function, v int64) *mir.BasicBlock {
	t.Helper()

	for _, bb := range fn.Blocks {
		sw, ok := bb.Terminator.(*mir.SwitchInt)
		if !ok {
			continue
		}
		if _, ok := sw.Discr.(*mir.Move); !ok {
			continue
		}
		for i, x := range sw.Values {
			if x == v {
				return sw.Targets[i]
			}
		}
	}

	t.Fatalf("no switch to variant %d:\n%s", v, fn.PrettyPrint())
	return nil
}

// runtimeReachable returns the blocks control can reach from start.
func runtimeReachable(start *mir.BasicBlock) []*mir.BasicBlock {
	seen := map[*mir.BasicBlock]bool{start: true}
	out := []*mir.BasicBlock{start}

	for i := 0; i < len(out); i++ {
		for _, s := range analysis.Successors(out[i], analysis.Runtime) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	return out
}

// checkNoBindingCode fails if a block reachable from start starts or
// assigns a local of one of kinds, or calls a host function.
func checkNoBindingCode(t *testing.T, fn *mir.Function, start *mir.BasicBlock, kinds ...mir.LocalKind) {
	t.Helper()

	bad := func(l mir.Local) bool {
		for _, k := range kinds {
			if fn.Locals[l].Kind == k {
				return true
			}
		}
		return false
	}

	for _, bb := range runtimeReachable(start) {
		for _, st := range bb.Statements {
			switch st := st.(type) {
			case *mir.StorageLive:
				if bad(st.Local) {
					t.Errorf("%s starts %s reachable from %s", bb.Label, fn.Locals[st.Local].Name, start.Label)
				}
			case *mir.Assign:
				if bad(st.Place.Local) {
					t.Errorf("%s assigns %s reachable from %s", bb.Label, fn.Locals[st.Place.Local].Name, start.Label)
				}
			case *mir.Call:
				t.Errorf("%s calls %s reachable from %s", bb.Label, st.Func, start.Label)
			}
		}
	}
}

// TestAgainstOracle lowers a match with one arm per pattern and checks
// that for every value the arm taken is the first arm whose pattern
// accepts the value.
func TestAgainstOracle(t *testing.T) {
	for _, tc := range []struct {
		ty   string
		pats []string
	}{
		{"(bool, bool)", []string{"(false, _)", "(_, false)", "_"}},
		{"(bool, bool, bool)", []string{"(true, _, true)", "(_, true, _)", "(false, _, _)", "_"}},
		{"int", []string{"0", "1..=3", "..=-1", "5 | 10", "4..5", "_"}},
		{"char", []string{"'a'..='b'", "'z'", "_"}},
		{"str", []string{`""`, `"a"`, "_"}},
		{"(Option, Option)", []string{"(Some(1 | 2), None)", "(None, Some(x))", "(Some(_), Some(0))", "_"}},
		{"(int, int)", []string{"(1 | 2, 3 | 4)", "(1, _) | (_, 1)", "_"}},
		{"(Option, bool)", []string{"(Some(1) | None, true) | (Some(2), false)", "(Some(3..), _)", "_"}},
		{"[int]", []string{"[]", "[1, ..]", "[.., 2]", "[x, y]", "[_, rest @ ..]", "_"}},
		{"[bool; 3]", []string{"[true, .., true]", "[false, x, _]", "[.., false]", "_"}},
		{"Box<Option>", []string{"box None", "box Some(0..=2)", "box _"}},
		{"&Option", []string{"&Some(5)", "&None", "_"}},
		{"&&bool", []string{"&&true", "&&false"}},
		{"Point", []string{"Point { x: 0, y }", "Point { y: 1 | 2, .. }", "_"}},
		{"(Option, int)", []string{"(Some(b), c) | (None, b @ c)", "_"}},
	} {
		t.Run(tc.ty, func(t *testing.T) {
			var arms strings.Builder
			for i, p := range tc.pats {
				fmt.Fprintf(&arms, "        %s => %d,\n", p, i)
			}

			prog, fns := lowerSource(t, config.Default(), fmt.Sprintf("fn f(v: %s) -> int {\n    match v {\n%s    }\n}\n", tc.ty, arms.String()))
			fn := fns["f"]
			f := prog.Func("f")

			var pats []*hir.Pat
			for _, arm := range f.Body.(*hir.Block).Tail.(*hir.Match).Arms {
				pats = append(pats, arm.Pattern)
			}

			vals := interp.Enumerate(f.Params[0].Type)
			if len(vals) == 0 {
				t.Fatalf("no values of %v", f.Params[0].Type)
			}

			for _, v := range vals {
				want := interp.FirstMatch(pats, v)

				arg, err := interp.Clone(v)
				if err != nil {
					t.Fatalf("clone %v: %v", v, err)
				}

				got := run(t, fn, nil, arg)
				if got != interp.Int(want) {
					t.Errorf("%v: took arm %v, want %d", v, got, want)
				}
			}
		})
	}
}

func TestArmPriority(t *testing.T) {
	fn := lowerOne(t, `
fn f(p: (bool, bool)) -> int {
    match p {
        (true, true) => 1,
        (_, false) => 2,
        (false, true) => 3,
    }
}`)

	pair := &types.Tuple{Elems: []types.Type{types.TypeBool, types.TypeBool}}
	for _, tc := range []struct {
		a, b bool
		want int
	}{
		{true, false, 2},
		{false, false, 2},
		{true, true, 1},
		{false, true, 3},
	} {
		got := run(t, fn, nil, interp.NewAgg(pair, interp.Bool(tc.a), interp.Bool(tc.b)))
		if got != interp.Int(tc.want) {
			t.Errorf("(%v, %v): got %v, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	if n := countTerminators[*mir.FalseEdge](fn); n != 2 {
		t.Errorf("want a false edge between each pair of arms, got %d", n)
	}
}

func TestFalseEdgesReachLaterArms(t *testing.T) {
	fn := lowerOne(t, `
fn f(o: Option) -> int {
    match o {
        Some(x) if trace(x) > 0 => 100,
        None => 200,
        Some(_) => 300,
    }
}`)

	bind := storageLive(t, fn, mir.LocalRefForGuard, "x")
	guard := blockWhere(t, fn, "calling trace", func(st mir.Statement) bool {
		c, ok := st.(*mir.Call)
		return ok && c.Func == "trace"
	})
	none, rest := storing(t, fn, 200), storing(t, fn, 300)

	for _, from := range []*mir.BasicBlock{bind, guard} {
		for _, to := range []*mir.BasicBlock{none, rest} {
			if !analysis.CanReach(from, to, analysis.Checker) {
				t.Errorf("checker view: %s does not reach later arm %s:\n%s", from.Label, to.Label, fn.PrettyPrint())
			}
		}
	}

	// At runtime a failed guard on Some only continues with Some arms.
	if analysis.CanReach(guard, none, analysis.Runtime) {
		t.Errorf("runtime: guard of Some reaches the None arm")
	}
	if !analysis.CanReach(guard, rest, analysis.Runtime) {
		t.Errorf("runtime: failed guard does not continue with Some(_)")
	}
}

func TestOrGuardPerAlternative(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(p: (int, int)) -> int {
    match p {
        (x, _) | (_, x) if trace(x) > 5 => x,
        _ => 0,
    }
}`)
	fn := fns["f"]
	ty := prog.Func("f").Params[0].Type

	for _, tc := range []struct {
		arg    string
		want   int
		traced []int
	}{
		{"(1, 7)", 7, []int{1, 7}},
		{"(7, 1)", 7, []int{7}},
		{"(1, 1)", 0, []int{1, 1}},
		{"(6, 9)", 6, []int{6}},
	} {
		var traced []int
		hooks := &interp.Hooks{Call: func(name string, args []interp.Value) (interp.Value, error) {
			traced = append(traced, int(args[0].(interp.Int)))
			return args[0], nil
		}}

		got := run(t, fn, hooks, value(t, prog.Env, ty, tc.arg))
		if got != interp.Int(tc.want) {
			t.Errorf("%s: got %v, want %d", tc.arg, got, tc.want)
		}
		if fmt.Sprint(traced) != fmt.Sprint(tc.traced) {
			t.Errorf("%s: guard saw %v, want %v", tc.arg, traced, tc.traced)
		}
	}
}

func TestGuardDoesNotMoveBeforeSuccess(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(p: (str, bool)) -> str {
    match p {
        (s, true) if long(&s) => s,
        (s, _) => s,
    }
}`)
	fn := fns["f"]
	ty := prog.Func("f").Params[0].Type

	for _, long := range []bool{false, true} {
		hooks := &interp.Hooks{Call: func(name string, args []interp.Value) (interp.Value, error) {
			if name != "long" {
				return nil, errors.New("unexpected call %s", name)
			}
			if _, ok := args[0].(*interp.Ref); !ok {
				return nil, errors.New("long takes a reference, got %v", args[0])
			}
			return interp.Bool(long), nil
		}}

		got := run(t, fn, hooks, value(t, prog.Env, ty, `("abc", true)`))
		if got != interp.Str("abc") {
			t.Errorf("long=%v: got %v", long, got)
		}
	}

	// The guard reads the binding through its guard reference; the arm
	// local is only assigned once the guard held.
	for _, bb := range fn.Blocks {
		br, ok := bb.Terminator.(*mir.Branch)
		if !ok {
			continue
		}
		for _, st := range bb.Statements {
			as, ok := st.(*mir.Assign)
			if !ok {
				continue
			}
			if u, ok := as.Rvalue.(*mir.Use); ok {
				if _, ok := u.Operand.(*mir.Move); ok && fn.Locals[as.Place.Local].Kind == mir.LocalUserVar {
					t.Errorf("%s moves into a user variable before branching on %v", bb.Label, br.Condition)
				}
			}
		}
	}
}

func TestIfLetHasOneOtherwise(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(o: Option) -> int {
    if let Some(x) = o { x } else { 0 }
}`)
	fn := fns["f"]
	opt := prog.Env.Types["Option"]

	if n := countTerminators[*mir.Unreachable](fn); n != 0 {
		t.Errorf("refutable if-let has %d unreachable blocks:\n%s", n, fn.PrettyPrint())
	}

	bind := storageLive(t, fn, mir.LocalUserVar, "x")
	otherwise := storing(t, fn, 0)

	if !analysis.CanReach(bind, otherwise, analysis.Checker) {
		t.Errorf("checker view: binding %s does not reach the else branch %s:\n%s", bind.Label, otherwise.Label, fn.PrettyPrint())
	}
	if analysis.CanReach(bind, otherwise, analysis.Runtime) {
		t.Errorf("runtime: binding %s reaches the else branch", bind.Label)
	}

	if got := run(t, fn, nil, value(t, prog.Env, opt, "Some(3)")); got != interp.Int(3) {
		t.Errorf("Some(3): got %v", got)
	}
	if got := run(t, fn, nil, value(t, prog.Env, opt, "None")); got != interp.Int(0) {
		t.Errorf("None: got %v", got)
	}
}

func TestIrrefutableOtherwiseIsUnreachable(t *testing.T) {
	fn := lowerOne(t, `
fn f(p: (int, int)) -> int {
    let (a, b) = p;
    a + b
}`)

	found := false
	for _, bb := range fn.Blocks {
		if _, ok := bb.Terminator.(*mir.Unreachable); !ok || len(bb.Statements) == 0 {
			continue
		}
		if fr, ok := bb.Statements[len(bb.Statements)-1].(*mir.FakeRead); ok && fr.Cause == mir.ForMatchedPlace {
			found = true
		}
	}
	if !found {
		t.Fatalf("no fake read of the matched place before the unreachable otherwise:\n%s", fn.PrettyPrint())
	}

	pair := &types.Tuple{Elems: []types.Type{types.TypeInt, types.TypeInt}}
	if got := run(t, fn, nil, interp.NewAgg(pair, interp.Int(2), interp.Int(3))); got != interp.Int(5) {
		t.Fatalf("got %v, want 5", got)
	}
}

func TestNeverAlternativesAreDropped(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(r: Res) -> int {
    match r {
        Ok(x) | Err(!) => x,
    }
}

fn g(r: Res) -> int {
    let Ok(x) = r;
    x
}`)
	res := prog.Env.Types["Res"]

	for _, name := range []string{"f", "g"} {
		if got := run(t, fns[name], nil, value(t, prog.Env, res, "Ok(4)")); got != interp.Int(4) {
			t.Errorf("%s: got %v, want 4", name, got)
		}
	}

	fn := fns["f"]
	errArm := variantTarget(t, fn, 1)

	checkNoBindingCode(t, fn, errArm, mir.LocalUserVar)

	for _, bb := range runtimeReachable(errArm) {
		if _, ok := bb.Terminator.(*mir.Unreachable); !ok {
			t.Errorf("never alternative continues in %s with %T:\n%s", bb.Label, bb.Terminator, fn.PrettyPrint())
		}
	}
}

func TestGuardedNeverAlternative(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(r: (Res, int)) -> int {
    match r {
        (Ok(x) | Err(!), 1 | 2) if trace(x) > 0 => x,
        (Ok(x), _) => -x,
    }
}`)
	fn := fns["f"]
	ty := prog.Func("f").Params[0].Type

	for _, tc := range []struct {
		arg    string
		want   int
		traced int
	}{
		{"(Ok(3), 1)", 3, 1},
		{"(Ok(3), 5)", -3, 0},
		{"(Ok(-2), 2)", 2, 1},
	} {
		traced := 0
		hooks := &interp.Hooks{Call: func(name string, args []interp.Value) (interp.Value, error) {
			traced++
			return args[0], nil
		}}

		if got := run(t, fn, hooks, value(t, prog.Env, ty, tc.arg)); got != interp.Int(tc.want) {
			t.Errorf("%s: got %v, want %d", tc.arg, got, tc.want)
		}
		if traced != tc.traced {
			t.Errorf("%s: guard ran %d times, want %d", tc.arg, traced, tc.traced)
		}
	}

	// The alternatives tested after Err(!) never bind or run the guard.
	checkNoBindingCode(t, fn, variantTarget(t, fn, 1), mir.LocalRefForGuard)
}

func TestMergedAlternativesStayLinear(t *testing.T) {
	fn := lowerOne(t, `
fn f(p: (int, int, int)) -> int {
    match p {
        (1 | 2, 3 | 4, 5 | 6) => 1,
        _ => 0,
    }
}`)

	// Each alternative is tested once: two values per position plus the
	// fallthrough is far below the 2*2*2 leaves of a naive expansion.
	switches := countTerminators[*mir.SwitchInt](fn)
	if switches > 3*2 {
		t.Errorf("%d switches for three or-patterns:\n%s", switches, fn.PrettyPrint())
	}

	ty := &types.Tuple{Elems: []types.Type{types.TypeInt, types.TypeInt, types.TypeInt}}
	for _, tc := range []struct {
		a, b, c int64
		want    int
	}{
		{1, 3, 5, 1},
		{2, 4, 6, 1},
		{2, 3, 7, 0},
		{3, 3, 5, 0},
	} {
		got := run(t, fn, nil, interp.NewAgg(ty, interp.Int(tc.a), interp.Int(tc.b), interp.Int(tc.c)))
		if got != interp.Int(tc.want) {
			t.Errorf("(%d, %d, %d): got %v, want %d", tc.a, tc.b, tc.c, got, tc.want)
		}
	}
}

func TestLetElse(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(o: Option) -> int {
    let Some(x) = o else { return -1 };
    x * 2
}`)
	opt := prog.Env.Types["Option"]

	if got := run(t, fns["f"], nil, value(t, prog.Env, opt, "Some(4)")); got != interp.Int(8) {
		t.Errorf("Some(4): got %v", got)
	}
	if got := run(t, fns["f"], nil, value(t, prog.Env, opt, "None")); got != interp.Int(-1) {
		t.Errorf("None: got %v", got)
	}
}

func TestBindingsDropOnce(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
enum Named { A(str), B(str), C }

fn let_else(n: Named) -> int {
    let A(s) | B(s) = n else { return 0 };
    1
}

fn guarded(n: Named, flag: bool) -> int {
    match n {
        A(s) | B(s) if flag => 1,
        _ => 0,
    }
}`)
	named := prog.Env.Types["Named"]

	for _, tc := range []struct {
		fn    string
		arg   string
		flag  bool
		drops int
	}{
		{"let_else", `A("x")`, false, 1},
		{"let_else", `B("x")`, false, 1},
		{"let_else", "C", false, 0},
		{"guarded", `A("x")`, true, 1},
		{"guarded", `B("x")`, true, 1},
		{"guarded", `B("x")`, false, 0},
		{"guarded", "C", true, 0},
	} {
		fn := fns[tc.fn]

		var s string
		for i, l := range fn.Locals {
			if l.Name == "s" && l.Kind == mir.LocalUserVar {
				s = mir.PlaceOf(mir.Local(i)).String()
			}
		}
		if s == "" {
			t.Fatalf("%s: no local for s:\n%s", tc.fn, fn.PrettyPrint())
		}

		drops := 0
		hooks := &interp.Hooks{Drop: func(place string, v interp.Value) {
			if place != s {
				return
			}
			drops++
			if v != interp.Str("x") {
				t.Errorf("%s(%s): dropped %v from s", tc.fn, tc.arg, v)
			}
		}}

		args := []interp.Value{value(t, prog.Env, named, tc.arg)}
		if tc.fn == "guarded" {
			args = append(args, interp.Bool(tc.flag))
		}

		run(t, fn, hooks, args...)

		if drops != tc.drops {
			t.Errorf("%s(%s, %v): s dropped %d times, want %d", tc.fn, tc.arg, tc.flag, drops, tc.drops)
		}
	}
}

func TestFakeBorrowsForGuards(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(r: &Option, flag: bool) -> int {
    match *r {
        Some(x) if flag => x,
        _ => 0,
    }
}`)
	fn := fns["f"]

	fake := 0
	for _, l := range fn.Locals {
		if l.Kind == mir.LocalFakeBorrow {
			fake++
		}
	}
	if fake == 0 {
		t.Fatalf("guarded match through a reference has no fake borrows:\n%s", fn.PrettyPrint())
	}

	reads := 0
	for _, bb := range fn.Blocks {
		for _, st := range bb.Statements {
			if fr, ok := st.(*mir.FakeRead); ok && fr.Cause == mir.ForMatchGuard {
				reads++
			}
		}
	}
	if reads != fake {
		t.Errorf("%d fake borrows, %d guard fake reads", fake, reads)
	}

	arg := value(t, prog.Env, types.NewRef(prog.Env.Types["Option"], false), "&Some(9)")
	if got := run(t, fn, nil, arg, interp.Bool(true)); got != interp.Int(9) {
		t.Errorf("got %v, want 9", got)
	}
}

func TestBindingModes(t *testing.T) {
	prog, fns := lowerSource(t, config.Default(), `
fn f(p: (str, int)) -> bool {
    match p {
        (ref s, 0) => long(s),
        (ref s, n) if n > 0 => long(s),
        _ => false,
    }
}`)
	ty := prog.Func("f").Params[0].Type

	var seen []string
	hooks := &interp.Hooks{Call: func(name string, args []interp.Value) (interp.Value, error) {
		r, ok := args[0].(*interp.Ref)
		if !ok {
			return nil, errors.New("want a reference, got %v", args[0])
		}
		seen = append(seen, string(r.Target.V.(interp.Str)))
		return interp.Bool(true), nil
	}}

	for _, arg := range []string{`("a", 0)`, `("b", 3)`, `("c", -1)`} {
		run(t, fns["f"], hooks, value(t, prog.Env, ty, arg))
	}

	if fmt.Sprint(seen) != "[a b]" {
		t.Fatalf("borrowed %v", seen)
	}
}

func TestDeepNestingUsesStackSegments(t *testing.T) {
	const n = 40

	elems := make([]string, n)
	ones := make([]string, n)
	for i := range elems {
		elems[i] = "int"
		ones[i] = "1"
	}

	conf := config.Default()
	conf.StackSegment = 4

	prog, err := syntax.Load("test", fmt.Sprintf(`
fn f(p: (%s)) -> int {
    match p {
        (%s) => 1,
        _ => 0,
    }
}`, strings.Join(elems, ", "), strings.Join(ones, ", ")))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	b, fn, err := lowerFunction(context.Background(), prog.Func("f"), conf)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}

	if b.Hops() == 0 {
		t.Fatalf("%d nested tests at segment %d never continued on a new stack", n, conf.StackSegment)
	}

	tys := make([]types.Type, n)
	vals := make([]interp.Value, n)
	for i := range tys {
		tys[i] = types.TypeInt
		vals[i] = interp.Int(1)
	}
	ty := &types.Tuple{Elems: tys}

	if got := run(t, fn, nil, interp.NewAgg(ty, vals...)); got != interp.Int(1) {
		t.Errorf("all ones: got %v", got)
	}

	vals[n-1] = interp.Int(0)
	if got := run(t, fn, nil, interp.NewAgg(ty, vals...)); got != interp.Int(0) {
		t.Errorf("last zero: got %v", got)
	}
}

func TestInconsistentOrBindingsIsABug(t *testing.T) {
	pair := &types.Tuple{Elems: []types.Type{types.TypeInt, types.TypeInt}}
	wild := &hir.Pat{Type: types.TypeInt, Kind: &hir.PatWild{}}
	bind := func(name string, v hir.VarID) *hir.Pat {
		return &hir.Pat{Type: types.TypeInt, Kind: &hir.PatBinding{Name: name, Var: v, VarType: types.TypeInt, IsPrimary: true}}
	}

	left := &hir.Pat{Type: pair, Kind: &hir.PatLeaf{Subpatterns: []hir.FieldPat{{Field: 0, Pattern: bind("a", 2)}, {Field: 1, Pattern: wild}}}}
	right := &hir.Pat{Type: pair, Kind: &hir.PatLeaf{Subpatterns: []hir.FieldPat{{Field: 0, Pattern: wild}, {Field: 1, Pattern: bind("b", 3)}}}}

	lit := &hir.Lit{ExprBase: hir.ExprBase{Ty: types.TypeInt}, Value: mir.Int(types.TypeInt, 0)}
	f := &hir.Func{
		Name:   "bad",
		Params: []hir.Param{{Var: 1, Name: "p", Type: pair}},
		Ret:    types.TypeInt,
		Body: &hir.Match{
			ExprBase:  hir.ExprBase{Ty: types.TypeInt},
			Scrutinee: &hir.VarRef{ExprBase: hir.ExprBase{Ty: pair}, Var: 1},
			Arms: []*hir.Arm{{
				Pattern: &hir.Pat{Type: pair, Kind: &hir.PatOr{Pats: []*hir.Pat{left, right}}},
				Body:    lit,
			}},
		},
	}

	_, err := LowerFunction(context.Background(), f, config.Default())

	var bug *diag.Bug
	if !errors.As(err, &bug) {
		t.Fatalf("got %v, want a lowering bug", err)
	}
	if bug.Diagnostic.Code != diag.CodeLowerOrBindings {
		t.Fatalf("got %v, want %v", bug.Diagnostic.Code, diag.CodeLowerOrBindings)
	}
}
