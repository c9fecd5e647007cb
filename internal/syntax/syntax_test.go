package syntax

import (
	"testing"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/types"
)

const decls = `
enum Option { None, Some(int) }
enum Void {}
enum Res { Ok(int), Err(Void) }
struct Point { x: int, y: int }

fn trace(x: int) -> int;
`

func testEnv(t *testing.T) *Env {
	t.Helper()

	p := NewParser("decls", decls)
	f, err := p.ParseFile()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	prog, err := Resolve(NewEnv(), f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	return prog.Env
}

func errCode(t *testing.T, err error) diag.Code {
	t.Helper()

	errs, ok := err.(Errors)
	if !ok || len(errs) == 0 {
		t.Fatalf("want diagnostics, got %v", err)
	}

	return errs[0].Code
}

func TestLexer(t *testing.T) {
	l := NewLexer("t", `match x { 1..=5 | 'c' => &&y, _ if a != b => "s\n" } // c`)

	want := []TokenType{MATCH, IDENT, LBRACE, INT, DOTDOTEQ, INT, PIPE, CHAR, FATARROW, AND, IDENT, COMMA,
		IDENT, IF, IDENT, NOT_EQ, IDENT, FATARROW, STRING, RBRACE, EOF}

	for i, tt := range want {
		tok := l.NextToken()
		if tok.Type != tt {
			t.Fatalf("token %d: got %v %q, want %v", i, tok.Type, tok.Literal, tt)
		}
		if tt == STRING && tok.Literal != "s\n" {
			t.Errorf("string literal not decoded: %q", tok.Literal)
		}
	}

	if len(l.Errors) != 0 {
		t.Fatalf("errors: %v", l.Errors)
	}
}

func TestLexerErrors(t *testing.T) {
	l := NewLexer("t", "\"open\n$")
	for tok := l.NextToken(); tok.Type != EOF; tok = l.NextToken() {
	}

	if len(l.Errors) != 2 {
		t.Fatalf("want 2 errors, got %v", l.Errors)
	}
	if l.Errors[0].Code != diag.CodeLexerUnterminatedString || l.Errors[1].Code != diag.CodeLexerIllegalRune {
		t.Fatalf("unexpected codes: %v", l.Errors)
	}
}

func TestParsePatternShapes(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want string
	}{
		{"_", "*syntax.WildPat"},
		{"x @ Some(1 | 2)", "*syntax.IdentPat"},
		{"Option::None", "*syntax.PathPat"},
		{"Point { x: 0, .. }", "*syntax.PathPat"},
		{"(a, .., b)", "*syntax.TuplePat"},
		{"(a)", "*syntax.IdentPat"},
		{"(a,)", "*syntax.TuplePat"},
		{"[first, rest @ ..]", "*syntax.SlicePat"},
		{"-3..=-1", "*syntax.RangePat"},
		{"..=9", "*syntax.RangePat"},
		{"&mut x", "*syntax.RefPat"},
		{"box 1", "*syntax.BoxPat"},
		{"A | B | C", "*syntax.OrPat"},
	} {
		p := NewParser("t", tc.src)
		pat := p.parsePattern()
		if err := p.finish(pat != nil); err != nil {
			t.Errorf("%s: %v", tc.src, err)
			continue
		}
		if got := describe(pat); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.src, got, tc.want)
		}
	}
}

func TestParseRejectsBlocksInPatterns(t *testing.T) {
	p := NewParser("t", "{ x }")
	if pat := p.parsePattern(); pat != nil {
		t.Fatalf("parsed %v", describe(pat))
	}
	if len(p.Errors()) == 0 {
		t.Fatalf("want an error")
	}
}

func TestOrPatternBindings(t *testing.T) {
	env := testEnv(t)
	pair := &types.Tuple{Elems: []types.Type{types.TypeInt, types.TypeInt}}

	pat, err := ParsePattern(env, pair, "(a, b) | (b, a)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	or := pat.Kind.(*hir.PatOr)
	left := or.Pats[0].Kind.(*hir.PatLeaf)
	right := or.Pats[1].Kind.(*hir.PatLeaf)

	la := left.Subpatterns[0].Pattern.Kind.(*hir.PatBinding)
	lb := left.Subpatterns[1].Pattern.Kind.(*hir.PatBinding)
	rb := right.Subpatterns[0].Pattern.Kind.(*hir.PatBinding)
	ra := right.Subpatterns[1].Pattern.Kind.(*hir.PatBinding)

	if !la.IsPrimary || !lb.IsPrimary || ra.IsPrimary || rb.IsPrimary {
		t.Fatalf("only the first alternative declares variables")
	}
	if la.Var != ra.Var || lb.Var != rb.Var || la.Var == lb.Var {
		t.Fatalf("variables: a=%d/%d b=%d/%d", la.Var, ra.Var, lb.Var, rb.Var)
	}

	var names []string
	pat.VisitPrimaryBindings(func(b *hir.PatBinding, _ diag.Span) { names = append(names, b.Name) })
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("primary bindings %v", names)
	}
}

func TestOrPatternBindingErrors(t *testing.T) {
	env := testEnv(t)
	opt := env.Types["Option"]
	pair := &types.Tuple{Elems: []types.Type{types.TypeInt, types.TypeBool}}

	for _, tc := range []struct {
		ty  types.Type
		src string
	}{
		{opt, "Some(x) | None"},
		{opt, "None | Some(x)"},
		{pair, "(x, _) | (_, x)"},
	} {
		_, err := ParsePattern(env, tc.ty, tc.src)
		if code := errCode(t, err); code != diag.CodeResolveOrBindings {
			t.Errorf("%s: got %v, want %v", tc.src, code, diag.CodeResolveOrBindings)
		}
	}

	if _, err := ParsePattern(env, pair, "(x, x)"); errCode(t, err) != diag.CodeResolveInvalidPattern {
		t.Errorf("duplicate binding accepted")
	}
}

func TestResolvePatterns(t *testing.T) {
	env := testEnv(t)
	opt := env.Types["Option"].(*types.Enum)

	pat, err := ParsePattern(env, opt, "None")
	if err != nil {
		t.Fatalf("None: %v", err)
	}
	if k, ok := pat.Kind.(*hir.PatVariant); !ok || k.Variant != 0 {
		t.Fatalf("bare None should name the variant, got %#v", pat.Kind)
	}

	pat, err = ParsePattern(env, env.Types["Point"], "Point { y, .. }")
	if err != nil {
		t.Fatalf("Point: %v", err)
	}
	leaf := pat.Kind.(*hir.PatLeaf)
	if len(leaf.Subpatterns) != 1 || leaf.Subpatterns[0].Field != 1 {
		t.Fatalf("field y: %+v", leaf.Subpatterns)
	}

	arr := &types.Array{Elem: types.TypeInt, Len: 4}
	pat, err = ParsePattern(env, arr, "[a, mid @ .., z]")
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	sl := pat.Kind.(*hir.PatSlice)
	if len(sl.Prefix) != 1 || len(sl.Suffix) != 1 || !types.Equal(sl.Slice.Type, &types.Array{Elem: types.TypeInt, Len: 2}) {
		t.Fatalf("array pattern: %+v (rest %v)", sl, sl.Slice.Type)
	}

	pat, err = ParsePattern(env, types.NewRef(types.TypeInt, false), "ref r")
	if err != nil {
		t.Fatalf("ref: %v", err)
	}
	b := pat.Kind.(*hir.PatBinding)
	if b.Mode.ByRef != hir.ByRefShared || !types.Equal(b.VarType, types.NewRef(types.NewRef(types.TypeInt, false), false)) {
		t.Fatalf("ref binding: %+v", b)
	}

	for _, tc := range []struct {
		ty  types.Type
		src string
	}{
		{arr, "[a, b]"},
		{opt, "Some(1, 2)"},
		{types.TypeInt, "5..5"},
		{types.TypeInt, "&x"},
		{types.TypeBool, "1"},
		{env.Types["Point"], "Point { x }"},
	} {
		if _, err := ParsePattern(env, tc.ty, tc.src); err == nil {
			t.Errorf("%s: accepted", tc.src)
		}
	}
}

func TestRefutable(t *testing.T) {
	env := testEnv(t)
	res := env.Types["Res"]

	for _, tc := range []struct {
		ty   types.Type
		src  string
		want bool
	}{
		{types.TypeInt, "x", false},
		{types.TypeInt, "1", true},
		{res, "Ok(x)", false},
		{res, "Err(_)", true},
		{env.Types["Option"], "Some(_) | None", false},
		{&types.Slice{Elem: types.TypeInt}, "[..]", false},
		{&types.Slice{Elem: types.TypeInt}, "[x, ..]", true},
		{&types.Array{Elem: types.TypeInt, Len: 2}, "[x, ..]", false},
		{types.TypeBool, "true | false", false},
		{env.Types["Option"], "Some(1) | None", true},
		{&types.Tuple{Elems: []types.Type{types.TypeBool, types.TypeInt, types.TypeInt}}, "(true, s, _) | (false, _, s)", false},
		{&types.Tuple{Elems: []types.Type{types.TypeBool, types.TypeInt}}, "(true, _) | (_, 1)", true},
		{&types.Tuple{Elems: []types.Type{env.Types["Option"], types.TypeBool}}, "(Some(_), _) | (None, true)", true},
		{&types.Tuple{Elems: []types.Type{env.Types["Option"], types.TypeBool}}, "(Some(_), _) | (None, true) | (None, false)", false},
		{&types.Array{Elem: types.TypeBool, Len: 2}, "[true, _] | [false, ..]", false},
		{types.NewRef(env.Types["Option"], false), "&Some(_) | &None", false},
		{env.Types["Point"], "Point { x: 0, .. } | Point { .. }", false},
	} {
		pat, err := ParsePattern(env, tc.ty, tc.src)
		if err != nil {
			t.Fatalf("%s: %v", tc.src, err)
		}
		if got := Refutable(pat); got != tc.want {
			t.Errorf("%s: refutable %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestLoad(t *testing.T) {
	prog, err := Load("prog", decls+`
fn pick(o: Option, flag: bool) -> int {
    match o {
        Some(x) if flag => x,
        Some(_) | None if let Some(y) = o && y > 0 => trace(y),
        _ => 0,
    }
}

fn unwrap(o: Option) -> int {
    let Some(x) = o else { return -1 };
    let p: Point = Point { x, y: 2 };
    p.x + p.y
}
`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(prog.Funcs) != 2 {
		t.Fatalf("want 2 functions with bodies, got %d", len(prog.Funcs))
	}

	pick := prog.Func("pick")
	m := pick.Body.(*hir.Block).Tail.(*hir.Match)
	if len(m.Arms) != 3 || !types.Equal(m.Type(), types.TypeInt) {
		t.Fatalf("match: %d arms of %v", len(m.Arms), m.Type())
	}
	if _, ok := m.Arms[1].Guard.(*hir.And); !ok {
		t.Fatalf("guard %T, want a let chain", m.Arms[1].Guard)
	}

	unwrap := prog.Func("unwrap")
	body := unwrap.Body.(*hir.Block)
	let := body.Stmts[0].(*hir.LetStmt)
	if let.Else == nil || !types.Equal(let.Else.Type(), types.TypeNever) {
		t.Fatalf("let-else: %+v", let)
	}
	if _, ok := body.Stmts[1].(*hir.LetStmt).Pat.Kind.(*hir.PatAscribe); !ok {
		t.Fatalf("annotated let is not ascribed")
	}
}

func TestIrrefutableOrAcrossPositions(t *testing.T) {
	_, err := Load("t", `
fn f(p: (bool, int, int)) -> int {
    let (true, s, _) | (false, _, s) = p;
    s
}`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		src  string
		code diag.Code
	}{
		{"fn f() -> int { y }", diag.CodeResolveUnknownName},
		{"fn f() -> bool { 1 }", diag.CodeResolveTypeMismatch},
		{"enum O { A, B(int) } fn f(o: O) { let B(x) = o; }", diag.CodeResolveInvalidPattern},
		{"enum O { A, B(int) } fn f(o: O) -> int { let B(x) = o else { 1 }; x }", diag.CodeResolveTypeMismatch},
		{"fn f(x: int) { x = 1; }", diag.CodeResolveInvalidPattern},
		{"fn f(x: int) -> int { if let 1 = x || true { 1 } else { 2 } }", diag.CodeResolveInvalidPattern},
		{"fn f() -> Nope { 1 }", diag.CodeResolveUnknownType},
		{"fn f( { }", diag.CodeParseUnexpectedToken},
	} {
		_, err := Load("t", tc.src)
		if got := errCode(t, err); got != tc.code {
			t.Errorf("%s: got %v, want %v (%v)", tc.src, got, tc.code, err)
		}
	}
}

func TestParseExpr(t *testing.T) {
	env := testEnv(t)
	opt := env.Types["Option"]

	x, err := ParseExpr(env, opt, "Some(-4)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := x.(*hir.Construct)
	if c.Variant != 1 || c.Fields[0].(*hir.Lit).Value.Value != int64(-4) {
		t.Fatalf("got %+v", c)
	}

	x, err = ParseExpr(env, &types.Slice{Elem: types.TypeInt}, "[1, 2, 3]")
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if _, ok := x.Type().(*types.Slice); !ok {
		t.Fatalf("got %v, want a slice", x.Type())
	}

	if _, err = ParseExpr(env, nil, "1 2"); err == nil {
		t.Fatalf("trailing input accepted")
	}
}

func TestParseType(t *testing.T) {
	env := testEnv(t)

	for src, want := range map[string]string{
		"int":           "int",
		"(int, bool)":   "(int, bool)",
		"&mut [Option]": "&mut [Option]",
		"[bool; 3]":     "[bool; 3]",
		"Box<Point>":    "Box<Point>",
	} {
		ty, err := ParseType(env, src)
		if err != nil {
			t.Errorf("%s: %v", src, err)
			continue
		}
		if ty.String() != want {
			t.Errorf("%s: got %v", src, ty)
		}
	}
}
