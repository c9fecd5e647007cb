package syntax

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

// Env holds declared types and function signatures.
type Env struct {
	Types map[string]types.Type
	Funcs map[string]*FuncSig
}

// FuncSig is the signature of a declared function.
type FuncSig struct {
	Name   string
	Params []types.Type
	Ret    types.Type
}

// NewEnv returns an environment knowing only the primitive types.
func NewEnv() *Env {
	return &Env{
		Types: map[string]types.Type{
			"int":   types.TypeInt,
			"bool":  types.TypeBool,
			"char":  types.TypeChar,
			"str":   types.TypeStr,
			"usize": types.TypeUsize,
		},
		Funcs: map[string]*FuncSig{},
	}
}

type varDef struct {
	id      hir.VarID
	name    string
	ty      types.Type
	mutable bool
}

// bailout aborts resolution after the first error.
type bailout struct{}

type resolver struct {
	env     *Env
	scopes  []map[string]*varDef
	nextVar hir.VarID
	ret     types.Type

	errors []diag.Diagnostic
}

func newResolver(env *Env) *resolver {
	return &resolver{env: env, nextVar: 1}
}

func (r *resolver) fail(span diag.Span, code diag.Code, format string, args ...any) {
	r.errors = append(r.errors, diag.Errorf(diag.StageResolve, code, span, format, args...))
	panic(bailout{})
}

// run calls f, turning a bailout into the collected errors.
func (r *resolver) run(f func()) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if _, ok := p.(bailout); !ok {
			panic(p)
		}
		err = Errors(r.errors)
	}()

	f()

	return nil
}

func (r *resolver) push() { r.scopes = append(r.scopes, map[string]*varDef{}) }
func (r *resolver) pop()  { r.scopes = r.scopes[:len(r.scopes)-1] }

func (r *resolver) lookup(name string) *varDef {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if d, ok := r.scopes[i][name]; ok {
			return d
		}
	}
	return nil
}

func (r *resolver) declare(d *varDef) {
	r.scopes[len(r.scopes)-1][d.name] = d
}

func (r *resolver) newVar(name string, ty types.Type, mutable bool) *varDef {
	d := &varDef{id: r.nextVar, name: name, ty: ty, mutable: mutable}
	r.nextVar++
	return d
}

// declareTypes registers enums and structs in two passes, so declarations
// may refer to each other in any order.
func (r *resolver) declareTypes(decls []Decl) {
	for _, d := range decls {
		switch d := d.(type) {
		case *EnumDecl:
			r.defineType(d.Name, &types.Enum{Name: d.Name}, d.Span())
		case *StructDecl:
			r.defineType(d.Name, &types.Struct{Name: d.Name}, d.Span())
		}
	}

	for _, d := range decls {
		switch d := d.(type) {
		case *EnumDecl:
			e := r.env.Types[d.Name].(*types.Enum)
			for _, v := range d.Variants {
				if e.VariantIndex(v.Name) >= 0 {
					r.fail(v.Span, diag.CodeResolveUnknownName, "variant %s::%s declared twice", d.Name, v.Name)
				}
				payload := make([]types.Type, len(v.Payload))
				for i, t := range v.Payload {
					payload[i] = r.resolveType(t)
				}
				e.Variants = append(e.Variants, types.Variant{Name: v.Name, Payload: payload})
			}

		case *StructDecl:
			s := r.env.Types[d.Name].(*types.Struct)
			for _, f := range d.Fields {
				s.Fields = append(s.Fields, types.Field{Name: f.Name, Type: r.resolveType(f.Type)})
			}
		}
	}
}

func (r *resolver) defineType(name string, t types.Type, span diag.Span) {
	if _, ok := r.env.Types[name]; ok {
		r.fail(span, diag.CodeResolveUnknownType, "type %s declared twice", name)
	}
	r.env.Types[name] = t
}

func (r *resolver) declareFunc(d *FnDecl) {
	sig := &FuncSig{Name: d.Name, Ret: types.TypeUnit}
	for _, p := range d.Params {
		sig.Params = append(sig.Params, r.resolveType(p.Type))
	}
	if d.Ret != nil {
		sig.Ret = r.resolveType(d.Ret)
	}
	r.env.Funcs[d.Name] = sig
}

func (r *resolver) resolveType(t TypeExpr) types.Type {
	switch t := t.(type) {
	case *NamedType:
		ty, ok := r.env.Types[t.Name]
		if !ok {
			r.fail(t.Span(), diag.CodeResolveUnknownType, "unknown type %s", t.Name)
		}
		return ty

	case *TupleType:
		if len(t.Elems) == 0 {
			return types.TypeUnit
		}
		elems := make([]types.Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = r.resolveType(e)
		}
		return &types.Tuple{Elems: elems}

	case *RefType:
		return types.NewRef(r.resolveType(t.Elem), t.Mutable)

	case *SliceType:
		elem := r.resolveType(t.Elem)
		if t.Len >= 0 {
			return &types.Array{Elem: elem, Len: t.Len}
		}
		return &types.Slice{Elem: elem}

	case *BoxType:
		return &types.Box{Elem: r.resolveType(t.Elem)}

	case *NeverType:
		return types.TypeNever
	}

	r.fail(t.Span(), diag.CodeResolveUnknownType, "unsupported type %T", t)
	return nil
}

func (r *resolver) resolveFunc(d *FnDecl) *hir.Func {
	sig := r.env.Funcs[d.Name]
	f := &hir.Func{Name: d.Name, Ret: sig.Ret, Span: d.Span()}

	r.ret = sig.Ret
	r.push()
	defer r.pop()

	for i, p := range d.Params {
		v := r.newVar(p.Name, sig.Params[i], p.Mutable)
		r.declare(v)
		f.Params = append(f.Params, hir.Param{Var: v.id, Name: p.Name, Type: v.ty, Mutable: p.Mutable, Span: p.Span})
	}

	body := r.resolveBlock(d.Body, sig.Ret)
	r.unify(body.Type(), sig.Ret, d.Body.Span())
	f.Body = body

	return f
}

// unify checks that a value of type got can be used where want is
// expected. Never converts to anything.
func (r *resolver) unify(got, want types.Type, span diag.Span) {
	if want == nil || isNever(got) || types.Equal(got, want) {
		return
	}
	r.fail(span, diag.CodeResolveTypeMismatch, "mismatched types: expected %v, found %v", want, got)
}

// join returns the type of a value that is either a or b.
func (r *resolver) join(a, b types.Type, span diag.Span) types.Type {
	switch {
	case a == nil || isNever(a):
		return b
	case isNever(b):
		return a
	}
	r.unify(b, a, span)
	return a
}

func isNever(t types.Type) bool {
	p, ok := t.(*types.Primitive)
	return ok && p.Kind == types.Never
}

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), 10, 64)
	return n, err == nil
}

// constant converts a literal to a constant of type ty. A nil ty lets the
// literal pick its own type.
func (r *resolver) constant(l *LitExpr, ty types.Type) *mir.Constant {
	var c *mir.Constant

	switch l.Kind {
	case INT:
		n, ok := parseInt(l.Value)
		if !ok {
			r.fail(l.Span(), diag.CodeResolveTypeMismatch, "invalid integer %s", l.Value)
		}
		if l.Neg {
			n = -n
		}
		it := types.Type(types.TypeInt)
		if types.Equal(ty, types.TypeUsize) {
			it = types.TypeUsize
		}
		c = mir.Int(it, n)
	case CHAR:
		c = &mir.Constant{Type: types.TypeChar, Value: int64([]rune(l.Value)[0])}
	case STRING:
		c = &mir.Constant{Type: types.TypeStr, Value: l.Value}
	case TRUE:
		c = mir.Bool(true)
	case FALSE:
		c = mir.Bool(false)
	default:
		r.fail(l.Span(), diag.CodeResolveTypeMismatch, "unsupported literal %s", l.Value)
	}

	r.unify(c.Type, ty, l.Span())

	return c
}

func fmtPath(path []string) string {
	return strings.Join(path, "::")
}

// variant resolves a variant path against the expected type.
func (r *resolver) variant(path []string, want types.Type, span diag.Span) (*types.Enum, int) {
	var e *types.Enum
	name := path[len(path)-1]

	switch len(path) {
	case 1:
		e, _ = want.(*types.Enum)
	case 2:
		t, ok := r.env.Types[path[0]]
		if !ok {
			r.fail(span, diag.CodeResolveUnknownType, "unknown type %s", path[0])
		}
		e, _ = t.(*types.Enum)
	}

	if e == nil {
		r.fail(span, diag.CodeResolveUnknownName, "cannot resolve %s for %v", fmtPath(path), want)
	}

	v := e.VariantIndex(name)
	if v < 0 {
		r.fail(span, diag.CodeResolveUnknownName, "no variant %s in %s", name, e.Name)
	}
	if want != nil && !types.Equal(e, want) {
		r.fail(span, diag.CodeResolveTypeMismatch, "mismatched types: expected %v, found %s", want, e.Name)
	}

	return e, v
}

func describe(n Node) string {
	return fmt.Sprintf("%T", n)
}
