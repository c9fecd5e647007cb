package syntax

import (
	"strconv"

	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

var binOps = map[TokenType]mir.BinOp{
	EQ:       mir.OpEq,
	NOT_EQ:   mir.OpNe,
	LT:       mir.OpLt,
	LE:       mir.OpLe,
	GT:       mir.OpGt,
	GE:       mir.OpGe,
	PLUS:     mir.OpAdd,
	MINUS:    mir.OpSub,
	ASTERISK: mir.OpMul,
}

func base(ty types.Type, span diag.Span) hir.ExprBase {
	return hir.ExprBase{Ty: ty, Sp: span}
}

// resolveExpr resolves e. want is the expected type, or nil if unknown.
// The result is checked against want.
func (r *resolver) resolveExpr(e Expr, want types.Type) hir.Expr {
	x := r.expr(e, want)
	r.unify(x.Type(), want, e.Span())
	return x
}

func (r *resolver) expr(e Expr, want types.Type) hir.Expr {
	sp := e.Span()

	switch e := e.(type) {
	case *LitExpr:
		c := r.constant(e, want)
		return &hir.Lit{ExprBase: base(c.Type, sp), Value: c}

	case *IdentExpr:
		if d := r.lookup(e.Name); d != nil {
			return &hir.VarRef{ExprBase: base(d.ty, sp), Var: d.id}
		}
		if en, ok := want.(*types.Enum); ok && en.VariantIndex(e.Name) >= 0 {
			return r.construct(en, en.VariantIndex(e.Name), nil, sp)
		}
		r.fail(sp, diag.CodeResolveUnknownName, "unknown name %s", e.Name)

	case *PathExpr:
		en, v := r.variant(e.Path, want, sp)
		return r.construct(en, v, nil, sp)

	case *CallExpr:
		return r.resolveCall(e, want)

	case *StructExpr:
		s, ok := r.env.Types[e.Name].(*types.Struct)
		if !ok {
			r.fail(sp, diag.CodeResolveUnknownType, "unknown struct %s", e.Name)
		}

		fields := make([]hir.Expr, len(s.Fields))
		for _, f := range e.Fields {
			i := s.FieldIndex(f.Name)
			if i < 0 {
				r.fail(f.Span, diag.CodeResolveUnknownName, "struct %s has no field %s", s.Name, f.Name)
			}
			if fields[i] != nil {
				r.fail(f.Span, diag.CodeResolveUnknownName, "field %s is initialized twice", f.Name)
			}
			fields[i] = r.resolveExpr(f.Value, s.Fields[i].Type)
		}
		for i, f := range fields {
			if f == nil {
				r.fail(sp, diag.CodeResolveUnknownName, "missing field %s in %s", s.Fields[i].Name, s.Name)
			}
		}

		return &hir.Construct{ExprBase: base(s, sp), Variant: -1, Fields: fields}

	case *FieldExpr:
		x := r.resolveExpr(e.X, nil)
		idx := -1
		if s, ok := x.Type().(*types.Struct); ok {
			idx = s.FieldIndex(e.Name)
		} else if n, err := strconv.Atoi(e.Name); err == nil {
			idx = n
		}

		fields := types.FieldTypes(x.Type())
		if idx < 0 || idx >= len(fields) {
			r.fail(sp, diag.CodeResolveUnknownName, "no field %s on %v", e.Name, x.Type())
		}

		return &hir.Field{ExprBase: base(fields[idx], sp), Base: x, Index: idx}

	case *UnaryExpr:
		return r.resolveUnary(e, want)

	case *BinaryExpr:
		return r.resolveBinary(e)

	case *LetExpr:
		r.fail(sp, diag.CodeResolveInvalidPattern, "let expressions are only allowed in if conditions and match guards")

	case *IfExpr:
		r.push()
		cond := r.resolveCond(e.Cond)
		then := r.resolveBlock(e.Then, want)
		r.pop()

		out := &hir.If{ExprBase: base(then.Type(), sp), Cond: cond, Then: then}
		if e.Else == nil {
			r.unify(then.Type(), types.TypeUnit, e.Then.Span())
			out.Ty = types.TypeUnit
			return out
		}

		out.Else = r.resolveExpr(e.Else, want)
		out.Ty = r.join(then.Type(), out.Else.Type(), e.Else.Span())

		return out

	case *MatchExpr:
		return r.resolveMatch(e, want)

	case *BlockExpr:
		return r.resolveBlock(e, want)

	case *AssignExpr:
		d := r.lookup(e.Name)
		if d == nil {
			r.fail(sp, diag.CodeResolveUnknownName, "unknown name %s", e.Name)
		}
		if !d.mutable {
			r.fail(sp, diag.CodeResolveInvalidPattern, "cannot assign twice to immutable variable %s", e.Name)
		}

		return &hir.Assign{ExprBase: base(types.TypeUnit, sp), Var: d.id, Value: r.resolveExpr(e.Value, d.ty)}

	case *TupleExpr:
		if len(e.Elems) == 0 {
			return &hir.Lit{ExprBase: base(types.TypeUnit, sp), Value: mir.Unit()}
		}

		wantElems := types.FieldTypes(want)
		tup := &types.Tuple{}
		fields := make([]hir.Expr, len(e.Elems))
		for i, el := range e.Elems {
			var w types.Type
			if len(wantElems) == len(e.Elems) {
				w = wantElems[i]
			}
			fields[i] = r.resolveExpr(el, w)
			tup.Elems = append(tup.Elems, fields[i].Type())
		}

		return &hir.Construct{ExprBase: base(tup, sp), Variant: -1, Fields: fields}

	case *ArrayExpr:
		return r.resolveArray(e, want)

	case *BoxExpr:
		var w types.Type
		if b, ok := want.(*types.Box); ok {
			w = b.Elem
		}
		x := r.resolveExpr(e.X, w)

		return &hir.Construct{ExprBase: base(&types.Box{Elem: x.Type()}, sp), Variant: -1, Fields: []hir.Expr{x}}

	case *ReturnExpr:
		out := &hir.Return{ExprBase: base(types.TypeNever, sp)}
		if e.Value != nil {
			out.Value = r.resolveExpr(e.Value, r.ret)
		} else {
			r.unify(types.TypeUnit, r.ret, sp)
		}
		return out
	}

	r.fail(sp, diag.CodeResolveUnknownName, "unsupported expression %s", describe(e))
	return nil
}

func (r *resolver) construct(e *types.Enum, v int, args []Expr, sp diag.Span) hir.Expr {
	payload := e.Variants[v].Payload
	if len(args) != len(payload) {
		r.fail(sp, diag.CodeResolveTypeMismatch, "%s::%s takes %d values, got %d", e.Name, e.Variants[v].Name, len(payload), len(args))
	}

	fields := make([]hir.Expr, len(args))
	for i, a := range args {
		fields[i] = r.resolveExpr(a, payload[i])
	}

	return &hir.Construct{ExprBase: base(e, sp), Variant: v, Fields: fields}
}

func (r *resolver) resolveCall(e *CallExpr, want types.Type) hir.Expr {
	sp := e.Span()

	switch c := e.Callee.(type) {
	case *PathExpr:
		en, v := r.variant(c.Path, want, sp)
		return r.construct(en, v, e.Args, sp)

	case *IdentExpr:
		if sig, ok := r.env.Funcs[c.Name]; ok {
			if len(e.Args) != len(sig.Params) {
				r.fail(sp, diag.CodeResolveTypeMismatch, "%s takes %d arguments, got %d", c.Name, len(sig.Params), len(e.Args))
			}

			args := make([]hir.Expr, len(e.Args))
			for i, a := range e.Args {
				args[i] = r.resolveExpr(a, sig.Params[i])
			}

			return &hir.Call{ExprBase: base(sig.Ret, sp), Func: c.Name, Args: args}
		}

		en, v := r.variant([]string{c.Name}, want, sp)
		return r.construct(en, v, e.Args, sp)
	}

	r.fail(sp, diag.CodeResolveUnknownName, "cannot call %s", describe(e.Callee))
	return nil
}

func (r *resolver) resolveUnary(e *UnaryExpr, want types.Type) hir.Expr {
	sp := e.Span()

	switch e.Op {
	case BANG:
		x := r.resolveExpr(e.X, types.TypeBool)
		return &hir.Not{ExprBase: base(types.TypeBool, sp), X: x}

	case MINUS:
		x := r.resolveExpr(e.X, types.TypeInt)
		zero := &hir.Lit{ExprBase: base(types.TypeInt, sp), Value: mir.Int(types.TypeInt, 0)}
		return &hir.Binary{ExprBase: base(types.TypeInt, sp), Op: mir.OpSub, Left: zero, Right: x}

	case ASTERISK:
		x := r.resolveExpr(e.X, nil)
		var elem types.Type
		switch t := x.Type().(type) {
		case *types.Reference:
			elem = t.Elem
		case *types.Box:
			elem = t.Elem
		default:
			r.fail(sp, diag.CodeResolveTypeMismatch, "type %v cannot be dereferenced", x.Type())
		}
		if !hir.IsPlaceExpr(x) {
			r.fail(sp, diag.CodeResolveTypeMismatch, "only variables and their fields can be dereferenced")
		}
		return &hir.Deref{ExprBase: base(elem, sp), X: x}

	case AMPERSAND:
		var w types.Type
		if ref, ok := want.(*types.Reference); ok {
			w = ref.Elem
		}
		x := r.resolveExpr(e.X, w)
		if e.Mutable {
			r.checkMutablePlace(x, sp)
		}
		return &hir.Borrow{ExprBase: base(types.NewRef(x.Type(), e.Mutable), sp), Mutable: e.Mutable, X: x}
	}

	r.fail(sp, diag.CodeResolveUnknownName, "unsupported operator %s", e.Op)
	return nil
}

// checkMutablePlace rejects `&mut` of an immutable variable.
func (r *resolver) checkMutablePlace(x hir.Expr, sp diag.Span) {
	for {
		switch e := x.(type) {
		case *hir.Field:
			x = e.Base
			continue
		case *hir.Deref:
			if ref, ok := e.X.Type().(*types.Reference); ok && !ref.Mutable {
				r.fail(sp, diag.CodeResolveTypeMismatch, "cannot borrow data behind a shared reference as mutable")
			}
			return
		case *hir.VarRef:
			for i := len(r.scopes) - 1; i >= 0; i-- {
				for _, d := range r.scopes[i] {
					if d.id == e.Var && !d.mutable {
						r.fail(sp, diag.CodeResolveTypeMismatch, "cannot borrow immutable variable %s as mutable", d.name)
					}
				}
			}
		}
		return
	}
}

func (r *resolver) resolveBinary(e *BinaryExpr) hir.Expr {
	sp := e.Span()

	switch e.Op {
	case AND, OR:
		l := r.resolveExpr(e.Left, types.TypeBool)
		rr := r.resolveExpr(e.Right, types.TypeBool)
		if e.Op == AND {
			return &hir.And{ExprBase: base(types.TypeBool, sp), Left: l, Right: rr}
		}
		return &hir.Or{ExprBase: base(types.TypeBool, sp), Left: l, Right: rr}
	}

	op, ok := binOps[e.Op]
	if !ok {
		r.fail(sp, diag.CodeResolveUnknownName, "unsupported operator %s", e.Op)
	}

	switch op {
	case mir.OpAdd, mir.OpSub, mir.OpMul:
		l := r.resolveExpr(e.Left, nil)
		if !types.IsSwitchable(l.Type()) || types.Equal(l.Type(), types.TypeChar) {
			r.fail(e.Left.Span(), diag.CodeResolveTypeMismatch, "cannot apply %s to %v", op, l.Type())
		}
		rr := r.resolveExpr(e.Right, l.Type())
		return &hir.Binary{ExprBase: base(l.Type(), sp), Op: op, Left: l, Right: rr}
	}

	l := r.resolveExpr(e.Left, nil)
	rr := r.resolveExpr(e.Right, l.Type())

	if op != mir.OpEq && op != mir.OpNe && !types.IsSwitchable(l.Type()) {
		r.fail(sp, diag.CodeResolveTypeMismatch, "cannot compare %v with %s", l.Type(), op)
	}

	return &hir.Binary{ExprBase: base(types.TypeBool, sp), Op: op, Left: l, Right: rr}
}

// resolveCond resolves an if condition or a match guard. Let expressions
// are allowed at the top level and under `&&`; their bindings go into the
// current scope.
func (r *resolver) resolveCond(e Expr) hir.Expr {
	switch c := e.(type) {
	case *LetExpr:
		init := r.resolveExpr(c.Init, nil)
		pat := r.declarePattern(c.Pat, init.Type())
		return &hir.Let{ExprBase: base(types.TypeBool, c.Span()), Pat: pat, Init: init}

	case *BinaryExpr:
		if c.Op == AND {
			l := r.resolveCond(c.Left)
			rr := r.resolveCond(c.Right)
			return &hir.And{ExprBase: base(types.TypeBool, c.Span()), Left: l, Right: rr}
		}
	}

	return r.resolveExpr(e, types.TypeBool)
}

func (r *resolver) resolveMatch(e *MatchExpr, want types.Type) hir.Expr {
	scrut := r.resolveExpr(e.Scrutinee, nil)
	out := &hir.Match{ExprBase: base(nil, e.Span()), Scrutinee: scrut}

	var ty types.Type
	for _, a := range e.Arms {
		r.push()

		arm := &hir.Arm{Span: a.Span}
		arm.Pattern = r.declarePattern(a.Pattern, scrut.Type())
		if a.Guard != nil {
			arm.Guard = r.resolveCond(a.Guard)
		}

		w := want
		if w == nil && ty != nil && !isNever(ty) {
			w = ty
		}
		arm.Body = r.resolveExpr(a.Body, w)
		ty = r.join(ty, arm.Body.Type(), a.Body.Span())

		r.pop()

		out.Arms = append(out.Arms, arm)
	}

	if ty == nil {
		ty = types.TypeNever
	}
	out.Ty = ty

	return out
}

func (r *resolver) resolveArray(e *ArrayExpr, want types.Type) hir.Expr {
	elemWant := types.ElemType(want)

	fields := make([]hir.Expr, len(e.Elems))
	for i, el := range e.Elems {
		fields[i] = r.resolveExpr(el, elemWant)
		if elemWant == nil {
			elemWant = fields[i].Type()
		}
	}

	if elemWant == nil {
		r.fail(e.Span(), diag.CodeResolveTypeMismatch, "cannot infer the element type of an empty array")
	}

	var ty types.Type = &types.Array{Elem: elemWant, Len: len(fields)}
	if _, ok := want.(*types.Slice); ok {
		ty = &types.Slice{Elem: elemWant}
	}

	return &hir.Construct{ExprBase: base(ty, e.Span()), Variant: -1, Fields: fields}
}

func (r *resolver) resolveBlock(e *BlockExpr, want types.Type) *hir.Block {
	r.push()
	defer r.pop()

	out := &hir.Block{ExprBase: base(types.TypeUnit, e.Span())}
	diverges := false

	for _, st := range e.Stmts {
		switch st := st.(type) {
		case *LetStmt:
			out.Stmts = append(out.Stmts, r.resolveLet(st))

		case *ExprStmt:
			x := r.resolveExpr(st.X, nil)
			diverges = diverges || isNever(x.Type())
			out.Stmts = append(out.Stmts, &hir.ExprStmt{X: x})
		}
	}

	switch {
	case e.Tail != nil:
		out.Tail = r.resolveExpr(e.Tail, want)
		out.Ty = out.Tail.Type()
	case diverges:
		out.Ty = types.TypeNever
	}

	return out
}

func (r *resolver) resolveLet(st *LetStmt) *hir.LetStmt {
	var declared types.Type
	if st.Type != nil {
		declared = r.resolveType(st.Type)
	}

	out := &hir.LetStmt{Span: st.Span()}

	ty := declared
	if st.Init != nil {
		out.Init = r.resolveExpr(st.Init, declared)
		if ty == nil {
			ty = out.Init.Type()
		}
	}
	if ty == nil {
		r.fail(st.Span(), diag.CodeResolveTypeMismatch, "type annotations needed")
	}

	if st.Else != nil {
		if st.Init == nil {
			r.fail(st.Span(), diag.CodeResolveInvalidPattern, "let-else needs an initializer")
		}
		els := r.resolveBlock(st.Else, nil)
		if !isNever(els.Type()) {
			r.fail(st.Else.Span(), diag.CodeResolveTypeMismatch, "else block of let-else must diverge")
		}
		out.Else = els
	}

	out.Pat = r.declarePattern(st.Pat, ty)
	if declared != nil {
		out.Pat = ascribe(out.Pat, declared, st.Type.Span())
	}

	if st.Else == nil && Refutable(out.Pat) {
		r.fail(st.Pat.Span(), diag.CodeResolveInvalidPattern, "refutable pattern in let binding; use let-else or if let")
	}

	return out
}
