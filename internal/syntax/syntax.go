// Package syntax parses the small source language matchc lowers and
// resolves it to typed HIR.
//
// A source file declares enums, structs and functions. Functions without
// a body are host functions: calls to them are opaque and are served by
// the interpreter hooks.
package syntax

import (
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/types"
)

// Program is a resolved source file.
type Program struct {
	Env   *Env
	Funcs []*hir.Func
}

// Func returns the function called name, or nil.
func (p *Program) Func(name string) *hir.Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Load parses and resolves a source file.
func Load(filename, src string) (*Program, error) {
	p := NewParser(filename, src)

	file, err := p.ParseFile()
	if err != nil {
		return nil, err
	}

	return Resolve(NewEnv(), file)
}

// Resolve declares the types and functions of file in env and resolves
// the function bodies.
func Resolve(env *Env, file *File) (prog *Program, err error) {
	prog = &Program{Env: env}
	r := newResolver(env)

	err = r.run(func() {
		r.declareTypes(file.Decls)

		for _, d := range file.Decls {
			if fd, ok := d.(*FnDecl); ok {
				if _, dup := env.Funcs[fd.Name]; dup {
					r.fail(fd.Span(), diag.CodeResolveUnknownName, "function %s declared twice", fd.Name)
				}
				r.declareFunc(fd)
			}
		}

		for _, d := range file.Decls {
			fd, ok := d.(*FnDecl)
			if !ok || fd.Body == nil {
				continue
			}

			r.nextVar = 1
			prog.Funcs = append(prog.Funcs, r.resolveFunc(fd))
		}
	})
	if err != nil {
		return nil, err
	}

	return prog, nil
}

// ParseType parses a type in env.
func ParseType(env *Env, src string) (t types.Type, err error) {
	p := NewParser("<type>", src)

	te := p.parseType()
	if err = p.finish(te != nil); err != nil {
		return nil, err
	}

	r := newResolver(env)
	err = r.run(func() {
		t = r.resolveType(te)
	})

	return t, err
}

// ParsePattern parses a pattern matching values of type ty.
func ParsePattern(env *Env, ty types.Type, src string) (pat *hir.Pat, err error) {
	p := NewParser("<pattern>", src)

	ast := p.parsePattern()
	if err = p.finish(ast != nil); err != nil {
		return nil, err
	}

	r := newResolver(env)
	err = r.run(func() {
		r.push()
		defer r.pop()

		pat = r.declarePattern(ast, ty)
	})

	return pat, err
}

// ParseExpr parses a closed expression of type want. A nil want lets the
// expression pick its type.
func ParseExpr(env *Env, want types.Type, src string) (x hir.Expr, err error) {
	p := NewParser("<expr>", src)

	ast := p.parseExpression(precedenceLowest)
	if err = p.finish(!isNil(ast)); err != nil {
		return nil, err
	}

	r := newResolver(env)
	err = r.run(func() {
		r.push()
		defer r.pop()

		x = r.resolveExpr(ast, want)
	})

	return x, err
}

// ParseFunc parses one function declaration, adds its signature to env
// and resolves its body.
func ParseFunc(env *Env, src string) (f *hir.Func, err error) {
	p := NewParser("<fn>", src)

	if p.curTok.Type != FN {
		p.reportError("expected 'fn', got '"+p.curTok.Literal+"'", p.curTok.Span)
	}

	var d Decl
	if p.curTok.Type == FN {
		d = p.parseFnDecl()
	}
	if err = p.finish(d != nil); err != nil {
		return nil, err
	}

	fd := d.(*FnDecl)

	r := newResolver(env)
	err = r.run(func() {
		r.declareFunc(fd)
		if fd.Body == nil {
			r.fail(fd.Span(), diag.CodeResolveUnknownName, "function %s has no body", fd.Name)
		}
		f = r.resolveFunc(fd)
	})

	return f, err
}

// finish checks the whole input was consumed.
func (p *Parser) finish(ok bool) error {
	if ok && !p.accept(EOF) {
		p.reportError("unexpected '"+p.peekTok.Literal+"' after end of input", p.peekTok.Span)
	}

	return p.err()
}
