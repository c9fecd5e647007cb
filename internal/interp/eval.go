package interp

import (
	"github.com/nikandfor/errors"

	"github.com/malphas-lang/matchc/internal/hir"
)

// Eval computes the value of a closed expression: literals, constructors,
// borrows and operators over them. It is how arguments written in source
// syntax become values.
func Eval(e hir.Expr) (Value, error) {
	switch e := e.(type) {
	case *hir.Lit:
		return constant(e.Value), nil

	case *hir.Construct:
		fields := make([]Value, len(e.Fields))
		for i, f := range e.Fields {
			v, err := Eval(f)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		return aggregate(e.Type(), e.Variant, fields)

	case *hir.Borrow:
		v, err := Eval(e.X)
		if err != nil {
			return nil, err
		}
		return &Ref{Target: NewCell(v), Mutable: e.Mutable}, nil

	case *hir.Binary:
		l, err := Eval(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(e.Right)
		if err != nil {
			return nil, err
		}
		return binary(e.Op, l, r)

	case *hir.Not:
		v, err := Eval(e.X)
		if err != nil {
			return nil, err
		}
		b, ok := v.(Bool)
		if !ok {
			return nil, errors.New("!%v: want bool", v)
		}
		return !b, nil
	}

	return nil, errors.New("%v: not a constant expression (%T)", e.Span(), e)
}
