// Package interp executes MIR functions.
//
// False edges continue to their real target. Reading a slot that was
// moved out of, or never initialized, is an error, as is reaching an
// Unreachable terminator.
package interp

import (
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/types"
)

var (
	ErrUnreachable = errors.New("reached unreachable code")
	ErrMovedValue  = errors.New("use of moved value")
	ErrUninit      = errors.New("use of uninitialized value")
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrUnknownFunc = errors.New("unknown function")
)

const defaultStepLimit = 1_000_000

// Hooks lets the host observe and implement effects.
type Hooks struct {
	// Call implements functions other than the builtins.
	Call func(name string, args []Value) (Value, error)
	// Drop observes every value dropped.
	Drop func(place string, v Value)
	// StepLimit bounds the number of blocks entered. Zero means the default.
	StepLimit int
}

// Event is a call or drop observed during a run.
type Event struct {
	Kind  string // "call" or "drop"
	Name  string // function name or dropped place
	Args  []Value
	Value Value // dropped value
}

// Machine runs one function.
type Machine struct {
	fn     *mir.Function
	hooks  Hooks
	locals []*Cell
	steps  int

	Events []Event
}

// New prepares a machine for fn.
func New(fn *mir.Function, hooks *Hooks) *Machine {
	m := &Machine{fn: fn}
	if hooks != nil {
		m.hooks = *hooks
	}
	if m.hooks.StepLimit <= 0 {
		m.hooks.StepLimit = defaultStepLimit
	}
	return m
}

// Run executes fn with args and returns its result.
func Run(fn *mir.Function, args []Value, hooks *Hooks) (Value, error) {
	return New(fn, hooks).Run(args)
}

// Run executes the function with args and returns its result.
func (m *Machine) Run(args []Value) (res Value, err error) {
	if len(args) != m.fn.ArgCount {
		return nil, errors.New("%s takes %d arguments, got %d", m.fn.Name, m.fn.ArgCount, len(args))
	}

	m.locals = make([]*Cell, len(m.fn.Locals))
	for i := range m.locals {
		m.locals[i] = NewCell(Uninit)
	}
	for i, a := range args {
		m.locals[i+1].V = a
	}

	bb := m.fn.Entry
	for bb != nil {
		m.steps++
		if m.steps > m.hooks.StepLimit {
			return nil, errors.Wrap(ErrStepLimit, "%s", m.fn.Name)
		}

		if tlog.If("interp") {
			tlog.Printw("enter block", "fn", m.fn.Name, "block", bb.Label, "step", m.steps)
		}

		for i, s := range bb.Statements {
			if err = m.stmt(s); err != nil {
				return nil, errors.Wrap(err, "%s: %s[%d]", m.fn.Name, bb.Label, i)
			}
		}

		if _, ok := bb.Terminator.(*mir.Return); ok {
			break
		}

		label := bb.Label
		bb, err = m.terminator(bb.Terminator)
		if err != nil {
			return nil, errors.Wrap(err, "%s: %s", m.fn.Name, label)
		}
	}

	return m.read(mir.PlaceOf(mir.ReturnPlace), false)
}

func (m *Machine) terminator(t mir.Terminator) (*mir.BasicBlock, error) {
	switch t := t.(type) {
	case *mir.Goto:
		return t.Target, nil

	case *mir.FalseEdge:
		return t.Real, nil

	case *mir.Branch:
		v, err := m.operand(t.Condition)
		if err != nil {
			return nil, err
		}
		c, ok := v.(Bool)
		if !ok {
			return nil, errors.New("branch on non-bool %v", v)
		}
		if c {
			return t.True, nil
		}
		return t.False, nil

	case *mir.SwitchInt:
		v, err := m.operand(t.Discr)
		if err != nil {
			return nil, err
		}
		n, ok := bits(v)
		if !ok {
			return nil, errors.New("switch on non-integer %v", v)
		}
		for i, val := range t.Values {
			if val == n {
				return t.Targets[i], nil
			}
		}
		return t.Otherwise, nil

	case *mir.Unreachable:
		return nil, ErrUnreachable

	case nil:
		return nil, errors.New("unterminated block")
	}

	return nil, errors.New("unsupported terminator %T", t)
}

func (m *Machine) stmt(s mir.Statement) error {
	switch s := s.(type) {
	case *mir.Assign:
		v, err := m.rvalue(s.Rvalue)
		if err != nil {
			return err
		}
		c, err := m.cell(s.Place)
		if err != nil {
			return err
		}
		c.V = v

	case *mir.Call:
		return m.call(s)

	case *mir.StorageLive:
		m.locals[s.Local].V = Uninit

	case *mir.StorageDead:
		m.locals[s.Local].V = Uninit

	case *mir.Drop:
		c, err := m.cell(s.Place)
		if err != nil {
			return err
		}
		if c.V == Moved || c.V == Uninit {
			return nil
		}

		m.Events = append(m.Events, Event{Kind: "drop", Name: s.Place.String(), Value: c.V})
		if m.hooks.Drop != nil {
			m.hooks.Drop(s.Place.String(), c.V)
		}
		c.V = Uninit

	case *mir.FakeRead, *mir.PlaceMention, *mir.AscribeUserType:
		// Analysis only.

	default:
		return errors.New("unsupported statement %T", s)
	}

	return nil
}

func (m *Machine) call(s *mir.Call) error {
	args := make([]Value, len(s.Args))
	for i, a := range s.Args {
		v, err := m.operand(a)
		if err != nil {
			return errors.Wrap(err, "call %s: arg %d", s.Func, i)
		}
		args[i] = v
	}

	m.Events = append(m.Events, Event{Kind: "call", Name: s.Func, Args: args})

	res, err := m.callFunc(s.Func, args)
	if err != nil {
		return errors.Wrap(err, "call %s", s.Func)
	}

	c, err := m.cell(s.Dest)
	if err != nil {
		return err
	}
	c.V = res

	return nil
}

func (m *Machine) callFunc(name string, args []Value) (Value, error) {
	switch name {
	case "deref", "deref_mut":
		if len(args) != 1 {
			return nil, errors.New("want 1 argument, got %d", len(args))
		}
		r, ok := args[0].(*Ref)
		if !ok {
			return nil, errors.New("want a reference, got %v", args[0])
		}
		b, ok := r.Target.V.(*Box)
		if !ok {
			return nil, errors.New("want a reference to a box, got %v", r.Target.V)
		}
		return &Ref{Target: b.Target, Mutable: name == "deref_mut"}, nil
	}

	if m.hooks.Call == nil {
		return nil, errors.Wrap(ErrUnknownFunc, "%s", name)
	}

	return m.hooks.Call(name, args)
}

func (m *Machine) rvalue(rv mir.Rvalue) (Value, error) {
	switch rv := rv.(type) {
	case *mir.Use:
		return m.operand(rv.Operand)

	case *mir.Ref:
		c, err := m.cell(rv.Place)
		if err != nil {
			return nil, err
		}
		return &Ref{Target: c, Mutable: rv.Kind == mir.BorrowMut}, nil

	case *mir.Discriminant:
		c, err := m.cell(rv.Place)
		if err != nil {
			return nil, err
		}
		e, ok := c.V.(*Enum)
		if !ok {
			return nil, badValue(c.V, "discriminant of %v", rv.Place)
		}
		return Int(e.Variant), nil

	case *mir.Len:
		c, err := m.cell(rv.Place)
		if err != nil {
			return nil, err
		}
		a, ok := c.V.(*Agg)
		if !ok {
			return nil, badValue(c.V, "len of %v", rv.Place)
		}
		return Int(len(a.Elems)), nil

	case *mir.BinaryOp:
		l, err := m.operand(rv.Left)
		if err != nil {
			return nil, err
		}
		r, err := m.operand(rv.Right)
		if err != nil {
			return nil, err
		}
		return binary(rv.Op, l, r)

	case *mir.Not:
		v, err := m.operand(rv.Operand)
		if err != nil {
			return nil, err
		}
		b, ok := v.(Bool)
		if !ok {
			return nil, errors.New("not of non-bool %v", v)
		}
		return !b, nil

	case *mir.Aggregate:
		fields := make([]Value, len(rv.Fields))
		for i, f := range rv.Fields {
			v, err := m.operand(f)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		return aggregate(rv.Type, rv.Variant, fields)
	}

	return nil, errors.New("unsupported rvalue %T", rv)
}

func aggregate(ty types.Type, variant int, fields []Value) (Value, error) {
	switch t := ty.(type) {
	case *types.Enum:
		return NewEnum(t, variant, fields...), nil
	case *types.Box:
		if len(fields) != 1 {
			return nil, errors.New("box takes 1 value, got %d", len(fields))
		}
		return NewBox(fields[0]), nil
	}

	return NewAgg(ty, fields...), nil
}

func binary(op mir.BinOp, l, r Value) (Value, error) {
	switch op {
	case mir.OpEq:
		return Bool(Equal(l, r)), nil
	case mir.OpNe:
		return Bool(!Equal(l, r)), nil
	}

	a, ok := bits(l)
	b, ok2 := bits(r)
	if !ok || !ok2 {
		return nil, errors.New("%v %s %v: want integers", l, op, r)
	}

	switch op {
	case mir.OpLt:
		return Bool(a < b), nil
	case mir.OpLe:
		return Bool(a <= b), nil
	case mir.OpGt:
		return Bool(a > b), nil
	case mir.OpGe:
		return Bool(a >= b), nil
	case mir.OpAdd:
		return Int(a + b), nil
	case mir.OpSub:
		return Int(a - b), nil
	case mir.OpMul:
		return Int(a * b), nil
	}

	return nil, errors.New("unsupported operator %s", op)
}

func (m *Machine) operand(op mir.Operand) (Value, error) {
	switch op := op.(type) {
	case *mir.Constant:
		return constant(op), nil
	case *mir.Copy:
		return m.read(op.Place, false)
	case *mir.Move:
		return m.read(op.Place, true)
	}

	return nil, errors.New("unsupported operand %T", op)
}

// constant converts a MIR constant to a value.
func constant(c *mir.Constant) Value {
	switch v := c.Value.(type) {
	case bool:
		return Bool(v)
	case string:
		return Str(v)
	case rune:
		return Char(v)
	case int64:
		if p, ok := c.Type.(*types.Primitive); ok && p.Kind == types.Char {
			return Char(rune(v))
		}
		return Int(v)
	case int:
		return Int(v)
	}

	return Unit{}
}

func (m *Machine) read(p mir.Place, move bool) (Value, error) {
	c, err := m.cell(p)
	if err != nil {
		return nil, err
	}

	v, err := Clone(c.V)
	if err != nil {
		return nil, errors.Wrap(err, "read %v", p)
	}

	if move {
		c.V = Moved
	}

	return v, nil
}

// cell resolves a place to the cell it denotes.
func (m *Machine) cell(p mir.Place) (*Cell, error) {
	c := m.locals[p.Local]

	for _, e := range p.Projection {
		if err := errOf(c.V); err != nil && e.Kind != mir.ProjDowncast {
			return nil, errors.Wrap(err, "project %v", p)
		}

		switch e.Kind {
		case mir.ProjField:
			switch v := c.V.(type) {
			case *Agg:
				c = v.Elems[e.Index]
			case *Enum:
				c = v.Fields[e.Index]
			default:
				return nil, errors.New("field %d of %v", e.Index, v)
			}

		case mir.ProjDowncast:
			v, ok := c.V.(*Enum)
			if !ok || v.Variant != e.Index {
				return nil, errors.New("downcast of %v to %s", c.V, e.Name)
			}

		case mir.ProjDeref:
			switch v := c.V.(type) {
			case *Ref:
				c = v.Target
			case *Box:
				c = v.Target
			default:
				return nil, errors.New("deref of %v", v)
			}

		case mir.ProjConstantIndex:
			a, ok := c.V.(*Agg)
			if !ok {
				return nil, errors.New("index of %v", c.V)
			}
			i := e.Offset
			if e.FromEnd {
				i = len(a.Elems) - e.Offset
			}
			if i < 0 || i >= len(a.Elems) {
				return nil, errors.New("index %d out of bounds of %d", i, len(a.Elems))
			}
			c = a.Elems[i]

		case mir.ProjSubslice:
			a, ok := c.V.(*Agg)
			if !ok {
				return nil, errors.New("subslice of %v", c.V)
			}
			to := e.To
			if e.FromEnd {
				to = len(a.Elems) - e.To
			}
			if e.From > to || to > len(a.Elems) {
				return nil, errors.New("subslice [%d:%d] out of bounds of %d", e.From, to, len(a.Elems))
			}
			c = NewCell(&Agg{Type: e.Type, Elems: a.Elems[e.From:to]})
		}
	}

	return c, nil
}

func badValue(v Value, format string, args ...any) error {
	if err := errOf(v); err != nil {
		return errors.Wrap(err, format, args...)
	}
	return errors.New(format+": unexpected %v", append(args, v)...)
}

func errOf(v Value) error {
	switch v {
	case Moved:
		return ErrMovedValue
	case Uninit:
		return ErrUninit
	}
	return nil
}
