package mir

import (
	"fmt"
	"path"
	"strings"

	"github.com/malphas-lang/matchc/internal/types"
)

// PrettyOptions controls optional parts of the dump.
type PrettyOptions struct {
	// Origins appends the lowering function that created each block.
	Origins bool
}

// PrettyPrint returns a human-readable string representation of a function
func (f *Function) PrettyPrint() string {
	return f.PrettyPrintWith(PrettyOptions{})
}

// PrettyPrintWith renders f using opts.
func (f *Function) PrettyPrintWith(opts PrettyOptions) string {
	var b strings.Builder

	// Function signature
	b.WriteString(fmt.Sprintf("fn %s(", f.Name))
	params := make([]string, f.ArgCount)
	for i := range params {
		l := Local(i + 1)
		params[i] = fmt.Sprintf("_%d: %s", l, typeString(f.Locals[l].Type))
	}
	b.WriteString(strings.Join(params, ", "))
	b.WriteString(") -> ")
	b.WriteString(typeString(f.ReturnType))
	b.WriteString(" {\n")

	for _, d := range f.DebugInfo {
		b.WriteString(fmt.Sprintf("    debug %s => %s;\n", d.Name, d.Place))
	}

	// Locals
	for i := f.ArgCount + 1; i < len(f.Locals); i++ {
		decl := f.Locals[i]
		mut := ""
		if decl.Mutable {
			mut = "mut "
		}
		line := fmt.Sprintf("    let %s_%d: %s;", mut, i, typeString(decl.Type))
		switch {
		case decl.Name != "" && decl.Kind == LocalRefForGuard:
			line += fmt.Sprintf(" // %s (ref for guard)", decl.Name)
		case decl.Name != "":
			line += " // " + decl.Name
		case decl.Kind == LocalFakeBorrow:
			line += " // fake borrow"
		}
		b.WriteString(line + "\n")
	}

	// Basic blocks
	for _, block := range f.Blocks {
		b.WriteString("\n")
		b.WriteString(block.prettyPrint(opts))
	}

	b.WriteString("}")
	return b.String()
}

// PrettyPrint returns a human-readable string representation of a basic block
func (bb *BasicBlock) PrettyPrint() string {
	return bb.prettyPrint(PrettyOptions{})
}

func (bb *BasicBlock) prettyPrint(opts PrettyOptions) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("    %s: {", bb.Label))
	if opts.Origins && bb.From != 0 {
		name, _, line := bb.From.NameFileLine()
		b.WriteString(fmt.Sprintf(" // %s:%d", strings.TrimPrefix(path.Ext(name), "."), line))
	}
	b.WriteString("\n")

	for _, stmt := range bb.Statements {
		b.WriteString("        ")
		b.WriteString(prettyPrintStmt(stmt))
		b.WriteString(";\n")
	}

	if bb.Terminator != nil {
		b.WriteString("        ")
		b.WriteString(prettyPrintTerminator(bb.Terminator))
		b.WriteString(";\n")
	} else {
		b.WriteString("        <unterminated>;\n")
	}

	b.WriteString("    }\n")
	return b.String()
}

// PrettyPrint implementations for statements

func (a *Assign) PrettyPrint() string {
	return fmt.Sprintf("%s = %s", a.Place, rvalueString(a.Rvalue))
}

func (c *Call) PrettyPrint() string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = operandString(arg)
	}
	return fmt.Sprintf("%s = %s(%s)", c.Dest, c.Func, strings.Join(args, ", "))
}

func (r *FakeRead) PrettyPrint() string {
	return fmt.Sprintf("FakeRead(%s, %s)", r.Cause, r.Place)
}

func (m *PlaceMention) PrettyPrint() string {
	return fmt.Sprintf("PlaceMention(%s)", m.Place)
}

func (s *StorageLive) PrettyPrint() string {
	return fmt.Sprintf("StorageLive(_%d)", s.Local)
}

func (s *StorageDead) PrettyPrint() string {
	return fmt.Sprintf("StorageDead(_%d)", s.Local)
}

func (d *Drop) PrettyPrint() string {
	return fmt.Sprintf("drop(%s)", d.Place)
}

func (a *AscribeUserType) PrettyPrint() string {
	return fmt.Sprintf("AscribeUserType(%s, %s, UserTypeProjection { base: %d })", a.Place, a.Variance, a.Annotation)
}

// prettyPrintStmt dispatches to the appropriate PrettyPrint method
func prettyPrintStmt(stmt Statement) string {
	switch s := stmt.(type) {
	case *Assign:
		return s.PrettyPrint()
	case *Call:
		return s.PrettyPrint()
	case *FakeRead:
		return s.PrettyPrint()
	case *PlaceMention:
		return s.PrettyPrint()
	case *StorageLive:
		return s.PrettyPrint()
	case *StorageDead:
		return s.PrettyPrint()
	case *Drop:
		return s.PrettyPrint()
	case *AscribeUserType:
		return s.PrettyPrint()
	default:
		return fmt.Sprintf("<?stmt:%T>", stmt)
	}
}

// PrettyPrint implementations for terminators

func (r *Return) PrettyPrint() string { return "return" }

func (g *Goto) PrettyPrint() string {
	return fmt.Sprintf("goto -> %s", g.Target.Label)
}

func (br *Branch) PrettyPrint() string {
	return fmt.Sprintf("switchInt(%s) -> [false: %s, otherwise: %s]", operandString(br.Condition), br.False.Label, br.True.Label)
}

func (s *SwitchInt) PrettyPrint() string {
	arms := make([]string, 0, len(s.Values)+1)
	for i, v := range s.Values {
		arms = append(arms, fmt.Sprintf("%d: %s", v, s.Targets[i].Label))
	}
	arms = append(arms, "otherwise: "+s.Otherwise.Label)
	return fmt.Sprintf("switchInt(%s) -> [%s]", operandString(s.Discr), strings.Join(arms, ", "))
}

func (e *FalseEdge) PrettyPrint() string {
	return fmt.Sprintf("falseEdge -> [real: %s, imaginary: %s]", e.Real.Label, e.Imaginary.Label)
}

func (u *Unreachable) PrettyPrint() string { return "unreachable" }

// prettyPrintTerminator dispatches to the appropriate PrettyPrint method
func prettyPrintTerminator(term Terminator) string {
	switch t := term.(type) {
	case *Return:
		return t.PrettyPrint()
	case *Goto:
		return t.PrettyPrint()
	case *Branch:
		return t.PrettyPrint()
	case *SwitchInt:
		return t.PrettyPrint()
	case *FalseEdge:
		return t.PrettyPrint()
	case *Unreachable:
		return t.PrettyPrint()
	default:
		return fmt.Sprintf("<?terminator:%T>", term)
	}
}

func operandString(op Operand) string {
	switch o := op.(type) {
	case *Copy:
		return "copy " + o.Place.String()
	case *Move:
		return "move " + o.Place.String()
	case *Constant:
		return "const " + constantString(o)
	default:
		return fmt.Sprintf("<?operand:%T>", op)
	}
}

func constantString(c *Constant) string {
	switch v := c.Value.(type) {
	case nil:
		return "()"
	case string:
		return fmt.Sprintf("%q", v)
	case int64:
		if p, ok := c.Type.(*types.Primitive); ok && p.Kind == types.Char {
			return fmt.Sprintf("%q", rune(v))
		}
		return fmt.Sprintf("%d_%s", v, typeString(c.Type))
	default:
		return fmt.Sprint(v)
	}
}

func rvalueString(rv Rvalue) string {
	switch r := rv.(type) {
	case *Use:
		return operandString(r.Operand)
	case *Ref:
		return r.Kind.String() + r.Place.String()
	case *Discriminant:
		return fmt.Sprintf("discriminant(%s)", r.Place)
	case *Len:
		return fmt.Sprintf("Len(%s)", r.Place)
	case *BinaryOp:
		return fmt.Sprintf("%s(%s, %s)", binOpName(r.Op), operandString(r.Left), operandString(r.Right))
	case *Not:
		return fmt.Sprintf("Not(%s)", operandString(r.Operand))
	case *Aggregate:
		fields := make([]string, len(r.Fields))
		for i, f := range r.Fields {
			fields[i] = operandString(f)
		}
		if e, ok := r.Type.(*types.Enum); ok {
			return fmt.Sprintf("%s::%s(%s)", e.Name, e.Variants[r.Variant].Name, strings.Join(fields, ", "))
		}
		if _, ok := r.Type.(*types.Array); ok {
			return "[" + strings.Join(fields, ", ") + "]"
		}
		return "(" + strings.Join(fields, ", ") + ")"
	default:
		return fmt.Sprintf("<?rvalue:%T>", rv)
	}
}

func binOpName(op BinOp) string {
	switch op {
	case OpEq:
		return "Eq"
	case OpNe:
		return "Ne"
	case OpLt:
		return "Lt"
	case OpLe:
		return "Le"
	case OpGt:
		return "Gt"
	case OpGe:
		return "Ge"
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpMul:
		return "Mul"
	}
	return string(op)
}

func typeString(t types.Type) string {
	if t == nil {
		return "()"
	}
	return t.String()
}
