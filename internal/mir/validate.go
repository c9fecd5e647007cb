package mir

import (
	"fmt"
)

// Validate checks a function's CFG for structural correctness and returns a
// list of error messages. An empty slice indicates the function is valid.
func Validate(f *Function) []string {
	var errors []string

	if f.Entry == nil {
		errors = append(errors, fmt.Sprintf("function %s has no entry block", f.Name))
	}

	owned := make(map[*BasicBlock]bool, len(f.Blocks))
	for i, bb := range f.Blocks {
		owned[bb] = true
		if bb.ID != i {
			errors = append(errors, fmt.Sprintf("%s: id %d at index %d", bb.Label, bb.ID, i))
		}
	}

	for _, bb := range f.Blocks {
		if bb.Terminator == nil {
			errors = append(errors, fmt.Sprintf("%s has no terminator", bb.Label))
			continue
		}
		for _, succ := range Successors(bb.Terminator) {
			if succ == nil {
				errors = append(errors, fmt.Sprintf("%s has a nil successor", bb.Label))
			} else if !owned[succ] {
				errors = append(errors, fmt.Sprintf("%s jumps to foreign block %s", bb.Label, succ.Label))
			}
		}
		if s, ok := bb.Terminator.(*SwitchInt); ok && len(s.Values) != len(s.Targets) {
			errors = append(errors, fmt.Sprintf("%s: switch has %d values and %d targets", bb.Label, len(s.Values), len(s.Targets)))
		}
		if fe, ok := bb.Terminator.(*FalseEdge); ok && fe.Real == fe.Imaginary {
			errors = append(errors, fmt.Sprintf("%s: false edge with identical targets", bb.Label))
		}
		for i, stmt := range bb.Statements {
			for _, l := range stmtLocals(stmt) {
				if int(l) < 0 || int(l) >= len(f.Locals) {
					errors = append(errors, fmt.Sprintf("%s[%d]: unknown local _%d", bb.Label, i, l))
				}
			}
		}
	}

	return errors
}

func stmtLocals(stmt Statement) []Local {
	switch s := stmt.(type) {
	case *Assign:
		return append([]Local{s.Place.Local}, rvalueLocals(s.Rvalue)...)
	case *Call:
		out := []Local{s.Dest.Local}
		for _, a := range s.Args {
			out = append(out, operandLocals(a)...)
		}
		return out
	case *FakeRead:
		return []Local{s.Place.Local}
	case *PlaceMention:
		return []Local{s.Place.Local}
	case *StorageLive:
		return []Local{s.Local}
	case *StorageDead:
		return []Local{s.Local}
	case *Drop:
		return []Local{s.Place.Local}
	case *AscribeUserType:
		return []Local{s.Place.Local}
	}
	return nil
}

func rvalueLocals(rv Rvalue) []Local {
	switch r := rv.(type) {
	case *Use:
		return operandLocals(r.Operand)
	case *Ref:
		return []Local{r.Place.Local}
	case *Discriminant:
		return []Local{r.Place.Local}
	case *Len:
		return []Local{r.Place.Local}
	case *BinaryOp:
		return append(operandLocals(r.Left), operandLocals(r.Right)...)
	case *Not:
		return operandLocals(r.Operand)
	case *Aggregate:
		var out []Local
		for _, f := range r.Fields {
			out = append(out, operandLocals(f)...)
		}
		return out
	}
	return nil
}

func operandLocals(op Operand) []Local {
	switch o := op.(type) {
	case *Copy:
		return []Local{o.Place.Local}
	case *Move:
		return []Local{o.Place.Local}
	}
	return nil
}
