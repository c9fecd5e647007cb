package diag

import (
	"fmt"

	"github.com/nikandfor/loc"
)

// Bug is the panic payload of an internal invariant violation.
// Lowering never returns a partially correct CFG; it panics with a Bug.
type Bug struct {
	Diagnostic Diagnostic
	Stack      loc.PCs
}

func (b *Bug) Error() string {
	return "internal compiler error: " + b.Diagnostic.Error()
}

// Bugf panics with a Bug at an unknown span.
func Bugf(code Code, format string, args ...any) {
	panic(newBug(Span{}, code, format, args...))
}

// BugAt panics with a Bug pointing at span.
func BugAt(span Span, code Code, format string, args ...any) {
	panic(newBug(span, code, format, args...))
}

// Assert panics with a Bug when cond is false.
func Assert(cond bool, code Code, format string, args ...any) {
	if !cond {
		panic(newBug(Span{}, code, format, args...))
	}
}

func newBug(span Span, code Code, format string, args ...any) *Bug {
	return &Bug{
		Diagnostic: Diagnostic{
			Stage:    StageLowering,
			Severity: SeverityBug,
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			Span:     span,
		},
		Stack: loc.Callers(2, 4),
	}
}

// Recover converts a Bug panic into an error; other panics propagate.
// Use as `defer diag.Recover(&err)`.
func Recover(errp *error) {
	p := recover()
	if p == nil {
		return
	}
	if b, ok := p.(*Bug); ok {
		*errp = b
		return
	}
	panic(p)
}
