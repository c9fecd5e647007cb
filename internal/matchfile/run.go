package matchfile

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/interp"
	"github.com/malphas-lang/matchc/internal/matches"
	"github.com/malphas-lang/matchc/internal/mir"
)

const maxCallDepth = 256

// Result is the outcome of one case.
type Result struct {
	Case  *Case
	Got   interp.Value
	Err   error
	Calls []string

	// Failure is empty when the case passed.
	Failure string
}

func (r Result) Passed() bool { return r.Failure == "" }

// Lower lowers the program function called name. Results are cached.
func (s *Suite) Lower(ctx context.Context, name string) (*mir.Function, error) {
	if fn, ok := s.lowered[name]; ok {
		return fn, nil
	}

	f := s.Program.Func(name)
	if f == nil {
		return nil, errors.Wrap(interp.ErrUnknownFunc, "%s", name)
	}

	fn, err := matches.LowerFunction(ctx, f, s.Conf)
	if err != nil {
		return nil, err
	}

	s.lowered[name] = fn

	return fn, nil
}

// Hooks serves calls made by lowered code: host functions answer from
// the document and are logged to calls, program functions are lowered
// and run.
func (s *Suite) Hooks(ctx context.Context, calls *[]string) *interp.Hooks {
	h := &interp.Hooks{StepLimit: s.Conf.StepLimit}

	h.Call = func(name string, args []interp.Value) (interp.Value, error) {
		if hf, ok := s.host[name]; ok {
			if calls != nil {
				*calls = append(*calls, FormatCall(name, args))
			}

			if hf.returns != nil {
				return interp.Clone(hf.returns)
			}

			return args[0], nil
		}

		fn, err := s.Lower(ctx, name)
		if err != nil {
			return nil, err
		}

		if s.depth >= maxCallDepth {
			return nil, errors.New("call depth exceeded calling %s", name)
		}

		s.depth++
		defer func() { s.depth-- }()

		return interp.Run(fn, args, h)
	}

	return h
}

// Run runs every case.
func (s *Suite) Run(ctx context.Context) (res []Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run cases", "suite", s.Name, "cases", len(s.Cases))
	defer tr.Finish("err", &err)

	fn, err := s.Lower(ctx, s.Entry.Name)
	if err != nil {
		return nil, err
	}

	for _, c := range s.Cases {
		r := s.RunCase(ctx, fn, c)

		if tr.If("matchfile") {
			tr.Printw("case", "name", c.Name, "got", r.Got, "err", r.Err, "failure", r.Failure)
		}

		res = append(res, r)
	}

	return res, nil
}

// RunCase runs fn on a copy of the case arguments and compares the
// outcome with the expectation.
func (s *Suite) RunCase(ctx context.Context, fn *mir.Function, c *Case) (r Result) {
	r.Case = c

	args := make([]interp.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := interp.Clone(a)
		if err != nil {
			r.Err = err
			r.Failure = fmt.Sprintf("clone argument %d: %v", i, err)
			return r
		}

		args[i] = v
	}

	r.Got, r.Err = interp.Run(fn, args, s.Hooks(ctx, &r.Calls))

	switch {
	case c.Err != nil && r.Err == nil:
		r.Failure = fmt.Sprintf("got %v, want error %v", r.Got, c.Err)
	case c.Err != nil && !errors.Is(r.Err, c.Err):
		r.Failure = fmt.Sprintf("got error %v, want %v", r.Err, c.Err)
	case c.Err == nil && r.Err != nil:
		r.Failure = fmt.Sprintf("unexpected error: %v", r.Err)
	case c.Err == nil && !interp.Equal(r.Got, c.Want):
		r.Failure = fmt.Sprintf("got %v, want %v", r.Got, c.Want)
	case c.Calls != nil && !slices.Equal(normalizeCalls(c.Calls), r.Calls):
		r.Failure = fmt.Sprintf("calls %v, want %v", r.Calls, c.Calls)
	}

	return r
}

// FormatCall renders a host call the way case files spell it.
func FormatCall(name string, args []interp.Value) string {
	var b strings.Builder

	b.WriteString(name)
	b.WriteString("(")
	for i, a := range args {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(")")

	return b.String()
}

func normalizeCalls(calls []string) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = strings.Join(strings.Fields(c), " ")
	}
	return out
}
