package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/peterh/liner"

	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/interp"
	"github.com/malphas-lang/matchc/internal/matchfile"
	"github.com/malphas-lang/matchc/internal/syntax"
	"github.com/malphas-lang/matchc/internal/types"
)

const replHelp = `Enter arguments to call the current function: a single value, or
a tuple (a, b) for functions taking several.

Commands:
  :fn NAME     switch the current function
  :pat PAT     also match the first argument against PAT; ':pat' clears
  :mir         print the MIR of the current function
  :help        show this text
  :quit        exit
`

type repl struct {
	s   *matchfile.Suite
	ctx context.Context

	fn  *hir.Func
	pat *hir.Pat
}

func runRepl(args []string) int {
	f := newFlags("repl")

	s, ok := loadOrReport(args, f)
	if !ok {
		return 1
	}

	r := &repl{s: s, ctx: context.Background(), fn: s.Entry}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if hf, err := os.Open(f.conf.History); err == nil {
		_, _ = ln.ReadHistory(hf)
		_ = hf.Close()
	}

	defer func() {
		if hf, err := os.Create(f.conf.History); err == nil {
			_, _ = ln.WriteHistory(hf)
			_ = hf.Close()
		}
	}()

	fmt.Printf("matchc repl: %s. Type :help for help.\n", s.Name)

	for {
		line, err := ln.Prompt(r.fn.Name + "> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		ln.AppendHistory(line)

		if line == ":quit" {
			return 0
		}

		if err := r.eval(line); err != nil {
			report(s, s.Filename, err)
		}
	}
}

func (r *repl) eval(line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help":
		fmt.Print(replHelp)
		return nil
	case ":fn":
		f := r.s.Program.Func(arg)
		if f == nil {
			return errors.New("no function %q", arg)
		}
		r.fn, r.pat = f, nil
		return nil
	case ":pat":
		if arg == "" {
			r.pat = nil
			return nil
		}
		if len(r.fn.Params) == 0 {
			return errors.New("%s takes no arguments", r.fn.Name)
		}
		pat, err := syntax.ParsePattern(r.s.Program.Env, r.fn.Params[0].Type, arg)
		if err != nil {
			return err
		}
		r.pat = pat
		return nil
	case ":mir":
		fn, err := r.s.Lower(r.ctx, r.fn.Name)
		if err != nil {
			return err
		}
		fmt.Print(fn.PrettyPrint())
		return nil
	}

	if strings.HasPrefix(cmd, ":") {
		return errors.New("unknown command %s", cmd)
	}

	return r.call(line)
}

func (r *repl) call(src string) error {
	args, err := r.args(src)
	if err != nil {
		return err
	}

	if r.pat != nil {
		r.printMatch(args[0])
	}

	fn, err := r.s.Lower(r.ctx, r.fn.Name)
	if err != nil {
		return err
	}

	var calls []string

	res, err := interp.Run(fn, args, r.s.Hooks(r.ctx, &calls))
	for _, c := range calls {
		fmt.Printf("  %s\n", c)
	}
	if err != nil {
		return err
	}

	fmt.Println(res)

	return nil
}

// args parses src as the argument list of the current function.
func (r *repl) args(src string) ([]interp.Value, error) {
	ps := r.fn.Params
	env := r.s.Program.Env

	if len(ps) == 1 {
		v, err := value(env, ps[0].Type, src)
		if err != nil {
			return nil, err
		}
		return []interp.Value{v}, nil
	}

	if len(ps) == 0 {
		if src != "()" {
			return nil, errors.New("%s takes no arguments, call it with ()", r.fn.Name)
		}
		return nil, nil
	}

	tup := &types.Tuple{}
	for _, p := range ps {
		tup.Elems = append(tup.Elems, p.Type)
	}

	v, err := value(env, tup, src)
	if err != nil {
		return nil, err
	}

	agg := v.(*interp.Agg)
	out := make([]interp.Value, len(agg.Elems))
	for i, c := range agg.Elems {
		out[i] = c.V
	}

	return out, nil
}

func (r *repl) printMatch(v interp.Value) {
	bs, ok := interp.MatchArm(r.pat, v)
	if !ok {
		fmt.Println("  pattern: no match")
		return
	}

	names := map[hir.VarID]string{}
	r.pat.Walk(func(p *hir.Pat) bool {
		if b, ok := p.Kind.(*hir.PatBinding); ok {
			names[b.Var] = b.Name
		}
		return true
	})

	var parts []string
	for id, v := range bs {
		parts = append(parts, fmt.Sprintf("%s = %v", names[id], v))
	}
	sort.Strings(parts)

	fmt.Printf("  pattern: match {%s}\n", strings.Join(parts, ", "))
}

func value(env *syntax.Env, ty types.Type, src string) (interp.Value, error) {
	x, err := syntax.ParseExpr(env, ty, src)
	if err != nil {
		return nil, err
	}

	return interp.Eval(x)
}
