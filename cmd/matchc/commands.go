package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/malphas-lang/matchc/internal/analysis"
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/mir"
)

func runLower(args []string) int {
	f := newFlags("lower")
	only := f.String("fn", "", "lower only this function")
	origins := f.Bool("origins", false, "annotate blocks with the lowering function that created them")

	s, ok := loadOrReport(args, f)
	if !ok {
		return 1
	}

	ctx := context.Background()

	for _, hf := range s.Program.Funcs {
		if *only != "" && hf.Name != *only {
			continue
		}

		fn, err := s.Lower(ctx, hf.Name)
		if err != nil {
			report(s, s.Filename, err)
			return 1
		}

		fmt.Print(fn.PrettyPrintWith(mir.PrettyOptions{Origins: *origins}))
		fmt.Println()
	}

	return 0
}

// runRun executes the cases of a case file and prints a summary.
func runRun(args []string) int {
	f := newFlags("run")
	verbose := f.Bool("list", false, "print passing cases too")

	s, ok := loadOrReport(args, f)
	if !ok {
		return 1
	}

	if len(s.Cases) == 0 {
		fmt.Printf("No cases in %s\n", s.Filename)
		return 0
	}

	fmt.Printf("Running %s...\n\n", s.Name)

	res, err := s.Run(context.Background())
	if err != nil {
		report(s, s.Filename, err)
		return 1
	}

	var passed, failed int

	for _, r := range res {
		if r.Passed() {
			passed++
			if *verbose {
				fmt.Printf("  PASS  %s\n", r.Case.Name)
			}
			continue
		}

		failed++
		fmt.Printf("  FAIL  %s\n        %s\n", r.Case.Name, r.Failure)
		if len(r.Calls) != 0 {
			fmt.Printf("        calls: %s\n", strings.Join(r.Calls, ", "))
		}
	}

	fmt.Printf("\n%d cases, %d passed, %d failed\n", len(res), passed, failed)

	if failed != 0 {
		return 1
	}

	return 0
}

// runCheck lowers every function and reports moves and uninitialized
// reads found along the checker view of the graph.
func runCheck(args []string) int {
	f := newFlags("check")

	s, ok := loadOrReport(args, f)
	if !ok {
		return 1
	}

	ctx := context.Background()
	out := diag.NewFormatter(os.Stderr)
	out.AddSource(s.Filename, s.Source)

	var found int

	for _, hf := range s.Program.Funcs {
		fn, err := s.Lower(ctx, hf.Name)
		if err != nil {
			report(s, s.Filename, err)
			return 1
		}

		for _, d := range analysis.CheckMoves(fn) {
			out.Format(d)
			found++
		}
	}

	if found != 0 {
		fmt.Fprintf(os.Stderr, "%d problems\n", found)
		return 1
	}

	return 0
}
