package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/malphas-lang/matchc/internal/config"
	"github.com/malphas-lang/matchc/internal/diag"
	"github.com/malphas-lang/matchc/internal/matchfile"
	"github.com/malphas-lang/matchc/internal/syntax"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: matchc <command> [options] <file>\n")
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  lower <file>    Print the MIR of every function\n")
		fmt.Fprintf(os.Stderr, "  run <file>      Run the cases of a case file\n")
		fmt.Fprintf(os.Stderr, "  check <file>    Report moves and uninitialized reads\n")
		fmt.Fprintf(os.Stderr, "  repl <file>     Call a function interactively\n")
		fmt.Fprintf(os.Stderr, "\nSource files end in .yaml (case files) or anything else (plain source).\n")
		fmt.Fprintf(os.Stderr, "Environment: MATCHC_LOG, MATCHC_VERIFY, MATCHC_STACK_SEGMENT, MATCHC_STEP_LIMIT, MATCHC_HISTORY.\n")
	}

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var code int

	switch command {
	case "lower":
		code = runLower(args)
	case "run":
		code = runRun(args)
	case "check":
		code = runCheck(args)
	case "repl":
		code = runRepl(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		code = 1
	}

	os.Exit(code)
}

// flags are shared by all commands.
type flags struct {
	*flag.FlagSet

	conf config.Config
}

func newFlags(name string) *flags {
	f := &flags{
		FlagSet: flag.NewFlagSet(name, flag.ContinueOnError),
		conf:    config.FromEnv(),
	}

	f.StringVar(&f.conf.Log, "v", f.conf.Log, "log topics, e.g. matches,orpat,bind")
	f.BoolVar(&f.conf.Verify, "verify", f.conf.Verify, "validate lowered MIR")
	f.IntVar(&f.conf.StackSegment, "stack-segment", f.conf.StackSegment, "recursion depth per goroutine stack while lowering")
	f.IntVar(&f.conf.StepLimit, "step-limit", f.conf.StepLimit, "maximum number of blocks the interpreter enters")
	f.StringVar(&f.conf.History, "history", f.conf.History, "repl history file")

	return f
}

// parse parses args and returns the single file argument.
func (f *flags) parse(args []string) (string, bool) {
	if err := f.Parse(args); err != nil {
		return "", false
	}

	if f.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: matchc %s [options] <file>\n", f.Name())
		f.PrintDefaults()
		return "", false
	}

	if f.conf.Log != "" {
		tlog.SetVerbosity(f.conf.Log)
	}

	return f.Arg(0), true
}

// load reads a case file or a plain source file. Plain sources become a
// suite without cases whose entry is the first function.
func load(name string, conf config.Config) (*matchfile.Suite, error) {
	var s *matchfile.Suite
	var err error

	if isCaseFile(name) {
		s, err = matchfile.LoadFile(name)
	} else {
		var src []byte

		src, err = os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrap(err, "read")
		}

		doc := &matchfile.Document{Source: string(src)}
		s, err = doc.Load(name)
	}
	if err != nil {
		return nil, err
	}

	s.Conf = conf

	return s, nil
}

// report prints err, rendering diagnostics against the suite source.
func report(s *matchfile.Suite, name string, err error) {
	f := diag.NewFormatter(os.Stderr)

	switch {
	case s != nil:
		f.AddSource(s.Filename, s.Source)
	case isCaseFile(name):
		// Spans point into the expanded program, not the yaml text.
		f.AddSource(name, "")
	}

	var bug *diag.Bug
	var errs syntax.Errors

	switch {
	case errors.As(err, &bug):
		f.FormatBug(bug)
	case errors.As(err, &errs):
		for _, d := range errs {
			f.Format(d)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func loadOrReport(args []string, f *flags) (*matchfile.Suite, bool) {
	name, ok := f.parse(args)
	if !ok {
		return nil, false
	}

	s, err := load(name, f.conf)
	if err != nil {
		report(nil, name, err)
		return nil, false
	}

	return s, true
}

func isCaseFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
