package diag_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/malphas-lang/matchc/internal/diag"
)

func TestBugPanicsWithDiagnostic(t *testing.T) {
	defer func() {
		p := recover()
		b, ok := p.(*diag.Bug)
		if !ok {
			t.Fatalf("expected *diag.Bug panic, got %T", p)
		}
		if b.Diagnostic.Stage != diag.StageLowering {
			t.Fatalf("expected stage %q, got %q", diag.StageLowering, b.Diagnostic.Stage)
		}
		if b.Diagnostic.Severity != diag.SeverityBug {
			t.Fatalf("expected severity %q, got %q", diag.SeverityBug, b.Diagnostic.Severity)
		}
		if b.Diagnostic.Code != diag.CodeLowerNoProgress {
			t.Fatalf("expected code %q, got %q", diag.CodeLowerNoProgress, b.Diagnostic.Code)
		}
		if !strings.Contains(b.Error(), "candidate 3") {
			t.Fatalf("message lost: %v", b)
		}
		if len(b.Stack) == 0 {
			t.Fatalf("expected a creation stack")
		}
	}()

	diag.Bugf(diag.CodeLowerNoProgress, "no progress on candidate %d", 3)
}

func TestRecoverTurnsBugIntoError(t *testing.T) {
	run := func() (err error) {
		defer diag.Recover(&err)
		diag.Assert(false, diag.CodeLowerInvalidCFG, "bb%d has no terminator", 7)
		return nil
	}

	err := run()
	var b *diag.Bug
	if !errors.As(err, &b) {
		t.Fatalf("expected *diag.Bug error, got %v", err)
	}
	if b.Diagnostic.Code != diag.CodeLowerInvalidCFG {
		t.Fatalf("unexpected code %q", b.Diagnostic.Code)
	}
}

func TestFormatterRendersSnippet(t *testing.T) {
	var buf bytes.Buffer
	f := diag.NewFormatter(&buf)
	f.AddSource("m.match", "match v {\n    (true, x) if g(x) => x,\n}\n")

	d := diag.Errorf(diag.StageFlow, diag.CodeFlowUseOfMoved, diag.Span{Filename: "m.match", Line: 2, Column: 16, Start: 25, End: 29},
		"use of possibly moved value `%s`", "x").
		WithPrimarySpan(diag.Span{Filename: "m.match", Line: 2, Column: 16, Start: 25, End: 29}, "used here").
		WithNote("a previous arm may have moved it")

	f.Format(d)
	out := buf.String()
	for _, want := range []string{
		"error[FLOW_USE_OF_MOVED]: use of possibly moved value `x`",
		"--> m.match:2:16",
		"(true, x) if g(x) => x,",
		"^^^^ used here",
		"= note: a previous arm may have moved it",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
