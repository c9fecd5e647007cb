package diag

import "fmt"

// Stage identifies which phase produced the diagnostic.
type Stage string

const (
	StageLexer    Stage = "lexer"
	StageParser   Stage = "parser"
	StageResolve  Stage = "resolve"
	StageLowering Stage = "match-lowering"
	StageFlow     Stage = "flowcheck"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
	// SeverityBug marks an internal invariant violation.
	SeverityBug Severity = "bug"
)

// LabeledSpan represents a span with an optional label.
type LabeledSpan struct {
	Span  Span
	Label string
	Style string // "primary" or "secondary"
}

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer and parser errors
	CodeLexerUnterminatedString Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerIllegalRune        Code = "LEXER_ILLEGAL_RUNE"
	CodeParseUnexpectedToken    Code = "PARSE_UNEXPECTED_TOKEN"

	// Resolver errors
	CodeResolveUnknownName    Code = "RESOLVE_UNKNOWN_NAME"
	CodeResolveUnknownType    Code = "RESOLVE_UNKNOWN_TYPE"
	CodeResolveTypeMismatch   Code = "RESOLVE_TYPE_MISMATCH"
	CodeResolveInvalidPattern Code = "RESOLVE_INVALID_PATTERN"
	CodeResolveOrBindings     Code = "RESOLVE_OR_PATTERN_BINDINGS"

	// Match lowering invariant violations
	CodeLowerNoProgress      Code = "LOWER_NO_PROGRESS"
	CodeLowerBlockReused     Code = "LOWER_BLOCK_REUSED"
	CodeLowerSimplifiable    Code = "LOWER_SIMPLIFIABLE_PAIR"
	CodeLowerOrBindings      Code = "LOWER_OR_BINDINGS"
	CodeLowerTerminated      Code = "LOWER_ALREADY_TERMINATED"
	CodeLowerUnknownVariable Code = "LOWER_UNKNOWN_VARIABLE"
	CodeLowerInvalidCFG      Code = "LOWER_INVALID_CFG"
	CodeLowerUnsupported     Code = "LOWER_UNSUPPORTED"

	// Flow check findings
	CodeFlowUseOfMoved  Code = "FLOW_USE_OF_MOVED"
	CodeFlowUseOfUninit Code = "FLOW_USE_OF_UNINIT"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Merge returns the smallest span covering both a and b.
func Merge(a, b Span) Span {
	if !a.IsValid() {
		return b
	}
	if !b.IsValid() {
		return a
	}
	out := a
	if b.End > out.End {
		out.End = b.End
	}
	return out
}

// Diagnostic is a finding surfaced to end-users.
type Diagnostic struct {
	Stage        Stage
	Severity     Severity
	Code         Code
	Message      string
	Span         Span
	LabeledSpans []LabeledSpan
	Notes        []string
	Help         string
}

// Error implements the error interface so diagnostics can travel as errors.
func (d Diagnostic) Error() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s: %s[%s]: %s", d.Span, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
}

// WithLabeledSpan adds a labeled span to the diagnostic.
func (d Diagnostic) WithLabeledSpan(span Span, label string, style string) Diagnostic {
	if style == "" {
		style = "primary"
	}
	d.LabeledSpans = append(d.LabeledSpans, LabeledSpan{
		Span:  span,
		Label: label,
		Style: style,
	})
	return d
}

// WithPrimarySpan adds a primary labeled span.
func (d Diagnostic) WithPrimarySpan(span Span, label string) Diagnostic {
	return d.WithLabeledSpan(span, label, "primary")
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithHelp adds help text to the diagnostic.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// Errorf builds an error-severity diagnostic.
func Errorf(stage Stage, code Code, span Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Stage:    stage,
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	}
}
