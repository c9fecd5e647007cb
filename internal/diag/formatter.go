package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Formatter renders diagnostics with source snippets.
type Formatter struct {
	w           io.Writer
	sourceCache map[string]string // Cache of source text by filename
}

// NewFormatter creates a formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{
		w:           w,
		sourceCache: make(map[string]string),
	}
}

// AddSource registers in-memory source text for a filename.
func (f *Formatter) AddSource(filename, src string) {
	f.sourceCache[filename] = src
}

// LoadSource loads source code for a file (cached).
func (f *Formatter) LoadSource(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	if src, ok := f.sourceCache[filename]; ok {
		return src, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	src := string(data)
	f.sourceCache[filename] = src
	return src, nil
}

// Format writes one diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	spans := f.collectSpans(d)
	f.printHeader(d)

	byFile := make(map[string][]LabeledSpan)
	var files []string
	for _, span := range spans {
		name := span.Span.Filename
		if _, ok := byFile[name]; !ok {
			files = append(files, name)
		}
		byFile[name] = append(byFile[name], span)
	}

	for _, name := range files {
		src, err := f.LoadSource(name)
		if err != nil || src == "" {
			for _, s := range byFile[name] {
				fmt.Fprintf(f.w, "  --> %s\n", s.Span)
			}
			continue
		}
		f.printFileSpans(name, src, byFile[name])
	}

	f.printHelp(d)
}

// FormatBug writes a bug report including the creation stack.
func (f *Formatter) FormatBug(b *Bug) {
	f.Format(b.Diagnostic)
	for _, pc := range b.Stack {
		name, file, line := pc.NameFileLine()
		fmt.Fprintf(f.w, "  = at %s (%s:%d)\n", name, file, line)
	}
}

func (f *Formatter) collectSpans(d Diagnostic) []LabeledSpan {
	if len(d.LabeledSpans) > 0 {
		return d.LabeledSpans
	}
	if d.Span.IsValid() {
		return []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	return nil
}

func (f *Formatter) printHeader(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = "error"
	}
	if d.Code != "" {
		fmt.Fprintf(f.w, "%s[%s]: %s\n", severity, d.Code, d.Message)
	} else {
		fmt.Fprintf(f.w, "%s: %s\n", severity, d.Message)
	}
}

func (f *Formatter) printFileSpans(filename, src string, spans []LabeledSpan) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Span.Line != spans[j].Span.Line {
			return spans[i].Span.Line < spans[j].Span.Line
		}
		return spans[i].Span.Column < spans[j].Span.Column
	})

	lines := strings.Split(src, "\n")
	byLine := make(map[int][]LabeledSpan)
	for _, span := range spans {
		if l := span.Span.Line; l > 0 && l <= len(lines) {
			byLine[l] = append(byLine[l], span)
		}
	}
	if len(byLine) == 0 {
		return
	}

	first, last := spans[0].Span.Line, spans[len(spans)-1].Span.Line
	width := len(fmt.Sprint(last))
	pad := strings.Repeat(" ", width)

	if filename == "" {
		filename = "<input>"
	}
	fmt.Fprintf(f.w, "  --> %s:%d:%d\n", filename, first, spans[0].Span.Column)
	fmt.Fprintf(f.w, "   %s |\n", pad)
	for n := first; n <= last; n++ {
		lineSpans, ok := byLine[n]
		if !ok {
			continue
		}
		content := lines[n-1]
		fmt.Fprintf(f.w, " %*d | %s\n", width+2, n, content)
		f.printUnderlines(pad, content, lineSpans)
	}
	fmt.Fprintf(f.w, "   %s |\n", pad)
}

func (f *Formatter) printUnderlines(pad, content string, spans []LabeledSpan) {
	underline := []byte(strings.Repeat(" ", len(content)))
	var labels []string
	for _, span := range spans {
		mark := byte('~')
		if span.Style == "primary" {
			mark = '^'
		}
		start := max(0, span.Span.Column-1)
		end := min(len(underline), start+max(1, span.Span.End-span.Span.Start))
		for i := start; i < end; i++ {
			if underline[i] == ' ' || mark == '^' {
				underline[i] = mark
			}
		}
		if span.Label != "" {
			labels = append(labels, span.Label)
		}
	}
	fmt.Fprintf(f.w, "   %s | %s %s\n", pad, strings.TrimRight(string(underline), " "), strings.Join(labels, "; "))
}

func (f *Formatter) printHelp(d Diagnostic) {
	for _, note := range d.Notes {
		fmt.Fprintf(f.w, "  = note: %s\n", note)
	}
	if d.Help != "" {
		fmt.Fprintf(f.w, "help: %s\n", d.Help)
	}
}
