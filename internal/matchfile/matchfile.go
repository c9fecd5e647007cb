// Package matchfile loads case documents: a small program together with
// the runtime cases its entry function is checked against.
//
//	name: guarded or-pattern
//	types:
//	  Option: [None, Some(int)]
//	  Point: {x: int, y: int}
//	host:
//	  trace: {sig: "(x: int) -> int"}
//	source: |
//	  fn f(p: (int, int)) -> int {
//	      match p { (x, _) | (_, x) if trace(x) > 5 => x, _ => 0 }
//	  }
//	cases:
//	  - args: ["(1, 7)"]
//	    want: "7"
//	    calls: ["trace(1)", "trace(7)"]
//
// Struct fields are declared in document order, so types are decoded
// from the yaml node tree rather than into a Go map.
package matchfile

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/nikandfor/errors"
	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/matchc/internal/config"
	"github.com/malphas-lang/matchc/internal/hir"
	"github.com/malphas-lang/matchc/internal/interp"
	"github.com/malphas-lang/matchc/internal/mir"
	"github.com/malphas-lang/matchc/internal/syntax"
	"github.com/malphas-lang/matchc/internal/types"
)

type (
	// Document is the yaml form of a case file.
	Document struct {
		Name   string              `yaml:"name"`
		Types  TypeDecls           `yaml:"types"`
		Host   map[string]HostDecl `yaml:"host"`
		Source string              `yaml:"source"`
		Entry  string              `yaml:"entry"`
		Cases  []CaseDoc           `yaml:"cases"`
	}

	// TypeDecls keeps declaration order.
	TypeDecls []TypeDecl

	// TypeDecl is an enum when Struct is false.
	TypeDecl struct {
		Name     string
		Struct   bool
		Variants []string
		Fields   [][2]string
		Line     int
	}

	// HostDecl declares a function served by the runner. Without Returns
	// it returns its first argument.
	HostDecl struct {
		Sig     string `yaml:"sig"`
		Returns string `yaml:"returns"`
	}

	CaseDoc struct {
		Name  string   `yaml:"name"`
		Args  []string `yaml:"args"`
		Want  string   `yaml:"want"`
		Error string   `yaml:"error"`
		Calls []string `yaml:"calls"`
	}
)

type (
	// Suite is a loaded and resolved document.
	Suite struct {
		Name     string
		Filename string
		// Source is the program text the document expands to.
		Source  string
		Program *syntax.Program
		Entry   *hir.Func
		Cases   []*Case

		// Conf is used when lowering program functions.
		Conf config.Config

		host    map[string]*hostFunc
		lowered map[string]*mir.Function
		depth   int
	}

	// Case is one run of the entry function.
	Case struct {
		Name string
		Args []interp.Value
		// Want is nil when an error is expected.
		Want interp.Value
		Err  error
		// Calls is the expected host call log; nil means not checked.
		Calls []string
	}

	hostFunc struct {
		sig     *syntax.FuncSig
		returns interp.Value
	}
)

var errorNames = map[string]error{
	"unreachable": interp.ErrUnreachable,
	"moved":       interp.ErrMovedValue,
	"uninit":      interp.ErrUninit,
	"step-limit":  interp.ErrStepLimit,
}

func (ds *TypeDecls) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return errors.New("line %d: types: want a mapping", n.Line)
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		d := TypeDecl{Name: k.Value, Line: k.Line}

		switch v.Kind {
		case yaml.SequenceNode:
			if err := v.Decode(&d.Variants); err != nil {
				return errors.Wrap(err, "type %s", d.Name)
			}
		case yaml.MappingNode:
			d.Struct = true

			for j := 0; j+1 < len(v.Content); j += 2 {
				f, t := v.Content[j], v.Content[j+1]
				if t.Kind != yaml.ScalarNode {
					return errors.New("line %d: field %s.%s: want a type name", t.Line, d.Name, f.Value)
				}

				d.Fields = append(d.Fields, [2]string{f.Value, t.Value})
			}
		default:
			return errors.New("line %d: type %s: want a variant list or a field mapping", v.Line, d.Name)
		}

		*ds = append(*ds, d)
	}

	return nil
}

// Decl renders the declaration in source form.
func (d TypeDecl) Decl() string {
	var b strings.Builder

	if d.Struct {
		fmt.Fprintf(&b, "struct %s {", d.Name)
		for i, f := range d.Fields {
			if i != 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %s: %s", f[0], f[1])
		}
	} else {
		fmt.Fprintf(&b, "enum %s {", d.Name)
		for i, v := range d.Variants {
			if i != 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %s", v)
		}
	}

	b.WriteString(" }")

	return b.String()
}

// LoadFile reads and loads a case file.
func LoadFile(name string) (*Suite, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}

	return Load(name, data)
}

// Load parses a case document and resolves its program and cases.
func Load(filename string, data []byte) (*Suite, error) {
	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "%s", filename)
	}

	return doc.Load(filename)
}

// Load resolves the document.
func (doc *Document) Load(filename string) (s *Suite, err error) {
	s = &Suite{
		Name:     doc.Name,
		Filename: filename,
		Source:   doc.program(),
		Conf:     config.Default(),
		host:     map[string]*hostFunc{},
		lowered:  map[string]*mir.Function{},
	}

	if s.Name == "" {
		s.Name = filename
	}

	s.Program, err = syntax.Load(filename, s.Source)
	if err != nil {
		return nil, err
	}

	env := s.Program.Env

	for name, h := range doc.Host {
		sig := env.Funcs[name]
		hf := &hostFunc{sig: sig}

		switch {
		case h.Returns != "":
			hf.returns, err = value(env, sig.Ret, h.Returns)
			if err != nil {
				return nil, errors.Wrap(err, "host %s: returns", name)
			}
		case len(sig.Params) == 0 || !types.Equal(sig.Params[0], sig.Ret):
			return nil, errors.New("host %s: returns is required unless the result is the first argument", name)
		}

		s.host[name] = hf
	}

	switch {
	case doc.Entry != "":
		s.Entry = s.Program.Func(doc.Entry)
	case len(s.Program.Funcs) != 0:
		s.Entry = s.Program.Funcs[0]
	}

	if s.Entry == nil {
		return nil, errors.New("%s: no entry function %q", filename, doc.Entry)
	}

	for i, cd := range doc.Cases {
		c, err := s.loadCase(cd)
		if err != nil {
			return nil, errors.Wrap(err, "case %d", i)
		}

		if c.Name == "" {
			c.Name = fmt.Sprintf("%s/%d", s.Entry.Name, i)
		}

		s.Cases = append(s.Cases, c)
	}

	return s, nil
}

func (doc *Document) program() string {
	var b strings.Builder

	for _, d := range doc.Types {
		b.WriteString(d.Decl())
		b.WriteString("\n")
	}

	names := make([]string, 0, len(doc.Host))
	for name := range doc.Host {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		fmt.Fprintf(&b, "fn %s%s;\n", name, doc.Host[name].Sig)
	}

	b.WriteString(doc.Source)

	return b.String()
}

func (s *Suite) loadCase(cd CaseDoc) (c *Case, err error) {
	f := s.Entry
	env := s.Program.Env

	if len(cd.Args) != len(f.Params) {
		return nil, errors.New("%s takes %d arguments, got %d", f.Name, len(f.Params), len(cd.Args))
	}

	c = &Case{Name: cd.Name, Calls: cd.Calls}

	for i, a := range cd.Args {
		v, err := value(env, f.Params[i].Type, a)
		if err != nil {
			return nil, errors.Wrap(err, "arg %d", i)
		}

		c.Args = append(c.Args, v)
	}

	switch {
	case cd.Error != "" && cd.Want != "":
		return nil, errors.New("both want and error are set")
	case cd.Error != "":
		c.Err = errorNames[cd.Error]
		if c.Err == nil {
			return nil, errors.New("unknown error %q", cd.Error)
		}
	case cd.Want != "":
		c.Want, err = value(env, f.Ret, cd.Want)
		if err != nil {
			return nil, errors.Wrap(err, "want")
		}
	default:
		return nil, errors.New("neither want nor error is set")
	}

	return c, nil
}

func value(env *syntax.Env, ty types.Type, src string) (interp.Value, error) {
	x, err := syntax.ParseExpr(env, ty, src)
	if err != nil {
		return nil, err
	}

	return interp.Eval(x)
}
