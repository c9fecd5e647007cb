package matchfile

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/malphas-lang/matchc/internal/interp"
)

func TestTestdata(t *testing.T) {
	files, err := filepath.Glob("testdata/*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no testdata")
	}

	for _, name := range files {
		t.Run(filepath.Base(name), func(t *testing.T) {
			s, err := LoadFile(name)
			if err != nil {
				t.Fatalf("load: %v", err)
			}

			res, err := s.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			if len(res) != len(s.Cases) {
				t.Fatalf("got %d results for %d cases", len(res), len(s.Cases))
			}

			for _, r := range res {
				if !r.Passed() {
					t.Errorf("%s: %s", r.Case.Name, r.Failure)
				}
			}
		})
	}
}

func TestStructFieldOrder(t *testing.T) {
	s, err := Load("order", []byte(`
types:
  Pair: {b: bool, a: int}
source: |
  fn f(p: Pair) -> int {
      match p {
          Pair { b: true, a } => a,
          _ => 0,
      }
  }
cases:
  - args: ["Pair { a: 3, b: true }"]
    want: "3"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := s.Source; !strings.HasPrefix(got, "struct Pair { b: bool, a: int }\n") {
		t.Fatalf("source:\n%s", got)
	}

	v := s.Cases[0].Args[0].(*interp.Agg)
	if v.Elems[0].V != interp.Bool(true) || v.Elems[1].V != interp.Int(3) {
		t.Fatalf("fields laid out as %v", v)
	}
}

func TestWrongErrorFails(t *testing.T) {
	s, err := Load("err", []byte(`
types:
  Option: [None, Some(int)]
source: |
  fn f(o: Option) -> int {
      loop_forever(o)
  }

  fn loop_forever(o: Option) -> int {
      loop_forever(o)
  }
cases:
  - args: [None]
    error: unreachable
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res[0].Passed() {
		t.Fatalf("expected a mismatch, got %v", res[0].Got)
	}
	if errors.Is(res[0].Err, interp.ErrUnreachable) {
		t.Fatalf("unexpected unreachable: %v", res[0].Err)
	}
}

func TestHostReturns(t *testing.T) {
	s, err := Load("host", []byte(`
host:
  ready: {sig: "(n: int) -> bool", returns: "false"}
source: |
  fn f(n: int) -> int {
      match n {
          0 => 0,
          k if ready(k) => 1,
          _ => 2,
      }
  }
cases:
  - args: ["5"]
    want: "2"
    calls: ["ready(5)"]
  - args: ["0"]
    want: "0"
    calls: []
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, r := range res {
		if !r.Passed() {
			t.Errorf("%s: %s", r.Case.Name, r.Failure)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name, doc, want string
	}{
		{"types not a mapping", "types: [a, b]\n", "want a mapping"},
		{"bad type", "types:\n  A: 3\n", "want a variant list"},
		{"no entry", "source: \"\"\n", "no entry function"},
		{"arity", "source: |\n  fn f(x: int) -> int { x }\ncases:\n  - args: []\n    want: \"1\"\n", "takes 1 arguments"},
		{"want and error", "source: |\n  fn f(x: int) -> int { x }\ncases:\n  - args: [\"1\"]\n    want: \"1\"\n    error: moved\n", "both want and error"},
		{"unknown error", "source: |\n  fn f(x: int) -> int { x }\ncases:\n  - args: [\"1\"]\n    error: boom\n", "unknown error"},
		{"host without returns", "host:\n  h: {sig: \"(x: int) -> bool\"}\nsource: |\n  fn f(x: int) -> int { x }\n", "returns is required"},
		{"bad arg", "source: |\n  fn f(x: int) -> int { x }\ncases:\n  - args: [\"true\"]\n    want: \"1\"\n", "arg 0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.name, []byte(tc.doc))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestFormatCall(t *testing.T) {
	got := FormatCall("f", []interp.Value{interp.Int(1), interp.Str("a"), interp.Bool(true)})
	if got != `f(1, "a", true)` {
		t.Fatalf("got %s", got)
	}
}
