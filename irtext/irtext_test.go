package irtext

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eaburns/tigerc/ir"
	"github.com/google/go-cmp/cmp"
)

func TestRoundTrip(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "testdata", "*.ir"))
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(paths) == 0 {
		t.Fatal("no test files")
	}
	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			p, err := ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read: %s", err)
			}
			var s strings.Builder
			if err := Write(&s, p); err != nil {
				t.Fatalf("failed to write: %s", err)
			}
			q, err := ReadString(path, s.String())
			if err != nil {
				t.Fatalf("failed to re-read: %s\n%s", err, s.String())
			}
			if diff := cmp.Diff(p.String(), q.String()); diff != "" {
				t.Errorf("round trip diff (-first,+second)\n%s", diff)
			}
		})
	}
}

func TestRead(t *testing.T) {
	const src = `# comment
#start_function
int f(int n, int[4] a):
int-list: n, x, buf[3]
float-list: g
    assign, x, -1
top:
    array_load, x, a, 2
    brlt, top, x, n
    callr, x, geti
    call, puti, x
    return, x, ,
#end_function
`
	p, err := ReadString("test.ir", src)
	if err != nil {
		t.Fatalf("failed to read: %s", err)
	}
	if len(p.Funcs) != 1 {
		t.Fatalf("got %d functions, want 1", len(p.Funcs))
	}
	f := p.Funcs[0]
	n := ir.Variable{Name: "n", Type: ir.Int}
	a := ir.Variable{Name: "a", Type: &ir.ArrayType{Elem: ir.Int, Size: 4}}
	x := ir.Variable{Name: "x", Type: ir.Int}
	want := &ir.Function{
		Name:       "f",
		ReturnType: ir.Int,
		Params:     []ir.Variable{n, a},
		Locals: []ir.Variable{
			n,
			x,
			{Name: "buf", Type: &ir.ArrayType{Elem: ir.Int, Size: 3}},
			{Name: "g", Type: ir.Float},
		},
		Instrs: []ir.Instruction{
			{Op: ir.OpAssign, Args: []ir.Operand{x, ir.Constant{Type: ir.Int, Text: "-1"}}, Line: 6},
			{Op: ir.OpLabel, Args: []ir.Operand{ir.Label{Name: "top"}}, Line: 7},
			{Op: ir.OpArrayLoad, Args: []ir.Operand{x, a, ir.Constant{Type: ir.Int, Text: "2"}}, Line: 8},
			{Op: ir.OpBrlt, Args: []ir.Operand{ir.Label{Name: "top"}, x, n}, Line: 9},
			{Op: ir.OpCallr, Args: []ir.Operand{x, ir.FuncName{Name: "geti"}}, Line: 10},
			{Op: ir.OpCall, Args: []ir.Operand{ir.FuncName{Name: "puti"}, x}, Line: 11},
			{Op: ir.OpReturn, Args: []ir.Operand{x}, Line: 12},
		},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("Read diff (-want,+got)\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		// syntax is whether a *SyntaxError is expected;
		// otherwise err is the expected error text.
		syntax bool
		err    string
	}{
		{
			name:   "missing start",
			src:    "int f():\n",
			syntax: true,
		},
		{
			name:   "bad header",
			src:    "#start_function\nint f(:\n",
			syntax: true,
		},
		{
			name:   "bad opcode",
			src:    "#start_function\nvoid f():\nint-list:\nfloat-list:\n    nop, x\n#end_function\n",
			syntax: true,
		},
		{
			name:   "missing end",
			src:    "#start_function\nvoid f():\nint-list:\nfloat-list:\n    return\n",
			syntax: true,
		},
		{
			name: "undeclared variable",
			src:  "#start_function\nvoid f():\nint-list: x\nfloat-list:\n    assign, y, 1\n#end_function\n",
			err:  "test.ir:5: undeclared variable y",
		},
		{
			name: "redeclared variable",
			src:  "#start_function\nvoid f():\nint-list: x, x\nfloat-list:\n#end_function\n",
			err:  "test.ir:3: variable x redeclared",
		},
		{
			name: "parameter type mismatch",
			src:  "#start_function\nvoid f(int x):\nint-list:\nfloat-list: x\n#end_function\n",
			err:  "test.ir:4: x declared float, parameter is int",
		},
		{
			name: "redefined function",
			src: "#start_function\nvoid f():\nint-list:\nfloat-list:\n#end_function\n" +
				"#start_function\nvoid f():\nint-list:\nfloat-list:\n#end_function\n",
			err: "test.ir:6: function f redefined",
		},
		{
			name: "check",
			src:  "#start_function\nvoid f():\nint-list: x\nfloat-list:\n    add, x, 1\n#end_function\n",
			err:  "test.ir: f:5: add: got 2 operands, want 3",
		},
		{
			name: "undefined label",
			src:  "#start_function\nvoid f():\nint-list:\nfloat-list:\n    goto, nowhere\n#end_function\n",
			err:  "test.ir: f:5: goto: label nowhere not defined",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadString("test.ir", test.src)
			if err == nil {
				t.Fatalf("expected an error")
			}
			var serr *SyntaxError
			if test.syntax {
				if !errors.As(err, &serr) {
					t.Fatalf("got %T (%s), want *SyntaxError", err, err)
				}
				if serr.Tree() == nil {
					t.Errorf("nil failure tree")
				}
				return
			}
			if errors.As(err, &serr) {
				t.Fatalf("got unexpected syntax error %s", err)
			}
			if err.Error() != test.err {
				t.Errorf("got %q, want %q", err.Error(), test.err)
			}
		})
	}
}
