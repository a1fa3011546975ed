package flowgraph

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eaburns/tigerc/ir"
	"github.com/eaburns/tigerc/irtext"
	"github.com/google/go-cmp/cmp"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "straight line",
			body: `
				assign, x, 1
				add, x, x, 2
				return, x`,
			want: []string{"0 [0, 2] in=[] out=[]"},
		},
		{
			name: "if else",
			body: `
				assign, x, 1
				brgt, else, x, 0
				assign, y, 1
				goto, end
			else:
				assign, y, 2
			end:
				return, y`,
			want: []string{
				"0 [0, 1] in=[] out=[2 1]",
				"1 [2, 3] in=[0] out=[3]",
				"2 [4, 5] in=[0] out=[3]",
				"3 [6, 7] in=[1 2] out=[]",
			},
		},
		{
			name: "self loop",
			body: `
			top:
				add, x, x, 1
				brlt, top, x, 10
				return, x`,
			want: []string{
				"0 [0, 2] in=[0] out=[0 1]",
				"1 [3, 3] in=[0] out=[]",
			},
		},
		{
			name: "taken and fallthrough to the same block",
			body: `
				brlt, next, x, 1
			next:
				return, x`,
			want: []string{
				"0 [0, 0] in=[] out=[1]",
				"1 [1, 2] in=[0] out=[]",
			},
		},
		{
			name: "unreachable after goto",
			body: `
				goto, end
				assign, x, 1
			end:
				return, x`,
			want: []string{
				"0 [0, 0] in=[] out=[2]",
				"1 [1, 1] in=[] out=[2]",
				"2 [2, 3] in=[0 1] out=[]",
			},
		},
		{
			name: "branch at end of function",
			body: `
			top:
				add, x, x, 1
				brlt, top, x, 10`,
			want: []string{"0 [0, 2] in=[0] out=[0]"},
		},
		{
			name: "empty",
			body: ``,
			want: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := readFunc(t, "void f()", "x, y", test.body)
			g, err := Build(f)
			if err != nil {
				t.Fatalf("Build failed: %s", err)
			}
			checkCFG(t, g)
			if diff := cmp.Diff(test.want, edges(g)); diff != "" {
				t.Errorf("Build diff (-want,+got)\n%s\n%s", diff, g)
			}
		})
	}
}

func TestBuildError(t *testing.T) {
	f := &ir.Function{
		Name: "f",
		Instrs: []ir.Instruction{
			{Op: ir.OpGoto, Args: []ir.Operand{ir.Label{Name: "nowhere"}}, Line: 3},
		},
	}
	_, err := Build(f)
	if err == nil || err.Error() != "f:3: goto: label nowhere not defined" {
		t.Errorf("got error %v", err)
	}
}

// Every instruction of every test program is in exactly one block.
func TestBuildPartition(t *testing.T) {
	for _, f := range testdataFuncs(t) {
		t.Run(f.Name, func(t *testing.T) {
			g, err := Build(f)
			if err != nil {
				t.Fatalf("Build failed: %s", err)
			}
			checkCFG(t, g)
		})
	}
}

func TestUpwardExposed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "read before write",
			body: `
				add, x, a, b
				mult, a, x, 2
				return, a`,
			want: []string{"a", "b"},
		},
		{
			name: "element store does not define the array",
			body: `
				array_store, v, arr, i
				array_load, x, arr, i
				return, x`,
			want: []string{"v", "i", "arr"},
		},
		{
			name: "defined first",
			body: `
				assign, a, 1
				add, a, a, a
				return, a`,
			want: nil,
		},
		{
			name: "call arguments",
			body: `
				callr, x, f, a, x
				return, x`,
			want: []string{"a", "x"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := readFunc(t, "int f()", "a, b, i, v, x, arr[4]", test.body)
			g, err := Build(f)
			if err != nil {
				t.Fatalf("Build failed: %s", err)
			}
			var got []string
			for _, v := range UpwardExposed(g.Blocks[0]) {
				got = append(got, v.Name)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("UpwardExposed diff (-want,+got)\n%s", diff)
			}
			if len(g.Blocks[0].UEVar) != len(got) {
				t.Errorf("UEVar not recorded")
			}
		})
	}
}

func readFunc(t *testing.T, sig, ints, body string) *ir.Function {
	t.Helper()
	src := "#start_function\n" + sig + ":\nint-list: " + ints + "\nfloat-list:\n" +
		body + "\n#end_function\n"
	p, err := irtext.ReadString(t.Name(), src)
	if err != nil {
		t.Fatalf("failed to read: %s", err)
	}
	return p.Funcs[0]
}

func testdataFuncs(t *testing.T) []*ir.Function {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("..", "testdata", "*.ir"))
	if err != nil {
		t.Fatal(err.Error())
	}
	var fs []*ir.Function
	for _, path := range paths {
		p, err := irtext.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read %s: %s", path, err)
		}
		fs = append(fs, p.Funcs...)
	}
	return fs
}

func edges(g *CFG) []string {
	var ss []string
	for _, b := range g.Blocks {
		var s strings.Builder
		fmt.Fprintf(&s, "%d [%d, %d] in=[", b.Num, b.Start, b.End)
		for i, in := range b.In() {
			if i > 0 {
				s.WriteRune(' ')
			}
			fmt.Fprintf(&s, "%d", in.Num)
		}
		s.WriteString("] out=[")
		for i, out := range b.Out() {
			if i > 0 {
				s.WriteRune(' ')
			}
			fmt.Fprintf(&s, "%d", out.Num)
		}
		s.WriteRune(']')
		ss = append(ss, s.String())
	}
	return ss
}

func checkCFG(t *testing.T, g *CFG) {
	t.Helper()
	next := 0
	for i, b := range g.Blocks {
		if b.Num != i {
			t.Errorf("block %d has Num %d", i, b.Num)
		}
		if b.Start != next {
			t.Errorf("block %d starts at %d, want %d", b.Num, b.Start, next)
		}
		if b.End < b.Start {
			t.Errorf("block %d is empty", b.Num)
		}
		if g.LineToBlock[b.Start] != b {
			t.Errorf("LineToBlock[%d] is not block %d", b.Start, b.Num)
		}
		next = b.End + 1
		for _, in := range b.In() {
			if !containsBlock(in.Out(), b) {
				t.Errorf("block %d's in set contains %d, but %d's out set does not contain %d", b.Num, in.Num, in.Num, b.Num)
			}
		}
		for _, out := range b.Out() {
			if !containsBlock(out.In(), b) {
				t.Errorf("block %d's out set contains %d, but %d's in set does not contain %d", b.Num, out.Num, out.Num, b.Num)
			}
		}
	}
	if next != len(g.Func.Instrs) {
		t.Errorf("blocks cover [0, %d), want [0, %d)", next, len(g.Func.Instrs))
	}
	if len(g.InstrToBlock) != len(g.Func.Instrs) {
		t.Errorf("InstrToBlock has %d entries, want %d", len(g.InstrToBlock), len(g.Func.Instrs))
	}
	for i := range g.Func.Instrs {
		in := &g.Func.Instrs[i]
		b := g.Block(in)
		if b == nil || i < b.Start || i > b.End {
			t.Errorf("instruction %d (%s) maps to the wrong block", i, in)
		}
		if g.Index(in.Key()) != i {
			t.Errorf("Index of instruction %d is %d", i, g.Index(in.Key()))
		}
	}
}

func containsBlock(bs []*BasicBlock, b *BasicBlock) bool {
	for _, x := range bs {
		if x == b {
			return true
		}
	}
	return false
}
