package ir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Every opcode must be handled by every exhaustive switch.
func TestOpcodeTablesCoverAllOpcodes(t *testing.T) {
	ops := Opcodes()
	if len(ops) != nOpcodes {
		t.Fatalf("Opcodes() has %d opcodes, want %d", len(ops), nOpcodes)
	}
	for _, op := range ops {
		t.Run(op.String(), func(t *testing.T) {
			Defines(op)
			IsCritical(op)
			IsBranch(op)
			IsBinary(op)
			in := sampleInstr(op)
			if err := checkInstr(&Function{Name: "f"}, &in); err != nil {
				t.Fatalf("sample %s: %s", in.String(), err)
			}
			target, ok := in.Target()
			if ok != Defines(op) {
				t.Errorf("Target ok=%v, Defines=%v", ok, Defines(op))
			}
			if ok {
				if _, isVar := target.(Variable); !isVar {
					t.Errorf("target %s is not a variable", target)
				}
			}
			for _, i := range in.SourceIndexes() {
				if i < 0 || i >= len(in.Args) {
					t.Errorf("source index %d out of range", i)
				}
			}
			if IsCritical(op) && Defines(op) && op != OpCallr {
				t.Errorf("%s is critical and defines", op)
			}
			got, ok := ParseOpcode(op.String())
			if !ok || got != op {
				t.Errorf("ParseOpcode(%q)=%v, %v", op.String(), got, ok)
			}
		})
	}
}

func TestOpcodeStringInvalid(t *testing.T) {
	if s := Opcode(0).String(); s != "opcode(0)" {
		t.Errorf("got %q", s)
	}
	if _, ok := ParseOpcode("nop"); ok {
		t.Errorf("ParseOpcode(nop) succeeded")
	}
}

func TestSources(t *testing.T) {
	a := Variable{Name: "a", Type: Int}
	b := Variable{Name: "b", Type: Int}
	c := Variable{Name: "c", Type: Int}
	arr := Variable{Name: "arr", Type: &ArrayType{Elem: Int, Size: 4}}
	one := Constant{Type: Int, Text: "1"}
	tests := []struct {
		in   Instruction
		want []string
	}{
		{Instruction{Op: OpReturn}, nil},
		{Instruction{Op: OpReturn, Args: []Operand{a}}, []string{"a"}},
		{Instruction{Op: OpAssign, Args: []Operand{a, b}}, []string{"b"}},
		{Instruction{Op: OpAssign, Args: []Operand{arr, b, one}}, []string{"b", "1"}},
		{Instruction{Op: OpAdd, Args: []Operand{a, b, c}}, []string{"b", "c"}},
		{Instruction{Op: OpBrlt, Args: []Operand{Label{"L"}, b, c}}, []string{"b", "c"}},
		{Instruction{Op: OpCall, Args: []Operand{FuncName{"f"}, b, c}}, []string{"b", "c"}},
		{Instruction{Op: OpCallr, Args: []Operand{a, FuncName{"f"}, b}}, []string{"b"}},
		{Instruction{Op: OpArrayStore, Args: []Operand{a, arr, b}}, []string{"a", "b"}},
		{Instruction{Op: OpArrayLoad, Args: []Operand{a, arr, b}}, []string{"arr", "b"}},
		{Instruction{Op: OpGoto, Args: []Operand{Label{"L"}}}, nil},
	}
	for _, test := range tests {
		var got []string
		for _, s := range test.in.Sources() {
			got = append(got, s.String())
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: Sources() diff (-want,+got)\n%s", test.in.String(), diff)
		}
	}
}

func TestWrites(t *testing.T) {
	arr := Variable{Name: "arr", Type: &ArrayType{Elem: Int, Size: 4}}
	x := Variable{Name: "x", Type: Int}
	// Operands are compared by name, not by identity.
	x2 := Variable{Name: strings.Repeat("x", 1), Type: Int}
	store := Instruction{Op: OpArrayStore, Args: []Operand{x, arr, Constant{Type: Int, Text: "0"}}}
	if !store.Writes(arr) {
		t.Errorf("array_store does not write its array")
	}
	if store.Writes(x) {
		t.Errorf("array_store writes its value")
	}
	assign := Instruction{Op: OpAssign, Args: []Operand{x, Constant{Type: Int, Text: "1"}}}
	if !assign.Writes(x2) {
		t.Errorf("assign does not write x")
	}
	if assign.Writes(Constant{Type: Int, Text: "x"}) {
		t.Errorf("assign writes a constant")
	}
	call := Instruction{Op: OpCall, Args: []Operand{FuncName{"puti"}, x}}
	if call.Writes(x) {
		t.Errorf("call writes its argument")
	}
}

func TestCheck(t *testing.T) {
	x := Variable{Name: "x", Type: Int}
	arr := Variable{Name: "arr", Type: &ArrayType{Elem: Int, Size: 4}}
	one := Constant{Type: Int, Text: "1"}
	tests := []struct {
		name   string
		instrs []Instruction
		err    string
	}{
		{
			name: "ok",
			instrs: []Instruction{
				{Op: OpLabel, Args: []Operand{Label{"L"}}, Line: 1},
				{Op: OpAdd, Args: []Operand{x, x, one}, Line: 2},
				{Op: OpBrlt, Args: []Operand{Label{"L"}, x, one}, Line: 3},
				{Op: OpReturn, Line: 4},
			},
		},
		{
			name:   "unknown opcode",
			instrs: []Instruction{{Op: Opcode(99), Line: 7}},
			err:    "f:7: opcode(99): unknown opcode",
		},
		{
			name:   "arity",
			instrs: []Instruction{{Op: OpAdd, Args: []Operand{x, x}, Line: 2}},
			err:    "f:2: add: got 2 operands, want 3",
		},
		{
			name:   "kind",
			instrs: []Instruction{{Op: OpAssign, Args: []Operand{one, x}, Line: 3}},
			err:    "f:3: assign: operand 0 (1): want scalar variable",
		},
		{
			name:   "array as scalar",
			instrs: []Instruction{{Op: OpAdd, Args: []Operand{x, arr, one}, Line: 3}},
			err:    "f:3: add: operand 1 (arr): want scalar variable or constant",
		},
		{
			name:   "undefined label",
			instrs: []Instruction{{Op: OpGoto, Args: []Operand{Label{"nowhere"}}, Line: 5}},
			err:    "f:5: goto: label nowhere not defined",
		},
		{
			name: "duplicate label",
			instrs: []Instruction{
				{Op: OpLabel, Args: []Operand{Label{"L"}}, Line: 1},
				{Op: OpLabel, Args: []Operand{Label{"L"}}, Line: 2},
			},
			err: "f:2: label: label L redefined",
		},
		{
			name: "duplicate key",
			instrs: []Instruction{
				{Op: OpAssign, Args: []Operand{x, one}, Line: 1},
				{Op: OpAssign, Args: []Operand{x, one}, Line: 1},
			},
			err: "f:1: assign: duplicate instruction identity",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := &Function{Name: "f", Instrs: test.instrs}
			err := Check(f)
			var got string
			if err != nil {
				got = err.Error()
			}
			if got != test.err {
				t.Errorf("got error %q, want %q", got, test.err)
			}
		})
	}
}

func TestVarsExcludesParams(t *testing.T) {
	n := Variable{Name: "n", Type: Int}
	f := &Function{
		Name:   "f",
		Params: []Variable{n},
		Locals: []Variable{n, {Name: "a", Type: Int}, {Name: "b", Type: Int}},
	}
	var got []string
	for _, v := range f.Vars() {
		got = append(got, v.Name)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("Vars() diff (-want,+got)\n%s", diff)
	}
}

func TestOrderedPutsMainFirst(t *testing.T) {
	p := &Program{Funcs: []*Function{{Name: "a"}, {Name: "main"}, {Name: "b"}}}
	var got []string
	for _, f := range p.Ordered() {
		got = append(got, f.Name)
	}
	if diff := cmp.Diff([]string{"main", "a", "b"}, got); diff != "" {
		t.Errorf("Ordered() diff (-want,+got)\n%s", diff)
	}
}

func TestFunctionString(t *testing.T) {
	n := Variable{Name: "n", Type: Int}
	a := Variable{Name: "a", Type: Int}
	arr := Variable{Name: "arr", Type: &ArrayType{Elem: Int, Size: 10}}
	f := &Function{
		Name:       "f",
		ReturnType: Int,
		Params:     []Variable{n},
		Locals:     []Variable{a, arr},
		Instrs: []Instruction{
			{Op: OpLabel, Args: []Operand{Label{"top"}}},
			{Op: OpAdd, Args: []Operand{a, n, Constant{Type: Int, Text: "1"}}},
			{Op: OpReturn, Args: []Operand{a}},
		},
	}
	want := `#start_function
int f(int n):
int-list: a, arr[10]
float-list:
top:
    add, a, n, 1
    return, a
#end_function
`
	if diff := cmp.Diff(want, f.String()); diff != "" {
		t.Errorf("String() diff (-want,+got)\n%s", diff)
	}
}

func TestConstantInt(t *testing.T) {
	if n, err := (Constant{Type: Int, Text: "-12"}).Int(); err != nil || n != -12 {
		t.Errorf("got %d, %v", n, err)
	}
	if _, err := (Constant{Type: Float, Text: "1.5"}).Int(); err == nil {
		t.Errorf("float constant: expected an error")
	}
	if _, err := (Constant{Type: Int, Text: "4294967296"}).Int(); err == nil {
		t.Errorf("out of range constant: expected an error")
	}
}

func sampleInstr(op Opcode) Instruction {
	x := Variable{Name: "x", Type: Int}
	arr := Variable{Name: "arr", Type: &ArrayType{Elem: Int, Size: 4}}
	one := Constant{Type: Int, Text: "1"}
	l := Label{"L"}
	var args []Operand
	switch {
	case op == OpAssign:
		args = []Operand{x, one}
	case IsBinary(op):
		args = []Operand{x, x, one}
	case op == OpGoto || op == OpLabel:
		args = []Operand{l}
	case IsBranch(op):
		args = []Operand{l, x, one}
	case op == OpReturn:
		args = []Operand{x}
	case op == OpCall:
		args = []Operand{FuncName{"puti"}, x}
	case op == OpCallr:
		args = []Operand{x, FuncName{"geti"}}
	case op == OpArrayStore:
		args = []Operand{one, arr, x}
	case op == OpArrayLoad:
		args = []Operand{x, arr, one}
	}
	return Instruction{Op: op, Args: args, Line: 1}
}
