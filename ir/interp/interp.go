// Package interp is a reference interpreter for ir programs.
// It is used by tests to check that passes over the IR
// and the generated assembly preserve a program's behavior.
package interp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/eaburns/tigerc/ir"
)

// DefaultMaxSteps is the step budget used when Interp.MaxSteps is 0.
const DefaultMaxSteps = 10000000

type Interp struct {
	Out io.Writer
	In  io.Reader
	// Trace, if non-nil, receives one line per executed instruction.
	Trace io.Writer
	// MaxSteps bounds the number of instructions executed.
	// If 0, DefaultMaxSteps is used.
	MaxSteps int

	prog    *ir.Program
	in      *bufio.Reader
	labels  map[*ir.Function]map[string]int
	statics map[*ir.Function]map[string][]int32
	stack   []frame
	last    *ir.Instruction
	n       int
}

type frame struct {
	*ir.Function
	vars map[string]val
	pc   int
	// dst is the caller's callr destination, if any.
	dst string
}

// val is either a scalar or a reference to array storage.
type val struct {
	i   int32
	arr []int32
}

func New() *Interp {
	return &Interp{Out: os.Stdout, In: os.Stdin}
}

type runtimeError struct{ error }

func (interp *Interp) fail(format string, vs ...interface{}) {
	msg := fmt.Sprintf(format, vs...)
	if f := interp.top(); f != nil && interp.last != nil {
		msg = fmt.Sprintf("%s:%d: %s: %s", f.Name, interp.last.Line, interp.last.Op, msg)
	}
	panic(runtimeError{errors.New(msg)})
}

// Run runs p from its main function until main returns.
func (interp *Interp) Run(p *ir.Program) (err error) {
	main := p.Main()
	if main == nil {
		return errors.New("no main function")
	}
	if len(main.Params) > 0 {
		return errors.New("main has parameters")
	}
	interp.prog = p
	interp.in = bufio.NewReader(interp.In)
	interp.labels = make(map[*ir.Function]map[string]int)
	interp.statics = make(map[*ir.Function]map[string][]int32)
	interp.stack = nil
	interp.last = nil
	interp.n = 0
	for _, f := range p.Funcs {
		if err := ir.Check(f); err != nil {
			return err
		}
		ls := make(map[string]int)
		for i := range f.Instrs {
			if l, ok := f.Instrs[i].LabelName(); ok && f.Instrs[i].Op == ir.OpLabel {
				ls[l] = i
			}
		}
		interp.labels[f] = ls
		arrs := make(map[string][]int32)
		for _, v := range f.Vars() {
			if a, ok := v.Type.(*ir.ArrayType); ok {
				arrs[v.Name] = make([]int32, a.Size)
			}
		}
		interp.statics[f] = arrs
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(runtimeError); ok {
			err = e.error
			return
		}
		panic(r)
	}()
	interp.push(main, nil, "")
	limit := interp.MaxSteps
	if limit == 0 {
		limit = DefaultMaxSteps
	}
	for len(interp.stack) > 0 {
		if interp.n >= limit {
			interp.fail("exceeded %d steps", limit)
		}
		interp.step()
		interp.n++
	}
	return nil
}

func (interp *Interp) top() *frame {
	if len(interp.stack) == 0 {
		return nil
	}
	return &interp.stack[len(interp.stack)-1]
}

func (interp *Interp) push(f *ir.Function, args []val, dst string) {
	if len(args) != len(f.Params) {
		interp.fail("%s: got %d arguments, expected %d", f.Name, len(args), len(f.Params))
	}
	vars := make(map[string]val)
	for _, v := range f.Vars() {
		if v.IsArray() {
			vars[v.Name] = val{arr: interp.statics[f][v.Name]}
		} else {
			vars[v.Name] = val{}
		}
	}
	for i, p := range f.Params {
		if p.IsArray() != (args[i].arr != nil) {
			interp.fail("%s: argument %d does not match parameter %s", f.Name, i, p.Name)
		}
		vars[p.Name] = args[i]
	}
	interp.stack = append(interp.stack, frame{Function: f, vars: vars, dst: dst})
}

func (interp *Interp) ret(v int32) {
	popped := interp.stack[len(interp.stack)-1]
	interp.stack = interp.stack[:len(interp.stack)-1]
	if f := interp.top(); f != nil && popped.dst != "" {
		f.vars[popped.dst] = val{i: v}
	}
}

func (interp *Interp) step() {
	f := interp.top()
	if f.pc >= len(f.Instrs) {
		// Falling off the end is an implicit return.
		interp.ret(0)
		return
	}
	in := &f.Instrs[f.pc]
	interp.last = in
	f.pc++
	if interp.Trace != nil {
		fmt.Fprintf(interp.Trace, "%s:%d: %s\n", f.Name, in.Line, in)
	}

	switch in.Op {
	case ir.OpAssign:
		if len(in.Args) == 3 {
			arr := interp.array(in.Args[0])
			n := interp.scalar(in.Args[1])
			x := interp.scalar(in.Args[2])
			if n < 0 || int(n) > len(arr) {
				interp.fail("fill count %d out of range [0, %d]", n, len(arr))
			}
			for i := 0; i < int(n); i++ {
				arr[i] = x
			}
			break
		}
		interp.set(in.Args[0], interp.scalar(in.Args[1]))
	case ir.OpAdd, ir.OpSub, ir.OpMult, ir.OpDiv, ir.OpAnd, ir.OpOr:
		interp.set(in.Args[0], interp.arith(in.Op, interp.scalar(in.Args[1]), interp.scalar(in.Args[2])))
	case ir.OpGoto:
		interp.jump(in)
	case ir.OpBreq, ir.OpBrneq, ir.OpBrlt, ir.OpBrgt, ir.OpBrleq, ir.OpBrgeq:
		if compare(in.Op, interp.scalar(in.Args[1]), interp.scalar(in.Args[2])) {
			interp.jump(in)
		}
	case ir.OpReturn:
		var v int32
		if len(in.Args) > 0 {
			v = interp.scalar(in.Args[0])
		}
		interp.ret(v)
	case ir.OpCall, ir.OpCallr:
		var dst string
		if in.Op == ir.OpCallr {
			dst = in.Args[0].(ir.Variable).Name
		}
		name, _ := in.Callee()
		var args []val
		for _, a := range in.CallArgs() {
			args = append(args, interp.value(a))
		}
		if v, ok := interp.intrinsic(name, args); ok {
			if dst != "" {
				f.vars[dst] = val{i: v}
			}
			break
		}
		callee := interp.prog.Func(name)
		if callee == nil {
			interp.fail("undefined function %s", name)
		}
		interp.push(callee, args, dst)
	case ir.OpArrayStore:
		arr := interp.array(in.Args[1])
		arr[interp.index(arr, in.Args[2])] = interp.scalar(in.Args[0])
	case ir.OpArrayLoad:
		arr := interp.array(in.Args[1])
		interp.set(in.Args[0], arr[interp.index(arr, in.Args[2])])
	case ir.OpLabel:
	default:
		interp.fail("unknown opcode")
	}
}

func (interp *Interp) intrinsic(name string, args []val) (int32, bool) {
	switch name {
	case "puti":
		interp.wantArgs(name, args, 1)
		fmt.Fprintf(interp.Out, "%d", args[0].i)
	case "putc":
		interp.wantArgs(name, args, 1)
		fmt.Fprintf(interp.Out, "%c", byte(args[0].i))
	case "geti":
		interp.wantArgs(name, args, 0)
		var n int32
		if _, err := fmt.Fscan(interp.in, &n); err != nil {
			interp.fail("geti: %s", err)
		}
		return n, true
	case "getc":
		interp.wantArgs(name, args, 0)
		c, err := interp.in.ReadByte()
		if err == io.EOF {
			return -1, true
		}
		if err != nil {
			interp.fail("getc: %s", err)
		}
		return int32(c), true
	default:
		return 0, false
	}
	return 0, true
}

func (interp *Interp) wantArgs(name string, args []val, n int) {
	if len(args) != n {
		interp.fail("%s: got %d arguments, expected %d", name, len(args), n)
	}
}

func (interp *Interp) jump(in *ir.Instruction) {
	f := interp.top()
	name, _ := in.LabelName()
	f.pc = interp.labels[f.Function][name]
}

func (interp *Interp) arith(op ir.Opcode, x, y int32) int32 {
	switch op {
	case ir.OpAdd:
		return x + y
	case ir.OpSub:
		return x - y
	case ir.OpMult:
		return x * y
	case ir.OpDiv:
		if y == 0 {
			interp.fail("division by zero")
		}
		return x / y
	case ir.OpAnd:
		return x & y
	case ir.OpOr:
		return x | y
	default:
		panic("impossible")
	}
}

func compare(op ir.Opcode, x, y int32) bool {
	switch op {
	case ir.OpBreq:
		return x == y
	case ir.OpBrneq:
		return x != y
	case ir.OpBrlt:
		return x < y
	case ir.OpBrgt:
		return x > y
	case ir.OpBrleq:
		return x <= y
	case ir.OpBrgeq:
		return x >= y
	default:
		panic("impossible")
	}
}

func (interp *Interp) index(arr []int32, x ir.Operand) int {
	i := interp.scalar(x)
	if i < 0 || int(i) >= len(arr) {
		interp.fail("index %d out of range [0, %d)", i, len(arr))
	}
	return int(i)
}

func (interp *Interp) set(x ir.Operand, v int32) {
	interp.top().vars[x.(ir.Variable).Name] = val{i: v}
}

func (interp *Interp) array(x ir.Operand) []int32 {
	v := interp.value(x)
	if v.arr == nil {
		interp.fail("%s is not an array", x)
	}
	return v.arr
}

func (interp *Interp) scalar(x ir.Operand) int32 {
	v := interp.value(x)
	if v.arr != nil {
		interp.fail("%s is an array", x)
	}
	return v.i
}

func (interp *Interp) value(x ir.Operand) val {
	switch x := x.(type) {
	case ir.Constant:
		n, err := x.Int()
		if err != nil {
			interp.fail("%s", err)
		}
		return val{i: n}
	case ir.Variable:
		v, ok := interp.top().vars[x.Name]
		if !ok {
			interp.fail("undeclared variable %s", x.Name)
		}
		return v
	default:
		interp.fail("bad operand %s", x)
		panic("impossible")
	}
}
