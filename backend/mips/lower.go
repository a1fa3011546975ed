package mips

import (
	"fmt"
	"strconv"

	"github.com/eaburns/tigerc/ir"
)

var regOps = map[ir.Opcode]string{
	ir.OpAdd:  "add",
	ir.OpSub:  "sub",
	ir.OpMult: "mul",
	ir.OpDiv:  "div",
	ir.OpAnd:  "and",
	ir.OpOr:   "or",
}

// immOps are the binary operations with an immediate form.
// Subtraction, multiplication, and division have none.
var immOps = map[ir.Opcode]string{
	ir.OpAdd: "addi",
	ir.OpAnd: "andi",
	ir.OpOr:  "ori",
}

var branchOps = map[ir.Opcode]string{
	ir.OpBreq:  "beq",
	ir.OpBrneq: "bne",
	ir.OpBrlt:  "blt",
	ir.OpBrgt:  "bgt",
	ir.OpBrleq: "ble",
	ir.OpBrgeq: "bge",
}

// lower emits the instructions for in.
// Block-allocated registers are not stored or reloaded,
// except around calls.
func (fg *funcGen) lower(in *ir.Instruction) {
	switch in.Op {
	case ir.OpAssign:
		if len(in.Args) == 3 {
			fg.fill(in)
			return
		}
		x := fg.variable(in, in.Args[0])
		d := fg.dest(in, x, t9)
		if c, ok := in.Args[1].(ir.Constant); ok {
			fg.emit("li", d, itoa(int(fg.int(in, c))))
		} else if r := fg.load(in, in.Args[1], t9); r != d {
			fg.emit("move", d, r)
		}
		fg.store(in, x, d)
	case ir.OpAdd, ir.OpSub, ir.OpMult, ir.OpDiv, ir.OpAnd, ir.OpOr:
		fg.binary(in)
	case ir.OpGoto:
		name, _ := in.LabelName()
		fg.emit("j", codeLabel(fg.f, name))
	case ir.OpBreq, ir.OpBrneq, ir.OpBrlt, ir.OpBrgt, ir.OpBrleq, ir.OpBrgeq:
		name, _ := in.LabelName()
		a := fg.load(in, in.Args[1], t7)
		b := fg.load(in, in.Args[2], t8)
		fg.emit(branchOps[in.Op], a, b, codeLabel(fg.f, name))
	case ir.OpReturn:
		if len(in.Args) > 0 {
			fg.loadInto(in, in.Args[0], V0)
		}
		fg.epilogue()
	case ir.OpCall, ir.OpCallr:
		fg.call(in)
	case ir.OpArrayStore:
		base := fg.load(in, in.Args[1], t7)
		if off, ok := fg.constOffset(in, in.Args[2]); ok {
			v := fg.load(in, in.Args[0], t8)
			fg.emit("sw", v, addr(off, base))
			return
		}
		i := fg.load(in, in.Args[2], t8)
		fg.emit("sll", t9, i, "2")
		fg.emit("add", t9, t9, base)
		v := fg.load(in, in.Args[0], t8)
		fg.emit("sw", v, addr(0, t9))
	case ir.OpArrayLoad:
		x := fg.variable(in, in.Args[0])
		base := fg.load(in, in.Args[1], t7)
		d := fg.dest(in, x, t9)
		if off, ok := fg.constOffset(in, in.Args[2]); ok {
			fg.emit("lw", d, addr(off, base))
		} else {
			i := fg.load(in, in.Args[2], t8)
			fg.emit("sll", t9, i, "2")
			fg.emit("add", t9, t9, base)
			fg.emit("lw", d, addr(0, t9))
		}
		fg.store(in, x, d)
	case ir.OpLabel:
		name, _ := in.LabelName()
		fg.label(codeLabel(fg.f, name))
	default:
		fg.fail(in, "unknown opcode")
	}
}

func (fg *funcGen) binary(in *ir.Instruction) {
	x := fg.variable(in, in.Args[0])
	a, b := in.Args[1], in.Args[2]
	d := fg.dest(in, x, t9)
	if imm, ok := immOps[in.Op]; ok {
		// The operations with immediate forms commute.
		if isConst(a) && !isConst(b) {
			a, b = b, a
		}
		if c, ok := b.(ir.Constant); ok && fitsImm(in.Op, fg.int(in, c)) {
			r := fg.load(in, a, t7)
			fg.emit(imm, d, r, itoa(int(fg.int(in, c))))
			fg.store(in, x, d)
			return
		}
	}
	ra := fg.load(in, a, t7)
	rb := fg.load(in, b, t8)
	fg.emit(regOps[in.Op], d, ra, rb)
	fg.store(in, x, d)
}

func isConst(x ir.Operand) bool {
	_, ok := x.(ir.Constant)
	return ok
}

// fitsImm returns whether n fits the immediate field of op's immediate form.
// addi sign-extends; andi and ori zero-extend.
func fitsImm(op ir.Opcode, n int32) bool {
	if op == ir.OpAdd {
		return n >= -1<<15 && n < 1<<15
	}
	return n >= 0 && n < 1<<16
}

// fill lowers a bulk array assignment: assign, array, count, value.
// The loop runs in scratch registers so the count variable is unchanged.
func (fg *funcGen) fill(in *ir.Instruction) {
	fg.loadInto(in, in.Args[0], t7)
	fg.loadInto(in, in.Args[1], t8)
	v := fg.load(in, in.Args[2], t9)
	top := fmt.Sprintf("%s..fill%d", fg.f.Name, fg.nfill)
	end := top + ".end"
	fg.nfill++
	fg.label(top)
	fg.emit("ble", t8, Zero, end)
	fg.emit("sw", v, addr(0, t7))
	fg.emit("addi", t7, t7, itoa(WordSize))
	fg.emit("addi", t8, t8, "-1")
	fg.emit("j", top)
	fg.label(end)
}

func (fg *funcGen) call(in *ir.Instruction) {
	name, _ := in.Callee()
	args := in.CallArgs()
	fg.saveBlockRegs()
	if _, ok := intrinsicArgs[name]; ok {
		fg.intrinsic(in, name, args)
	} else {
		for i := range fg.f.Params {
			s, _ := fg.frame.slot(fg.f.Params[i].Name)
			fg.emit("sw", ArgRegs[i], s)
		}
		for i, a := range args {
			fg.bindArg(in, ArgRegs[i], a)
		}
		fg.emit("jal", name)
		for i := range fg.f.Params {
			s, _ := fg.frame.slot(fg.f.Params[i].Name)
			fg.emit("lw", ArgRegs[i], s)
		}
	}
	fg.restoreBlockRegs()
	if in.Op == ir.OpCallr {
		x := fg.variable(in, in.Args[0])
		fg.store(in, x, V0)
	}
}

// bindArg loads an actual argument into an argument register.
// Parameters are loaded from their stack slots,
// which hold their values as of the call,
// since the argument registers may already have been overwritten.
func (fg *funcGen) bindArg(in *ir.Instruction, reg string, a ir.Operand) {
	if v, ok := a.(ir.Variable); ok && fg.f.IsParam(v.Name) {
		s, _ := fg.frame.slot(v.Name)
		fg.emit("lw", reg, s)
		return
	}
	fg.loadInto(in, a, reg)
}

func (fg *funcGen) intrinsic(in *ir.Instruction, name string, args []ir.Operand) {
	switch name {
	case "puti", "putc":
		saveA0 := len(fg.f.Params) > 0
		var a0 string
		if saveA0 {
			a0, _ = fg.frame.slot(fg.f.Params[0].Name)
			fg.emit("sw", ArgRegs[0], a0)
		}
		fg.loadInto(in, args[0], ArgRegs[0])
		if name == "puti" {
			fg.emit("li", V0, itoa(sysPrintInt))
		} else {
			fg.emit("li", V0, itoa(sysPrintChar))
		}
		fg.emit("syscall")
		if saveA0 {
			fg.emit("lw", ArgRegs[0], a0)
		}
	case "geti":
		fg.emit("li", V0, itoa(sysReadInt))
		fg.emit("syscall")
	case "getc":
		fg.emit("li", V0, itoa(sysReadChar))
		fg.emit("syscall")
	default:
		panic("impossible")
	}
}

// saveBlockRegs moves the block-allocated registers into the saved bank.
func (fg *funcGen) saveBlockRegs() {
	for i := range fg.alloc {
		fg.emit("move", SavedRegs[i], BlockRegs[i])
	}
}

func (fg *funcGen) restoreBlockRegs() {
	for i := range fg.alloc {
		fg.emit("move", BlockRegs[i], SavedRegs[i])
	}
}

// load returns a register holding the value of x,
// emitting instructions to load it into scratch if needed.
// Variables bound to registers are read directly from them.
func (fg *funcGen) load(in *ir.Instruction, x ir.Operand, scratch string) string {
	switch x := x.(type) {
	case ir.Constant:
		fg.emit("li", scratch, itoa(int(fg.int(in, x))))
		return scratch
	case ir.Variable:
		if r, ok := fg.reg(x); ok {
			return r
		}
		if x.IsArray() {
			fg.emit("la", scratch, dataLabel(fg.f, x.Name))
			return scratch
		}
		fg.emit("lw", scratch, fg.slot(in, x))
		return scratch
	default:
		fg.fail(in, "bad operand %s", x)
		panic("impossible")
	}
}

// loadInto loads the value of x into reg.
func (fg *funcGen) loadInto(in *ir.Instruction, x ir.Operand, reg string) {
	if r := fg.load(in, x, reg); r != reg {
		fg.emit("move", reg, r)
	}
}

// dest returns the register into which to compute a value for x:
// its bound register, or scratch.
func (fg *funcGen) dest(in *ir.Instruction, x ir.Variable, scratch string) string {
	if r, ok := fg.reg(x); ok {
		return r
	}
	return scratch
}

// store stores r into x, if x is not bound to r.
func (fg *funcGen) store(in *ir.Instruction, x ir.Variable, r string) {
	if b, ok := fg.reg(x); ok {
		if b != r {
			fg.emit("move", b, r)
		}
		return
	}
	fg.emit("sw", r, fg.slot(in, x))
}

// reg returns the register bound to x:
// an argument register for parameters,
// a block register for variables allocated in the current block.
func (fg *funcGen) reg(x ir.Variable) (string, bool) {
	if i := fg.f.ParamIndex(x.Name); i >= 0 {
		return ArgRegs[i], true
	}
	r, ok := fg.regs[x.Name]
	return r, ok
}

func (fg *funcGen) slot(in *ir.Instruction, x ir.Variable) string {
	s, ok := fg.frame.slot(x.Name)
	if !ok {
		fg.fail(in, "undeclared variable %s", x.Name)
	}
	return s
}

func (fg *funcGen) variable(in *ir.Instruction, x ir.Operand) ir.Variable {
	v, ok := x.(ir.Variable)
	if !ok {
		fg.fail(in, "%s is not a variable", x)
	}
	return v
}

func (fg *funcGen) int(in *ir.Instruction, c ir.Constant) int32 {
	n, err := c.Int()
	if err != nil {
		fg.fail(in, "%s", err)
	}
	return n
}

// constOffset returns the byte offset of a constant index
// if it fits a load or store offset.
func (fg *funcGen) constOffset(in *ir.Instruction, x ir.Operand) (int, bool) {
	c, ok := x.(ir.Constant)
	if !ok {
		return 0, false
	}
	off := int64(fg.int(in, c)) * WordSize
	if off < -1<<15 || off >= 1<<15 {
		return 0, false
	}
	return int(off), true
}

func itoa(n int) string { return strconv.Itoa(n) }
