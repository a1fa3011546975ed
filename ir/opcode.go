package ir

import "strconv"

type Opcode int

const (
	OpAssign Opcode = iota + 1
	OpAdd
	OpSub
	OpMult
	OpDiv
	OpAnd
	OpOr
	OpGoto
	OpBreq
	OpBrneq
	OpBrlt
	OpBrgt
	OpBrleq
	OpBrgeq
	OpReturn
	OpCall
	OpCallr
	OpArrayStore
	OpArrayLoad
	OpLabel

	nOpcodes = iota
)

// Opcodes returns every valid opcode in declaration order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, nOpcodes)
	for op := OpAssign; op <= OpLabel; op++ {
		ops = append(ops, op)
	}
	return ops
}

var opcodeNames = [...]string{
	OpAssign:     "assign",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMult:       "mult",
	OpDiv:        "div",
	OpAnd:        "and",
	OpOr:         "or",
	OpGoto:       "goto",
	OpBreq:       "breq",
	OpBrneq:      "brneq",
	OpBrlt:       "brlt",
	OpBrgt:       "brgt",
	OpBrleq:      "brleq",
	OpBrgeq:      "brgeq",
	OpReturn:     "return",
	OpCall:       "call",
	OpCallr:      "callr",
	OpArrayStore: "array_store",
	OpArrayLoad:  "array_load",
	OpLabel:      "label",
}

// Valid returns whether op is one of the declared opcodes.
func (op Opcode) Valid() bool { return op >= OpAssign && op <= OpLabel }

func (op Opcode) String() string {
	if !op.Valid() {
		return "opcode(" + strconv.Itoa(int(op)) + ")"
	}
	return opcodeNames[op]
}

// ParseOpcode returns the opcode with the given mnemonic.
func ParseOpcode(s string) (Opcode, bool) {
	for _, op := range Opcodes() {
		if opcodeNames[op] == s {
			return op, true
		}
	}
	return 0, false
}

// Defines returns whether instructions with the opcode write a target operand.
func Defines(op Opcode) bool {
	switch op {
	case OpAssign, OpAdd, OpSub, OpMult, OpDiv, OpAnd, OpOr, OpCallr, OpArrayLoad, OpArrayStore:
		return true
	case OpGoto, OpBreq, OpBrneq, OpBrlt, OpBrgt, OpBrleq, OpBrgeq, OpReturn, OpCall, OpLabel:
		return false
	default:
		panic("impossible: " + op.String())
	}
}

// IsCritical returns whether the opcode is always live:
// control flow, calls, returns and labels.
func IsCritical(op Opcode) bool {
	switch op {
	case OpGoto, OpBreq, OpBrneq, OpBrlt, OpBrgt, OpBrleq, OpBrgeq, OpReturn, OpCall, OpCallr, OpLabel:
		return true
	case OpAssign, OpAdd, OpSub, OpMult, OpDiv, OpAnd, OpOr, OpArrayStore, OpArrayLoad:
		return false
	default:
		panic("impossible: " + op.String())
	}
}

// IsBranch returns whether the opcode is a conditional branch.
func IsBranch(op Opcode) bool {
	switch op {
	case OpBreq, OpBrneq, OpBrlt, OpBrgt, OpBrleq, OpBrgeq:
		return true
	case OpAssign, OpAdd, OpSub, OpMult, OpDiv, OpAnd, OpOr, OpGoto, OpReturn, OpCall, OpCallr, OpArrayStore, OpArrayLoad, OpLabel:
		return false
	default:
		panic("impossible: " + op.String())
	}
}

// IsJump returns whether the opcode transfers control to a label:
// a goto or a conditional branch.
func IsJump(op Opcode) bool { return op == OpGoto || IsBranch(op) }

// IsBinary returns whether the opcode is a three-operand arithmetic or logical op.
func IsBinary(op Opcode) bool {
	switch op {
	case OpAdd, OpSub, OpMult, OpDiv, OpAnd, OpOr:
		return true
	case OpAssign, OpGoto, OpBreq, OpBrneq, OpBrlt, OpBrgt, OpBrleq, OpBrgeq, OpReturn, OpCall, OpCallr, OpArrayStore, OpArrayLoad, OpLabel:
		return false
	default:
		panic("impossible: " + op.String())
	}
}

// Target returns the operand written by the instruction, if any.
// For an array_store, the target is the array.
func (in *Instruction) Target() (Operand, bool) {
	switch in.Op {
	case OpAssign, OpAdd, OpSub, OpMult, OpDiv, OpAnd, OpOr, OpCallr, OpArrayLoad:
		return in.Args[0], true
	case OpArrayStore:
		return in.Args[1], true
	case OpGoto, OpBreq, OpBrneq, OpBrlt, OpBrgt, OpBrleq, OpBrgeq, OpReturn, OpCall, OpLabel:
		return nil, false
	default:
		panic("impossible: " + in.Op.String())
	}
}

// SourceIndexes returns the positions of the operands read by the instruction.
func (in *Instruction) SourceIndexes() []int {
	switch in.Op {
	case OpReturn:
		if len(in.Args) == 0 {
			return nil
		}
		return []int{0}
	case OpAssign:
		return span(1, len(in.Args))
	case OpAdd, OpSub, OpMult, OpDiv, OpAnd, OpOr, OpBreq, OpBrneq, OpBrlt, OpBrgt, OpBrleq, OpBrgeq, OpArrayLoad:
		return []int{1, 2}
	case OpCall:
		return span(1, len(in.Args))
	case OpCallr:
		return span(2, len(in.Args))
	case OpArrayStore:
		return []int{0, 2}
	case OpGoto, OpLabel:
		return nil
	default:
		panic("impossible: " + in.Op.String())
	}
}

// Sources returns the operands read by the instruction.
func (in *Instruction) Sources() []Operand {
	var srcs []Operand
	for _, i := range in.SourceIndexes() {
		srcs = append(srcs, in.Args[i])
	}
	return srcs
}

// Writes returns whether the instruction writes the variable operand x.
// Non-variable operands are never written.
func (in *Instruction) Writes(x Operand) bool {
	v, ok := x.(Variable)
	if !ok {
		return false
	}
	t, ok := in.Target()
	if !ok {
		return false
	}
	tv, ok := t.(Variable)
	return ok && tv.Name == v.Name
}

// LabelName returns the label operand of a label, goto, or branch instruction.
func (in *Instruction) LabelName() (string, bool) {
	if in.Op != OpLabel && !IsJump(in.Op) || len(in.Args) == 0 {
		return "", false
	}
	l, ok := in.Args[0].(Label)
	return l.Name, ok
}

// Callee returns the called function of a call or callr.
func (in *Instruction) Callee() (string, bool) {
	var i int
	switch in.Op {
	case OpCall:
		i = 0
	case OpCallr:
		i = 1
	default:
		return "", false
	}
	if len(in.Args) <= i {
		return "", false
	}
	f, ok := in.Args[i].(FuncName)
	return f.Name, ok
}

// CallArgs returns the actual arguments of a call or callr.
func (in *Instruction) CallArgs() []Operand {
	switch in.Op {
	case OpCall:
		return in.Args[1:]
	case OpCallr:
		return in.Args[2:]
	default:
		return nil
	}
}

func span(lo, hi int) []int {
	var is []int
	for i := lo; i < hi; i++ {
		is = append(is, i)
	}
	return is
}
