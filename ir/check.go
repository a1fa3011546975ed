package ir

import "fmt"

// An Error is a structural error in a function:
// one that no pass can recover from.
type Error struct {
	Func string
	Line int
	Op   Opcode
	Msg  string
}

func (err *Error) Error() string {
	if err.Op == 0 {
		return fmt.Sprintf("%s: %s", err.Func, err.Msg)
	}
	return fmt.Sprintf("%s:%d: %s: %s", err.Func, err.Line, err.Op, err.Msg)
}

// Errorf returns an *Error for the instruction in f.
func Errorf(f *Function, in *Instruction, format string, vs ...interface{}) *Error {
	err := &Error{Func: f.Name, Msg: fmt.Sprintf(format, vs...)}
	if in != nil {
		err.Line = in.Line
		err.Op = in.Op
	}
	return err
}

// Check returns an *Error for the first structural problem in f:
// an unknown opcode, an operand count or kind that the opcode does not allow,
// a jump to an undefined label, a label defined twice,
// or two instructions with the same Key.
func Check(f *Function) error {
	labels := make(map[string]bool)
	keys := make(map[Key]bool)
	for i := range f.Instrs {
		in := &f.Instrs[i]
		if err := checkInstr(f, in); err != nil {
			return err
		}
		if keys[in.Key()] {
			return Errorf(f, in, "duplicate instruction identity")
		}
		keys[in.Key()] = true
		if in.Op == OpLabel {
			name := in.Args[0].(Label).Name
			if labels[name] {
				return Errorf(f, in, "label %s redefined", name)
			}
			labels[name] = true
		}
	}
	for i := range f.Instrs {
		in := &f.Instrs[i]
		if !IsJump(in.Op) {
			continue
		}
		if name := in.Args[0].(Label).Name; !labels[name] {
			return Errorf(f, in, "label %s not defined", name)
		}
	}
	return nil
}

func checkInstr(f *Function, in *Instruction) error {
	if !in.Op.Valid() {
		return Errorf(f, in, "unknown opcode")
	}
	var kinds []kind
	switch in.Op {
	case OpAssign:
		if len(in.Args) == 3 {
			kinds = []kind{array, value, value}
		} else {
			kinds = []kind{scalar, value}
		}
	case OpAdd, OpSub, OpMult, OpDiv, OpAnd, OpOr:
		kinds = []kind{scalar, value, value}
	case OpGoto, OpLabel:
		kinds = []kind{label}
	case OpBreq, OpBrneq, OpBrlt, OpBrgt, OpBrleq, OpBrgeq:
		kinds = []kind{label, value, value}
	case OpReturn:
		if len(in.Args) > 0 {
			kinds = []kind{value}
		}
	case OpCall:
		kinds = []kind{function}
		for range in.Args[min(1, len(in.Args)):] {
			kinds = append(kinds, argument)
		}
	case OpCallr:
		kinds = []kind{scalar, function}
		for range in.Args[min(2, len(in.Args)):] {
			kinds = append(kinds, argument)
		}
	case OpArrayStore:
		kinds = []kind{value, array, value}
	case OpArrayLoad:
		kinds = []kind{scalar, array, value}
	default:
		panic("impossible")
	}
	if len(in.Args) != len(kinds) {
		return Errorf(f, in, "got %d operands, want %d", len(in.Args), len(kinds))
	}
	for i, k := range kinds {
		if in.Args[i] == nil {
			return Errorf(f, in, "operand %d is missing", i)
		}
		if !k.accepts(in.Args[i]) {
			return Errorf(f, in, "operand %d (%s): want %s", i, in.Args[i], k)
		}
	}
	return nil
}

type kind int

const (
	scalar   kind = iota // non-array variable
	array                // array variable
	value                // non-array variable or constant
	argument             // any variable or constant
	label
	function
)

func (k kind) String() string {
	switch k {
	case scalar:
		return "scalar variable"
	case array:
		return "array variable"
	case value:
		return "scalar variable or constant"
	case argument:
		return "variable or constant"
	case label:
		return "label"
	case function:
		return "function name"
	default:
		panic("impossible")
	}
}

func (k kind) accepts(x Operand) bool {
	switch x := x.(type) {
	case Variable:
		switch k {
		case scalar, value:
			return !x.IsArray()
		case array:
			return x.IsArray()
		case argument:
			return true
		}
	case Constant:
		return k == value || k == argument
	case Label:
		return k == label
	case FuncName:
		return k == function
	}
	return false
}
