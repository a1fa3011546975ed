// Package ir is the linear three-address intermediate representation
// consumed by the optimizer and the instruction selectors.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

type Program struct {
	Funcs []*Function
}

// Main returns the function named main, or nil.
func (p *Program) Main() *Function {
	for _, f := range p.Funcs {
		if f.Name == "main" {
			return f
		}
	}
	return nil
}

// Ordered returns the functions with main first,
// followed by the rest in their original order.
func (p *Program) Ordered() []*Function {
	fs := make([]*Function, 0, len(p.Funcs))
	if m := p.Main(); m != nil {
		fs = append(fs, m)
	}
	for _, f := range p.Funcs {
		if f.Name != "main" {
			fs = append(fs, f)
		}
	}
	return fs
}

// Func returns the function with the given name, or nil.
func (p *Program) Func(name string) *Function {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type Function struct {
	Name       string
	ReturnType Type // nil for void
	Params     []Variable
	// Locals may include the parameters.
	Locals []Variable
	// Instrs is replaced wholesale by the optimizer.
	// It is never modified while a flow graph of it is live.
	Instrs []Instruction
}

// Vars returns the locals that are not parameters.
func (f *Function) Vars() []Variable {
	parm := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		parm[p.Name] = true
	}
	var vs []Variable
	for _, v := range f.Locals {
		if !parm[v.Name] {
			vs = append(vs, v)
		}
	}
	return vs
}

// IsParam returns whether name is a parameter of f.
func (f *Function) IsParam(name string) bool {
	return f.ParamIndex(name) >= 0
}

// ParamIndex returns the position of the named parameter, or -1.
func (f *Function) ParamIndex(name string) int {
	for i, p := range f.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Var returns the declared variable or parameter with the given name.
func (f *Function) Var(name string) (Variable, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	for _, v := range f.Locals {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Renumber sets each instruction's Line to its index.
// It is meant for functions built in memory rather than read from a file;
// it must not be called between passes that share instruction keys.
func (f *Function) Renumber() {
	for i := range f.Instrs {
		f.Instrs[i].Line = i
	}
}

type Instruction struct {
	Op   Opcode
	Args []Operand
	// Line is the source IR line.
	// Together with Op it identifies the instruction.
	Line int
}

// Key identifies an instruction within its function.
// Two instructions are the same definition iff their Keys are equal.
type Key struct {
	Line int
	Op   Opcode
}

func (in *Instruction) Key() Key { return Key{Line: in.Line, Op: in.Op} }

// Operand is one of Variable, Constant, Label, or FuncName.
type Operand interface {
	String() string
	buildString(*strings.Builder) *strings.Builder
	isOperand()
}

type Variable struct {
	Name string
	Type Type
}

type Constant struct {
	Type Type
	Text string
}

type Label struct {
	Name string
}

// FuncName is the callee operand of a call.
type FuncName struct {
	Name string
}

func (Variable) isOperand() {}
func (Constant) isOperand() {}
func (Label) isOperand()    {}
func (FuncName) isOperand() {}

// IsArray returns whether the variable has array type.
func (v Variable) IsArray() bool {
	_, ok := v.Type.(*ArrayType)
	return ok
}

// Eq returns whether two operands are the same kind
// and have the same name or literal text.
func Eq(a, b Operand) bool {
	switch a := a.(type) {
	case Variable:
		b, ok := b.(Variable)
		return ok && a.Name == b.Name
	case Constant:
		b, ok := b.(Constant)
		return ok && a.Text == b.Text
	case Label:
		b, ok := b.(Label)
		return ok && a.Name == b.Name
	case FuncName:
		b, ok := b.(FuncName)
		return ok && a.Name == b.Name
	case nil:
		return b == nil
	default:
		panic("impossible")
	}
}

type Type interface {
	String() string
	buildString(*strings.Builder) *strings.Builder
	eq(Type) bool
}

type IntType struct{}

type FloatType struct{}

type ArrayType struct {
	Elem Type
	Size int
}

var (
	Int   = &IntType{}
	Float = &FloatType{}
)

func (*IntType) eq(o Type) bool {
	_, ok := o.(*IntType)
	return ok
}

func (*FloatType) eq(o Type) bool {
	_, ok := o.(*FloatType)
	return ok
}

func (t *ArrayType) eq(o Type) bool {
	a, ok := o.(*ArrayType)
	return ok && a.Size == t.Size && t.Elem.eq(a.Elem)
}

// TypeEq returns whether two types are structurally equal.
func TypeEq(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.eq(b)
}

// Int returns the 32-bit value of an integer constant.
// Float constants are an error.
func (c Constant) Int() (int32, error) {
	if _, ok := c.Type.(*FloatType); ok {
		return 0, fmt.Errorf("float constant %s is not supported", c.Text)
	}
	n, err := strconv.ParseInt(c.Text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad integer constant %s", c.Text)
	}
	return int32(n), nil
}
