// Package mips selects MIPS instructions for ir programs.
//
// Two selectors are provided.
// Naive keeps every local variable in its stack slot,
// loading and storing around each instruction.
// Greedy allocates registers to the most used variables of each basic block.
package mips

import (
	"fmt"
	"io"
	"strings"

	"github.com/eaburns/tigerc/flowgraph"
	"github.com/eaburns/tigerc/ir"
)

type Mode int

const (
	Naive Mode = iota
	Greedy
)

func (m Mode) String() string {
	switch m {
	case Naive:
		return "naive"
	case Greedy:
		return "greedy"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "naive":
		return Naive, nil
	case "greedy":
		return Greedy, nil
	default:
		return 0, fmt.Errorf("unknown mode %q, want naive or greedy", s)
	}
}

// Asm is an assembly program.
type Asm struct {
	// Data is the data segment directives.
	Data []string
	// Text is the text segment: labels and instructions.
	Text []string
}

// Lines returns the lines of the program.
func (a *Asm) Lines() []string {
	lines := make([]string, 0, len(a.Data)+len(a.Text)+2)
	lines = append(lines, ".data")
	lines = append(lines, a.Data...)
	lines = append(lines, ".text")
	lines = append(lines, a.Text...)
	return lines
}

func (a *Asm) String() string {
	return strings.Join(a.Lines(), "\n") + "\n"
}

// WriteTo writes the program to w.
func (a *Asm) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, a.String())
	return int64(n), err
}

type Option func(*gen)

// Trace writes register allocation decisions to w.
func Trace(w io.Writer) Option { return func(g *gen) { g.trace = w } }

type gen struct {
	mode  Mode
	trace io.Writer
	prog  *ir.Program
	asm   *Asm
}

// selectError is raised by panic within the selector
// and returned by Select.
type selectError struct{ error }

// Select returns the assembly for p, main first.
// If any function cannot be selected, an error is returned
// identifying the function, IR line, and opcode,
// and no assembly is returned.
func Select(p *ir.Program, mode Mode, opts ...Option) (asm *Asm, err error) {
	if mode != Naive && mode != Greedy {
		return nil, fmt.Errorf("unknown mode %s", mode)
	}
	g := &gen{mode: mode, prog: p, asm: &Asm{}}
	for _, o := range opts {
		o(g)
	}
	defer func() {
		if r := recover(); r != nil {
			if selErr, ok := r.(selectError); ok {
				asm = nil
				err = selErr.error
			} else {
				panic(r)
			}
		}
	}()
	if p.Main() == nil {
		return nil, fmt.Errorf("no main function")
	}
	for _, f := range p.Ordered() {
		g.function(f)
	}
	return g.asm, nil
}

// funcGen is the state of selection for one function.
type funcGen struct {
	*gen
	f     *ir.Function
	frame *frame
	// regs maps the variables allocated in the current block to registers.
	regs map[string]string
	// alloc is the current block's allocated variables in register order.
	alloc []string
	nfill int
}

func (fg *funcGen) fail(in *ir.Instruction, format string, vs ...interface{}) {
	panic(selectError{ir.Errorf(fg.f, in, format, vs...)})
}

func (g *gen) function(f *ir.Function) {
	if err := ir.Check(f); err != nil {
		panic(selectError{err})
	}
	fg := &funcGen{gen: g, f: f, regs: make(map[string]string)}
	fg.validate()
	for _, v := range f.Vars() {
		if a, ok := v.Type.(*ir.ArrayType); ok {
			g.asm.Data = append(g.asm.Data, fmt.Sprintf("%s: .space %d", dataLabel(f, v.Name), a.Size*WordSize))
		}
	}
	switch g.mode {
	case Naive:
		fg.frame = newFrame(f, 0)
		fg.prologue()
		for i := range f.Instrs {
			fg.lower(&f.Instrs[i])
		}
	case Greedy:
		cfg, err := flowgraph.Build(f)
		if err != nil {
			panic(selectError{err})
		}
		allocs := make([]*blockAlloc, len(cfg.Blocks))
		nsaved := 0
		for i, b := range cfg.Blocks {
			allocs[i] = fg.allocate(b)
			if allocs[i].hasCall && len(allocs[i].vars) > nsaved {
				nsaved = len(allocs[i].vars)
			}
		}
		fg.frame = newFrame(f, nsaved)
		fg.prologue()
		for i, b := range cfg.Blocks {
			fg.block(b, allocs[i])
		}
	default:
		panic("impossible")
	}
	if n := len(f.Instrs); n == 0 || f.Instrs[n-1].Op != ir.OpReturn {
		fg.epilogue()
	}
}

// validate reports constructs that the selector does not support.
func (fg *funcGen) validate() {
	if len(fg.f.Params) > len(ArgRegs) {
		fg.fail(nil, "%d parameters, at most %d are supported", len(fg.f.Params), len(ArgRegs))
	}
	if strings.Contains(fg.f.Name, ".") {
		fg.fail(nil, "function name contains a dot")
	}
	for i := range fg.f.Instrs {
		in := &fg.f.Instrs[i]
		for _, a := range in.Args {
			switch a := a.(type) {
			case ir.Label:
				if strings.Contains(a.Name, ".") {
					fg.fail(in, "label %s contains a dot", a.Name)
				}
			case ir.Constant:
				if _, err := a.Int(); err != nil {
					fg.fail(in, "%s", err)
				}
			case ir.Variable:
				if _, ok := fg.f.Var(a.Name); !ok {
					fg.fail(in, "undeclared variable %s", a.Name)
				}
				if isFloat(a.Type) {
					fg.fail(in, "float variable %s is not supported", a.Name)
				}
			}
		}
		if in.Op != ir.OpCall && in.Op != ir.OpCallr {
			continue
		}
		name, _ := in.Callee()
		args := in.CallArgs()
		if n, ok := intrinsicArgs[name]; ok {
			if len(args) != n {
				fg.fail(in, "%s: got %d arguments, expected %d", name, len(args), n)
			}
			continue
		}
		callee := fg.prog.Func(name)
		switch {
		case callee == nil:
			fg.fail(in, "undefined function %s", name)
		case len(args) != len(callee.Params):
			fg.fail(in, "%s: got %d arguments, expected %d", name, len(args), len(callee.Params))
		case len(args) > len(ArgRegs):
			fg.fail(in, "%d arguments, at most %d are supported", len(args), len(ArgRegs))
		}
	}
}

func isFloat(t ir.Type) bool {
	switch t := t.(type) {
	case *ir.FloatType:
		return true
	case *ir.ArrayType:
		return isFloat(t.Elem)
	default:
		return false
	}
}

var intrinsicArgs = map[string]int{
	"puti": 1,
	"putc": 1,
	"geti": 0,
	"getc": 0,
}

func (fg *funcGen) prologue() {
	fg.label(fg.f.Name)
	fg.emit("addi", SP, SP, itoa(-fg.frame.size))
	fg.emit("sw", RA, addr(0, SP))
	fg.emit("sw", FP, addr(WordSize, SP))
	fg.emit("move", FP, SP)
	for i := 0; i < fg.frame.nsaved; i++ {
		fg.emit("sw", SavedRegs[i], fg.frame.savedSlot(i))
	}
	for _, v := range fg.f.Vars() {
		if !v.IsArray() {
			s, _ := fg.frame.slot(v.Name)
			fg.emit("sw", Zero, s)
		}
	}
}

func (fg *funcGen) epilogue() {
	if fg.f.Name == "main" {
		fg.emit("li", V0, itoa(sysExit))
		fg.emit("syscall")
		return
	}
	for i := 0; i < fg.frame.nsaved; i++ {
		fg.emit("lw", SavedRegs[i], fg.frame.savedSlot(i))
	}
	fg.emit("lw", RA, addr(0, SP))
	fg.emit("lw", FP, addr(WordSize, SP))
	fg.emit("addi", SP, SP, itoa(fg.frame.size))
	fg.emit("jr", RA)
}

func (fg *funcGen) emit(op string, args ...string) {
	line := "\t" + op
	if len(args) > 0 {
		line += " " + strings.Join(args, ", ")
	}
	fg.asm.Text = append(fg.asm.Text, line)
}

func (fg *funcGen) label(name string) {
	fg.asm.Text = append(fg.asm.Text, name+":")
}

// Generated labels are joined with dots, which IR names never contain.
// Code labels have one dot, data labels two,
// and fill loop labels an empty component,
// so no two can be the same.
func dataLabel(f *ir.Function, name string) string {
	return "d." + f.Name + "." + name
}

func codeLabel(f *ir.Function, name string) string {
	return f.Name + "." + name
}
