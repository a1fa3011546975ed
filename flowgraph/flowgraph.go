// Package flowgraph builds control flow graphs of ir functions
// and implements the dataflow analyses and optimizations over them.
package flowgraph

import (
	"io"

	"github.com/eaburns/tigerc/ir"
)

// A CFG is the control flow graph of a single function.
// It is only valid until the function's instructions change.
type CFG struct {
	Func   *ir.Function
	Blocks []*BasicBlock
	// LineToBlock maps the instruction index of each leader to its block.
	LineToBlock map[int]*BasicBlock
	// LabelToBlock maps each label name to the block that it begins.
	LabelToBlock map[string]*BasicBlock
	// InstrToBlock maps every instruction to its block.
	InstrToBlock map[ir.Key]*BasicBlock

	index map[ir.Key]int
}

// Index returns the position of the instruction with the given key
// in the function's instruction list.
func (g *CFG) Index(k ir.Key) int {
	i, ok := g.index[k]
	if !ok {
		panic("impossible: no instruction " + k.Op.String())
	}
	return i
}

// Block returns the block containing the instruction.
func (g *CFG) Block(in *ir.Instruction) *BasicBlock {
	return g.InstrToBlock[in.Key()]
}

type BasicBlock struct {
	Num  int
	Func *ir.Function
	// Start and End are the indices of the block's first and last instructions.
	Start, End int
	// UEVar is the set of upward-exposed variables in first-use order.
	// It is set by UpwardExposed.
	UEVar []ir.Variable

	in, out []*BasicBlock
}

// Instrs returns the block's instructions.
// The returned slice aliases the function's instruction list.
func (b *BasicBlock) Instrs() []ir.Instruction {
	return b.Func.Instrs[b.Start : b.End+1]
}

// Last returns the block's last instruction.
func (b *BasicBlock) Last() *ir.Instruction {
	return &b.Func.Instrs[b.End]
}

// Eq returns whether two blocks are the same range of the same function.
func (b *BasicBlock) Eq(o *BasicBlock) bool {
	return b.Func == o.Func && b.Start == o.Start && b.End == o.End
}

func (b *BasicBlock) In() []*BasicBlock {
	return append([]*BasicBlock{}, b.in...)
}

func (b *BasicBlock) Out() []*BasicBlock {
	return append([]*BasicBlock{}, b.out...)
}

func addEdge(from, to *BasicBlock) {
	for _, x := range from.out {
		if x.Eq(to) {
			return
		}
	}
	from.out = append(from.out, to)
	to.in = append(to.in, from)
}

type Option func(*options)

type options struct {
	trace    io.Writer
	maxIters int
	observe  func(int, map[*BasicBlock]DefSet)
}

// Trace writes the flow graphs, dataflow sets,
// and dead code decisions of each pass to w.
func Trace(w io.Writer) Option { return func(o *options) { o.trace = w } }

// MaxIters bounds the number of reaching definitions iterations.
// Exceeding the bound is an error.
func MaxIters(n int) Option { return func(o *options) { o.maxIters = n } }

// ObserveOut calls f with the OUT sets after each reaching definitions iteration.
// The map and its sets must not be retained.
func ObserveOut(f func(iter int, out map[*BasicBlock]DefSet)) Option {
	return func(o *options) { o.observe = f }
}

func makeOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
