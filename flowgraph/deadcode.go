package flowgraph

import (
	"fmt"
	"io"

	"github.com/eaburns/tigerc/ir"
)

// Mark returns the keys of the live instructions of the CFG's function.
//
// Critical instructions are live.
// So are stores into array parameters, which are visible to the caller.
// The writers of each source operand of a live instruction are live:
// the nearest preceding writer in the same block if there is one,
// otherwise every writer in the block's IN set.
// An array source keeps every preceding writer in the block
// back to a fill of the whole array, and if there is no such fill,
// every writer in the IN set,
// since an element store does not overwrite the other elements.
func Mark(g *CFG, r *Reach, opts ...Option) map[ir.Key]bool {
	o := makeOptions(opts)
	instrs := g.Func.Instrs
	marked := make(map[ir.Key]bool)
	var todo []int
	mark := func(i int, why string) {
		k := instrs[i].Key()
		if marked[k] {
			return
		}
		marked[k] = true
		todo = append(todo, i)
		if o.trace != nil {
			fmt.Fprintf(o.trace, "mark %d: %s (%s)\n", instrs[i].Line, &instrs[i], why)
		}
	}
	for i := range instrs {
		switch {
		case ir.IsCritical(instrs[i].Op):
			mark(i, "critical")
		case storesParam(g.Func, &instrs[i]):
			mark(i, "parameter store")
		}
	}
	for len(todo) > 0 {
		i := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		in := &instrs[i]
		b := g.Block(in)
		for _, src := range in.Sources() {
			v, ok := src.(ir.Variable)
			if !ok {
				continue
			}
			why := fmt.Sprintf("%s used at %d", v.Name, in.Line)
			covered := false
			for j := i - 1; j >= b.Start; j-- {
				if !instrs[j].Writes(v) {
					continue
				}
				mark(j, why)
				if !v.IsArray() || fillsArray(&instrs[j]) {
					covered = true
					break
				}
			}
			if covered {
				continue
			}
			for _, j := range r.In[b].Indexes() {
				if instrs[j].Writes(v) {
					mark(j, why)
				}
			}
		}
	}
	return marked
}

func storesParam(f *ir.Function, in *ir.Instruction) bool {
	if in.Op != ir.OpArrayStore && in.Op != ir.OpAssign {
		return false
	}
	t, _ := in.Target()
	v, ok := t.(ir.Variable)
	return ok && v.IsArray() && f.IsParam(v.Name)
}

// Sweep replaces the function's instructions with the marked ones,
// preserving their order, and returns the number removed.
func Sweep(f *ir.Function, marked map[ir.Key]bool) int {
	var live []ir.Instruction
	for _, in := range f.Instrs {
		if marked[in.Key()] {
			live = append(live, in)
		}
	}
	n := len(f.Instrs) - len(live)
	f.Instrs = live
	return n
}

// EliminateDeadCode marks and sweeps the CFG's function,
// returning the number of instructions removed.
// The CFG and r are invalid afterwards.
func EliminateDeadCode(g *CFG, r *Reach, opts ...Option) int {
	marked := Mark(g, r, opts...)
	o := makeOptions(opts)
	if o.trace != nil {
		traceSweep(o.trace, g.Func, marked)
	}
	return Sweep(g.Func, marked)
}

func traceSweep(w io.Writer, f *ir.Function, marked map[ir.Key]bool) {
	for i := range f.Instrs {
		if !marked[f.Instrs[i].Key()] {
			fmt.Fprintf(w, "sweep %d: %s\n", f.Instrs[i].Line, &f.Instrs[i])
		}
	}
}
