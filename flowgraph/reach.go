package flowgraph

import (
	"sort"

	"github.com/eaburns/tigerc/ir"
)

// A DefSet is a set of definitions,
// mapping each instruction's key to its index in the function.
type DefSet map[ir.Key]int

// Indexes returns the instruction indices of the set in increasing order.
func (s DefSet) Indexes() []int {
	is := make([]int, 0, len(s))
	for _, i := range s {
		is = append(is, i)
	}
	sort.Ints(is)
	return is
}

func (s DefSet) copy() DefSet {
	c := make(DefSet, len(s))
	for k, i := range s {
		c[k] = i
	}
	return c
}

func (s DefSet) eq(o DefSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

// Reach is the result of the reaching definitions analysis of a CFG.
type Reach struct {
	CFG       *CFG
	Gen, Kill map[*BasicBlock]DefSet
	In, Out   map[*BasicBlock]DefSet

	// Iters is the number of iterations to the fixed point,
	// including the final iteration that changed nothing.
	Iters int
}

// ReachingDefs computes the definitions reaching the entry and exit of each block.
//
// GEN of a block is its defining instructions.
// KILL of a block is every defining instruction outside of the block
// that writes the target of a GEN member.
// Writes to arrays kill only when both are element stores
// to the same array with equal index operands.
// Index operands are compared by name, not by value.
func ReachingDefs(g *CFG, opts ...Option) (*Reach, error) {
	o := makeOptions(opts)
	r := &Reach{
		CFG:  g,
		Gen:  make(map[*BasicBlock]DefSet),
		Kill: make(map[*BasicBlock]DefSet),
		In:   make(map[*BasicBlock]DefSet),
		Out:  make(map[*BasicBlock]DefSet),
	}
	instrs := g.Func.Instrs
	var defs []int
	for i := range instrs {
		if ir.Defines(instrs[i].Op) {
			defs = append(defs, i)
		}
	}
	for _, b := range g.Blocks {
		gen := make(DefSet)
		for i := b.Start; i <= b.End; i++ {
			if ir.Defines(instrs[i].Op) {
				gen[instrs[i].Key()] = i
			}
		}
		kill := make(DefSet)
		for _, d := range defs {
			if d >= b.Start && d <= b.End {
				continue
			}
			for _, i := range gen {
				if kills(&instrs[i], &instrs[d]) {
					kill[instrs[d].Key()] = d
					break
				}
			}
		}
		r.Gen[b] = gen
		r.Kill[b] = kill
		r.In[b] = make(DefSet)
		r.Out[b] = gen.copy()
	}

	limit := o.maxIters
	if limit <= 0 {
		limit = (len(g.Blocks)+1)*(len(defs)+1) + 1
	}
	for changed := true; changed; {
		if r.Iters >= limit {
			return nil, ir.Errorf(g.Func, nil, "reaching definitions did not converge in %d iterations", limit)
		}
		r.Iters++
		changed = false
		for _, b := range g.Blocks {
			in := make(DefSet)
			for _, p := range b.in {
				for k, i := range r.Out[p] {
					in[k] = i
				}
			}
			out := r.Gen[b].copy()
			for k, i := range in {
				if _, ok := r.Kill[b][k]; !ok {
					out[k] = i
				}
			}
			r.In[b] = in
			if !out.eq(r.Out[b]) {
				r.Out[b] = out
				changed = true
			}
		}
		if o.observe != nil {
			o.observe(r.Iters, r.Out)
		}
	}
	if o.trace != nil {
		r.trace(o.trace)
	}
	return r, nil
}

// kills returns whether the definition d kills the definition x.
func kills(d, x *ir.Instruction) bool {
	dt, _ := d.Target()
	if !x.Writes(dt) {
		return false
	}
	if v, ok := dt.(ir.Variable); ok && !v.IsArray() {
		return true
	}
	if fillsArray(d) {
		return true
	}
	// Element stores and partial fills leave the other elements alone,
	// so only a store to the same index kills.
	// A store never kills a fill.
	return d.Op == ir.OpArrayStore && x.Op == ir.OpArrayStore && ir.Eq(d.Args[2], x.Args[2])
}

// fillsArray returns whether in is a bulk assignment
// whose constant count covers the whole array.
func fillsArray(in *ir.Instruction) bool {
	if in.Op != ir.OpAssign || len(in.Args) != 3 {
		return false
	}
	v, ok := in.Args[0].(ir.Variable)
	if !ok {
		return false
	}
	a, ok := v.Type.(*ir.ArrayType)
	if !ok {
		return false
	}
	c, ok := in.Args[1].(ir.Constant)
	if !ok {
		return false
	}
	n, err := c.Int()
	return err == nil && int(n) >= a.Size
}
