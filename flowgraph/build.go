package flowgraph

import "github.com/eaburns/tigerc/ir"

// Build returns the control flow graph of f.
//
// A block begins at the first instruction, at each label,
// and after each goto or branch.
// A branch has edges to its label's block and to the next block;
// a goto only to its label's block;
// any other instruction ending a block falls through to the next block.
func Build(f *ir.Function) (*CFG, error) {
	if err := ir.Check(f); err != nil {
		return nil, err
	}
	g := &CFG{
		Func:         f,
		LineToBlock:  make(map[int]*BasicBlock),
		LabelToBlock: make(map[string]*BasicBlock),
		InstrToBlock: make(map[ir.Key]*BasicBlock),
		index:        make(map[ir.Key]int),
	}
	if len(f.Instrs) == 0 {
		return g, nil
	}
	leader := make([]bool, len(f.Instrs))
	leader[0] = true
	for i := range f.Instrs {
		switch op := f.Instrs[i].Op; {
		case op == ir.OpLabel:
			leader[i] = true
		case ir.IsJump(op) && i+1 < len(f.Instrs):
			leader[i+1] = true
		}
	}
	var b *BasicBlock
	for i := range f.Instrs {
		in := &f.Instrs[i]
		if leader[i] {
			b = &BasicBlock{Num: len(g.Blocks), Func: f, Start: i}
			g.Blocks = append(g.Blocks, b)
			g.LineToBlock[i] = b
		}
		b.End = i
		if in.Op == ir.OpLabel {
			name, _ := in.LabelName()
			g.LabelToBlock[name] = b
		}
		g.InstrToBlock[in.Key()] = b
		g.index[in.Key()] = i
	}
	for i, b := range g.Blocks {
		var next *BasicBlock
		if i+1 < len(g.Blocks) {
			next = g.Blocks[i+1]
		}
		last := b.Last()
		switch {
		case ir.IsBranch(last.Op):
			addEdge(b, g.target(last))
			if next != nil {
				addEdge(b, next)
			}
		case last.Op == ir.OpGoto:
			addEdge(b, g.target(last))
		case next != nil:
			addEdge(b, next)
		}
	}
	return g, nil
}

func (g *CFG) target(in *ir.Instruction) *BasicBlock {
	name, _ := in.LabelName()
	b, ok := g.LabelToBlock[name]
	if !ok {
		// ir.Check rejects jumps to undefined labels.
		panic("impossible: no block for label " + name)
	}
	return b
}

// UpwardExposed computes, records in b.UEVar, and returns
// the variables read in b before any write to them in b.
// Array element stores do not define their array.
func UpwardExposed(b *BasicBlock) []ir.Variable {
	defined := make(map[string]bool)
	seen := make(map[string]bool)
	var ue []ir.Variable
	instrs := b.Instrs()
	for i := range instrs {
		in := &instrs[i]
		for _, src := range in.Sources() {
			v, ok := src.(ir.Variable)
			if !ok || defined[v.Name] || seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			ue = append(ue, v)
		}
		if in.Op == ir.OpArrayStore {
			continue
		}
		if t, ok := in.Target(); ok {
			if v, ok := t.(ir.Variable); ok && !v.IsArray() {
				defined[v.Name] = true
			}
		}
	}
	b.UEVar = ue
	return ue
}
