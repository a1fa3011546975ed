package mips

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eaburns/tigerc/flowgraph"
	"github.com/eaburns/tigerc/ir"
)

// blockAlloc is the register allocation of a basic block.
type blockAlloc struct {
	// vars are the allocated variables; vars[i] is in BlockRegs[i].
	vars []string
	// counts are the operand reference counts of candidate variables.
	counts map[string]int
	// ue are the allocated variables read before written in the block.
	// They are loaded on entry.
	ue map[string]bool
	// dirty are the allocated variables written in the block.
	// They are stored on exit.
	dirty   map[string]bool
	hasCall bool
}

// allocate chooses the variables of b to keep in registers:
// the most referenced non-array locals,
// ties broken by first reference.
// Parameters stay in their argument registers.
func (fg *funcGen) allocate(b *flowgraph.BasicBlock) *blockAlloc {
	a := &blockAlloc{
		counts: make(map[string]int),
		ue:     make(map[string]bool),
		dirty:  make(map[string]bool),
	}
	var order []string
	instrs := b.Instrs()
	for i := range instrs {
		in := &instrs[i]
		if in.Op == ir.OpCall || in.Op == ir.OpCallr {
			a.hasCall = true
		}
		for _, x := range in.Args {
			v, ok := x.(ir.Variable)
			if !ok || !fg.candidate(v) {
				continue
			}
			if a.counts[v.Name] == 0 {
				order = append(order, v.Name)
			}
			a.counts[v.Name]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return a.counts[order[i]] > a.counts[order[j]]
	})
	if len(order) > len(BlockRegs) {
		order = order[:len(BlockRegs)]
	}
	a.vars = order
	allocated := make(map[string]bool, len(a.vars))
	for _, v := range a.vars {
		allocated[v] = true
	}
	for _, v := range flowgraph.UpwardExposed(b) {
		if allocated[v.Name] {
			a.ue[v.Name] = true
		}
	}
	for i := range instrs {
		in := &instrs[i]
		if in.Op == ir.OpArrayStore {
			continue
		}
		if t, ok := in.Target(); ok {
			if v, ok := t.(ir.Variable); ok && allocated[v.Name] {
				a.dirty[v.Name] = true
			}
		}
	}
	if fg.trace != nil {
		fmt.Fprintf(fg.trace, "%s block %d: %s\n", fg.f.Name, b.Num, a)
	}
	return a
}

func (fg *funcGen) candidate(v ir.Variable) bool {
	return !v.IsArray() && !fg.f.IsParam(v.Name)
}

func (a *blockAlloc) String() string {
	var s strings.Builder
	s.WriteString("refs=[")
	var names []string
	for n := range a.counts {
		names = append(names, n)
	}
	sort.Strings(names)
	for i, n := range names {
		if i > 0 {
			s.WriteString(" ")
		}
		fmt.Fprintf(&s, "%s:%d", n, a.counts[n])
	}
	s.WriteString("] alloc=[")
	for i, v := range a.vars {
		if i > 0 {
			s.WriteString(" ")
		}
		fmt.Fprintf(&s, "%s:%s", v, BlockRegs[i])
	}
	s.WriteString("]")
	if a.hasCall {
		s.WriteString(" call")
	}
	return s.String()
}

// block emits the instructions of b using its allocation.
// Allocated variables that are upward exposed are loaded on entry,
// after any label, and those written are stored before the block's
// terminating jump or at its end.
// A return needs no stores.
func (fg *funcGen) block(b *flowgraph.BasicBlock, a *blockAlloc) {
	fg.regs = make(map[string]string, len(a.vars))
	fg.alloc = a.vars
	instrs := b.Instrs()
	i := 0
	if len(instrs) > 0 && instrs[0].Op == ir.OpLabel {
		fg.lower(&instrs[0])
		i++
	}
	for j, v := range a.vars {
		fg.regs[v] = BlockRegs[j]
		if a.ue[v] {
			s, _ := fg.frame.slot(v)
			fg.emit("lw", BlockRegs[j], s)
		}
	}
	for ; i < len(instrs); i++ {
		in := &instrs[i]
		last := i == len(instrs)-1
		switch {
		case last && ir.IsJump(in.Op):
			fg.spill(a)
			fg.lower(in)
		case last && in.Op != ir.OpReturn:
			fg.lower(in)
			fg.spill(a)
		default:
			fg.lower(in)
		}
	}
}

// spill stores the written allocated variables to their stack slots.
func (fg *funcGen) spill(a *blockAlloc) {
	for j, v := range a.vars {
		if a.dirty[v] {
			s, _ := fg.frame.slot(v)
			fg.emit("sw", BlockRegs[j], s)
		}
	}
}
