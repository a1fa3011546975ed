package flowgraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/eaburns/tigerc/ir"
)

func (g *CFG) String() string        { return g.buildString(new(strings.Builder)).String() }
func (b *BasicBlock) String() string { return b.buildString(new(strings.Builder)).String() }
func (r *Reach) String() string      { return r.buildString(new(strings.Builder)).String() }

func (g *CFG) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(g.Func.Name)
	s.WriteString(" {")
	for _, b := range g.Blocks {
		s.WriteRune('\n')
		b.buildString(s)
	}
	s.WriteString("\n}")
	return s
}

func (b *BasicBlock) buildString(s *strings.Builder) *strings.Builder {
	fmt.Fprintf(s, "%d [%d, %d]:\tin=[", b.Num, b.Start, b.End)
	for i, in := range b.in {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(s, "%d", in.Num)
	}
	s.WriteString("], out=[")
	for i, out := range b.out {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(s, "%d", out.Num)
	}
	s.WriteRune(']')
	if len(b.UEVar) > 0 {
		s.WriteString(", uevar=[")
		for i, v := range b.UEVar {
			if i > 0 {
				s.WriteString(", ")
			}
			s.WriteString(v.Name)
		}
		s.WriteRune(']')
	}
	instrs := b.Instrs()
	for i := range instrs {
		fmt.Fprintf(s, "\n    %d: ", instrs[i].Line)
		s.WriteString(instrs[i].String())
	}
	return s
}

func (r *Reach) buildString(s *strings.Builder) *strings.Builder {
	instrs := r.CFG.Func.Instrs
	for i, b := range r.CFG.Blocks {
		if i > 0 {
			s.WriteRune('\n')
		}
		fmt.Fprintf(s, "%d:", b.Num)
		for _, set := range []struct {
			name string
			defs DefSet
		}{{"gen", r.Gen[b]}, {"kill", r.Kill[b]}, {"in", r.In[b]}, {"out", r.Out[b]}} {
			fmt.Fprintf(s, " %s=", set.name)
			buildDefSet(s, instrs, set.defs)
		}
	}
	return s
}

// buildDefSet writes the IR lines of the set's instructions.
func buildDefSet(s *strings.Builder, instrs []ir.Instruction, defs DefSet) {
	s.WriteRune('[')
	for i, j := range defs.Indexes() {
		if i > 0 {
			s.WriteRune(' ')
		}
		fmt.Fprintf(s, "%d", instrs[j].Line)
	}
	s.WriteRune(']')
}

func (r *Reach) trace(w io.Writer) {
	fmt.Fprintf(w, "%s: reaching definitions converged in %d iterations\n%s\n",
		r.CFG.Func.Name, r.Iters, r)
}
