package flowgraph

import (
	"fmt"

	"github.com/eaburns/tigerc/ir"
)

// Optimize removes dead code from each function of p in turn.
// The first error stops the run;
// functions before the failing one remain optimized.
func Optimize(p *ir.Program, opts ...Option) error {
	for _, f := range p.Funcs {
		if _, err := OptimizeFunc(f, opts...); err != nil {
			return err
		}
	}
	return nil
}

// OptimizeFunc removes dead code from f,
// returning the number of instructions removed.
func OptimizeFunc(f *ir.Function, opts ...Option) (int, error) {
	o := makeOptions(opts)
	g, err := Build(f)
	if err != nil {
		return 0, err
	}
	if o.trace != nil {
		fmt.Fprintf(o.trace, "%s\n", g)
	}
	r, err := ReachingDefs(g, opts...)
	if err != nil {
		return 0, err
	}
	n := EliminateDeadCode(g, r, opts...)
	if o.trace != nil {
		fmt.Fprintf(o.trace, "%s: removed %d instructions\n", f.Name, n)
	}
	return n, nil
}
