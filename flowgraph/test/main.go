package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/eaburns/tigerc/flowgraph"
	"github.com/eaburns/tigerc/irtext"
)

var (
	opt   = flag.Bool("opt", true, "whether to optimize")
	reach = flag.Bool("reach", false, "whether to print reaching definitions")
	trace = flag.Bool("trace", false, "whether to trace the optimizer")
)

func main() {
	flag.Parse()

	in := os.Stdin
	path := "<stdin>"
	if len(flag.Args()) == 1 {
		path = flag.Arg(0)
		f, err := os.Open(path)
		if err != nil {
			fmt.Printf("failed to open %s: %s", path, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	p, err := irtext.Read(path, in)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	var options []flowgraph.Option
	if *trace {
		options = append(options, flowgraph.Trace(os.Stdout))
	}
	if *opt {
		if err := flowgraph.Optimize(p, options...); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	for _, f := range p.Funcs {
		g, err := flowgraph.Build(f)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		for _, b := range g.Blocks {
			flowgraph.UpwardExposed(b)
		}
		fmt.Println(g.String())
		if *reach {
			r, err := flowgraph.ReachingDefs(g)
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			fmt.Println(r.String())
		}
	}
}
