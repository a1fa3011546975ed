package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/eaburns/tigerc/backend/mips"
	"github.com/eaburns/tigerc/backend/mips/sim"
	"github.com/eaburns/tigerc/flowgraph"
	"github.com/eaburns/tigerc/irtext"
)

var (
	opt   = flag.Bool("opt", true, "whether to optimize")
	mode  = flag.String("mode", "greedy", "naive or greedy")
	run   = flag.Bool("run", false, "whether to simulate the program instead of printing it")
	trace = flag.Bool("trace", false, "whether to trace register allocation")
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
	m, err := mips.ParseMode(*mode)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	p, err := irtext.Read(path, in)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if *opt {
		if err := flowgraph.Optimize(p); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	var options []mips.Option
	if *trace {
		options = append(options, mips.Trace(os.Stdout))
	}
	asm, err := mips.Select(p, m, options...)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if !*run {
		fmt.Print(asm.String())
		return
	}
	s := sim.New()
	s.In = strings.NewReader("")
	if in != os.Stdin {
		s.In = os.Stdin
	}
	if err := s.Run(asm.Lines()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
