// Command tigerc compiles a Tiger-IR program to MIPS assembly.
//
// Flag defaults are read from the environment:
// TIGERC_MODE, TIGERC_OUT, and TIGERC_OPT.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/eaburns/tigerc/backend/mips"
	"github.com/eaburns/tigerc/flowgraph"
	"github.com/eaburns/tigerc/irtext"
	"github.com/xyproto/env/v2"
)

var (
	mode   = flag.String("mode", env.Str("TIGERC_MODE", "naive"), "instruction selection mode: naive or greedy")
	out    = flag.String("o", env.Str("TIGERC_OUT", "out.s"), "output file; - is standard output")
	opt    = flag.Bool("opt", optDefault(), "whether to eliminate dead code")
	emitIR = flag.Bool("emit-ir", false, "write the (optimized) IR instead of assembly")
	v      = flag.Bool("v", false, "trace the optimizer and register allocator to stderr")
)

func main() {
	flag.Parse()
	args := flag.Args()
	switch {
	case len(args) == 0:
		usage("an IR file is required")
	case len(args) > 1:
		usage("only one IR file is supported")
	}
	m, err := mips.ParseMode(*mode)
	if err != nil {
		usage(err.Error())
	}
	p, err := irtext.ReadFile(args[0])
	if err != nil {
		die("%s", err)
	}
	if *opt {
		var opts []flowgraph.Option
		if *v {
			opts = append(opts, flowgraph.Trace(os.Stderr))
		}
		if err := flowgraph.Optimize(p, opts...); err != nil {
			die("%s", err)
		}
	}
	if *emitIR {
		write(func(w io.Writer) error { return irtext.Write(w, p) })
		return
	}
	var opts []mips.Option
	if *v {
		opts = append(opts, mips.Trace(os.Stderr))
	}
	asm, err := mips.Select(p, m, opts...)
	if err != nil {
		die("%s", err)
	}
	write(func(w io.Writer) error {
		_, err := asm.WriteTo(w)
		return err
	})
}

func write(f func(io.Writer) error) {
	if *out == "-" {
		if err := f(os.Stdout); err != nil {
			die("failed to write output: %s", err)
		}
		return
	}
	file, err := os.Create(*out)
	if err != nil {
		die("failed to create output file: %s", err)
	}
	if err := f(file); err != nil {
		file.Close()
		die("failed to write output: %s", err)
	}
	if err := file.Close(); err != nil {
		die("failed to close output file: %s", err)
	}
}

// optDefault returns the default of -opt:
// true unless TIGERC_OPT is set to a false value.
func optDefault() bool {
	return !env.Has("TIGERC_OPT") || env.Bool("TIGERC_OPT")
}

func usage(msg string) {
	fmt.Printf("%s\n", msg)
	fmt.Printf("tigerc [flags] <file.ir>\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func die(f string, vs ...interface{}) {
	fmt.Printf(f+"\n", vs...)
	os.Exit(1)
}
