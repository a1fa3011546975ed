package irtext

import (
	"io"

	"github.com/eaburns/tigerc/ir"
)

// Write writes p in the format accepted by Read.
func Write(w io.Writer, p *ir.Program) error {
	_, err := io.WriteString(w, p.String())
	return err
}

// WriteFunction writes a single function in the format accepted by Read.
func WriteFunction(w io.Writer, f *ir.Function) error {
	_, err := io.WriteString(w, f.String())
	return err
}
