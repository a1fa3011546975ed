package mips

import (
	"strconv"

	"github.com/eaburns/tigerc/ir"
)

// A frame is the stack layout of a function, relative to $sp:
//
//	0: saved $ra
//	4: saved $fp
//	non-array locals
//	parameters
//	saved $s registers
//
// The size is rounded up to a multiple of 8.
type frame struct {
	size   int
	offs   map[string]int
	saved  int
	nsaved int
}

func newFrame(f *ir.Function, nsaved int) *frame {
	fr := &frame{offs: make(map[string]int), nsaved: nsaved}
	off := 2 * WordSize
	for _, v := range f.Vars() {
		if v.IsArray() {
			continue
		}
		fr.offs[v.Name] = off
		off += WordSize
	}
	for _, p := range f.Params {
		fr.offs[p.Name] = off
		off += WordSize
	}
	fr.saved = off
	off += nsaved * WordSize
	fr.size = (off + 7) &^ 7
	return fr
}

// slot returns the $sp-relative address of a variable's stack slot.
func (fr *frame) slot(name string) (string, bool) {
	off, ok := fr.offs[name]
	if !ok {
		return "", false
	}
	return addr(off, SP), true
}

func (fr *frame) savedSlot(i int) string {
	return addr(fr.saved+i*WordSize, SP)
}

func addr(off int, reg string) string {
	return strconv.Itoa(off) + "(" + reg + ")"
}
