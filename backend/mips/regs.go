package mips

// WordSize is the size in bytes of an int and of a stack slot.
const WordSize = 4

const (
	Zero = "$zero"
	V0   = "$v0"
	RA   = "$ra"
	FP   = "$fp"
	SP   = "$sp"
)

// ArgRegs are the argument registers.
// Parameters live in them for the duration of a function.
var ArgRegs = [...]string{"$a0", "$a1", "$a2", "$a3"}

// BlockRegs are the registers allocated to variables within a block.
var BlockRegs = [...]string{"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6"}

// ScratchRegs hold temporaries within the lowering of a single instruction.
var ScratchRegs = [...]string{"$t7", "$t8", "$t9"}

// SavedRegs hold the block registers across calls.
// A function that uses them saves and restores them,
// so their values survive calls.
var SavedRegs = [...]string{"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6"}

const (
	t7 = "$t7"
	t8 = "$t8"
	t9 = "$t9"
)

// System call numbers.
const (
	sysPrintInt  = 1
	sysReadInt   = 5
	sysExit      = 10
	sysPrintChar = 11
	sysReadChar  = 12
)
