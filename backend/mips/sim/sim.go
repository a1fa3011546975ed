// Package sim simulates the subset of MIPS assembly
// emitted by package mips.
// It is used by tests to run generated programs.
package sim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultMaxSteps is the step budget used when Sim.MaxSteps is 0.
const DefaultMaxSteps = 10000000

const (
	dataBase  = 0x10010000
	textBase  = 0x00400000
	stackBase = 0x7fffeff8
)

type Sim struct {
	Out io.Writer
	In  io.Reader
	// MaxSteps bounds the number of instructions executed.
	// If 0, DefaultMaxSteps is used.
	MaxSteps int

	in     *bufio.Reader
	text   []instr
	labels map[string]int32
	mem    map[int32]int32
	regs   [32]int32
	pc     int
	halted bool
}

type instr struct {
	op   string
	args []string
	// line is the 1-based source line.
	line int
}

func New() *Sim {
	return &Sim{Out: os.Stdout, In: os.Stdin}
}

type simError struct{ error }

func (s *Sim) fail(format string, vs ...interface{}) {
	msg := fmt.Sprintf(format, vs...)
	if s.pc >= 0 && s.pc < len(s.text) {
		in := s.text[s.pc]
		msg = fmt.Sprintf("%d: %s: %s", in.line, in.op, msg)
	}
	panic(simError{errors.New(msg)})
}

// Run assembles lines and runs them from the main label
// until the exit system call.
func (s *Sim) Run(lines []string) (err error) {
	s.in = bufio.NewReader(s.In)
	s.text = nil
	s.labels = make(map[string]int32)
	s.mem = make(map[int32]int32)
	s.regs = [32]int32{}
	s.pc = -1
	s.halted = false
	if err := s.assemble(lines); err != nil {
		return err
	}
	main, ok := s.labels["main"]
	if !ok {
		return errors.New("no main label")
	}
	s.pc = int((main - textBase) / 4)
	s.regs[regNum["$sp"]] = stackBase
	s.regs[regNum["$fp"]] = stackBase
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(simError); ok {
			err = e.error
			return
		}
		panic(r)
	}()
	limit := s.MaxSteps
	if limit == 0 {
		limit = DefaultMaxSteps
	}
	for n := 0; !s.halted; n++ {
		if n >= limit {
			s.fail("exceeded %d steps", limit)
		}
		if s.pc < 0 || s.pc >= len(s.text) {
			s.pc = -1
			s.fail("pc out of text segment")
		}
		s.step()
	}
	return nil
}

func (s *Sim) assemble(lines []string) error {
	var text bool
	data := int32(dataBase)
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if j := strings.Index(line, "#"); j >= 0 {
			line = strings.TrimSpace(line[:j])
		}
		switch {
		case line == "":
			continue
		case line == ".data":
			text = false
			continue
		case line == ".text":
			text = true
			continue
		}
		if !text {
			var name string
			var size int32
			if _, err := fmt.Sscanf(line, "%s .space %d", &name, &size); err != nil || !strings.HasSuffix(name, ":") {
				return fmt.Errorf("%d: bad data directive %q", i+1, line)
			}
			if err := s.define(strings.TrimSuffix(name, ":"), data); err != nil {
				return fmt.Errorf("%d: %s", i+1, err)
			}
			data += (size + 3) &^ 3
			continue
		}
		if strings.HasSuffix(line, ":") {
			addr := int32(textBase + 4*len(s.text))
			if err := s.define(strings.TrimSuffix(line, ":"), addr); err != nil {
				return fmt.Errorf("%d: %s", i+1, err)
			}
			continue
		}
		in := instr{line: i + 1}
		fields := strings.SplitN(line, " ", 2)
		in.op = fields[0]
		if len(fields) == 2 {
			for _, a := range strings.Split(fields[1], ",") {
				in.args = append(in.args, strings.TrimSpace(a))
			}
		}
		if n, ok := arity[in.op]; !ok {
			return fmt.Errorf("%d: unknown instruction %s", i+1, in.op)
		} else if n != len(in.args) {
			return fmt.Errorf("%d: %s: got %d operands, want %d", i+1, in.op, len(in.args), n)
		}
		s.text = append(s.text, in)
	}
	return nil
}

func (s *Sim) define(name string, addr int32) error {
	if _, ok := s.labels[name]; ok {
		return fmt.Errorf("label %s redefined", name)
	}
	s.labels[name] = addr
	return nil
}

var arity = map[string]int{
	"li": 2, "la": 2, "lw": 2, "sw": 2, "move": 2,
	"add": 3, "sub": 3, "mul": 3, "div": 3, "and": 3, "or": 3,
	"addi": 3, "andi": 3, "ori": 3, "sll": 3,
	"beq": 3, "bne": 3, "blt": 3, "bgt": 3, "ble": 3, "bge": 3,
	"j": 1, "jal": 1, "jr": 1,
	"syscall": 0,
}

var regNum = func() map[string]int {
	names := []string{
		"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
		"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
		"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
		"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
	}
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}()

func (s *Sim) step() {
	in := s.text[s.pc]
	a := in.args
	next := s.pc + 1
	switch in.op {
	case "li":
		s.set(a[0], s.imm(a[1]))
	case "la":
		s.set(a[0], s.label(a[1]))
	case "lw":
		s.set(a[0], s.load(s.addr(a[1])))
	case "sw":
		s.store(s.addr(a[1]), s.reg(a[0]))
	case "move":
		s.set(a[0], s.reg(a[1]))
	case "add":
		s.set(a[0], s.reg(a[1])+s.reg(a[2]))
	case "sub":
		s.set(a[0], s.reg(a[1])-s.reg(a[2]))
	case "mul":
		s.set(a[0], s.reg(a[1])*s.reg(a[2]))
	case "div":
		d := s.reg(a[2])
		if d == 0 {
			s.fail("division by zero")
		}
		n := s.reg(a[1])
		if n == -1<<31 && d == -1 {
			s.set(a[0], n)
		} else {
			s.set(a[0], n/d)
		}
	case "and":
		s.set(a[0], s.reg(a[1])&s.reg(a[2]))
	case "or":
		s.set(a[0], s.reg(a[1])|s.reg(a[2]))
	case "addi":
		s.set(a[0], s.reg(a[1])+s.imm16(a[2], true))
	case "andi":
		s.set(a[0], s.reg(a[1])&s.imm16(a[2], false))
	case "ori":
		s.set(a[0], s.reg(a[1])|s.imm16(a[2], false))
	case "sll":
		n := s.imm(a[2])
		if n < 0 || n > 31 {
			s.fail("bad shift amount %d", n)
		}
		s.set(a[0], s.reg(a[1])<<uint(n))
	case "beq", "bne", "blt", "bgt", "ble", "bge":
		if branch(in.op, s.reg(a[0]), s.reg(a[1])) {
			next = s.target(a[2])
		}
	case "j":
		next = s.target(a[0])
	case "jal":
		s.set("$ra", int32(textBase+4*next))
		next = s.target(a[0])
	case "jr":
		next = s.textIndex(s.reg(a[0]))
	case "syscall":
		s.syscall()
	default:
		panic("impossible")
	}
	s.pc = next
}

func branch(op string, x, y int32) bool {
	switch op {
	case "beq":
		return x == y
	case "bne":
		return x != y
	case "blt":
		return x < y
	case "bgt":
		return x > y
	case "ble":
		return x <= y
	case "bge":
		return x >= y
	default:
		panic("impossible")
	}
}

func (s *Sim) syscall() {
	a0 := s.regs[regNum["$a0"]]
	switch v0 := s.regs[regNum["$v0"]]; v0 {
	case 1:
		fmt.Fprintf(s.Out, "%d", a0)
	case 5:
		var n int32
		if _, err := fmt.Fscan(s.in, &n); err != nil {
			s.fail("read int: %s", err)
		}
		s.set("$v0", n)
	case 10:
		s.halted = true
	case 11:
		fmt.Fprintf(s.Out, "%c", byte(a0))
	case 12:
		c, err := s.in.ReadByte()
		switch {
		case err == io.EOF:
			s.set("$v0", -1)
		case err != nil:
			s.fail("read char: %s", err)
		default:
			s.set("$v0", int32(c))
		}
	default:
		s.fail("unknown system call %d", v0)
	}
}

func (s *Sim) regIndex(name string) int {
	r, ok := regNum[name]
	if !ok {
		s.fail("bad register %s", name)
	}
	return r
}

func (s *Sim) reg(name string) int32 { return s.regs[s.regIndex(name)] }

func (s *Sim) set(name string, v int32) {
	if r := s.regIndex(name); r != 0 {
		s.regs[r] = v
	}
}

func (s *Sim) imm(text string) int32 {
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		s.fail("bad immediate %s", text)
	}
	return int32(n)
}

// imm16 returns a 16-bit immediate operand,
// sign- or zero-extended.
func (s *Sim) imm16(text string, signed bool) int32 {
	n := s.imm(text)
	if signed && (n < -1<<15 || n >= 1<<15) || !signed && (n < 0 || n >= 1<<16) {
		s.fail("immediate %d out of range", n)
	}
	return n
}

func (s *Sim) label(name string) int32 {
	addr, ok := s.labels[name]
	if !ok {
		s.fail("undefined label %s", name)
	}
	return addr
}

func (s *Sim) target(name string) int {
	return s.textIndex(s.label(name))
}

func (s *Sim) textIndex(addr int32) int {
	i := int(addr-textBase) / 4
	if addr < textBase || addr%4 != 0 || i >= len(s.text) {
		s.fail("bad jump address %#x", addr)
	}
	return i
}

// addr returns the address of an off(reg) operand.
func (s *Sim) addr(text string) int32 {
	i := strings.Index(text, "(")
	if i < 0 || !strings.HasSuffix(text, ")") {
		s.fail("bad address %s", text)
	}
	off := int32(0)
	if i > 0 {
		off = s.imm16(text[:i], true)
	}
	return s.reg(text[i+1:len(text)-1]) + off
}

func (s *Sim) load(addr int32) int32 {
	s.checkAddr(addr)
	return s.mem[addr]
}

func (s *Sim) store(addr, v int32) {
	s.checkAddr(addr)
	s.mem[addr] = v
}

func (s *Sim) checkAddr(addr int32) {
	if addr%4 != 0 {
		s.fail("unaligned address %#x", addr)
	}
	if addr < dataBase {
		s.fail("bad address %#x", addr)
	}
}
