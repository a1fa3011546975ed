package ir

import (
	"strconv"
	"strings"
)

func (p *Program) String() string     { return p.buildString(new(strings.Builder)).String() }
func (f *Function) String() string    { return f.buildString(new(strings.Builder)).String() }
func (in *Instruction) String() string { return in.buildString(new(strings.Builder)).String() }
func (v Variable) String() string     { return v.Name }
func (c Constant) String() string     { return c.Text }
func (l Label) String() string        { return l.Name }
func (f FuncName) String() string     { return f.Name }
func (t *IntType) String() string     { return t.buildString(new(strings.Builder)).String() }
func (t *FloatType) String() string   { return t.buildString(new(strings.Builder)).String() }
func (t *ArrayType) String() string   { return t.buildString(new(strings.Builder)).String() }

func (p *Program) buildString(s *strings.Builder) *strings.Builder {
	for i, f := range p.Funcs {
		if i > 0 {
			s.WriteRune('\n')
		}
		f.buildString(s)
	}
	return s
}

// buildString writes the function in the textual IR format.
func (f *Function) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("#start_function\n")
	if f.ReturnType == nil {
		s.WriteString("void")
	} else {
		f.ReturnType.buildString(s)
	}
	s.WriteRune(' ')
	s.WriteString(f.Name)
	s.WriteRune('(')
	for i, p := range f.Params {
		if i > 0 {
			s.WriteString(", ")
		}
		p.Type.buildString(s)
		s.WriteRune(' ')
		s.WriteString(p.Name)
	}
	s.WriteString("):\n")
	var ints, floats []string
	for _, v := range f.Locals {
		name := v.Name
		elem := v.Type
		if a, ok := v.Type.(*ArrayType); ok {
			name += "[" + strconv.Itoa(a.Size) + "]"
			elem = a.Elem
		}
		if _, ok := elem.(*FloatType); ok {
			floats = append(floats, name)
		} else {
			ints = append(ints, name)
		}
	}
	writeList(s, "int-list:", ints)
	writeList(s, "float-list:", floats)
	for i := range f.Instrs {
		in := &f.Instrs[i]
		if in.Op != OpLabel {
			s.WriteString("    ")
		}
		in.buildString(s)
		s.WriteRune('\n')
	}
	s.WriteString("#end_function\n")
	return s
}

func writeList(s *strings.Builder, head string, names []string) {
	s.WriteString(head)
	if len(names) > 0 {
		s.WriteRune(' ')
		s.WriteString(strings.Join(names, ", "))
	}
	s.WriteRune('\n')
}

func (in *Instruction) buildString(s *strings.Builder) *strings.Builder {
	if in.Op == OpLabel && len(in.Args) == 1 {
		in.Args[0].buildString(s)
		s.WriteRune(':')
		return s
	}
	s.WriteString(in.Op.String())
	for _, a := range in.Args {
		s.WriteString(", ")
		if a == nil {
			s.WriteString("<nil>")
			continue
		}
		a.buildString(s)
	}
	return s
}

func (v Variable) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(v.Name)
	return s
}

func (c Constant) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(c.Text)
	return s
}

func (l Label) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(l.Name)
	return s
}

func (f FuncName) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(f.Name)
	return s
}

func (*IntType) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("int")
	return s
}

func (*FloatType) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("float")
	return s
}

func (t *ArrayType) buildString(s *strings.Builder) *strings.Builder {
	t.Elem.buildString(s)
	s.WriteRune('[')
	s.WriteString(strconv.Itoa(t.Size))
	s.WriteRune(']')
	return s
}
