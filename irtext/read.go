// Package irtext reads and writes the textual Tiger-IR format.
//
// A file is a sequence of functions:
//
//	#start_function
//	int fib(int n):
//	int-list: a, b, arr[10]
//	float-list:
//	    assign, a, 0
//	loop:
//	    brgeq, done, a, n
//	    ...
//	#end_function
//
// Lines beginning with # other than the function markers are comments.
// The Line of each instruction is its 1-based line in the file.
package irtext

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/eaburns/peggy/peg"
	"github.com/eaburns/tigerc/ir"
)

// Read reads a program.
// The first argument is the file path or "" if unspecified.
func Read(path string, r io.Reader) (*ir.Program, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ReadString(path, string(data))
}

// ReadFile reads a program from a file path.
func ReadFile(path string) (*ir.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(path, f)
}

// ReadString reads a program from a string.
func ReadString(path, text string) (*ir.Program, error) {
	r := &reader{path: path, text: text}
	for start := 0; start < len(text); {
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += start
		}
		r.lines = append(r.lines, line{num: len(r.lines) + 1, start: start, text: strings.TrimRight(text[start:end], "\r")})
		start = end + 1
	}
	p, err := r.program()
	if err != nil {
		return nil, err
	}
	for _, f := range p.Funcs {
		if err := ir.Check(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return p, nil
}

// A SyntaxError is a malformed line.
type SyntaxError struct {
	Path string
	text string
	fail *peg.Fail
}

// Tree returns the failure tree of the error.
func (err *SyntaxError) Tree() *peg.Fail { return err.fail }

func (err *SyntaxError) Error() string {
	e := peg.SimpleError(err.text, err.fail)
	e.FilePath = err.Path
	return e.Error()
}

// A DeclError is a well-formed line that refers to
// an undeclared or redeclared name.
type DeclError struct {
	Path string
	Line int
	Msg  string
}

func (err *DeclError) Error() string {
	return fmt.Sprintf("%s:%d: %s", err.Path, err.Line, err.Msg)
}

type line struct {
	num   int
	start int
	text  string
}

type reader struct {
	path  string
	text  string
	lines []line
	n     int
}

func (r *reader) syntaxError(rule string, l line, col int, want string) error {
	return &SyntaxError{
		Path: r.path,
		text: r.text,
		fail: &peg.Fail{
			Name: rule,
			Pos:  l.start,
			Kids: []*peg.Fail{{Pos: l.start + col, Want: want}},
		},
	}
}

func (r *reader) declError(l line, format string, vs ...interface{}) error {
	return &DeclError{Path: r.path, Line: l.num, Msg: fmt.Sprintf(format, vs...)}
}

// next returns the next non-blank, non-comment line.
func (r *reader) next() (line, bool) {
	for r.n < len(r.lines) {
		l := r.lines[r.n]
		r.n++
		t := strings.TrimSpace(l.text)
		if t == "" || strings.HasPrefix(t, "#") && t != startMarker && t != endMarker {
			continue
		}
		return l, true
	}
	return line{num: len(r.lines) + 1, start: len(r.text)}, false
}

const (
	startMarker = "#start_function"
	endMarker   = "#end_function"
)

func (r *reader) program() (*ir.Program, error) {
	p := &ir.Program{}
	seen := make(map[string]bool)
	for {
		l, ok := r.next()
		if !ok {
			return p, nil
		}
		if strings.TrimSpace(l.text) != startMarker {
			return nil, r.syntaxError("Program", l, indent(l.text), `"`+startMarker+`"`)
		}
		f, err := r.function(l)
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, r.declError(l, "function %s redefined", f.Name)
		}
		seen[f.Name] = true
		p.Funcs = append(p.Funcs, f)
	}
}

var (
	identRE  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	intRE    = regexp.MustCompile(`^-?[0-9]+$`)
	floatRE  = regexp.MustCompile(`^-?[0-9]+\.[0-9]*$`)
	headerRE = regexp.MustCompile(`^\s*(void|int|float)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)\s*:\s*$`)
	declRE   = regexp.MustCompile(`^(int|float)(\[([0-9]+)\])?\s+([A-Za-z_][A-Za-z0-9_]*)$`)
	listRE   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(\[([0-9]+)\])?$`)
)

func (r *reader) function(start line) (*ir.Function, error) {
	l, ok := r.next()
	m := headerRE.FindStringSubmatch(l.text)
	if !ok || m == nil {
		return nil, r.syntaxError("Header", l, indent(l.text), "function header")
	}
	f := &ir.Function{Name: m[2]}
	switch m[1] {
	case "int":
		f.ReturnType = ir.Int
	case "float":
		f.ReturnType = ir.Float
	}
	if params := strings.TrimSpace(m[3]); params != "" {
		for _, p := range strings.Split(params, ",") {
			d := declRE.FindStringSubmatch(strings.TrimSpace(p))
			if d == nil {
				return nil, r.syntaxError("Param", l, strings.Index(l.text, p), "parameter declaration")
			}
			v := ir.Variable{Name: d[4], Type: scalarType(d[1])}
			if d[2] != "" {
				n, _ := strconv.Atoi(d[3])
				v.Type = &ir.ArrayType{Elem: v.Type, Size: n}
			}
			if _, ok := f.Var(v.Name); ok {
				return nil, r.declError(l, "parameter %s redeclared", v.Name)
			}
			f.Params = append(f.Params, v)
		}
	}
	for _, list := range []string{"int-list:", "float-list:"} {
		l, ok := r.next()
		t := strings.TrimSpace(l.text)
		if !ok || !strings.HasPrefix(t, list) {
			return nil, r.syntaxError("Decls", l, indent(l.text), `"`+list+`"`)
		}
		if err := r.locals(f, l, strings.TrimSuffix(list, "-list:"), t[len(list):]); err != nil {
			return nil, err
		}
	}
	for {
		l, ok := r.next()
		if !ok {
			return nil, r.syntaxError("Function", l, 0, `"`+endMarker+`"`)
		}
		t := strings.TrimSpace(l.text)
		if t == endMarker {
			return f, nil
		}
		in, err := r.instruction(f, l)
		if err != nil {
			return nil, err
		}
		f.Instrs = append(f.Instrs, in)
	}
}

func (r *reader) locals(f *ir.Function, l line, typ, list string) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	for _, item := range strings.Split(list, ",") {
		d := listRE.FindStringSubmatch(strings.TrimSpace(item))
		if d == nil {
			return r.syntaxError("Decls", l, strings.Index(l.text, item), "variable declaration")
		}
		v := ir.Variable{Name: d[1], Type: scalarType(typ)}
		if d[2] != "" {
			n, _ := strconv.Atoi(d[3])
			v.Type = &ir.ArrayType{Elem: v.Type, Size: n}
		}
		if p := f.ParamIndex(v.Name); p >= 0 {
			if !ir.TypeEq(f.Params[p].Type, v.Type) {
				return r.declError(l, "%s declared %s, parameter is %s", v.Name, v.Type, f.Params[p].Type)
			}
		} else if _, ok := f.Var(v.Name); ok {
			return r.declError(l, "variable %s redeclared", v.Name)
		}
		f.Locals = append(f.Locals, v)
	}
	return nil
}

func scalarType(s string) ir.Type {
	if s == "float" {
		return ir.Float
	}
	return ir.Int
}

func (r *reader) instruction(f *ir.Function, l line) (ir.Instruction, error) {
	t := strings.TrimSpace(l.text)
	if strings.HasSuffix(t, ":") {
		name := strings.TrimSpace(strings.TrimSuffix(t, ":"))
		if !identRE.MatchString(name) {
			return ir.Instruction{}, r.syntaxError("Label", l, indent(l.text), "label name")
		}
		return ir.Instruction{Op: ir.OpLabel, Args: []ir.Operand{ir.Label{Name: name}}, Line: l.num}, nil
	}
	fields := strings.Split(t, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	// Unused trailing operand slots are written as empty fields.
	for len(fields) > 1 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	op, ok := ir.ParseOpcode(fields[0])
	if !ok {
		return ir.Instruction{}, r.syntaxError("Instruction", l, indent(l.text), "opcode")
	}
	in := ir.Instruction{Op: op, Line: l.num}
	for i, field := range fields[1:] {
		col := column(l.text, i+1)
		if field == "" {
			return ir.Instruction{}, r.syntaxError("Operand", l, col, "operand")
		}
		x, err := r.operand(f, l, col, op, i, field)
		if err != nil {
			return ir.Instruction{}, err
		}
		in.Args = append(in.Args, x)
	}
	return in, nil
}

func (r *reader) operand(f *ir.Function, l line, col int, op ir.Opcode, i int, text string) (ir.Operand, error) {
	switch {
	case i == 0 && (ir.IsJump(op) || op == ir.OpLabel):
		if !identRE.MatchString(text) {
			return nil, r.syntaxError("Operand", l, col, "label name")
		}
		return ir.Label{Name: text}, nil
	case i == 0 && op == ir.OpCall || i == 1 && op == ir.OpCallr:
		if !identRE.MatchString(text) {
			return nil, r.syntaxError("Operand", l, col, "function name")
		}
		return ir.FuncName{Name: text}, nil
	case intRE.MatchString(text):
		return ir.Constant{Type: ir.Int, Text: text}, nil
	case floatRE.MatchString(text):
		return ir.Constant{Type: ir.Float, Text: text}, nil
	case identRE.MatchString(text):
		v, ok := f.Var(text)
		if !ok {
			return nil, r.declError(l, "undeclared variable %s", text)
		}
		return v, nil
	default:
		return nil, r.syntaxError("Operand", l, col, "operand")
	}
}

func indent(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// column returns the offset of the ith comma-separated field of s.
func column(s string, i int) int {
	col := 0
	for ; i > 0; i-- {
		j := strings.IndexByte(s[col:], ',')
		if j < 0 {
			return len(s)
		}
		col += j + 1
	}
	return col + indent(s[col:])
}
