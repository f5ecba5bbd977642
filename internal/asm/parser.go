package asm

// parser.go implements the first pass of the two-pass assembler: source is tokenized with regular
// expressions, labels are recorded in a symbol table and each instruction or directive is parsed
// into an Operation, ready for the second, code-generation pass.

import (
	"bufio"
	"errors"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/sixteen-systems/lc3vm/internal/log"
	"github.com/sixteen-systems/lc3vm/internal/vm"
)

// operators maps an opcode mnemonic to a prototype Operation. Parse is called on a fresh copy of
// the prototype for every occurrence of the opcode in source.
var operators = map[string]func() Operation{
	"BR": func() Operation { return &BR{} }, "BRN": func() Operation { return &BR{} },
	"BRZ": func() Operation { return &BR{} }, "BRP": func() Operation { return &BR{} },
	"BRNZ": func() Operation { return &BR{} }, "BRNP": func() Operation { return &BR{} },
	"BRZP": func() Operation { return &BR{} }, "BRNZP": func() Operation { return &BR{} },
	"AND":  func() Operation { return &AND{} },
	"LD":   func() Operation { return &LD{} },
	"LDR":  func() Operation { return &LDR{} },
	"LDI":  func() Operation { return &LDI{} },
	"LEA":  func() Operation { return &LEA{} },
	"ADD":  func() Operation { return &ADD{} },
	"TRAP": func() Operation { return &TRAP{} },
	"NOT":  func() Operation { return &NOT{} },
	"ST":   func() Operation { return &ST{} },
	"STR":  func() Operation { return &STR{} },
	"STI":  func() Operation { return &STI{} },
	"RTI":  func() Operation { return &RTI{} },
	"JMP":  func() Operation { return &JMP{} },
	"RET":  func() Operation { return &RET{} },
	"JSR":  func() Operation { return &JSR{} },
	"JSRR": func() Operation { return &JSRR{} },
	"HALT": func() Operation { return &HALT{} },
}

// Parser reads source code and produces a symbol table and a syntax table, ready for code
// generation. The caller provides one or more input streams; parsing errors are accumulated and
// returned together from Err.
//
//	p := NewParser(logger)
//	p.Parse(mustOpen("file1.asm"))
//	p.Parse(mustOpen("file2.asm"))
//
//	if err := p.Err(); err != nil {
//		log.Fatal(err)
//	}
type Parser struct {
	symbols SymbolTable
	syntax  SyntaxTable
	extra   map[string]reflect.Type

	errs []error
	log  *log.Logger
}

// NewParser creates a parser ready to accept source.
func NewParser(logger *log.Logger) *Parser {
	return &Parser{
		symbols: make(SymbolTable),
		log:     logger,
	}
}

// Probe registers an additional opcode mnemonic, backed by a prototype Operation. It exists so
// callers (and tests) can extend the assembler's instruction set without modifying the parser.
func (p *Parser) Probe(name string, proto Operation) {
	if p.extra == nil {
		p.extra = make(map[string]reflect.Type)
	}

	p.extra[strings.ToUpper(name)] = reflect.TypeOf(proto).Elem()
}

// lookup returns a constructor for the opcode, checking probed operations before the built-ins.
func (p *Parser) lookup(name string) (func() Operation, bool) {
	if p.extra != nil {
		if t, ok := p.extra[name]; ok {
			return func() Operation {
				return reflect.New(t).Interface().(Operation)
			}, true
		}
	}

	proto, ok := operators[name]

	return proto, ok
}

// Symbols returns the symbol table accumulated so far.
func (p *Parser) Symbols() SymbolTable {
	return p.symbols
}

// Syntax returns the parsed operations, in source order.
func (p *Parser) Syntax() SyntaxTable {
	return p.syntax
}

// Err joins and returns every syntax error encountered during parsing, or nil.
func (p *Parser) Err() error {
	return errors.Join(p.errs...)
}

var commentPattern = regexp.MustCompile(`[\pZ\p{Cc}]*;+.*$`)

// Parse reads and parses one source stream. Multiple streams may be parsed into the same Parser;
// locations continue to accumulate from where the previous stream left off.
func (p *Parser) Parse(in io.Reader) {
	lines := bufio.NewScanner(in)

	var loc uint16

	for pos := uint16(1); lines.Scan(); pos++ {
		loc = p.parseLine(loc, pos, lines.Text())
	}

	if err := lines.Err(); err != nil {
		p.errs = append(p.errs, err)
	}
}

func (p *Parser) parseLine(loc uint16, pos uint16, line string) uint16 {
	remain := line

	if m := commentPattern.FindStringIndex(remain); len(m) > 1 {
		remain = remain[:m[0]]
	}

	remain = strings.TrimSpace(remain)
	if remain == "" {
		return loc
	}

	fields := strings.Fields(remain)

	if label, ok := p.labelField(fields[0]); ok {
		p.symbols.Add(label, vm.Word(loc))
		fields = fields[1:]

		if len(fields) == 0 {
			return loc
		}
	}

	opcode := strings.ToUpper(fields[0])
	operands := parseOperands(strings.Join(fields[1:], " "))

	if strings.HasPrefix(opcode, ".") {
		return p.parseDirective(loc, pos, strings.TrimPrefix(opcode, "."), operands, line)
	}

	proto, ok := p.lookup(opcode)
	if !ok {
		p.errs = append(p.errs, &SyntaxError{Loc: vm.Word(loc), Pos: vm.Word(pos), Line: line, Err: ErrOpcode})
		return loc
	}

	op := proto()
	if br, ok := op.(*BR); ok {
		br.NZP = branchCondition(opcode)
	}

	if err := op.Parse(opcode, operands); err != nil {
		p.errs = append(p.errs, &SyntaxError{Loc: vm.Word(loc), Pos: vm.Word(pos), Line: line, Err: err})
		return loc
	}

	p.syntax.Add(&SourceInfo{Pos: vm.Word(pos), Line: line, Operation: op})

	return loc + 1
}

// labelField reports whether the leading token of a line names a label, either colon-terminated
// or bare, and returns the label name with any trailing colon stripped.
func (p *Parser) labelField(field string) (string, bool) {
	if strings.HasSuffix(field, ":") {
		return strings.TrimSuffix(field, ":"), true
	}

	if strings.HasPrefix(field, ".") {
		return "", false
	}

	if _, ok := p.lookup(strings.ToUpper(field)); ok {
		return "", false
	}

	return field, true
}

func (p *Parser) parseDirective(loc, pos uint16, name string, operands []string, line string) uint16 {
	var (
		op  Operation
		adv uint16 = 1
	)

	switch name {
	case "ORIG":
		op = &ORIG{}
	case "FILL", "DW":
		op = &FILL{}
	case "STRINGZ":
		s := &STRINGZ{}
		if len(operands) > 0 {
			_ = s.ParseString(name, strings.Join(operands, " "))
		}

		p.syntax.Add(&SourceInfo{Pos: vm.Word(pos), Line: line, Operation: s})

		return loc + uint16(len([]rune(s.LITERAL))) + 1
	case "BLKW":
		b := &BLKW{}
		if err := b.Parse(name, operands); err == nil {
			adv = b.ALLOC
		}

		p.syntax.Add(&SourceInfo{Pos: vm.Word(pos), Line: line, Operation: b})

		return loc + adv
	case "END":
		return loc
	default:
		p.errs = append(p.errs, &SyntaxError{Loc: vm.Word(loc), Pos: vm.Word(pos), Line: line, Err: ErrOperand})
		return loc
	}

	if err := op.Parse(name, operands); err != nil {
		p.errs = append(p.errs, &SyntaxError{Loc: vm.Word(loc), Pos: vm.Word(pos), Line: line, Err: err})
		return loc
	}

	p.syntax.Add(&SourceInfo{Pos: vm.Word(pos), Line: line, Operation: op})

	if orig, ok := op.(*ORIG); ok {
		return orig.LITERAL
	}

	return loc + adv
}

// branchCondition returns the NZP condition bits encoded in a BR mnemonic.
func branchCondition(opcode string) uint8 {
	switch opcode {
	case "BRN":
		return CondNegative
	case "BRZ":
		return CondZero
	case "BRP":
		return CondPositive
	case "BRNZ":
		return CondNZ
	case "BRNP":
		return CondNP
	case "BRZP":
		return CondZP
	case "BR", "BRNZP":
		return CondNZP
	default:
		return CondNZP
	}
}

// parseOperands splits a comma-separated operand list, trimming surrounding whitespace.
func parseOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}

// parseLiteral parses a literal operand, accepting '#', 'x', 'o', 'b' prefixed integers.
func parseLiteral(operand string, bits uint8) (uint16, error) {
	if operand == "" {
		return 0, ErrOperand
	}

	s := operand
	neg := false

	if s[0] == '#' {
		s = s[1:]
	}

	if s != "" && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	base := 10

	if len(s) > 0 {
		switch s[0] {
		case 'x', 'X':
			base, s = 16, s[1:]
		case 'o', 'O':
			base, s = 8, s[1:]
		case 'b', 'B':
			base, s = 2, s[1:]
		}
	}

	val, err := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), base, 32)
	if err != nil {
		return 0, ErrLiteral
	}

	if neg {
		val = -val
	}

	// A literal fits a field of n bits if it is a signed or an unsigned n-bit value.
	if val >= 1<<bits || val < -(1<<(bits-1)) {
		return 0, &LiteralRangeError{Literal: operand, Range: bits}
	}

	return uint16(val) & uint16((1<<bits)-1), nil
}

// parseImmediate parses an operand that may be either a literal or a symbol reference.
func parseImmediate(operand string, bits uint8) (lit uint16, sym string, err error) {
	if operand == "" {
		return 0, "", ErrOperand
	}

	if operand[0] == '#' || operand[0] == '-' || isDigit(operand[0]) ||
		strings.ContainsAny(string(operand[0]), "xXoObB") {
		lit, err = parseLiteral(operand, bits)
		return lit, "", err
	}

	return 0, strings.ToUpper(operand), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// parseRegister returns the canonical register name (e.g. "R3") or "" if operand is not a register.
func parseRegister(operand string) string {
	operand = strings.ToUpper(strings.TrimSpace(operand))
	if len(operand) < 2 || operand[0] != 'R' {
		return ""
	}

	if registerVal(operand) == badGPR {
		return ""
	}

	return operand
}
