package parser

import (
	"strconv"
	"strings"

	"spyder/pkg/vm"
)

// plainOps are the mnemonics that take no operand.
var plainOps = map[string]vm.Opcode{
	"pop":        vm.OpPop,
	"rePush":     vm.OpDup,
	"clearStack": vm.OpClear,
	"noOp":       vm.OpNop,
	"return":     vm.OpJump,
	"add":        vm.OpAdd,
	"sub":        vm.OpSub,
	"mul":        vm.OpMul,
	"div":        vm.OpDiv,
}

// Parse turns source text into a Program, one statement per line. A single
// trailing line break is allowed; any other blank line is an error.
func Parse(src string) (*Program, error) {
	lines := strings.Split(src, "\n")
	if n := len(lines); n > 1 && strings.TrimRight(lines[n-1], "\r") == "" {
		lines = lines[:n-1]
	}

	prog := &Program{Statements: make([]Statement, 0, len(lines))}
	for i, raw := range lines {
		stmt, err := parseStatement(strings.TrimSuffix(raw, "\r"), i+1)
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func parseStatement(raw string, lineNo int) (Statement, error) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil, syntaxErrorf(lineNo, "", "empty line where a statement is required")
	}

	if text, ok := strings.CutPrefix(line, "//"); ok {
		return &Comment{Line: lineNo, Text: text}, nil
	}

	if strings.HasPrefix(line, "![") || strings.HasPrefix(line, "!![") {
		return parseLabeled(line, lineNo)
	}

	fields := strings.Fields(line)
	mnemonic, ops := fields[0], fields[1:]

	switch mnemonic {
	case "goto", "gotoEqual", "call":
		if len(ops) != 1 {
			return nil, syntaxErrorf(lineNo, mnemonic, "expects 1 label operand, got %d", len(ops))
		}
		label := ops[0]
		if !isIdentifier(label) {
			return nil, syntaxErrorf(lineNo, label, "invalid label")
		}
		switch mnemonic {
		case "goto":
			return &Goto{Line: lineNo, Label: label}, nil
		case "gotoEqual":
			return &GotoEqual{Line: lineNo, Label: label}, nil
		default:
			return &Call{Line: lineNo, Label: label}, nil
		}

	case "var":
		return parseAssign(ops, lineNo)

	case "load", "store":
		mode := AccessLoad
		if mnemonic == "store" {
			mode = AccessStore
		}
		switch len(ops) {
		case 0:
			return &VarAccess{Line: lineNo, Mode: mode}, nil
		case 1:
			name, ok := variableName(ops[0])
			if !ok {
				return nil, syntaxErrorf(lineNo, ops[0], "invalid variable name")
			}
			return &VarAccess{Line: lineNo, Mode: mode, Name: name}, nil
		default:
			return nil, syntaxErrorf(lineNo, mnemonic, "expects at most 1 operand, got %d", len(ops))
		}
	}

	ins, err := parsePlain(mnemonic, ops, lineNo)
	if err != nil {
		return nil, err
	}
	return &Plain{Line: lineNo, Ins: ins}, nil
}

// parseLabeled handles "![name] op" and the older "!![name] op" spelling.
func parseLabeled(line string, lineNo int) (Statement, error) {
	rest := line[2:]
	if strings.HasPrefix(line, "!![") {
		rest = line[3:]
	}

	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return nil, syntaxErrorf(lineNo, line, "unterminated label")
	}
	label := rest[:end]
	if !isIdentifier(label) {
		return nil, syntaxErrorf(lineNo, label, "invalid label")
	}

	fields := strings.Fields(rest[end+1:])
	if len(fields) == 0 {
		return nil, syntaxErrorf(lineNo, label, "label without an instruction")
	}
	mnemonic, ops := fields[0], fields[1:]

	var ins vm.Instruction
	switch mnemonic {
	case "goto", "gotoEqual", "call", "var":
		return nil, syntaxErrorf(lineNo, mnemonic, "a label cannot be attached to")
	case "load", "store":
		if len(ops) != 0 {
			return nil, syntaxErrorf(lineNo, mnemonic+" "+ops[0], "a label cannot be attached to a named variable access")
		}
		ins = vm.Op(AccessLoad.Opcode())
		if mnemonic == "store" {
			ins = vm.Op(AccessStore.Opcode())
		}
	default:
		var err error
		if ins, err = parsePlain(mnemonic, ops, lineNo); err != nil {
			return nil, err
		}
	}

	return &Labeled{Line: lineNo, Label: label, Ins: ins}, nil
}

func parsePlain(mnemonic string, ops []string, lineNo int) (vm.Instruction, error) {
	if mnemonic == "push" {
		if len(ops) != 1 {
			return vm.Instruction{}, syntaxErrorf(lineNo, mnemonic, "expects 1 operand, got %d", len(ops))
		}
		v, err := parseInteger(ops[0], lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Push(v), nil
	}

	op, ok := plainOps[mnemonic]
	if !ok {
		return vm.Instruction{}, syntaxErrorf(lineNo, mnemonic, "unrecognized instruction")
	}
	if len(ops) != 0 {
		return vm.Instruction{}, syntaxErrorf(lineNo, mnemonic, "expects no operands, got %d", len(ops))
	}
	return vm.Op(op), nil
}

// parseAssign accepts "name = value" with or without spaces around '='.
func parseAssign(ops []string, lineNo int) (Statement, error) {
	name, value, ok := strings.Cut(strings.Join(ops, " "), "=")
	if !ok {
		return nil, syntaxErrorf(lineNo, "var", "expected 'var <name> = <integer>'")
	}
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return nil, syntaxErrorf(lineNo, name, "invalid variable name")
	}
	v, err := parseInteger(strings.TrimSpace(value), lineNo)
	if err != nil {
		return nil, err
	}
	return &VarAssign{Line: lineNo, Name: name, Value: v}, nil
}

// parseInteger accepts an optional '-' followed by decimal digits.
func parseInteger(tok string, lineNo int) (int64, error) {
	digits := strings.TrimPrefix(tok, "-")
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, syntaxErrorf(lineNo, tok, "malformed integer literal")
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, syntaxErrorf(lineNo, tok, "integer literal out of range")
	}
	return v, nil
}

// variableName accepts "x" or "[x]"; a bracket on one side only is rejected.
func variableName(tok string) (string, bool) {
	name := tok
	if strings.HasPrefix(tok, "[") || strings.HasSuffix(tok, "]") {
		inner, ok := strings.CutPrefix(tok, "[")
		if !ok {
			return "", false
		}
		if name, ok = strings.CutSuffix(inner, "]"); !ok {
			return "", false
		}
	}
	return name, isIdentifier(name)
}

// isIdentifier reports whether s is made only of ASCII letters, digits and '_'.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z') && !('0' <= c && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}
