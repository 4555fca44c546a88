package asm

import (
	"fmt"
	"maps"

	"spyder/pkg/parser"
	"spyder/pkg/vm"
)

// callLength is the number of instructions a call expands to:
// clearStack, push <return>, push <target>, jump.
const callLength = 4

// SourceMap maps an instruction index to the source line that emitted it.
type SourceMap map[int]int

type labelDef struct {
	addr int
	line int
}

// pendingRef is a placeholder push whose value is the address of label.
type pendingRef struct {
	label string
	slot  int
	line  int
}

// Assembler lowers a parsed program into vm instructions in one pass, then
// patches jump and call targets once every label is known.
type Assembler struct {
	labels    map[string]labelDef
	vars      map[string]int
	lastSlot  int
	refs      []pendingRef
	code      []vm.Instruction
	sourceMap SourceMap
}

func NewAssembler() *Assembler {
	a := &Assembler{}
	a.reset()
	return a
}

func Assemble(prog *parser.Program) ([]vm.Instruction, SourceMap, error) {
	return NewAssembler().Assemble(prog)
}

// Assemble returns nothing but the error if any statement or reference
// fails to resolve.
func (a *Assembler) Assemble(prog *parser.Program) ([]vm.Instruction, SourceMap, error) {
	a.reset()

	for _, stmt := range prog.Statements {
		if err := a.lower(stmt); err != nil {
			return nil, nil, err
		}
	}

	if err := a.resolve(); err != nil {
		return nil, nil, err
	}

	return a.code, a.sourceMap, nil
}

// Labels returns the label table of the last assembled program.
func (a *Assembler) Labels() map[string]int {
	out := make(map[string]int, len(a.labels))
	for name, def := range a.labels {
		out[name] = def.addr
	}
	return out
}

// Variables returns the variable slot table of the last assembled program.
func (a *Assembler) Variables() map[string]int {
	return maps.Clone(a.vars)
}

func (a *Assembler) reset() {
	a.labels = make(map[string]labelDef)
	a.vars = make(map[string]int)
	a.lastSlot = 0
	a.refs = nil
	a.code = nil
	a.sourceMap = make(SourceMap)
}

func (a *Assembler) lower(stmt parser.Statement) error {
	line := stmt.Pos()

	switch s := stmt.(type) {
	case *parser.Comment:

	case *parser.Plain:
		a.emit(line, s.Ins)

	case *parser.Labeled:
		if prev, exists := a.labels[s.Label]; exists {
			return &DuplicateLabelError{Label: s.Label, Line: line, FirstLine: prev.line}
		}
		a.labels[s.Label] = labelDef{addr: len(a.code), line: line}
		a.emit(line, s.Ins)

	case *parser.Goto:
		a.emitPlaceholder(s.Label, line)
		a.emit(line, vm.Op(vm.OpJump))

	case *parser.GotoEqual:
		a.emitPlaceholder(s.Label, line)
		a.emit(line, vm.Op(vm.OpJumpIfZero))

	case *parser.Call:
		ret := len(a.code) + callLength
		a.emit(line, vm.Op(vm.OpClear), vm.Push(int64(ret)))
		a.emitPlaceholder(s.Label, line)
		a.emit(line, vm.Op(vm.OpJump))

	case *parser.VarAssign:
		slot, ok := a.vars[s.Name]
		if !ok {
			a.lastSlot++
			slot = a.lastSlot
			a.vars[s.Name] = slot
		}
		a.emit(line, vm.Push(s.Value), vm.Push(int64(slot)), vm.Op(vm.OpStore))

	case *parser.VarAccess:
		if s.Name == "" {
			a.emit(line, vm.Op(s.Mode.Opcode()))
			break
		}
		slot, ok := a.vars[s.Name]
		if !ok {
			return &UndefinedVariableError{Name: s.Name, Line: line}
		}
		a.emit(line, vm.Push(int64(slot)), vm.Op(s.Mode.Opcode()))

	default:
		return fmt.Errorf("unsupported statement %T on line %d", stmt, line)
	}

	return nil
}

func (a *Assembler) emit(line int, ins ...vm.Instruction) {
	for _, in := range ins {
		a.sourceMap[len(a.code)] = line
		a.code = append(a.code, in)
	}
}

func (a *Assembler) emitPlaceholder(label string, line int) {
	a.refs = append(a.refs, pendingRef{label: label, slot: len(a.code), line: line})
	a.emit(line, vm.Push(0))
}

func (a *Assembler) resolve() error {
	for _, ref := range a.refs {
		def, ok := a.labels[ref.label]
		if !ok {
			return &UnresolvedLabelError{Label: ref.label, Line: ref.line}
		}
		a.code[ref.slot] = vm.Push(int64(def.addr))
	}
	return nil
}
