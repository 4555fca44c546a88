package parser

import (
	"fmt"

	"spyder/pkg/vm"
)

// Statement is one parsed source line. Line is 1-based.
type Statement interface {
	Pos() int
	String() string
	statementNode()
}

type Access int

const (
	AccessLoad Access = iota
	AccessStore
)

func (a Access) Opcode() vm.Opcode {
	if a == AccessStore {
		return vm.OpStore
	}
	return vm.OpLoad
}

func (a Access) String() string {
	return a.Opcode().String()
}

// Plain is an instruction that needs no resolution.
type Plain struct {
	Line int
	Ins  vm.Instruction
}

// Labeled binds Label to the address of Ins.
type Labeled struct {
	Line  int
	Label string
	Ins   vm.Instruction
}

type Goto struct {
	Line  int
	Label string
}

// GotoEqual jumps when the popped sentinel is zero.
type GotoEqual struct {
	Line  int
	Label string
}

type Call struct {
	Line  int
	Label string
}

type VarAssign struct {
	Line  int
	Name  string
	Value int64
}

// VarAccess loads or stores a named variable. An empty Name means the
// address is already on the operand stack.
type VarAccess struct {
	Line int
	Mode Access
	Name string
}

type Comment struct {
	Line int
	Text string
}

func (s *Plain) Pos() int     { return s.Line }
func (s *Labeled) Pos() int   { return s.Line }
func (s *Goto) Pos() int      { return s.Line }
func (s *GotoEqual) Pos() int { return s.Line }
func (s *Call) Pos() int      { return s.Line }
func (s *VarAssign) Pos() int { return s.Line }
func (s *VarAccess) Pos() int { return s.Line }
func (s *Comment) Pos() int   { return s.Line }

func (*Plain) statementNode()     {}
func (*Labeled) statementNode()   {}
func (*Goto) statementNode()      {}
func (*GotoEqual) statementNode() {}
func (*Call) statementNode()      {}
func (*VarAssign) statementNode() {}
func (*VarAccess) statementNode() {}
func (*Comment) statementNode()   {}

func (s *Plain) String() string     { return sourceMnemonic(s.Ins) }
func (s *Labeled) String() string   { return fmt.Sprintf("![%s] %s", s.Label, sourceMnemonic(s.Ins)) }
func (s *Goto) String() string      { return "goto " + s.Label }
func (s *GotoEqual) String() string { return "gotoEqual " + s.Label }
func (s *Call) String() string      { return "call " + s.Label }
func (s *VarAssign) String() string { return fmt.Sprintf("var %s = %d", s.Name, s.Value) }
func (s *Comment) String() string   { return "//" + s.Text }

func (s *VarAccess) String() string {
	if s.Name == "" {
		return s.Mode.String()
	}
	return s.Mode.String() + " " + s.Name
}

// sourceMnemonic renders an instruction the way it is written in source.
func sourceMnemonic(ins vm.Instruction) string {
	if ins.Op == vm.OpJump {
		return "return"
	}
	return ins.String()
}

// Program is the ordered list of statements in a source file.
type Program struct {
	Statements []Statement
}

func (p *Program) String() string {
	var out []byte
	for i, s := range p.Statements {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, s.String()...)
	}
	return string(out)
}
