package vm

import "fmt"

type Opcode uint8

const (
	OpPush Opcode = iota
	OpLoad
	OpStore
	OpPop
	OpJump
	OpJumpIfZero
	OpDup
	OpClear
	OpNop
	OpAdd
	OpSub
	OpMul
	OpDiv
)

var opNames = [...]string{
	OpPush:       "push",
	OpLoad:       "load",
	OpStore:      "store",
	OpPop:        "pop",
	OpJump:       "jump",
	OpJumpIfZero: "jumpIfZero",
	OpDup:        "rePush",
	OpClear:      "clearStack",
	OpNop:        "noOp",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpDiv:        "div",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// IsJump reports whether op transfers control by popping a target.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfZero
}

// Instruction is one slot of an assembled program. Value is only
// meaningful for OpPush.
type Instruction struct {
	Op    Opcode
	Value int64
}

func Push(v int64) Instruction {
	return Instruction{Op: OpPush, Value: v}
}

func Op(op Opcode) Instruction {
	return Instruction{Op: op}
}

func (i Instruction) String() string {
	if i.Op == OpPush {
		return fmt.Sprintf("push %d", i.Value)
	}
	return i.Op.String()
}
