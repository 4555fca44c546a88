package vm

import (
	"context"
	"fmt"
	"slices"
)

const (
	// memorySlack is how far past a store address variable memory grows.
	memorySlack = 10

	// DefaultMemoryLimit caps variable memory, in slots.
	DefaultMemoryLimit = 1 << 24

	// maxMemorySlots bounds memory when no limit is configured.
	maxMemorySlots = 1 << 40

	ctxPollInterval = 1024
)

// Tracer observes the machine before each instruction executes. The stack
// slice is a copy and may be retained.
type Tracer interface {
	Step(pc int, ins Instruction, stack []int64)
}

type TracerFunc func(pc int, ins Instruction, stack []int64)

func (f TracerFunc) Step(pc int, ins Instruction, stack []int64) {
	f(pc, ins, stack)
}

type Option func(*Machine)

func WithTracer(t Tracer) Option {
	return func(m *Machine) {
		m.tracer = t
	}
}

// WithStepLimit makes Run fail with ErrStepLimit once n instructions have
// executed. Zero means no limit.
func WithStepLimit(n int) Option {
	return func(m *Machine) {
		m.stepLimit = n
	}
}

// WithMemoryLimit caps variable memory at slots. Zero or less falls back to
// a fixed ceiling well above DefaultMemoryLimit.
func WithMemoryLimit(slots int) Option {
	return func(m *Machine) {
		m.memoryLimit = slots
	}
}

// Machine is a stack machine over signed 64-bit integers.
type Machine struct {
	Code   []Instruction
	Stack  []int64
	Memory []int64
	PC     int

	// Steps counts instructions executed since the program was loaded.
	Steps int

	tracer      Tracer
	stepLimit   int
	memoryLimit int
}

func New(opts ...Option) *Machine {
	m := &Machine{
		memoryLimit: DefaultMemoryLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadProgram installs code and clears all machine state.
func (m *Machine) LoadProgram(code []Instruction) {
	m.Code = code
	m.Stack = nil
	m.Memory = nil
	m.PC = 0
	m.Steps = 0
}

func (m *Machine) Halted() bool {
	return m.PC >= len(m.Code)
}

func (m *Machine) Run(code []Instruction) (int64, error) {
	return m.RunContext(context.Background(), code)
}

// RunContext executes code from the first instruction until the program
// counter passes the end, then pops the result.
func (m *Machine) RunContext(ctx context.Context, code []Instruction) (int64, error) {
	m.LoadProgram(code)

	for !m.Halted() {
		if m.stepLimit > 0 && m.Steps >= m.stepLimit {
			return 0, m.fault(ErrStepLimit, "executed %d instructions", m.Steps)
		}
		if m.Steps%ctxPollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, m.fault(err, "")
			}
		}
		if err := m.Step(); err != nil {
			return 0, err
		}
	}

	n := len(m.Stack)
	if n == 0 {
		return 0, m.fault(ErrNoResult, "")
	}
	result := m.Stack[n-1]
	m.Stack = m.Stack[:n-1]
	return result, nil
}

// Step executes the instruction at PC. Jumps store target-1 so that the
// increment at the end lands on the target.
func (m *Machine) Step() error {
	if m.Halted() {
		return nil
	}

	ins := m.Code[m.PC]
	if m.tracer != nil {
		m.tracer.Step(m.PC, ins, slices.Clone(m.Stack))
	}

	switch ins.Op {
	case OpPush:
		m.push(ins.Value)

	case OpLoad:
		if err := m.need(1); err != nil {
			return err
		}
		addr := m.pop()
		val, err := m.ReadMem(addr)
		if err != nil {
			return m.fault(err, "address %d, memory size %d", addr, len(m.Memory))
		}
		m.push(val)

	case OpStore:
		if err := m.need(2); err != nil {
			return err
		}
		addr := m.pop()
		val := m.pop()
		if err := m.WriteMem(addr, val); err != nil {
			return m.fault(err, "address %d", addr)
		}

	case OpPop:
		if err := m.need(1); err != nil {
			return err
		}
		m.pop()

	case OpJump:
		if err := m.need(1); err != nil {
			return err
		}
		target := m.pop()
		if err := m.jump(target); err != nil {
			return err
		}

	case OpJumpIfZero:
		if err := m.need(2); err != nil {
			return err
		}
		target := m.pop()
		sentinel := m.pop()
		if sentinel == 0 {
			if err := m.jump(target); err != nil {
				return err
			}
		}

	case OpDup:
		if err := m.need(1); err != nil {
			return err
		}
		m.push(m.Stack[len(m.Stack)-1])

	case OpClear:
		m.Stack = m.Stack[:0]

	case OpNop:

	case OpAdd, OpSub, OpMul, OpDiv:
		if err := m.need(2); err != nil {
			return err
		}
		// b is the top of the stack and is the left operand.
		n := len(m.Stack)
		b, a := m.Stack[n-1], m.Stack[n-2]
		var result int64
		switch ins.Op {
		case OpAdd:
			result = b + a
		case OpSub:
			result = b - a
		case OpMul:
			result = b * a
		case OpDiv:
			if a == 0 {
				return m.fault(ErrDivideByZero, "%d / 0", b)
			}
			result = b / a
		}
		m.Stack = m.Stack[:n-2]
		m.push(result)

	default:
		return m.fault(fmt.Errorf("unknown opcode %d", uint8(ins.Op)), "")
	}

	m.PC++
	m.Steps++
	return nil
}

// ReadMem returns the value of a variable slot.
func (m *Machine) ReadMem(addr int64) (int64, error) {
	if addr < 0 || addr >= int64(len(m.Memory)) {
		return 0, ErrBadAddress
	}
	return m.Memory[addr], nil
}

// WriteMem stores val at addr, growing memory to addr+10 zeroed slots when
// addr is past the end. Growth never passes the memory limit.
func (m *Machine) WriteMem(addr, val int64) error {
	if addr < 0 {
		return ErrBadAddress
	}
	if addr >= int64(len(m.Memory)) {
		limit := int64(m.memoryLimit)
		if limit <= 0 {
			limit = maxMemorySlots
		}
		if addr >= limit {
			return ErrBadAddress
		}
		size := limit
		if addr < limit-memorySlack {
			size = addr + memorySlack
		}
		grown := make([]int64, size)
		copy(grown, m.Memory)
		m.Memory = grown
	}
	m.Memory[addr] = val
	return nil
}

func (m *Machine) jump(target int64) error {
	if target < 0 || target > int64(len(m.Code)) {
		return m.fault(ErrBadJump, "target %d, program length %d", target, len(m.Code))
	}
	m.PC = int(target) - 1
	return nil
}

func (m *Machine) push(v int64) {
	m.Stack = append(m.Stack, v)
}

// pop assumes need has been checked.
func (m *Machine) pop() int64 {
	n := len(m.Stack)
	v := m.Stack[n-1]
	m.Stack = m.Stack[:n-1]
	return v
}

func (m *Machine) need(n int) error {
	if len(m.Stack) < n {
		return m.fault(ErrStackUnderflow, "need %d values, have %d", n, len(m.Stack))
	}
	return nil
}

func (m *Machine) fault(err error, format string, args ...any) *Fault {
	f := &Fault{PC: m.PC, Err: err}
	if m.Halted() {
		f.AtEnd = true
	} else {
		f.Ins = m.Code[m.PC]
	}
	if format != "" {
		f.Detail = fmt.Sprintf(format, args...)
	}
	return f
}
