package vm

import (
	"errors"
	"fmt"
)

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrDivideByZero   = errors.New("divide by zero")
	ErrBadAddress     = errors.New("memory address out of range")
	ErrBadJump        = errors.New("jump target out of range")
	ErrNoResult       = errors.New("no result produced")
	ErrStepLimit      = errors.New("step limit exceeded")
)

// Fault is a runtime error raised while executing the instruction at PC.
// AtEnd is set when the fault happened after the last instruction, in which
// case Ins is the zero value.
type Fault struct {
	PC     int
	Ins    Instruction
	AtEnd  bool
	Detail string
	Err    error
}

func (f *Fault) Error() string {
	var msg string
	if f.AtEnd {
		msg = fmt.Sprintf("runtime fault at end of program (instruction %d): %v", f.PC, f.Err)
	} else {
		msg = fmt.Sprintf("runtime fault at instruction %d (%s): %v", f.PC, f.Ins, f.Err)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	return msg
}

func (f *Fault) Unwrap() error {
	return f.Err
}
