package asm

import "fmt"

// UnresolvedLabelError is returned when a goto, gotoEqual or call names a
// label that is never defined.
type UnresolvedLabelError struct {
	Label string
	Line  int
}

func (e *UnresolvedLabelError) Error() string {
	return fmt.Sprintf("unresolved label '%s' referenced on line %d", e.Label, e.Line)
}

type UndefinedVariableError struct {
	Name string
	Line int
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable '%s' on line %d", e.Name, e.Line)
}

type DuplicateLabelError struct {
	Label     string
	Line      int
	FirstLine int
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("duplicate label '%s' on line %d (first defined on line %d)", e.Label, e.Line, e.FirstLine)
}
