package parser

import "fmt"

// SyntaxError reports a source line that does not form a statement.
type SyntaxError struct {
	Line  int
	Token string
	Msg   string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error on line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("syntax error on line %d: %s: %q", e.Line, e.Msg, e.Token)
}

func syntaxErrorf(line int, token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Token: token, Msg: fmt.Sprintf(format, args...)}
}
