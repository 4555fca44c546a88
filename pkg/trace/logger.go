package trace

import (
	"github.com/rs/zerolog"

	"spyder/pkg/vm"
)

// Logger writes one trace-level event per executed instruction.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Step(pc int, ins vm.Instruction, stack []int64) {
	l.log.Trace().
		Int("pc", pc).
		Stringer("ins", ins).
		Ints64("stack", stack).
		Msg("step")
}
