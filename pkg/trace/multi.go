package trace

import "spyder/pkg/vm"

// Multi forwards each step to every tracer in order.
type Multi []vm.Tracer

func (m Multi) Step(pc int, ins vm.Instruction, stack []int64) {
	for _, t := range m {
		t.Step(pc, ins, stack)
	}
}
