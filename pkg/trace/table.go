package trace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"spyder/pkg/vm"
)

type step struct {
	pc    int
	ins   vm.Instruction
	stack []int64
}

// Table records every executed step and renders them as a table.
// Steps past Limit are counted but not kept.
type Table struct {
	Limit int

	steps   []step
	dropped int
}

func NewTable(limit int) *Table {
	return &Table{Limit: limit}
}

func (t *Table) Step(pc int, ins vm.Instruction, stack []int64) {
	if t.Limit > 0 && len(t.steps) >= t.Limit {
		t.dropped++
		return
	}
	t.steps = append(t.steps, step{pc: pc, ins: ins, stack: stack})
}

func (t *Table) Len() int {
	return len(t.steps)
}

func (t *Table) Render() string {
	tw := table.NewWriter()
	tw.SetTitle("Execution Trace")
	tw.AppendHeader(table.Row{"Step", "PC", "Instruction", "Stack"})
	for i, s := range t.steps {
		tw.AppendRow(table.Row{i, s.pc, s.ins.String(), formatStack(s.stack)})
	}
	if t.dropped > 0 {
		tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d more steps", t.dropped), ""})
	}
	return tw.Render()
}

// Listing renders assembled code with the source line of each instruction,
// followed by the variable table when there is one.
func Listing(code []vm.Instruction, sourceMap map[int]int, labels, vars map[string]int) string {
	byAddr := make(map[int][]string, len(labels))
	for name, addr := range labels {
		byAddr[addr] = append(byAddr[addr], name)
	}

	tw := table.NewWriter()
	tw.SetTitle("Program")
	tw.AppendHeader(table.Row{"Index", "Label", "Instruction", "Line"})
	for i, ins := range code {
		names := byAddr[i]
		sort.Strings(names)
		line := ""
		if l, ok := sourceMap[i]; ok {
			line = fmt.Sprint(l)
		}
		tw.AppendRow(table.Row{i, strings.Join(names, ","), ins.String(), line})
	}

	var out strings.Builder
	out.WriteString(tw.Render())
	if len(vars) > 0 {
		out.WriteString("\n")
		out.WriteString(symbolTable("Variables", "Slot", vars))
	}
	return out.String()
}

func symbolTable(title, column string, symbols map[string]int) string {
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return symbols[names[i]] < symbols[names[j]]
	})

	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Name", column})
	for _, name := range names {
		tw.AppendRow(table.Row{name, symbols[name]})
	}
	return tw.Render()
}

func formatStack(stack []int64) string {
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
