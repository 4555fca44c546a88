// Package spyder runs source text through the parser, the assembler and
// the virtual machine. Each stage finishes before the next one starts.
package spyder

import (
	"context"

	"github.com/pkg/errors"

	"spyder/pkg/asm"
	"spyder/pkg/parser"
	"spyder/pkg/utils"
	"spyder/pkg/vm"
)

// Object is an assembled program together with the tables needed to relate
// it back to source.
type Object struct {
	Code      []vm.Instruction
	SourceMap asm.SourceMap
	Labels    map[string]int
	Variables map[string]int
}

func Build(src string) (*Object, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	a := asm.NewAssembler()
	code, sourceMap, err := a.Assemble(prog)
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}

	return &Object{
		Code:      code,
		SourceMap: sourceMap,
		Labels:    a.Labels(),
		Variables: a.Variables(),
	}, nil
}

// Run executes the object on a fresh machine. Runtime faults are annotated
// with the source line of the failing instruction.
func (o *Object) Run(ctx context.Context, opts ...vm.Option) (int64, error) {
	result, err := vm.New(opts...).RunContext(ctx, o.Code)
	if err != nil {
		var fault *vm.Fault
		if errors.As(err, &fault) && !fault.AtEnd {
			if line, ok := o.SourceMap[fault.PC]; ok {
				return 0, errors.Wrapf(err, "run (source line %d)", line)
			}
		}
		return 0, errors.Wrap(err, "run")
	}
	return result, nil
}

func Run(ctx context.Context, src string, opts ...vm.Option) (int64, error) {
	obj, err := Build(src)
	if err != nil {
		return 0, err
	}
	return obj.Run(ctx, opts...)
}

// BuildFile reads and builds the source file at path. It also returns the
// resolved absolute path, which annotates build errors.
func BuildFile(path string) (*Object, string, error) {
	src, fullPath, err := utils.ReadSource(path)
	if err != nil {
		return nil, fullPath, errors.Wrap(err, "read source")
	}
	obj, err := Build(src)
	if err != nil {
		return nil, fullPath, errors.Wrap(err, fullPath)
	}
	return obj, fullPath, nil
}

func RunFile(ctx context.Context, path string, opts ...vm.Option) (int64, error) {
	obj, fullPath, err := BuildFile(path)
	if err != nil {
		return 0, err
	}
	result, err := obj.Run(ctx, opts...)
	if err != nil {
		return 0, errors.Wrap(err, fullPath)
	}
	return result, nil
}
