package spyder_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"spyder/pkg/asm"
	"spyder/pkg/parser"
	"spyder/pkg/spyder"
	"spyder/pkg/vm"
)

var _ = Describe("Build", func() {
	It("should lower source into instructions", func() {
		obj, err := spyder.Build("push 3\npush 4\nadd")
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.Code).To(Equal([]vm.Instruction{vm.Push(3), vm.Push(4), vm.Op(vm.OpAdd)}))
		Expect(obj.SourceMap).To(HaveKeyWithValue(2, 3))
	})

	It("should expose label and variable tables", func() {
		obj, err := spyder.Build("var x = 1\nvar y = 2\n![top] noOp\ngoto top")
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.Labels).To(Equal(map[string]int{"top": 6}))
		Expect(obj.Variables).To(Equal(map[string]int{"x": 1, "y": 2}))
	})

	It("should report syntax errors from the parse stage", func() {
		_, err := spyder.Build("push 1\npush one")
		Expect(err).To(MatchError(ContainSubstring("parse: syntax error on line 2")))

		var se *parser.SyntaxError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Token).To(Equal("one"))
	})

	It("should fail assembly on an unresolved label", func() {
		_, err := spyder.Build("push 1\ngoto missing")
		Expect(err).To(MatchError(ContainSubstring("assemble:")))

		var ule *asm.UnresolvedLabelError
		Expect(errors.As(err, &ule)).To(BeTrue())
		Expect(ule.Label).To(Equal("missing"))
	})

	It("should fail assembly on an undefined variable", func() {
		_, err := spyder.Build("load nope")
		var uve *asm.UndefinedVariableError
		Expect(errors.As(err, &uve)).To(BeTrue())
		Expect(uve.Name).To(Equal("nope"))
	})
})

var _ = Describe("Run", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	DescribeTable("end-to-end results",
		func(src string, want int64) {
			got, err := spyder.Run(ctx, src)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("addition", "push 3\npush 4\nadd", int64(7)),
		Entry("variable times constant", "var x = 10\nload x\npush 2\nmul", int64(20)),
		Entry("sub uses top minus next", "push 10\npush 3\nsub", int64(-7)),
		Entry("div uses top over next", "push 2\npush 10\ndiv", int64(5)),
		Entry("store then load", "var x = 0\npush 5\nstore x\nload x", int64(5)),
		Entry("reassignment keeps the slot", "var x = 1\nvar x = 9\nload x", int64(9)),
		Entry("address on the stack", "var x = 4\npush 1\nload", int64(4)),
		Entry("rePush", "push 6\nrePush\nmul", int64(36)),
		Entry("comments emit nothing", "// start\npush 1\n// end", int64(1)),
		Entry("gotoEqual taken on zero", "push 0\ngotoEqual yes\npush 1\ngoto end\n![yes] push 2\n![end] noOp", int64(2)),
		Entry("gotoEqual falls through otherwise", "push 3\ngotoEqual yes\npush 1\ngoto end\n![yes] push 2\n![end] noOp", int64(1)),
		Entry("call clears the caller stack and returns",
			"push 100\ncall f\npush 40\ngoto end\n![f] noOp\nreturn\n![end] noOp", int64(40)),
	)

	It("should leave nothing behind a call but what follows it", func() {
		tracer := make(map[int][]int64)
		_, err := spyder.Run(ctx, "push 100\ncall f\npush 40\ngoto end\n![f] noOp\nreturn\n![end] noOp",
			vm.WithTracer(vm.TracerFunc(func(pc int, _ vm.Instruction, stack []int64) {
				tracer[pc] = stack
			})))
		Expect(err).NotTo(HaveOccurred())
		// index 5 is "push 40", reached by the callee's return.
		Expect(tracer).To(HaveKey(5))
		Expect(tracer[5]).To(BeEmpty())
	})

	Context("runtime faults", func() {
		It("should fault on pop from an empty stack", func() {
			_, err := spyder.Run(ctx, "pop")
			Expect(err).To(MatchError(vm.ErrStackUnderflow))
			Expect(err).To(MatchError(ContainSubstring("source line 1")))

			var fault *vm.Fault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.PC).To(Equal(0))
		})

		It("should fault on divide by zero at the div's line", func() {
			_, err := spyder.Run(ctx, "push 0\npush 1\ndiv")
			Expect(err).To(MatchError(vm.ErrDivideByZero))
			Expect(err).To(MatchError(ContainSubstring("source line 3")))
		})

		It("should fault when no result is left", func() {
			_, err := spyder.Run(ctx, "push 1\npop")
			Expect(err).To(MatchError(vm.ErrNoResult))
			Expect(err).To(MatchError(ContainSubstring("end of program")))
		})

		It("should fault on a load outside memory", func() {
			_, err := spyder.Run(ctx, "push 50\nload")
			Expect(err).To(MatchError(vm.ErrBadAddress))
		})

		It("should stop a runaway loop at the step limit", func() {
			_, err := spyder.Run(ctx, "![top] noOp\ngoto top\n", vm.WithStepLimit(50))
			Expect(err).To(MatchError(vm.ErrStepLimit))
		})

		It("should stop when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := spyder.Run(cancelled, "![top] noOp\ngoto top")
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	It("should run the same object twice with the same result", func() {
		obj, err := spyder.Build("var x = 2\nload x\nload x\nmul")
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < 2; i++ {
			got, err := obj.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(int64(4)))
		}
	})
})

var _ = Describe("Tracing", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should see every instruction in order without changing the result", func() {
		gomock.InOrder(
			tracer.EXPECT().Step(0, vm.Push(3), gomock.Any()),
			tracer.EXPECT().Step(1, vm.Push(4), gomock.Any()),
			tracer.EXPECT().Step(2, vm.Op(vm.OpAdd), gomock.Any()).
				Do(func(_ int, _ vm.Instruction, stack []int64) {
					Expect(stack).To(Equal([]int64{3, 4}))
				}),
		)

		got, err := spyder.Run(context.Background(), "push 3\npush 4\nadd", vm.WithTracer(tracer))
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(int64(7)))
	})

	It("should land on the jump target", func() {
		gomock.InOrder(
			tracer.EXPECT().Step(0, vm.Push(3), gomock.Any()),
			tracer.EXPECT().Step(1, vm.Op(vm.OpJump), gomock.Any()),
			tracer.EXPECT().Step(3, vm.Push(7), gomock.Any()),
		)

		got, err := spyder.Run(context.Background(), "goto end\npush 5\n![end] push 7", vm.WithTracer(tracer))
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(int64(7)))
	})

	It("should not be called when assembly fails", func() {
		_, err := spyder.Run(context.Background(), "goto missing", vm.WithTracer(tracer))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BuildFile", func() {
	It("should return the object and the absolute path", func() {
		obj, fullPath, err := spyder.BuildFile("testdata/countdown.spd")
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.IsAbs(fullPath)).To(BeTrue())
		Expect(fullPath).To(HaveSuffix("countdown.spd"))
		Expect(obj.Code).NotTo(BeEmpty())
	})

	It("should name the file on a build error", func() {
		path := filepath.Join(GinkgoT().TempDir(), "bad.spd")
		Expect(os.WriteFile(path, []byte("push 1\ngoto nowhere"), 0o644)).To(Succeed())

		_, fullPath, err := spyder.BuildFile(path)
		Expect(err).To(MatchError(ContainSubstring(fullPath)))
		var ule *asm.UnresolvedLabelError
		Expect(errors.As(err, &ule)).To(BeTrue())
	})

	It("should report a missing file", func() {
		_, _, err := spyder.BuildFile("testdata/missing.spd")
		Expect(err).To(MatchError(ContainSubstring("read source")))
	})
})

var _ = Describe("RunFile", func() {
	It("should multiply through a subroutine", func() {
		got, err := spyder.RunFile(context.Background(), "testdata/multiplication.spd")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(int64(21)))
	})

	It("should sum a countdown loop", func() {
		got, err := spyder.RunFile(context.Background(), "testdata/countdown.spd")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(int64(55)))
	})

	It("should report a missing file", func() {
		_, err := spyder.RunFile(context.Background(), "testdata/missing.spd")
		Expect(err).To(MatchError(ContainSubstring("read source")))
	})
})
