package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spyder/pkg/spyder"
	"spyder/pkg/trace"
	"spyder/pkg/vm"
)

// LogLevelEnv is consulted when --log-level is not given.
const LogLevelEnv = "SPYDER_LOG_LEVEL"

const defaultMaxSteps = 1_000_000

type options struct {
	debug      bool
	listing    bool
	traceTable bool
	maxSteps   int
	logLevel   string
}

// NewRootCommand builds the spyder command: read one source file, assemble
// it and print the program's result.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "spyder <file>",
		Short: "Assemble and run a spyder stack-machine program",
		Long: `Spyder reads a program written one statement per line, resolves its
labels and variables into a flat instruction array and runs it on a stack
machine. The value left on top of the stack is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.debug, "debug", "d", false, "log the stack and instruction before every step")
	flags.BoolVar(&opts.listing, "listing", false, "print the assembled program before running it")
	flags.BoolVar(&opts.traceTable, "trace-table", false, "print a table of every executed step after the run")
	flags.IntVar(&opts.maxSteps, "max-steps", defaultMaxSteps, "fail after this many executed instructions (0 for no limit)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); defaults to $"+LogLevelEnv+" or info")

	return cmd
}

func runFile(cmd *cobra.Command, path string, opts *options) error {
	if opts.maxSteps < 0 {
		return errors.Errorf("invalid --max-steps %d: must be 0 (no limit) or positive", opts.maxSteps)
	}

	log, err := newLogger(cmd, opts)
	if err != nil {
		return err
	}

	obj, fullPath, err := spyder.BuildFile(path)
	if err != nil {
		return err
	}
	log.Debug().
		Str("path", fullPath).
		Int("instructions", len(obj.Code)).
		Int("labels", len(obj.Labels)).
		Int("variables", len(obj.Variables)).
		Msg("assembled")

	if opts.listing {
		fmt.Fprintln(cmd.OutOrStdout(), trace.Listing(obj.Code, obj.SourceMap, obj.Labels, obj.Variables))
	}

	vmOpts := []vm.Option{vm.WithStepLimit(opts.maxSteps)}
	var tracers trace.Multi
	if opts.debug {
		tracers = append(tracers, trace.NewLogger(log))
	}
	var table *trace.Table
	if opts.traceTable {
		table = trace.NewTable(0)
		tracers = append(tracers, table)
	}
	if len(tracers) > 0 {
		vmOpts = append(vmOpts, vm.WithTracer(tracers))
	}

	result, runErr := obj.Run(cmd.Context(), vmOpts...)
	if table != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), table.Render())
	}
	if runErr != nil {
		return errors.Wrap(runErr, fullPath)
	}

	log.Debug().Int64("result", result).Msg("finished")
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func newLogger(cmd *cobra.Command, opts *options) (zerolog.Logger, error) {
	name := opts.logLevel
	if name == "" {
		name = os.Getenv(LogLevelEnv)
	}
	level := zerolog.InfoLevel
	if name != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(name))
		if err != nil {
			return zerolog.Logger{}, errors.Wrapf(err, "invalid log level %q", name)
		}
		level = parsed
	}
	if opts.debug {
		level = zerolog.TraceLevel
	}

	out := zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
