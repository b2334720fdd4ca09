package interpreter

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wbrown/janus-strata/datalog/annotations"
)

// Options configures an Engine
type Options struct {
	// Parallel execution of independent recursive clause versions
	EnableParallel bool
	Workers        int // 0 = use NumCPU

	// Logger receives structured progress logs; nil means zap.NewNop()
	Logger *zap.Logger
	// Handler receives annotation events; nil disables annotations
	Handler annotations.Handler

	// IO serves input and output directives; nil means a FileIO writing
	// result tables to Output
	IO IOSystem
	// Functors provides user-defined functors called by the program
	Functors *FunctorRegistry
	// Output receives printsize lines and default result tables
	Output io.Writer
}

// DefaultOptions returns options for command line use
func DefaultOptions() Options {
	return Options{
		EnableParallel: true,
		Logger:         zap.NewNop(),
		Output:         os.Stdout,
	}
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Output == nil {
		o.Output = io.Discard
	}
	if o.IO == nil {
		o.IO = NewFileIO(o.Output)
	}
	if o.Functors == nil {
		o.Functors = NewFunctorRegistry()
	}
	return o
}
