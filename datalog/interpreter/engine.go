// Package interpreter executes RAM programs. An Engine owns one relation
// per declared RAM relation, walks the statement tree stratum by stratum
// and evaluates query pipelines as nested loops over index ranges.
package interpreter

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/annotations"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// Engine evaluates one RAM program
type Engine struct {
	prog    *ram.Program
	opts    Options
	logger  *zap.Logger
	actx    Context
	pool    *WorkerPool
	symbols *datalog.SymbolTable
	records *datalog.RecordTable

	relations map[string]relation.Relation
	counter   atomic.Int64
	regexps   sync.Map // pattern -> *regexp.Regexp, nil when invalid

	// current stratum; only touched by the evaluation goroutine
	stratum     int
	stratumRels []string
	iterations  map[int]int
}

// NewEngine creates the relations of prog with the index orders selected
// for it and checks that every functor it calls is registered
func NewEngine(prog *ram.Program, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	e := &Engine{
		prog:       prog,
		opts:       opts,
		logger:     opts.Logger,
		actx:       NewContext(opts.Handler),
		pool:       NewWorkerPool(opts.Workers),
		symbols:    datalog.NewSymbolTable(),
		records:    datalog.NewRecordTable(),
		relations:  make(map[string]relation.Relation),
		iterations: make(map[int]int),
	}

	indexes := ram.AnalyseIndexes(prog)
	for _, decl := range prog.Relations() {
		var orders [][]int
		if sel := indexes.Selection(decl.Name); sel != nil {
			orders = sel.Orders
		}
		rel, err := relation.New(relation.Config{
			Name:           decl.Name,
			Arity:          decl.Arity,
			AuxiliaryArity: decl.AuxiliaryArity,
			Orders:         orders,
			Deletable:      decl.Representation == ram.RepresentationBTreeDelete,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create relation: %w", err)
		}
		e.relations[decl.Name] = rel
		e.logger.Debug("relation created",
			zap.String("relation", decl.Name),
			zap.Int("arity", decl.Arity),
			zap.Int("indexes", len(rel.Orders())))
	}

	var err error
	ram.Inspect(prog.Main, func(n ram.Node) bool {
		switch x := n.(type) {
		case *ram.UserDefinedOperator:
			err = e.opts.Functors.check(x.Name, x.Stateful)
		case *ram.Aggregate:
			if x.Op == ram.AggUser {
				err = e.opts.Functors.check(x.Function, x.Stateful)
			}
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Run evaluates the program. The context is checked between strata; a
// fixpoint loop in progress is not interrupted.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()
	strata := 0
	ram.Inspect(e.prog.Main, func(n ram.Node) bool {
		if _, ok := n.(*ram.Stratum); ok {
			strata++
			return false
		}
		return true
	})
	e.actx.ProgramBegin(len(e.relations), strata)

	_, err := e.exec(ctx, e.prog.Main)

	tuples := 0
	for _, decl := range e.prog.Relations() {
		if !decl.Temporary {
			tuples += e.relations[decl.Name].Size()
		}
	}
	e.actx.ProgramComplete(len(e.relations), tuples, err)
	if err != nil {
		e.logger.Error("evaluation failed", zap.Error(err))
		return err
	}
	e.logger.Info("evaluation complete",
		zap.Int("strata", strata),
		zap.String("tuples", humanize.Comma(int64(tuples))),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// exec runs a statement; the result reports whether an Exit fired
func (e *Engine) exec(ctx context.Context, s ram.Statement) (bool, error) {
	switch x := s.(type) {
	case *ram.Sequence:
		for _, c := range x.Statements {
			exit, err := e.exec(ctx, c)
			if err != nil || exit {
				return exit, err
			}
		}
		return false, nil

	case *ram.Parallel:
		return false, e.parallel(ctx, x)

	case *ram.Loop:
		for iteration := 1; ; iteration++ {
			exit, err := e.exec(ctx, x.Body)
			if err != nil {
				return false, err
			}
			e.iterations[e.stratum]++
			tuples := e.sizeOf(e.stratumRels)
			e.actx.Iteration(e.stratum, iteration, tuples)
			e.logger.Debug("fixpoint iteration",
				zap.Int("stratum", e.stratum),
				zap.Int("iteration", iteration),
				zap.Int("tuples", tuples))
			if exit {
				return false, nil
			}
		}

	case *ram.Exit:
		f := &frame{e: e}
		return f.condition(x.Condition)

	case *ram.Query:
		return false, e.query(x)

	case *ram.Clear:
		rel := e.relation(x.Relation)
		n := rel.Size()
		rel.Purge()
		if decl, _ := e.prog.Relation(x.Relation); !decl.Temporary {
			e.actx.Released(x.Relation, n)
			e.logger.Debug("relation released", zap.String("relation", x.Relation), zap.Int("tuples", n))
		}
		return false, nil

	case *ram.Swap:
		e.relation(x.First).Swap(e.relation(x.Second))
		return false, nil

	case *ram.Merge:
		added := e.relation(x.Target).InsertAll(e.relation(x.Source))
		e.actx.Merged(x.Target, x.Source, added)
		return false, nil

	case *ram.EraseAll:
		target, ok := e.relation(x.Target).(relation.Deletable)
		if !ok {
			return false, fmt.Errorf("relation %s does not support deletion", x.Target)
		}
		erased := target.EraseAll(e.relation(x.Source))
		e.actx.Subsumed(x.Target, x.Source, erased)
		return false, nil

	case *ram.IO:
		return false, e.io(ctx, x)

	case *ram.Stratum:
		return false, e.runStratum(ctx, x)

	case *ram.DebugInfo:
		exit, err := e.exec(ctx, x.Statement)
		if err != nil {
			return exit, fmt.Errorf("%s: %w", x.Message, err)
		}
		return exit, nil
	}
	panic(fmt.Sprintf("interpreter: unknown statement %T", s))
}

func (e *Engine) runStratum(ctx context.Context, s *ram.Stratum) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stratum %d: %w", s.Index, err)
	}
	e.stratum, e.stratumRels = s.Index, s.Relations
	e.logger.Debug("evaluating stratum",
		zap.Int("stratum", s.Index),
		zap.Strings("relations", s.Relations),
		zap.Strings("inputs", s.Inputs),
		zap.Strings("outputs", s.Outputs),
		zap.Bool("recursive", s.Recursive))

	return e.actx.Stratum(s.Index, s.Relations, s.Recursive, func() (StratumStats, error) {
		_, err := e.exec(ctx, s.Body)
		stats := StratumStats{Tuples: e.sizeOf(s.Relations), Iterations: e.iterations[s.Index]}
		if err != nil {
			return stats, fmt.Errorf("stratum %d: %w", s.Index, err)
		}
		return stats, nil
	})
}

// parallel runs the branches on the worker pool. Branches calling
// stateful functors run in order so counters and tables stay
// deterministic.
func (e *Engine) parallel(ctx context.Context, p *ram.Parallel) error {
	if !e.opts.EnableParallel || e.pool.Workers() == 1 || len(p.Statements) < 2 || ram.HasStatefulCall(p) {
		for _, s := range p.Statements {
			if _, err := e.exec(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
	tasks := make([]func(context.Context) error, len(p.Statements))
	for i, s := range p.Statements {
		tasks[i] = func(ctx context.Context) error {
			_, err := e.exec(ctx, s)
			return err
		}
	}
	return e.pool.Execute(ctx, tasks)
}

func (e *Engine) io(ctx context.Context, x *ram.IO) error {
	decl, _ := e.prog.Relation(x.Relation)
	rel := e.relation(x.Relation)
	op := x.Operation()

	switch op {
	case "input":
		return e.actx.IO(op, x.Relation, func() (int, error) {
			tuples, err := e.opts.IO.Load(ctx, decl, x.Directives, e.symbols)
			if err != nil {
				return 0, fmt.Errorf("failed to load %s: %w", x.Relation, err)
			}
			width := decl.Arity + decl.AuxiliaryArity
			added := 0
			for _, t := range tuples {
				if len(t) != width {
					return added, fmt.Errorf("failed to load %s: %w: tuple has %d values, want %d",
						x.Relation, datalog.ErrArityMismatch, len(t), width)
				}
				if rel.Insert(t) {
					added++
				}
			}
			e.logger.Debug("relation loaded", zap.String("relation", x.Relation), zap.Int("tuples", added))
			return added, nil
		})

	case "output":
		return e.actx.IO(op, x.Relation, func() (int, error) {
			if err := e.opts.IO.Store(ctx, decl, x.Directives, e.symbols, rel.Scan()); err != nil {
				return 0, fmt.Errorf("failed to store %s: %w", x.Relation, err)
			}
			return rel.Size(), nil
		})

	case "printsize":
		return e.actx.IO(op, x.Relation, func() (int, error) {
			n := rel.Size()
			_, err := fmt.Fprintf(e.opts.Output, "%s\t%s\n", x.Relation, humanize.Comma(int64(n)))
			return n, err
		})
	}
	return fmt.Errorf("unknown I/O operation %q for %s", op, x.Relation)
}

// relation returns the runtime relation; the translator declares every
// relation it references, so a miss is an internal error
func (e *Engine) relation(name string) relation.Relation {
	rel, ok := e.relations[name]
	if !ok {
		panic(fmt.Sprintf("interpreter: relation %s not declared", name))
	}
	return rel
}

func (e *Engine) sizeOf(names []string) int {
	n := 0
	for _, name := range names {
		n += e.relation(name).Size()
	}
	return n
}

// compileMatch caches compiled match patterns; invalid patterns are
// logged once and never match
func (e *Engine) compileMatch(pattern string) *regexp.Regexp {
	if v, ok := e.regexps.Load(pattern); ok {
		re, _ := v.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		e.logger.Warn("invalid match pattern", zap.String("pattern", pattern), zap.Error(err))
		e.regexps.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	e.regexps.Store(pattern, re)
	return re
}

// Relation returns the runtime relation with the given RAM name
func (e *Engine) Relation(name string) (relation.Relation, bool) {
	rel, ok := e.relations[name]
	return rel, ok
}

// Tuples returns the tuples of a relation in ascending word order
func (e *Engine) Tuples(name string) []relation.Tuple {
	rel, ok := e.relations[name]
	if !ok {
		return nil
	}
	var out []relation.Tuple
	for t := range rel.Scan() {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b relation.Tuple) int { return datalog.CompareTuples(a, b) })
	return out
}

// Rows returns the tuples of a relation rendered as text
func (e *Engine) Rows(name string) [][]string {
	decl, ok := e.prog.Relation(name)
	if !ok {
		return nil
	}
	tuples := e.Tuples(name)
	out := make([][]string, len(tuples))
	for i, t := range tuples {
		out[i] = FormatTuple(decl, t, e.symbols)
	}
	return out
}

// Size returns the number of tuples in a relation
func (e *Engine) Size(name string) int {
	if rel, ok := e.relations[name]; ok {
		return rel.Size()
	}
	return 0
}

// Iterations returns how many fixpoint iterations stratum ran
func (e *Engine) Iterations(stratum int) int { return e.iterations[stratum] }

// Symbols returns the engine's symbol table
func (e *Engine) Symbols() *datalog.SymbolTable { return e.symbols }

// Records returns the engine's record table
func (e *Engine) Records() *datalog.RecordTable { return e.records }

// Collector returns the annotation collector, nil without a handler
func (e *Engine) Collector() *annotations.Collector { return e.actx.Collector() }
