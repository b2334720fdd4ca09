package interpreter

import (
	"time"

	"github.com/wbrown/janus-strata/datalog/annotations"
)

// Context provides clean annotation points for program evaluation.
type Context interface {
	// Program lifecycle
	ProgramBegin(relations, strata int)
	ProgramComplete(relations, tuples int, err error)

	// Strata and fixpoint iterations
	Stratum(index int, relations []string, recursive bool, fn func() (stats StratumStats, err error)) error
	Iteration(stratum, iteration, tuples int)

	// Relation maintenance
	Merged(target, source string, added int)
	Subsumed(relation, source string, erased int)
	Released(relation string, tuples int)

	// External I/O
	IO(operation, relation string, fn func() (int, error)) error

	// Get underlying collector
	Collector() *annotations.Collector
}

// StratumStats summarises an evaluated stratum
type StratumStats struct {
	Tuples     int
	Iterations int
}

// BaseContext provides a no-op implementation with zero overhead.
type BaseContext struct{}

// NewContext creates an appropriate context based on whether annotations are needed.
func NewContext(handler annotations.Handler) Context {
	if handler == nil {
		return &BaseContext{}
	}
	return &AnnotatedContext{
		collector: annotations.NewCollector(handler),
	}
}

// BaseContext implementations - all are simple pass-throughs

func (c *BaseContext) ProgramBegin(relations, strata int) {}

func (c *BaseContext) ProgramComplete(relations, tuples int, err error) {}

func (c *BaseContext) Stratum(index int, relations []string, recursive bool, fn func() (StratumStats, error)) error {
	_, err := fn()
	return err
}

func (c *BaseContext) Iteration(stratum, iteration, tuples int) {}

func (c *BaseContext) Merged(target, source string, added int) {}

func (c *BaseContext) Subsumed(relation, source string, erased int) {}

func (c *BaseContext) Released(relation string, tuples int) {}

func (c *BaseContext) IO(operation, relation string, fn func() (int, error)) error {
	_, err := fn()
	return err
}

func (c *BaseContext) Collector() *annotations.Collector {
	return nil
}

// AnnotatedContext provides full annotation tracking
type AnnotatedContext struct {
	BaseContext
	collector    *annotations.Collector
	programStart time.Time
}

func (c *AnnotatedContext) ProgramBegin(relations, strata int) {
	c.programStart = time.Now()
	c.collector.Add(annotations.Event{
		Name:  annotations.ProgramInvoked,
		Start: c.programStart,
		Data: map[string]interface{}{
			"relations.count": relations,
			"strata.count":    strata,
		},
	})
}

func (c *AnnotatedContext) ProgramComplete(relations, tuples int, err error) {
	data := map[string]interface{}{
		"relations.count": relations,
		"tuples.count":    tuples,
		"success":         err == nil,
	}

	if err != nil {
		data["error"] = err.Error()
	}

	c.collector.AddTiming(annotations.ProgramComplete, c.programStart, data)
}

func (c *AnnotatedContext) Stratum(index int, relations []string, recursive bool, fn func() (StratumStats, error)) error {
	start := time.Now()

	c.collector.Add(annotations.Event{
		Name:  annotations.StratumBegin,
		Start: start,
		Data: map[string]interface{}{
			"stratum":   index,
			"relations": relations,
			"recursive": recursive,
		},
	})

	stats, err := fn()

	data := map[string]interface{}{
		"stratum":      index,
		"tuples.count": stats.Tuples,
		"iterations":   stats.Iterations,
		"success":      err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}

	c.collector.AddTiming(annotations.StratumComplete, start, data)
	return err
}

func (c *AnnotatedContext) Iteration(stratum, iteration, tuples int) {
	c.collector.Add(annotations.Event{
		Name:  annotations.FixpointIteration,
		Start: time.Now(),
		Data: map[string]interface{}{
			"stratum":      stratum,
			"iteration":    iteration,
			"tuples.count": tuples,
		},
	})
}

func (c *AnnotatedContext) Merged(target, source string, added int) {
	c.collector.Add(annotations.Event{
		Name:  annotations.RelationMerged,
		Start: time.Now(),
		Data: map[string]interface{}{
			"target":       target,
			"source":       source,
			"tuples.added": added,
		},
	})
}

func (c *AnnotatedContext) Subsumed(relation, source string, erased int) {
	c.collector.Add(annotations.Event{
		Name:  annotations.RelationSubsumed,
		Start: time.Now(),
		Data: map[string]interface{}{
			"relation":      relation,
			"source":        source,
			"tuples.erased": erased,
		},
	})
}

func (c *AnnotatedContext) Released(relation string, tuples int) {
	c.collector.Add(annotations.Event{
		Name:  annotations.RelationReleased,
		Start: time.Now(),
		Data: map[string]interface{}{
			"relation":     relation,
			"tuples.count": tuples,
		},
	})
}

func (c *AnnotatedContext) IO(operation, relation string, fn func() (int, error)) error {
	start := time.Now()
	n, err := fn()

	name := annotations.IOStore
	if operation == "input" {
		name = annotations.IOLoad
	}
	data := map[string]interface{}{
		"relation":     relation,
		"operation":    operation,
		"tuples.count": n,
		"success":      err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}

	c.collector.AddTiming(name, start, data)
	return err
}

func (c *AnnotatedContext) Collector() *annotations.Collector {
	return c.collector
}
