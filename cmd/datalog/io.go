package main

import (
	"context"
	"iter"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/interpreter"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// defaultedIO fills directive parameters the program leaves unset from
// command line flags
type defaultedIO struct {
	next     interpreter.IOSystem
	defaults map[string]string
}

func withDefaults(next interpreter.IOSystem, defaults map[string]string) interpreter.IOSystem {
	return &defaultedIO{next: next, defaults: defaults}
}

func (d *defaultedIO) params(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+len(d.defaults))
	for k, v := range d.defaults {
		if v != "" {
			out[k] = v
		}
	}
	for k, v := range params {
		out[k] = v
	}
	return out
}

func (d *defaultedIO) Load(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable) ([]relation.Tuple, error) {
	return d.next.Load(ctx, decl, d.params(params), symbols)
}

func (d *defaultedIO) Store(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable, tuples iter.Seq[relation.Tuple]) error {
	return d.next.Store(ctx, decl, d.params(params), symbols, tuples)
}
