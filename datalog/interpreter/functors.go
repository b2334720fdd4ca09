package interpreter

import (
	"fmt"
	"sync"

	"github.com/wbrown/janus-strata/datalog"
)

// Functor is a user-defined functor over domain values
type Functor func(args []datalog.RamDomain) (datalog.RamDomain, error)

// StatefulFunctor additionally reads and writes the symbol and record
// tables, for functors that build strings or records
type StatefulFunctor func(symbols *datalog.SymbolTable, records *datalog.RecordTable, args []datalog.RamDomain) (datalog.RamDomain, error)

// FunctorRegistry holds the user-defined functors a program may call
type FunctorRegistry struct {
	mu       sync.RWMutex
	plain    map[string]Functor
	stateful map[string]StatefulFunctor
}

// NewFunctorRegistry creates an empty registry
func NewFunctorRegistry() *FunctorRegistry {
	return &FunctorRegistry{
		plain:    make(map[string]Functor),
		stateful: make(map[string]StatefulFunctor),
	}
}

// Register adds a stateless functor
func (r *FunctorRegistry) Register(name string, fn Functor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plain[name] = fn
	delete(r.stateful, name)
}

// RegisterStateful adds a functor that needs the symbol and record tables
func (r *FunctorRegistry) RegisterStateful(name string, fn StatefulFunctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateful[name] = fn
	delete(r.plain, name)
}

// check verifies a functor is registered with the expected flavour
func (r *FunctorRegistry) check(name string, stateful bool) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, plain := r.plain[name]
	_, withState := r.stateful[name]
	switch {
	case !plain && !withState:
		return fmt.Errorf("%w: @%s is not registered", datalog.ErrUnknownFunctor, name)
	case stateful && !withState:
		return fmt.Errorf("%w: @%s is declared stateful but registered stateless", datalog.ErrUnknownFunctor, name)
	case !stateful && !plain:
		return fmt.Errorf("%w: @%s is declared stateless but registered stateful", datalog.ErrUnknownFunctor, name)
	}
	return nil
}

func (r *FunctorRegistry) call(name string, symbols *datalog.SymbolTable, records *datalog.RecordTable, args []datalog.RamDomain) (datalog.RamDomain, error) {
	r.mu.RLock()
	plain, okPlain := r.plain[name]
	stateful, okStateful := r.stateful[name]
	r.mu.RUnlock()

	switch {
	case okStateful:
		return stateful(symbols, records, args)
	case okPlain:
		return plain(args)
	}
	panic(fmt.Sprintf("interpreter: functor @%s vanished after validation", name))
}
