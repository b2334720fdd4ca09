package storage

import (
	"github.com/wbrown/janus-strata/datalog/interpreter"
)

// Store persists relation contents between evaluations. It serves input
// and output directives routed to it with io=badger.
type Store interface {
	interpreter.IOSystem

	// Count returns the number of tuples stored under a relation name
	Count(name string) (int64, error)

	// Drop removes every tuple stored under a relation name
	Drop(name string) error

	// Lifecycle
	Close() error
}
