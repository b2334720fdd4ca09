package datalog

import (
	"encoding/binary"
	"sort"
	"sync"
)

// SymbolTable interns strings into dense RamDomain ids.
// Uses sync.Map for lock-free lookups of existing symbols; new symbols are
// appended under the mutex so ids stay dense and stable.
type SymbolTable struct {
	ids     sync.Map // map[string]RamDomain
	mu      sync.RWMutex
	symbols []string
}

// NewSymbolTable creates a table pre-populated with the given symbols, in order
func NewSymbolTable(initial ...string) *SymbolTable {
	st := &SymbolTable{}
	for _, s := range initial {
		st.Encode(s)
	}
	return st
}

// Encode returns the id of s, interning it on first use
func (st *SymbolTable) Encode(s string) RamDomain {
	// Fast path: load existing (lock-free)
	if id, ok := st.ids.Load(s); ok {
		return id.(RamDomain)
	}

	// Slow path: assign the next id
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.ids.Load(s); ok {
		return id.(RamDomain)
	}
	id := RamDomain(len(st.symbols))
	st.symbols = append(st.symbols, s)
	st.ids.Store(s, id)
	return id
}

// Lookup returns the symbol for an id
func (st *SymbolTable) Lookup(id RamDomain) (string, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if id < 0 || int(id) >= len(st.symbols) {
		return "", false
	}
	return st.symbols[id], true
}

// Decode returns the symbol for an id and panics on an unknown id.
// Ids only come from Encode, so a miss is an internal error.
func (st *SymbolTable) Decode(id RamDomain) string {
	s, ok := st.Lookup(id)
	if !ok {
		panic("symbol table: unknown id")
	}
	return s
}

// Contains reports whether s has been interned
func (st *SymbolTable) Contains(s string) bool {
	_, ok := st.ids.Load(s)
	return ok
}

// Size returns the number of interned symbols
func (st *SymbolTable) Size() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.symbols)
}

// Sorted returns all symbols in lexicographic order
func (st *SymbolTable) Sorted() []string {
	st.mu.RLock()
	out := make([]string, len(st.symbols))
	copy(out, st.symbols)
	st.mu.RUnlock()
	sort.Strings(out)
	return out
}

// RecordTable interns fixed-arity records (and ADT payloads) into ids.
// Id 0 is reserved for the nil record.
type RecordTable struct {
	mu      sync.RWMutex
	ids     map[string]RamDomain
	records [][]RamDomain
}

// NewRecordTable creates an empty record table
func NewRecordTable() *RecordTable {
	return &RecordTable{
		ids:     make(map[string]RamDomain),
		records: [][]RamDomain{nil},
	}
}

// Pack returns the id of the record, interning it on first use
func (rt *RecordTable) Pack(fields []RamDomain) RamDomain {
	key := recordKey(fields)

	rt.mu.RLock()
	id, ok := rt.ids[key]
	rt.mu.RUnlock()
	if ok {
		return id
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if id, ok := rt.ids[key]; ok {
		return id
	}
	stored := make([]RamDomain, len(fields))
	copy(stored, fields)
	id = RamDomain(len(rt.records))
	rt.records = append(rt.records, stored)
	rt.ids[key] = id
	return id
}

// Unpack returns the fields of a record. The arity must match the packed
// record; a mismatch is an internal error.
func (rt *RecordTable) Unpack(id RamDomain, arity int) []RamDomain {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if id <= 0 || int(id) >= len(rt.records) {
		panic("record table: unknown id")
	}
	rec := rt.records[id]
	if len(rec) != arity {
		panic("record table: arity mismatch")
	}
	return rec
}

// Fields returns the fields of a record, false for the nil record and
// unknown ids
func (rt *RecordTable) Fields(id RamDomain) ([]RamDomain, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if id <= 0 || int(id) >= len(rt.records) {
		return nil, false
	}
	return rt.records[id], true
}

// Size returns the number of records (excluding nil)
func (rt *RecordTable) Size() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.records) - 1
}

// recordKey builds a map key; the length prefix keeps records of
// different arity apart
func recordKey(fields []RamDomain) string {
	buf := make([]byte, 0, 2+8*len(fields))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(fields)))
	for _, f := range fields {
		buf = binary.BigEndian.AppendUint64(buf, uint64(f))
	}
	return string(buf)
}
