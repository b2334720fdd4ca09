package interpreter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// IOSystem loads and stores relation contents for IO statements. Params
// are the directive parameters of the statement.
type IOSystem interface {
	Load(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable) ([]relation.Tuple, error)
	Store(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable, tuples iter.Seq[relation.Tuple]) error
}

// ErrUnsupportedAttribute is returned when a relation with record or ADT
// attributes is loaded from or stored to text
var ErrUnsupportedAttribute = errors.New("attribute type not supported by I/O")

// ParseValue converts the text of one attribute into the domain
func ParseValue(text string, t datalog.TypeAttribute, symbols *datalog.SymbolTable) (datalog.RamDomain, error) {
	switch t {
	case datalog.TypeSymbol:
		return symbols.Encode(text), nil
	case datalog.TypeRecord, datalog.TypeADT:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedAttribute, t)
	}
	return datalog.ParseConstant(strings.TrimSpace(text), t)
}

// ParseRow converts one row of text into a tuple of decl
func ParseRow(decl *ram.Relation, row []string, symbols *datalog.SymbolTable) (relation.Tuple, error) {
	if len(row) != len(decl.AttributeTypes) {
		return nil, fmt.Errorf("%w: %d fields for %s", datalog.ErrArityMismatch, len(row), decl)
	}
	t := make(relation.Tuple, len(row))
	for i, text := range row {
		d, err := ParseValue(text, decl.AttributeTypes[i], symbols)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", decl.AttributeNames[i], err)
		}
		t[i] = d
	}
	return t, nil
}

// FileIO reads and writes delimited text files. Recognised parameters are
// "filename", "fact-dir", "output-dir" and "delimiter" (default tab). An
// output directive with neither filename nor output-dir prints a table
// to the configured writer.
type FileIO struct {
	out       io.Writer
	mu        sync.Mutex
	formatter *TableFormatter
}

// NewFileIO creates a file I/O system printing tables to out
func NewFileIO(out io.Writer) *FileIO {
	return &FileIO{out: out, formatter: NewTableFormatter()}
}

func delimiter(params map[string]string) (rune, error) {
	d, ok := params["delimiter"]
	if !ok || d == "" {
		return '\t', nil
	}
	if d == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) {
		return 0, fmt.Errorf("delimiter %q must be a single character", d)
	}
	return r, nil
}

func (f *FileIO) Load(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable) ([]relation.Tuple, error) {
	path := params["filename"]
	if path == "" {
		path = decl.Name + ".facts"
	}
	if dir := params["fact-dir"]; dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	comma, err := delimiter(params)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open facts: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = len(decl.AttributeTypes)

	var tuples []relation.Tuple
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			return tuples, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t, err := ParseRow(decl, row, symbols)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		tuples = append(tuples, t)
	}
}

func (f *FileIO) Store(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable, tuples iter.Seq[relation.Tuple]) error {
	path := params["filename"]
	dir := params["output-dir"]
	if path == "" && dir == "" {
		var all []relation.Tuple
		for t := range tuples {
			all = append(all, t)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		_, err := fmt.Fprintf(f.out, "%s\n%s\n", decl.Name, f.formatter.FormatRelation(decl, all, symbols))
		return err
	}
	if path == "" {
		path = decl.Name + ".csv"
	}
	if dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	comma, err := delimiter(params)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	w := csv.NewWriter(file)
	w.Comma = comma
	for _, row := range formatRows(decl, tuples, symbols) {
		if err := ctx.Err(); err != nil {
			file.Close()
			return err
		}
		if err := w.Write(row); err != nil {
			file.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func formatRows(decl *ram.Relation, tuples iter.Seq[relation.Tuple], symbols *datalog.SymbolTable) [][]string {
	var rows [][]string
	for t := range tuples {
		rows = append(rows, FormatTuple(decl, t, symbols))
	}
	slices.SortFunc(rows, func(a, b []string) int { return slices.Compare(a, b) })
	return rows
}

// MemoryIO keeps relation contents as rows of text, keyed by relation
// name. It is used by tests and by embedders feeding facts directly.
type MemoryIO struct {
	mu   sync.Mutex
	data map[string][][]string
}

// NewMemoryIO creates an empty in-memory I/O system
func NewMemoryIO() *MemoryIO {
	return &MemoryIO{data: make(map[string][][]string)}
}

// Set replaces the rows stored for a relation
func (m *MemoryIO) Set(name string, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = rows
}

// Get returns the rows stored for a relation, sorted
func (m *MemoryIO) Get(name string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data[name])
}

func (m *MemoryIO) Load(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable) ([]relation.Tuple, error) {
	rows := m.Get(decl.Name)
	tuples := make([]relation.Tuple, 0, len(rows))
	for i, row := range rows {
		t, err := ParseRow(decl, row, symbols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		tuples = append(tuples, t)
	}
	return tuples, nil
}

func (m *MemoryIO) Store(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable, tuples iter.Seq[relation.Tuple]) error {
	m.Set(decl.Name, formatRows(decl, tuples, symbols)...)
	return nil
}

// IORouter dispatches to an I/O system chosen by the "io" parameter
type IORouter struct {
	Default IOSystem
	Systems map[string]IOSystem
}

func (r *IORouter) pick(params map[string]string) (IOSystem, error) {
	name := params["io"]
	if sys, ok := r.Systems[name]; ok {
		return sys, nil
	}
	if name == "" || name == "file" {
		if r.Default == nil {
			return nil, errors.New("no default I/O system")
		}
		return r.Default, nil
	}
	return nil, fmt.Errorf("unknown I/O system %q", name)
}

func (r *IORouter) Load(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable) ([]relation.Tuple, error) {
	sys, err := r.pick(params)
	if err != nil {
		return nil, err
	}
	return sys.Load(ctx, decl, params, symbols)
}

func (r *IORouter) Store(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable, tuples iter.Seq[relation.Tuple]) error {
	sys, err := r.pick(params)
	if err != nil {
		return err
	}
	return sys.Store(ctx, decl, params, symbols, tuples)
}
