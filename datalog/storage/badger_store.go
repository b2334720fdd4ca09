package storage

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// BadgerStore implements Store using BadgerDB. Each tuple is a key with
// an empty value; the "name" directive parameter overrides the relation
// name keys are stored under.
type BadgerStore struct {
	db      *badger.DB
	encoder KeyEncoder
	logger  *zap.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens a BadgerDB-backed store with the specified
// encoder. An empty path opens an in-memory database.
func NewBadgerStore(path string, encoder KeyEncoder) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
		// Tuned for bulk loads followed by full prefix scans
		opts.MemTableSize = 128 << 20   // 128MB memtables (default 64MB)
		opts.BlockCacheSize = 256 << 20 // 256MB block cache for faster reads
		opts.IndexCacheSize = 100 << 20 // 100MB index cache
		opts.NumCompactors = 4          // Parallel compaction
	}
	opts.Logger = nil
	opts.DetectConflicts = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	// Default to Binary encoding for performance
	if encoder == nil {
		encoder = NewKeyEncoder(BinaryStrategy)
	}

	return &BadgerStore{
		db:      db,
		encoder: encoder,
		logger:  zap.NewNop(),
	}, nil
}

// WithLogger sets the logger used for load and store progress
func (s *BadgerStore) WithLogger(logger *zap.Logger) *BadgerStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func storedName(decl *ram.Relation, params map[string]string) string {
	if name := params["name"]; name != "" {
		return name
	}
	return decl.Name
}

// Load reads every tuple stored for the relation
func (s *BadgerStore) Load(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable) ([]relation.Tuple, error) {
	name := storedName(decl, params)
	prefix := s.encoder.EncodePrefix(name)

	var tuples []relation.Tuple
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // tuples live in the keys
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if len(tuples)%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			t, err := s.encoder.DecodeKey(decl, name, it.Item().Key(), symbols)
			if err != nil {
				return err
			}
			tuples = append(tuples, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	s.logger.Debug("loaded relation from badger", zap.String("relation", name), zap.Int("tuples", len(tuples)))
	return tuples, nil
}

// Store replaces the tuples stored for the relation
func (s *BadgerStore) Store(ctx context.Context, decl *ram.Relation, params map[string]string, symbols *datalog.SymbolTable, tuples iter.Seq[relation.Tuple]) error {
	name := storedName(decl, params)

	// encode first so a bad tuple leaves the stored relation untouched
	var keys [][]byte
	for t := range tuples {
		key, err := s.encoder.EncodeKey(decl, name, t, symbols)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		keys = append(keys, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Drop(name); err != nil {
		return err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Set(key, nil); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	s.logger.Debug("stored relation to badger", zap.String("relation", name), zap.Int("tuples", len(keys)))
	return nil
}

// Count counts keys in a relation's range without fetching values
func (s *BadgerStore) Count(name string) (int64, error) {
	start, end := s.encoder.EncodePrefixRange(name)

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false // KEY ONLY - no values!
	opts.PrefetchSize = 10000   // Prefetch many keys

	it := txn.NewIterator(opts)
	defer it.Close()

	var count int64
	for it.Seek(start); it.Valid(); it.Next() {
		if bytes.Compare(it.Item().Key(), end) >= 0 {
			break
		}
		count++
	}
	return count, nil
}

// Drop removes every key of a relation
func (s *BadgerStore) Drop(name string) error {
	if err := s.db.DropPrefix(s.encoder.EncodePrefix(name)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	return nil
}

// Close closes the store
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
