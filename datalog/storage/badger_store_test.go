package storage

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/interpreter"
	"github.com/wbrown/janus-strata/datalog/relation"
	"github.com/wbrown/janus-strata/datalog/translator"
)

func openStore(t *testing.T, path string, strategy KeyEncodingStrategy) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(path, NewKeyEncoder(strategy))
	require.NoError(t, err)
	return store.WithLogger(zaptest.NewLogger(t))
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	for _, strategy := range []KeyEncodingStrategy{BinaryStrategy, L85Strategy} {
		store := openStore(t, "", strategy)
		ctx := context.Background()
		symbols := datalog.NewSymbolTable()
		decl := mixedDecl()

		tuples := []relation.Tuple{
			{symbols.Encode("x"), datalog.Signed(-4), datalog.Unsigned(1), datalog.Float(0.5)},
			{symbols.Encode("y"), datalog.Signed(9), datalog.Unsigned(2), datalog.Float(1.5)},
		}
		require.NoError(t, store.Store(ctx, decl, nil, symbols, slices.Values(tuples)))

		n, err := store.Count("Mixed")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		fresh := datalog.NewSymbolTable()
		loaded, err := store.Load(ctx, decl, nil, fresh)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		var rows [][]string
		for _, l := range loaded {
			rows = append(rows, interpreter.FormatTuple(decl, l, fresh))
		}
		assert.ElementsMatch(t, [][]string{{"x", "-4", "1", "0.5"}, {"y", "9", "2", "1.5"}}, rows)

		// storing again replaces the relation
		require.NoError(t, store.Store(ctx, decl, nil, symbols, slices.Values(tuples[:1])))
		n, err = store.Count("Mixed")
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		require.NoError(t, store.Drop("Mixed"))
		n, err = store.Count("Mixed")
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, store.Close())
	}
}

func TestBadgerStoreNameParameter(t *testing.T) {
	store := openStore(t, "", BinaryStrategy)
	defer store.Close()
	ctx := context.Background()
	symbols := datalog.NewSymbolTable()
	decl := mixedDecl()

	tup := relation.Tuple{symbols.Encode("z"), 1, 2, datalog.Float(3)}
	require.NoError(t, store.Store(ctx, decl, map[string]string{"name": "snapshot"}, symbols, slices.Values([]relation.Tuple{tup})))

	n, _ := store.Count("Mixed")
	assert.Zero(t, n)
	n, _ = store.Count("snapshot")
	assert.EqualValues(t, 1, n)
}

func TestBadgerStorePersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	produce := `
relations:
  - name: Edge
    attributes: [{name: x, type: symbol}, {name: y, type: symbol}]
  - name: Path
    attributes: [{name: x, type: symbol}, {name: y, type: symbol}]
clauses:
  - head: {relation: Edge, args: ["a", "b"]}
  - head: {relation: Edge, args: ["b", "c"]}
  - head: {relation: Path, args: [x, y]}
    body: [{atom: {relation: Edge, args: [x, y]}}]
  - head: {relation: Path, args: [x, z]}
    body:
      - atom: {relation: Path, args: [x, y]}
      - atom: {relation: Edge, args: [y, z]}
directives:
  - {kind: output, relation: Path, params: {io: badger}}
`
	consume := `
relations:
  - name: Path
    attributes: [{name: x, type: symbol}, {name: y, type: symbol}]
  - name: FromA
    attributes: [{name: y, type: symbol}]
clauses:
  - head: {relation: FromA, args: [y]}
    body: [{atom: {relation: Path, args: ["a", y]}}]
directives:
  - {kind: input, relation: Path, params: {io: badger}}
  - {kind: output, relation: FromA}
`
	mem := interpreter.NewMemoryIO()
	evaluate := func(src string) *interpreter.Engine {
		store := openStore(t, dir, BinaryStrategy)
		defer store.Close()

		p, err := ast.LoadYAML(strings.NewReader(src), "test.yaml")
		require.NoError(t, err)
		prog, err := translator.Translate(p, translator.DefaultOptions())
		require.NoError(t, err)

		e, err := interpreter.NewEngine(prog, interpreter.Options{
			Logger: zaptest.NewLogger(t),
			IO: &interpreter.IORouter{
				Default: mem,
				Systems: map[string]interpreter.IOSystem{"badger": store},
			},
		})
		require.NoError(t, err)
		require.NoError(t, e.Run(context.Background()))
		return e
	}

	evaluate(produce)
	e := evaluate(consume)
	assert.ElementsMatch(t, [][]string{{"b"}, {"c"}}, e.Rows("FromA"))
	assert.ElementsMatch(t, [][]string{{"b"}, {"c"}}, mem.Get("FromA"))
}
