package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = `
relations:
  - name: Edge
    attributes: [{name: x, type: number}, {name: y, type: number}]
  - name: Path
    attributes: [{name: x, type: number}, {name: y, type: number}]
clauses:
  - head: {relation: Path, args: [x, y]}
    body: [{atom: {relation: Edge, args: [x, y]}}]
  - head: {relation: Path, args: [x, z]}
    body:
      - atom: {relation: Path, args: [x, y]}
      - atom: {relation: Edge, args: [y, z]}
directives:
  - {kind: input, relation: Edge}
  - {kind: output, relation: Path}
  - {kind: printsize, relation: Path}
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRunAndPlan(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "path.yaml")
	require.NoError(t, os.WriteFile(src, []byte(program), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Edge.facts"), []byte("1\t2\n2\t3\n"), 0o644))

	plan := execute(t, "plan", "--indexes", src)
	assert.Contains(t, plan, "BEGIN STRATUM")
	assert.Contains(t, plan, "Edge: ")

	out := execute(t, "run", "--facts", dir, src)
	assert.Contains(t, out, "Path\n")
	assert.Contains(t, out, "_3 rows_")
	assert.Contains(t, out, "Path\t3\n")

	outDir := t.TempDir()
	execute(t, "run", "--facts", dir, "--output", outDir, "--sequential", src)
	data, err := os.ReadFile(filepath.Join(outDir, "Path.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1\t2\n1\t3\n2\t3\n", string(data))
}
