package interpreter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// TableFormatter renders relations as markdown tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a column
	MaxWidth int
	// TruncateString is appended to truncated values
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatRelation formats the tuples of decl as a markdown table, sorted
// by their rendered text
func (tf *TableFormatter) FormatRelation(decl *ram.Relation, tuples []relation.Tuple, symbols *datalog.SymbolTable) string {
	if len(tuples) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", decl.AttributeNames)
	}

	rows := make([][]string, len(tuples))
	for i, t := range tuples {
		rows[i] = FormatTuple(decl, t, symbols)
		for j, v := range rows[i] {
			rows[i][j] = tf.truncate(v)
		}
	}
	slices.SortFunc(rows, func(a, b []string) int { return slices.Compare(a, b) })

	out := &strings.Builder{}
	alignment := make([]tw.Align, len(decl.AttributeNames))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(out,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(decl.AttributeNames)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()

	fmt.Fprintf(out, "\n_%s rows_\n", humanize.Comma(int64(len(rows))))
	return out.String()
}

func (tf *TableFormatter) truncate(s string) string {
	if tf.MaxWidth <= 0 || len(s) <= tf.MaxWidth {
		return s
	}
	cut := tf.MaxWidth - len(tf.TruncateString)
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + tf.TruncateString
}

// FormatTuple renders each attribute of a tuple by its declared type
func FormatTuple(decl *ram.Relation, t relation.Tuple, symbols *datalog.SymbolTable) []string {
	out := make([]string, len(t))
	for i, d := range t {
		ty := datalog.TypeSigned
		if i < len(decl.AttributeTypes) {
			ty = decl.AttributeTypes[i]
		}
		out[i] = datalog.FormatValue(d, ty, symbols)
	}
	return out
}
