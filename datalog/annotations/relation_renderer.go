package annotations

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// RelationInfo represents the basic info about a relation for rendering
type RelationInfo struct {
	Name       string
	Attrs      []string
	TupleCount int
}

// RelationRenderer provides pretty-printing for relations
type RelationRenderer struct {
	useColor bool
}

// NewRelationRenderer creates a new relation renderer
func NewRelationRenderer(useColor bool) *RelationRenderer {
	return &RelationRenderer{useColor: useColor}
}

// RenderRelation renders a single relation as "Name(a b), 3 Tuples"
func (r *RelationRenderer) RenderRelation(rel RelationInfo) string {
	attrList := strings.Join(rel.Attrs, " ")

	if r.useColor {
		result := fmt.Sprintf("%s%s%s%s%s",
			color.BlueString(rel.Name),
			color.BlueString("("),
			color.CyanString(attrList),
			color.BlueString(")"),
			color.BlueString(", "))
		if rel.TupleCount >= 0 {
			result += r.colorizeCount("Tuples", rel.TupleCount)
		}
		return result
	}

	if rel.TupleCount >= 0 {
		return fmt.Sprintf("%s(%s), %s Tuples", rel.Name, attrList, humanize.Comma(int64(rel.TupleCount)))
	}
	return fmt.Sprintf("%s(%s)", rel.Name, attrList)
}

// RenderRelations renders multiple relations as a string
func (r *RelationRenderer) RenderRelations(rels []RelationInfo) string {
	parts := make([]string, len(rels))
	for i, rel := range rels {
		parts[i] = r.RenderRelation(rel)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// RenderNames renders a list of relation names
func (r *RelationRenderer) RenderNames(names []string) string {
	list := strings.Join(names, ", ")
	if r.useColor {
		return color.BlueString("{") + color.CyanString(list) + color.BlueString("}")
	}
	return "{" + list + "}"
}

// colorizeCount formats a count with color based on size
func (r *RelationRenderer) colorizeCount(label string, count int) string {
	countStr := humanize.Comma(int64(count))
	if !r.useColor {
		return fmt.Sprintf("%s %s", countStr, label)
	}

	// Color based on size
	switch {
	case count == 0:
		countStr = color.RedString(countStr)
	case count < 100:
		countStr = color.GreenString(countStr)
	case count < 10000:
		countStr = color.YellowString(countStr)
	default:
		countStr = color.RedString(countStr)
	}

	return fmt.Sprintf("%s %s", countStr, label)
}
