package ram

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Print renders a program in the indented text form used by `datalog plan`
func Print(w io.Writer, p *Program) error {
	pr := &printer{w: w}
	pr.line(0, "PROGRAM")
	pr.line(1, "DECLARATION")
	for _, r := range p.relations {
		pr.line(2, "%s", r.String())
	}
	pr.line(1, "END DECLARATION")
	pr.line(1, "BEGIN MAIN")
	if p.Main != nil {
		pr.statement(2, p.Main)
	}
	pr.line(1, "END MAIN")
	pr.line(0, "END PROGRAM")
	return pr.err
}

// String renders any statement or operation
func String(n Node) string {
	var sb strings.Builder
	pr := &printer{w: &sb}
	switch x := n.(type) {
	case Statement:
		pr.statement(0, x)
	case Operation:
		pr.operation(0, x)
	case fmt.Stringer:
		return x.String()
	}
	return sb.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(indent int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat(" ", indent), fmt.Sprintf(format, args...))
}

func (p *printer) statement(indent int, s Statement) {
	switch x := s.(type) {
	case *Sequence:
		for _, c := range x.Statements {
			p.statement(indent, c)
		}
	case *Parallel:
		p.line(indent, "PARALLEL")
		for _, c := range x.Statements {
			p.statement(indent+1, c)
		}
		p.line(indent, "END PARALLEL")
	case *Loop:
		p.line(indent, "LOOP")
		p.statement(indent+1, x.Body)
		p.line(indent, "END LOOP")
	case *Exit:
		p.line(indent, "EXIT %s", x.Condition)
	case *Query:
		if x.Sequential {
			p.line(indent, "QUERY SEQUENTIAL")
		} else {
			p.line(indent, "QUERY")
		}
		p.operation(indent+1, x.Operation)
		p.line(indent, "END QUERY")
	case *Clear:
		p.line(indent, "CLEAR %s", x.Relation)
	case *Swap:
		p.line(indent, "SWAP (%s, %s)", x.First, x.Second)
	case *Merge:
		p.line(indent, "MERGE %s INTO %s", x.Source, x.Target)
	case *EraseAll:
		p.line(indent, "ERASE %s FROM %s", x.Source, x.Target)
	case *IO:
		p.line(indent, "IO %s (%s)", x.Relation, formatDirectives(x.Directives))
	case *Stratum:
		kind := ""
		if x.Recursive {
			kind = " RECURSIVE"
		}
		p.line(indent, "BEGIN STRATUM %d%s (%s)", x.Index, kind, strings.Join(x.Relations, ", "))
		if len(x.Inputs) > 0 {
			p.line(indent+1, "READS %s", strings.Join(x.Inputs, ", "))
		}
		if len(x.Outputs) > 0 {
			p.line(indent+1, "PUBLISHES %s", strings.Join(x.Outputs, ", "))
		}
		p.statement(indent+1, x.Body)
		p.line(indent, "END STRATUM %d", x.Index)
	case *DebugInfo:
		p.line(indent, "DEBUG %q", x.Message)
		p.statement(indent+1, x.Statement)
		p.line(indent, "END DEBUG")
	default:
		p.line(indent, "<unknown statement %T>", s)
	}
}

func (p *printer) operation(indent int, op Operation) {
	switch x := op.(type) {
	case *Scan:
		p.line(indent, "FOR t%d IN %s", x.Level, x.Relation)
		p.operation(indent+1, x.Nested)
	case *IndexScan:
		p.line(indent, "FOR t%d IN %s ON INDEX %s", x.Level, x.Relation, formatPattern(x.Level, x.Values))
		p.operation(indent+1, x.Nested)
	case *UnpackRecord:
		p.line(indent, "UNPACK t%d ARITY %d FROM %s", x.Level, x.Arity, x.Expression)
		p.operation(indent+1, x.Nested)
	case *Filter:
		p.line(indent, "IF %s", x.Condition)
		p.operation(indent+1, x.Nested)
	case *Break:
		p.line(indent, "IF %s BREAK", x.Condition)
		p.operation(indent, x.Nested)
	case *Aggregate:
		target := ""
		if x.Expression != nil {
			target = " " + x.Expression.String()
		}
		where := ""
		if x.Condition != nil {
			if _, ok := x.Condition.(*True); !ok {
				where = " WHERE " + x.Condition.String()
			}
		}
		on := ""
		if x.Indexed() {
			on = " ON INDEX " + formatPattern(x.Level, x.Values)
		}
		op := x.Op.String()
		if x.Op == AggUser {
			op = fmt.Sprintf("@%s(%s)", x.Function, x.Init)
		}
		p.line(indent, "t%d.0 = %s%s FOR ALL t%d IN %s%s%s",
			x.Level, op, target, x.Level, x.Relation, on, where)
		p.operation(indent+1, x.Nested)
	case *Insert:
		p.line(indent, "INSERT (%s) INTO %s", joinExpressions(x.Values), x.Relation)
	default:
		p.line(indent, "<unknown operation %T>", op)
	}
}

func formatPattern(level int, values []Expression) string {
	var parts []string
	for i, v := range values {
		if IsUndef(v) {
			continue
		}
		parts = append(parts, fmt.Sprintf("t%d.%d = %s", level, i, v))
	}
	return strings.Join(parts, " AND ")
}

func formatDirectives(d map[string]string) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, d[k])
	}
	return strings.Join(parts, ",")
}
