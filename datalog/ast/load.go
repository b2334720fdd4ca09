package ast

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// The YAML program format is a structured rendering of the AST; it is not
// a surface syntax. Scalar arguments are classified by their YAML form:
// quoted scalars are symbols, numbers are numeric constants, "_" is the
// unnamed variable, "$" the counter and any other plain scalar a variable.

type programDoc struct {
	Relations  []relationDoc  `yaml:"relations"`
	Types      []adtDoc       `yaml:"types"`
	Functors   []functorDoc   `yaml:"functors"`
	Lattices   []latticeDoc   `yaml:"lattices"`
	Clauses    []clauseDoc    `yaml:"clauses"`
	Directives []directiveDoc `yaml:"directives"`
}

type relationDoc struct {
	Name           string         `yaml:"name"`
	Attributes     []attributeDoc `yaml:"attributes"`
	Auxiliary      int            `yaml:"auxiliary"`
	Representation string         `yaml:"representation"`
	LimitSize      int            `yaml:"limitsize"`
}

type attributeDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type adtDoc struct {
	Name     string `yaml:"name"`
	Branches []struct {
		Constructor string   `yaml:"constructor"`
		Fields      []string `yaml:"fields"`
	} `yaml:"branches"`
}

type functorDoc struct {
	Name     string   `yaml:"name"`
	Params   []string `yaml:"params"`
	Returns  string   `yaml:"returns"`
	Stateful bool     `yaml:"stateful"`
}

type latticeDoc struct {
	Name   string  `yaml:"name"`
	Type   string  `yaml:"type"`
	Lub    string  `yaml:"lub"`
	Glb    string  `yaml:"glb"`
	Bottom *argDoc `yaml:"bottom"`
}

type directiveDoc struct {
	Kind     string            `yaml:"kind"`
	Relation string            `yaml:"relation"`
	Params   map[string]string `yaml:"params"`
}

type clauseDoc struct {
	Head     atomDoc       `yaml:"head"`
	Subsumes *atomDoc      `yaml:"subsumes"`
	Body     []literalDoc  `yaml:"body"`
	Plan     map[int][]int `yaml:"plan"`
	line     int
	column   int
}

func (c *clauseDoc) UnmarshalYAML(n *yaml.Node) error {
	type plain clauseDoc
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*c = clauseDoc(p)
	c.line, c.column = n.Line, n.Column
	return nil
}

type atomDoc struct {
	Relation string   `yaml:"relation"`
	Args     []argDoc `yaml:"args"`
}

type literalDoc struct {
	Atom       *atomDoc       `yaml:"atom"`
	Not        *atomDoc       `yaml:"not"`
	Constraint *constraintDoc `yaml:"constraint"`
	Bool       *bool          `yaml:"bool"`
}

type constraintDoc struct {
	Op  string `yaml:"op"`
	LHS argDoc `yaml:"lhs"`
	RHS argDoc `yaml:"rhs"`
}

type argDoc struct {
	arg Argument
}

type argMapDoc struct {
	Functor   string       `yaml:"functor"`
	Call      string       `yaml:"call"`
	Aggregate string       `yaml:"aggregate"`
	Target    *argDoc      `yaml:"target"`
	Init      *argDoc      `yaml:"init"`
	Body      []literalDoc `yaml:"body"`
	Branch    string       `yaml:"branch"`
	Record    []argDoc     `yaml:"record"`
	Args      []argDoc     `yaml:"args"`
	Number    string       `yaml:"number"`
	Type      string       `yaml:"type"`
}

func (a *argDoc) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		a.arg = classifyScalar(n)
		return nil
	case yaml.MappingNode:
		var m argMapDoc
		if err := n.Decode(&m); err != nil {
			return err
		}
		arg, err := m.toArgument()
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		a.arg = arg
		return nil
	default:
		return fmt.Errorf("line %d: argument must be a scalar or a mapping", n.Line)
	}
}

func classifyScalar(n *yaml.Node) Argument {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return Str(n.Value)
	}
	switch {
	case n.Value == "_":
		return Unnamed()
	case n.Value == "$":
		return &Counter{}
	case n.Tag == "!!int":
		return Num(n.Value)
	case n.Tag == "!!float":
		return &NumericConstant{Text: n.Value, Type: "f"}
	default:
		return Var(n.Value)
	}
}

func (m *argMapDoc) toArgument() (Argument, error) {
	switch {
	case m.Number != "":
		return &NumericConstant{Text: m.Number, Type: m.Type}, nil
	case m.Functor != "":
		return &IntrinsicFunctor{Op: m.Functor, Args: unwrapArgs(m.Args)}, nil
	case m.Call != "":
		return &UserDefinedFunctor{Name: m.Call, Args: unwrapArgs(m.Args)}, nil
	case m.Aggregate != "":
		body, err := toLiterals(m.Body)
		if err != nil {
			return nil, err
		}
		agg := &Aggregator{Op: m.Aggregate, Body: body}
		if m.Target != nil {
			agg.Target = m.Target.arg
		}
		if m.Init != nil {
			agg.Init = m.Init.arg
		}
		return agg, nil
	case m.Branch != "":
		return &BranchInit{Constructor: m.Branch, Args: unwrapArgs(m.Args)}, nil
	case m.Record != nil:
		return &RecordInit{Args: unwrapArgs(m.Record)}, nil
	default:
		return nil, fmt.Errorf("unrecognised argument mapping")
	}
}

func unwrapArgs(docs []argDoc) []Argument {
	out := make([]Argument, len(docs))
	for i, d := range docs {
		out[i] = d.arg
	}
	return out
}

func (a *atomDoc) toAtom() *Atom {
	return NewAtom(QualifiedName(a.Relation), unwrapArgs(a.Args)...)
}

func toLiterals(docs []literalDoc) ([]Literal, error) {
	out := make([]Literal, 0, len(docs))
	for i, d := range docs {
		switch {
		case d.Atom != nil:
			out = append(out, d.Atom.toAtom())
		case d.Not != nil:
			out = append(out, Not(d.Not.toAtom()))
		case d.Constraint != nil:
			out = append(out, Cmp(d.Constraint.LHS.arg, d.Constraint.Op, d.Constraint.RHS.arg))
		case d.Bool != nil:
			out = append(out, &BooleanConstraint{Value: *d.Bool})
		default:
			return nil, fmt.Errorf("body literal %d is empty", i+1)
		}
	}
	return out, nil
}

// LoadYAMLFile reads a program from a YAML file
func LoadYAMLFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer f.Close()
	return LoadYAML(f, path)
}

// LoadYAML reads a program; file is only used for source locations
func LoadYAML(r io.Reader, file string) (*Program, error) {
	var doc programDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}

	prog := NewProgram()

	for _, t := range doc.Types {
		adt := &ADTDecl{Name: t.Name}
		for _, b := range t.Branches {
			adt.Branches = append(adt.Branches, Branch{Constructor: b.Constructor, Fields: b.Fields})
		}
		prog.AddADT(adt)
	}

	for _, f := range doc.Functors {
		prog.AddFunctor(&FunctorDecl{
			Name:     f.Name,
			Params:   f.Params,
			Returns:  f.Returns,
			Stateful: f.Stateful,
		})
	}

	for _, ld := range doc.Lattices {
		if ld.Lub == "" {
			return nil, fmt.Errorf("lattice %s: lub functor is required", ld.Name)
		}
		l := &LatticeDecl{Name: ld.Name, Type: ld.Type, Lub: ld.Lub, Glb: ld.Glb}
		if ld.Bottom != nil {
			l.Bottom = ld.Bottom.arg
		}
		prog.AddLattice(l)
	}

	for _, rd := range doc.Relations {
		attrs := make([]Attribute, len(rd.Attributes))
		for i, a := range rd.Attributes {
			attrs[i] = Attribute{Name: a.Name, Type: a.Type}
			if l, ok := prog.Lattice(a.Type); ok {
				attrs[i] = Attribute{Name: a.Name, Type: l.Type, Lattice: l.Name}
			}
		}
		rel, err := prog.AddRelation(QualifiedName(rd.Name), attrs...)
		if err != nil {
			return nil, err
		}
		rel.AuxiliaryArity = rd.Auxiliary
		rel.SizeLimit = rd.LimitSize
		switch rd.Representation {
		case "", "default":
		case "btree":
			rel.Representation = RepresentationBTree
		case "btree_delete":
			rel.Representation = RepresentationBTreeDelete
		default:
			return nil, fmt.Errorf("relation %s: unknown representation %q", rd.Name, rd.Representation)
		}
	}

	for _, cd := range doc.Clauses {
		body, err := toLiterals(cd.Body)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", file, cd.line, err)
		}
		var c *Clause
		if cd.Subsumes != nil {
			c = NewSubsumptiveRule(cd.Head.toAtom(), cd.Subsumes.toAtom(), body...)
		} else {
			c = NewRule(cd.Head.toAtom(), body...)
		}
		if len(cd.Plan) > 0 {
			c.WithPlan(cd.Plan)
		}
		c.Loc = SrcLocation{File: file, Line: cd.line, Column: cd.column}
		prog.AddClause(c)
	}

	for _, d := range doc.Directives {
		var kind DirectiveKind
		switch d.Kind {
		case "input":
			kind = DirectiveInput
		case "output":
			kind = DirectiveOutput
		case "printsize":
			kind = DirectivePrintSize
		default:
			return nil, fmt.Errorf("unknown directive kind %q", d.Kind)
		}
		prog.AddDirective(Directive{Kind: kind, Relation: QualifiedName(d.Relation), Params: d.Params})
	}

	return prog, nil
}
