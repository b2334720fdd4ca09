package ast

import (
	"fmt"
	"sort"
	"strings"
)

// ClauseKind tags the closed set of clause variants
type ClauseKind uint8

const (
	KindFact ClauseKind = iota
	KindRule
	KindSubsumptiveRule
)

// String returns the kind name
func (k ClauseKind) String() string {
	switch k {
	case KindFact:
		return "fact"
	case KindRule:
		return "rule"
	case KindSubsumptiveRule:
		return "subsumptive"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ExecutionPlan fixes the atom order per recursive version.
// Orders are 1-based permutations of the body atoms, as written by users.
// Version 0 also applies to the non-recursive translation.
type ExecutionPlan struct {
	Orders map[int][]int
}

// Order returns the plan for a version, if any
func (p *ExecutionPlan) Order(version int) ([]int, bool) {
	if p == nil {
		return nil, false
	}
	o, ok := p.Orders[version]
	return o, ok
}

// String renders ".plan 0:(1,2), 1:(2,1)"
func (p *ExecutionPlan) String() string {
	if p == nil || len(p.Orders) == 0 {
		return ""
	}
	versions := make([]int, 0, len(p.Orders))
	for v := range p.Orders {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	parts := make([]string, len(versions))
	for i, v := range versions {
		nums := make([]string, len(p.Orders[v]))
		for j, n := range p.Orders[v] {
			nums[j] = fmt.Sprint(n)
		}
		parts[i] = fmt.Sprintf("%d:(%s)", v, strings.Join(nums, ","))
	}
	return " .plan " + strings.Join(parts, ", ")
}

// Clause is a fact, a rule or a subsumptive rule. The subsumptive head only
// exists on KindSubsumptiveRule and names the same relation as Head.
type Clause struct {
	ID              ClauseID
	Kind            ClauseKind
	Head            *Atom
	SubsumptiveHead *Atom
	Body            []Literal
	Plan            *ExecutionPlan
	Loc             SrcLocation
}

// NewFact creates a body-less clause
func NewFact(head *Atom) *Clause {
	return &Clause{Kind: KindFact, Head: head}
}

// NewRule creates a rule; a rule without body literals is a fact
func NewRule(head *Atom, body ...Literal) *Clause {
	if len(body) == 0 {
		return NewFact(head)
	}
	return &Clause{Kind: KindRule, Head: head, Body: body}
}

// NewSubsumptiveRule creates "head <= subsumptiveHead :- body".
// The relation check happens in analysis so that mismatches are reported
// as definition errors rather than panics.
func NewSubsumptiveRule(head, subsumptiveHead *Atom, body ...Literal) *Clause {
	return &Clause{
		Kind:            KindSubsumptiveRule,
		Head:            head,
		SubsumptiveHead: subsumptiveHead,
		Body:            body,
	}
}

// IsFact reports whether the clause has no body and a ground head
func (c *Clause) IsFact() bool { return c.Kind == KindFact }

// IsSubsumptive reports whether the clause is a subsumptive rule
func (c *Clause) IsSubsumptive() bool { return c.Kind == KindSubsumptiveRule }

// BodyAtoms returns the positive atoms of the body in declaration order
func (c *Clause) BodyAtoms() []*Atom {
	var atoms []*Atom
	for _, lit := range c.Body {
		if a, ok := lit.(*Atom); ok {
			atoms = append(atoms, a)
		}
	}
	return atoms
}

// WithPlan attaches an execution plan and returns the clause
func (c *Clause) WithPlan(orders map[int][]int) *Clause {
	c.Plan = &ExecutionPlan{Orders: orders}
	return c
}

// String renders the clause in Datalog syntax
func (c *Clause) String() string {
	var sb strings.Builder
	sb.WriteString(c.Head.String())
	if c.Kind == KindSubsumptiveRule {
		sb.WriteString(" <= ")
		sb.WriteString(c.SubsumptiveHead.String())
	}
	if len(c.Body) > 0 {
		parts := make([]string, len(c.Body))
		for i, l := range c.Body {
			parts[i] = l.String()
		}
		sb.WriteString(" :- ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	sb.WriteString(".")
	sb.WriteString(c.Plan.String())
	return sb.String()
}
