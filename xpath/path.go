// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package xpath

import (
	"fmt"
	"strings"
)

// Axis is the step direction.
type Axis int

const (
	AxisChild Axis = iota
	AxisParent
	AxisSelf
)

// Predicate is a reduced "[name=literal]" or "[name=current()/rel/path]"
// equality test, the only predicate form YANG's own leafref/must/when
// expressions need for key selection.
type Predicate struct {
	Name      string
	Literal   string // set when the RHS is a quoted literal
	IsLiteral bool
	RelPath   *Path // set when the RHS is current()/<relative path>
}

// Step is one "/"-separated component of a location path.
type Step struct {
	Axis       Axis
	NodeTest   string // local name, or "*" for wildcard
	Predicates []Predicate
}

// Path is a compiled location path.
type Path struct {
	Absolute bool
	Steps    []Step
	Raw      string
}

// Compile parses the reduced grammar: steps separated by "/", each an
// optional namespace-prefixed name test (the prefix is ignored — this
// server does not need cross-module disambiguation at the XPath layer,
// per spec.md §1 Non-goals) with zero or more "[name='value']" or
// "[name=current()/../name]" predicates, and ".." for the parent axis.
func Compile(expr string) (*Path, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty xpath expression")
	}
	p := &Path{Raw: expr}
	if strings.HasPrefix(expr, "/") {
		p.Absolute = true
		expr = expr[1:]
	}
	if expr == "" {
		return p, nil
	}
	for _, raw := range strings.Split(expr, "/") {
		step, err := compileStep(raw)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func compileStep(raw string) (Step, error) {
	name := raw
	var predRaw []string
	for {
		i := strings.IndexByte(name, '[')
		if i < 0 {
			break
		}
		j := strings.IndexByte(name[i:], ']')
		if j < 0 {
			return Step{}, fmt.Errorf("unterminated predicate in %q", raw)
		}
		predRaw = append(predRaw, name[i+1:i+j])
		name = name[:i] + name[i+j+1:]
	}
	name = stripPrefix(name)

	step := Step{NodeTest: name}
	switch name {
	case "..":
		step.Axis = AxisParent
		step.NodeTest = ""
	case ".":
		step.Axis = AxisSelf
		step.NodeTest = ""
	default:
		step.Axis = AxisChild
	}
	for _, pr := range predRaw {
		pred, err := compilePredicate(pr)
		if err != nil {
			return Step{}, err
		}
		step.Predicates = append(step.Predicates, pred)
	}
	return step, nil
}

func stripPrefix(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func compilePredicate(raw string) (Predicate, error) {
	i := strings.IndexByte(raw, '=')
	if i < 0 {
		return Predicate{}, fmt.Errorf("unsupported predicate %q (only name=value equality is implemented)", raw)
	}
	name := stripPrefix(strings.TrimSpace(raw[:i]))
	rhs := strings.TrimSpace(raw[i+1:])
	if strings.HasPrefix(rhs, "'") || strings.HasPrefix(rhs, "\"") {
		return Predicate{Name: name, Literal: strings.Trim(rhs, `'"`), IsLiteral: true}, nil
	}
	rhs = strings.TrimPrefix(rhs, "current()")
	sub, err := Compile(rhs)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Name: name, RelPath: sub}, nil
}

// Eval evaluates p against context, returning the resulting node-set. An
// absolute path starts at the topmost ancestor: an unnamed top node (the
// synthetic datastore root) stands for the document root, while a named
// top node is itself the document's top element, tested by the first step.
func Eval(p *Path, context Node) []Node {
	cur := []Node{context}
	steps := p.Steps
	if p.Absolute {
		root := context
		for {
			parent, ok := root.XParent()
			if !ok {
				break
			}
			root = parent
		}
		cur = []Node{root}
		if root.XName() != "" && len(steps) > 0 && steps[0].Axis == AxisChild {
			cur = nil
			if (steps[0].NodeTest == "*" || steps[0].NodeTest == root.XName()) && matchesAll(root, steps[0].Predicates) {
				cur = []Node{root}
			}
			steps = steps[1:]
		}
	}
	for _, step := range steps {
		cur = evalStep(step, cur)
	}
	return cur
}

func evalStep(step Step, in []Node) []Node {
	var out []Node
	for _, n := range in {
		switch step.Axis {
		case AxisParent:
			if p, ok := n.XParent(); ok {
				out = append(out, p)
			}
		case AxisSelf:
			out = append(out, n)
		default:
			for _, c := range n.XChildren() {
				if step.NodeTest == "*" || c.XName() == step.NodeTest {
					out = append(out, c)
				}
			}
		}
	}
	if len(step.Predicates) == 0 {
		return out
	}
	var filtered []Node
	for _, n := range out {
		if matchesAll(n, step.Predicates) {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

func matchesAll(n Node, preds []Predicate) bool {
	for _, pr := range preds {
		if !matches(n, pr) {
			return false
		}
	}
	return true
}

func matches(n Node, pr Predicate) bool {
	var target string
	for _, c := range n.XChildren() {
		if c.XName() == pr.Name {
			if v, ok := c.XValue(); ok {
				target = v
			}
			break
		}
	}
	if pr.IsLiteral {
		return target == pr.Literal
	}
	if pr.RelPath == nil {
		return false
	}
	parent, ok := n.XParent()
	if !ok {
		return false
	}
	results := Eval(pr.RelPath, parent)
	for _, r := range results {
		if v, ok := r.XValue(); ok && v == target {
			return true
		}
	}
	return false
}

// BooleanResult reports whether expr, evaluated against context, yields a
// non-empty node-set — the rule the notification engine uses for XPath
// filters (spec.md §4.5): "non-empty result ⇒ deliver".
func BooleanResult(expr string, context Node) (bool, error) {
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return len(Eval(p, context)) > 0, nil
}
