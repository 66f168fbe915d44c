// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opgraph

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/pquery/pkg/pquery/partition"
)

// VisitFunc inspects one node. Returning false prevents the traversal from
// descending into the node's inputs.
type VisitFunc func(n *Node) (descend bool)

// Visitor is a dispatch table for Walk: one optional entry per Kind, plus a
// fallback used for kinds without an entry.
type Visitor struct {
	ByKind  [NumKinds]VisitFunc
	Default VisitFunc
}

// On sets the entry for the given kinds and returns the visitor.
func (v *Visitor) On(fn VisitFunc, kinds ...Kind) *Visitor {
	for _, k := range kinds {
		v.ByKind[k] = fn
	}
	return v
}

func (v *Visitor) dispatch(n *Node) bool {
	if fn := v.ByKind[n.kind]; fn != nil {
		return fn(n)
	}
	if v.Default != nil {
		return v.Default(n)
	}
	return true
}

// Walk visits the graph rooted at root in pre-order: a node is visited
// before its inputs, and inputs are visited first to last. A node reachable
// along several paths is visited once.
func Walk(root *Node, v *Visitor) {
	seen := make(map[*Node]struct{})
	var walk func(n *Node)
	walk = func(n *Node) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		if !v.dispatch(n) {
			return
		}
		for _, in := range n.inputs {
			walk(in)
		}
	}
	walk(root)
}

// CollectSources makes the visitor append every Start node to dst, in
// visiting order.
func (v *Visitor) CollectSources(dst *[]*Node) *Visitor {
	return v.On(func(n *Node) bool {
		*dst = append(*dst, n)
		return true
	}, Start)
}

// Format renders the graph rooted at root as an indented tree, one node per
// line, root first.
func Format(root *Node) string {
	var buf strings.Builder
	var format func(n *Node, depth int)
	format = func(n *Node, depth int) {
		buf.WriteString(strings.Repeat("  ", depth))
		buf.WriteString(n.kind.String())
		if d := describe(n); d != "" {
			buf.WriteString(" ")
			buf.WriteString(d)
		}
		if n.ordered {
			buf.WriteString(" [ordered]")
		}
		buf.WriteByte('\n')
		for _, in := range n.inputs {
			format(in, depth+1)
		}
	}
	format(root, 0)
	return buf.String()
}

func describe(n *Node) string {
	switch s := n.spec.(type) {
	case StartSpec:
		if l, ok := partition.KnownLen(s.Source); ok {
			return fmt.Sprintf("(len=%d, %s)", l, s.Partitioning)
		}
		return fmt.Sprintf("(forward-only, %s)", s.Partitioning)
	case MapSpec:
		if s.Indexed != nil {
			return "(indexed)"
		}
	case FilterSpec:
		if s.Indexed != nil {
			return "(indexed)"
		}
	case OrderBySpec:
		var keys []string
		for _, l := range s.Chain.Links() {
			keys = append(keys, l.Direction.String())
		}
		return "(" + strings.Join(keys, ",") + ")"
	case LimitSpec:
		switch {
		case s.WhileIndexed != nil:
			return "(while, indexed)"
		case s.While != nil:
			return "(while)"
		default:
			return fmt.Sprintf("(%d)", s.Count)
		}
	case SetOpSpec:
		return "(" + s.Op.String() + ")"
	case CastSpec:
		if s.Strict {
			return "(" + s.Target + ")"
		}
		return "(of-type " + s.Target + ")"
	case ExecutionModeSpec:
		return "(" + s.Mode.String() + ")"
	case MergeOptionsSpec:
		return "(" + s.Buffering.String() + ")"
	case DegreeOfParallelismSpec:
		return fmt.Sprintf("(%d)", s.N)
	}
	return ""
}
