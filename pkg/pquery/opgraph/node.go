// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package opgraph represents composed queries. A query is a DAG of immutable
// nodes; every combinator wraps its input node(s) in a new node and never
// touches the source. Nothing executes until a terminal operation hands the
// root node to the executor.
package opgraph

import (
	"sync/atomic"
)

// Kind is the variant tag of a Node.
type Kind uint8

const (
	// Start wraps a raw source.
	Start Kind = iota
	// Map transforms every element.
	Map
	// Filter drops elements that fail a predicate.
	Filter
	// FlatMap replaces every element with a sequence of elements.
	FlatMap
	// GroupBy groups elements by key.
	GroupBy
	// Join is an inner equi-join of two inputs.
	Join
	// GroupJoin pairs every element of its first input with the matching
	// elements of its second input.
	GroupJoin
	// OrderBy sorts by a chain of keys.
	OrderBy
	// Head is Take and TakeWhile.
	Head
	// Tail is Skip and SkipWhile.
	Tail
	// Concat appends its second input to its first.
	Concat
	// Zip pairs up the elements of two inputs by position.
	Zip
	// SetOp is Union, Intersect, Except or Distinct.
	SetOp
	// Reverse reverses the order of its input.
	Reverse
	// Cast converts the type of every element.
	Cast
	// DefaultIfEmpty yields a single default value if its input is empty.
	DefaultIfEmpty
	// AsOrdered turns the order guard on.
	AsOrdered
	// AsUnordered turns the order guard off for downstream nodes.
	AsUnordered
	// ExecutionModeMarker sets the execution mode.
	ExecutionModeMarker
	// MergeOptionsMarker sets the merge buffering.
	MergeOptionsMarker
	// DegreeOfParallelism sets the number of partitions.
	DegreeOfParallelism
	// CancellationSignal links a user cancellation signal into the query.
	CancellationSignal

	// NumKinds is the number of kinds. Dispatch tables indexed by Kind have
	// this length.
	NumKinds
)

var kindNames = [NumKinds]string{
	Start:               "start",
	Map:                 "map",
	Filter:              "filter",
	FlatMap:             "flat-map",
	GroupBy:             "group-by",
	Join:                "join",
	GroupJoin:           "group-join",
	OrderBy:             "order-by",
	Head:                "head",
	Tail:                "tail",
	Concat:              "concat",
	Zip:                 "zip",
	SetOp:               "set-op",
	Reverse:             "reverse",
	Cast:                "cast",
	DefaultIfEmpty:      "default-if-empty",
	AsOrdered:           "as-ordered",
	AsUnordered:         "as-unordered",
	ExecutionModeMarker: "execution-mode",
	MergeOptionsMarker:  "merge-options",
	DegreeOfParallelism: "degree-of-parallelism",
	CancellationSignal:  "cancellation",
}

func (k Kind) String() string {
	if k >= NumKinds {
		return "unknown"
	}
	return kindNames[k]
}

// IsMarker returns whether nodes of this kind only carry execution options
// and pass their input through unchanged.
func (k Kind) IsMarker() bool {
	switch k {
	case AsOrdered, AsUnordered, ExecutionModeMarker, MergeOptionsMarker,
		DegreeOfParallelism, CancellationSignal:
		return true
	}
	return false
}

var nodeIDs atomic.Uint64

// Node is one operator of a query. Nodes are immutable once constructed.
type Node struct {
	kind    Kind
	id      uint64
	inputs  []*Node
	spec    interface{}
	ordered bool
}

func newNode(kind Kind, spec interface{}, inputs ...*Node) *Node {
	n := &Node{
		kind:   kind,
		id:     nodeIDs.Add(1),
		inputs: inputs,
		spec:   spec,
	}
	n.ordered = n.computeOrdered()
	return n
}

// computeOrdered determines whether the output of the node is subject to the
// order guard. Order-sensitive operators turn the guard on, AsUnordered turns
// it off, and every other node inherits it from any of its inputs.
func (n *Node) computeOrdered() bool {
	switch n.kind {
	case Start, AsUnordered:
		return false
	case AsOrdered, OrderBy, Zip, Reverse:
		return true
	case Map:
		if n.spec.(MapSpec).Indexed != nil {
			return true
		}
	case Filter:
		if n.spec.(FilterSpec).Indexed != nil {
			return true
		}
	case Head, Tail:
		if n.spec.(LimitSpec).WhileIndexed != nil {
			return true
		}
	}
	for _, in := range n.inputs {
		if in.ordered {
			return true
		}
	}
	return false
}

// Kind returns the variant tag of the node.
func (n *Node) Kind() Kind { return n.kind }

// ID returns a process-unique identifier of the node.
func (n *Node) ID() uint64 { return n.id }

// NumInputs returns the number of input nodes.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th input node.
func (n *Node) Input(i int) *Node { return n.inputs[i] }

// Spec returns the kind-specific payload of the node. Its type is the *Spec
// struct named after the kind, or nil for nodes without a payload.
func (n *Node) Spec() interface{} { return n.spec }

// Ordered returns whether the order guard is active at the output of the
// node.
func (n *Node) Ordered() bool { return n.ordered }
