// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package sorter implements the multi-key sort used by OrderBy and ThenBy.
// A Chain lists the sort keys from most to least significant. Sorting never
// moves the materialized elements: it reorders a permutation of their
// indices, and the result is read through that permutation.
package sorter

import "github.com/cockroachdb/errors"

// Direction is the direction of one sort key.
type Direction int8

const (
	// Ascending sorts smaller keys first.
	Ascending Direction = iota
	// Descending sorts larger keys first.
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// KeyFunc extracts a sort key from an element.
type KeyFunc func(any) any

// CompareFunc compares two keys, returning a negative number, zero or a
// positive number.
type CompareFunc func(a, b any) int

// Link is one level of a sort chain.
type Link struct {
	Key       KeyFunc
	Compare   CompareFunc
	Direction Direction
}

// Chain is an immutable list of sort links. The first link is the primary
// key; every following link is consulted only when all links before it
// compare equal.
type Chain struct {
	links []Link
}

// NewChain creates a chain with a single link.
func NewChain(key KeyFunc, cmp CompareFunc, dir Direction) (*Chain, error) {
	var c Chain
	return c.Then(key, cmp, dir)
}

// Then returns a new chain refined by one more link. The receiver is not
// modified.
func (c *Chain) Then(key KeyFunc, cmp CompareFunc, dir Direction) (*Chain, error) {
	if key == nil {
		return nil, errors.AssertionFailedf("nil key selector")
	}
	if cmp == nil {
		return nil, errors.AssertionFailedf("nil comparer")
	}
	links := make([]Link, len(c.links), len(c.links)+1)
	copy(links, c.links)
	links = append(links, Link{Key: key, Compare: cmp, Direction: dir})
	return &Chain{links: links}, nil
}

// Len returns the number of links.
func (c *Chain) Len() int { return len(c.links) }

// Links returns the links of the chain, primary key first.
func (c *Chain) Links() []Link { return c.links }
