// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package merge reassembles the outputs of concurrent workers. Ordered
// merging is a k-way merge over the heads of the per-worker streams, each of
// which is ascending in global index; unordered merging passes elements on
// in arrival order.
package merge

import (
	"iter"

	"github.com/cockroachdb/pquery/pkg/settings"
	"github.com/google/btree"
)

// Item is an element tagged with its global index.
type Item struct {
	Idx int64
	Val any
}

// Buffering controls how eagerly worker output is handed to the consumer.
type Buffering int

const (
	// Default resolves to AutoBuffered.
	Default Buffering = iota
	// NotBuffered hands every element to the consumer as soon as possible.
	NotBuffered
	// AutoBuffered lets each worker run ahead of the consumer by a bounded
	// number of elements.
	AutoBuffered
	// FullyBuffered produces nothing until every worker has finished.
	FullyBuffered
)

func (b Buffering) String() string {
	switch b {
	case Default:
		return "default"
	case NotBuffered:
		return "not-buffered"
	case AutoBuffered:
		return "auto-buffered"
	case FullyBuffered:
		return "fully-buffered"
	default:
		return "unknown"
	}
}

// AutoBufferSize is the per-worker channel capacity used by AutoBuffered.
var AutoBufferSize = settings.RegisterIntSetting(
	"pquery.merge.auto_buffer_size",
	"number of elements each worker may produce ahead of the consumer",
	64,
	settings.PositiveInt,
)

// ChannelCap returns the capacity of worker output channels. It is only
// meaningful for the streaming modes.
func (b Buffering) ChannelCap() int {
	if b == NotBuffered {
		return 1
	}
	return int(AutoBufferSize.Get())
}

// cursor is one input of a k-way merge.
type cursor interface {
	next() (Item, bool)
}

type sliceCursor struct {
	items []Item
}

func (c *sliceCursor) next() (Item, bool) {
	if len(c.items) == 0 {
		return Item{}, false
	}
	it := c.items[0]
	c.items = c.items[1:]
	return it, true
}

type chanCursor <-chan Item

func (c chanCursor) next() (Item, bool) {
	it, ok := <-c
	return it, ok
}

// head is the current front element of one input.
type head struct {
	Item
	input int
}

func headLess(a, b head) bool {
	if a.Idx != b.Idx {
		return a.Idx < b.Idx
	}
	return a.input < b.input
}

// kWay merges ascending inputs into one ascending sequence. The frontier
// holds at most one element per input.
func kWay(inputs []cursor) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		frontier := btree.NewG[head](8, headLess)
		for i, c := range inputs {
			if it, ok := c.next(); ok {
				frontier.ReplaceOrInsert(head{Item: it, input: i})
			}
		}
		for frontier.Len() > 0 {
			h, _ := frontier.DeleteMin()
			if !yield(h.Item) {
				return
			}
			if it, ok := inputs[h.input].next(); ok {
				frontier.ReplaceOrInsert(head{Item: it, input: h.input})
			}
		}
	}
}

// Sorted merges per-worker buffers, each ascending in index, into a single
// ascending sequence.
func Sorted(buffers [][]Item) iter.Seq[Item] {
	inputs := make([]cursor, len(buffers))
	for i, b := range buffers {
		inputs[i] = &sliceCursor{items: b}
	}
	return kWay(inputs)
}

// Channels merges per-worker channels, each ascending in index, into a
// single ascending sequence. Items that arrive ahead of their predecessors
// wait in the channels; the merge blocks only on inputs whose head is not
// known yet.
func Channels(chans []chan Item) iter.Seq[Item] {
	inputs := make([]cursor, len(chans))
	for i, c := range chans {
		inputs[i] = chanCursor(c)
	}
	return kWay(inputs)
}

// Concat yields the buffers one after the other, in worker order.
func Concat(buffers [][]Item) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, b := range buffers {
			for _, it := range b {
				if !yield(it) {
					return
				}
			}
		}
	}
}

// Values collects the elements of seq, dropping their indices.
func Values(seq iter.Seq[Item]) []any {
	var res []any
	for it := range seq {
		res = append(res, it.Val)
	}
	return res
}
