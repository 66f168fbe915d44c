// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package sorter

// arena owns everything a single sort needs: the materialized elements, one
// key column per link and the permutation being sorted. It is created per
// sort and never shared.
type arena struct {
	links []Link
	keys  [][]any
	perm  []int
}

// compare orders the elements at original positions a and b. Links are
// consulted in order; when the last link ties, the earlier original position
// sorts first, whatever the directions.
func (s *arena) compare(level, a, b int) int {
	link := &s.links[level]
	c := link.Compare(s.keys[level][a], s.keys[level][b])
	if c == 0 {
		if level+1 < len(s.links) {
			return s.compare(level+1, a, b)
		}
		if link.Direction == Descending {
			c = b - a
		} else {
			c = a - b
		}
	}
	if link.Direction == Descending {
		return -c
	}
	return c
}

func (s *arena) less(i, j int) bool {
	return s.compare(0, s.perm[i], s.perm[j]) < 0
}

func (s *arena) swap(i, j int) {
	s.perm[i], s.perm[j] = s.perm[j], s.perm[i]
}

// insertionSort sorts perm[lo:hi+1].
func (s *arena) insertionSort(lo, hi int) {
	for i := lo + 1; i <= hi; i++ {
		for j := i; j > lo && s.less(j, j-1); j-- {
			s.swap(j, j-1)
		}
	}
}

// medianOfThree orders perm[lo], perm[mid] and perm[hi], then moves the
// median to hi-1 where it serves as the pivot. perm[lo] and perm[hi] become
// sentinels for the partitioning scans.
func (s *arena) medianOfThree(lo, hi int) {
	mid := lo + (hi-lo)/2
	if s.less(mid, lo) {
		s.swap(mid, lo)
	}
	if s.less(hi, lo) {
		s.swap(hi, lo)
	}
	if s.less(hi, mid) {
		s.swap(hi, mid)
	}
	s.swap(mid, hi-1)
}

// quicksort sorts perm[lo:hi+1]. It recurses into the smaller side and loops
// on the larger one, so the stack depth is logarithmic.
func (s *arena) quicksort(lo, hi int) {
	for hi-lo >= 3 {
		s.medianOfThree(lo, hi)
		pivot := hi - 1
		i, j := lo, hi-1
		for {
			for i++; s.less(i, pivot); i++ {
			}
			for j--; s.less(pivot, j); j-- {
			}
			if i >= j {
				break
			}
			s.swap(i, j)
		}
		s.swap(i, hi-1)
		if i-lo < hi-i {
			s.quicksort(lo, i-1)
			lo = i + 1
		} else {
			s.quicksort(i+1, hi)
			hi = i - 1
		}
	}
	s.insertionSort(lo, hi)
}

// Sort returns the permutation that orders elems according to chain:
// elems[perm[0]] is the first element in sort order. elems is not modified.
// Sequences of length zero or one are returned without computing keys or
// calling any comparer.
func Sort(elems []any, chain *Chain) []int {
	n := len(elems)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if n <= 1 {
		return perm
	}
	s := arena{
		links: chain.links,
		keys:  make([][]any, len(chain.links)),
		perm:  perm,
	}
	for l, link := range chain.links {
		keys := make([]any, n)
		for i, e := range elems {
			keys[i] = link.Key(e)
		}
		s.keys[l] = keys
	}
	s.quicksort(0, n-1)
	return perm
}

// Sorted is a read-only view of elements through a sort permutation.
type Sorted struct {
	elems []any
	perm  []int
}

// SortView sorts elems by chain and returns the sorted view.
func SortView(elems []any, chain *Chain) Sorted {
	return Sorted{elems: elems, perm: Sort(elems, chain)}
}

// Len returns the number of elements.
func (s Sorted) Len() int { return len(s.perm) }

// At returns the i-th element in sort order.
func (s Sorted) At(i int) any { return s.elems[s.perm[i]] }
