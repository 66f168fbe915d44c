// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import "github.com/cockroachdb/pquery/pkg/pquery/opgraph"

type hashEntry[V any] struct {
	key any
	val V
}

// hashTable maps keys to values. Keys are compared with Go equality unless
// an external equality comparer is supplied. It is not safe for concurrent
// use; workers build private tables.
type hashTable[V any] struct {
	eq     *opgraph.Equality
	plain  map[any]V
	hashed map[uint64][]hashEntry[V]
	len    int
}

func newHashTable[V any](eq *opgraph.Equality) *hashTable[V] {
	t := &hashTable[V]{eq: eq}
	if eq == nil {
		t.plain = make(map[any]V)
	} else {
		t.hashed = make(map[uint64][]hashEntry[V])
	}
	return t
}

func (t *hashTable[V]) get(key any) (V, bool) {
	if t.eq == nil {
		v, ok := t.plain[key]
		return v, ok
	}
	for _, e := range t.hashed[t.eq.Hash(key)] {
		if t.eq.Equal(e.key, key) {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// put sets the value of key. It returns false, leaving the table unchanged,
// if the key is already present.
func (t *hashTable[V]) put(key any, val V) bool {
	if t.eq == nil {
		if _, ok := t.plain[key]; ok {
			return false
		}
		t.plain[key] = val
		t.len++
		return true
	}
	h := t.eq.Hash(key)
	for _, e := range t.hashed[h] {
		if t.eq.Equal(e.key, key) {
			return false
		}
	}
	t.hashed[h] = append(t.hashed[h], hashEntry[V]{key: key, val: val})
	t.len++
	return true
}

// update sets the value of key, inserting it if needed.
func (t *hashTable[V]) update(key any, fn func(old V, ok bool) V) {
	if t.eq == nil {
		old, ok := t.plain[key]
		t.plain[key] = fn(old, ok)
		if !ok {
			t.len++
		}
		return
	}
	h := t.eq.Hash(key)
	bucket := t.hashed[h]
	for i := range bucket {
		if t.eq.Equal(bucket[i].key, key) {
			bucket[i].val = fn(bucket[i].val, true)
			return
		}
	}
	var zero V
	t.hashed[h] = append(bucket, hashEntry[V]{key: key, val: fn(zero, false)})
	t.len++
}

func (t *hashTable[V]) contains(key any) bool {
	_, ok := t.get(key)
	return ok
}
