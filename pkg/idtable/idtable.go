// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package idtable

import (
	"fmt"
)

// idtable implements a simple id table with slot reuse. Any required
// synchronization needs to happen on the caller.

var (
	// UninitializedEntryID provides an invalid value for EntryID (since its default value is valid)
	UninitializedEntryID = EntryID{-1}
)

// EntryID is a table entry identifier
type EntryID struct {
	ID int
}

type slot[T any] struct {
	val   T
	valid bool
}

// Table is the id table
type Table[T any] struct {
	arr []slot[T]
}

// New allocates a new id table
func New[T any]() *Table[T] {
	return &Table[T]{}
}

// findEmpty will find an empty slot in the table, or create a new one
func (t *Table[T]) findEmpty() int {
	for i := range t.arr {
		if !t.arr[i].valid {
			return i
		}
	}
	t.arr = append(t.arr, slot[T]{})
	return len(t.arr) - 1
}

// AddEntry adds v to the table and returns its id. Ids of removed entries
// are handed out again.
func (t *Table[T]) AddEntry(v T) EntryID {
	idx := t.findEmpty()
	t.arr[idx] = slot[T]{val: v, valid: true}
	return EntryID{idx}
}

func (t *Table[T]) getValidEntryIndex(id EntryID) (int, error) {
	xid := id.ID
	if xid >= len(t.arr) || xid < 0 {
		return -1, fmt.Errorf("invalid id (ID=%d)", xid)
	}
	if !t.arr[xid].valid {
		return -1, fmt.Errorf("invalid id (ID=%d/invalid entry)", xid)
	}
	return xid, nil
}

// GetEntry returns an entry or an error
func (t *Table[T]) GetEntry(id EntryID) (T, error) {
	idx, err := t.getValidEntryIndex(id)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.arr[idx].val, nil
}

// RemoveEntry removes an entry and returns it (or an error if entry does not exist)
func (t *Table[T]) RemoveEntry(id EntryID) (T, error) {
	idx, err := t.getValidEntryIndex(id)
	if err != nil {
		var zero T
		return zero, err
	}
	v := t.arr[idx].val
	t.arr[idx] = slot[T]{}
	return v, nil
}

// ForEach calls fn for every valid entry in id order.
func (t *Table[T]) ForEach(fn func(EntryID, T)) {
	for i := range t.arr {
		if t.arr[i].valid {
			fn(EntryID{i}, t.arr[i].val)
		}
	}
}

// Len returns the number of entries
func (t *Table[T]) Len() int {
	count := 0
	for i := range t.arr {
		if t.arr[i].valid {
			count++
		}
	}
	return count
}
