// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package lock

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// DefaultStripes is the stripe count used when NewStriped is given zero.
const DefaultStripes = 64

// Striped maps 64-bit keys onto a fixed set of mutexes. Two different keys
// may share a stripe; the same key always gets the same one.
type Striped struct {
	stripes []Mutex
	mask    uint64
}

// NewStriped allocates n stripes, rounded up to a power of two.
func NewStriped(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return &Striped{
		stripes: make([]Mutex, size),
		mask:    uint64(size - 1),
	}
}

// Len returns the number of stripes.
func (s *Striped) Len() int {
	return len(s.stripes)
}

// Index returns the stripe that key hashes to.
func (s *Striped) Index(key uint64) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], key)
	return int(xxh3.Hash(b[:]) & s.mask)
}

// For returns the mutex guarding key.
func (s *Striped) For(key uint64) *Mutex {
	return &s.stripes[s.Index(key)]
}
