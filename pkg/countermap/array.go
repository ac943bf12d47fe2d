// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package countermap

import (
	"github.com/cilium/probehost/pkg/abi"
	"go.uber.org/atomic"
)

// arrayStore preallocates MaxEntries zeroed cells. Every index below
// MaxEntries always exists, so lookups never miss in range and entries
// cannot be deleted.
type arrayStore struct {
	base
	cells []atomic.Uint64
}

func newArrayStore(b base) *arrayStore {
	return &arrayStore{
		base:  b,
		cells: make([]atomic.Uint64, b.spec.MaxEntries),
	}
}

func (s *arrayStore) index(key uint64) (int, bool) {
	key &= s.keyMask
	if key >= uint64(len(s.cells)) {
		return 0, false
	}
	return int(key), true
}

func (s *arrayStore) Lookup(key uint64) abi.ValueRef {
	i, ok := s.index(key)
	if !ok {
		return abi.ValueRef{}
	}
	return abi.NewValueRef(&s.cells[i])
}

func (s *arrayStore) Update(key, value uint64, flags abi.UpdateFlags) error {
	if !validFlags(flags) {
		return abi.ErrInvalidFlags
	}
	i, ok := s.index(key)
	if !ok {
		return abi.ErrKeyOutOfRange
	}
	if flags == abi.UpdateNoExist {
		return abi.ErrKeyExist
	}
	s.cells[i].Store(value & s.valueMask)
	return nil
}

func (s *arrayStore) Delete(uint64) error {
	return abi.ErrNotSupported
}

func (s *arrayStore) NextKey(prev *uint64) (uint64, error) {
	if prev == nil {
		return 0, nil
	}
	i, ok := s.index(*prev)
	if !ok {
		return 0, nil
	}
	if i+1 >= len(s.cells) {
		return 0, abi.ErrKeyNotExist
	}
	return uint64(i + 1), nil
}

func (s *arrayStore) Len() int {
	return len(s.cells)
}
