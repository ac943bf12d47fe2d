// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package countermap

import (
	"slices"

	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/lock"
	"go.uber.org/atomic"
)

// hashStore holds up to MaxEntries keys. Cells are stable once created, so a
// ValueRef stays valid while its key is present; overwrites go through the
// cell and only inserts and deletes take the write lock.
type hashStore struct {
	base
	mu    lock.RWMutex
	cells map[uint64]*atomic.Uint64
}

func newHashStore(b base) *hashStore {
	return &hashStore{
		base:  b,
		cells: make(map[uint64]*atomic.Uint64),
	}
}

func (s *hashStore) Lookup(key uint64) abi.ValueRef {
	s.mu.RLock()
	c, ok := s.cells[key&s.keyMask]
	s.mu.RUnlock()
	if !ok {
		return abi.ValueRef{}
	}
	return abi.NewValueRef(c)
}

func (s *hashStore) Update(key, value uint64, flags abi.UpdateFlags) error {
	if !validFlags(flags) {
		return abi.ErrInvalidFlags
	}
	key &= s.keyMask
	value &= s.valueMask

	s.mu.RLock()
	c, ok := s.cells[key]
	s.mu.RUnlock()
	if ok {
		if flags == abi.UpdateNoExist {
			return abi.ErrKeyExist
		}
		c.Store(value)
		return nil
	}
	if flags == abi.UpdateExist {
		return abi.ErrKeyNotExist
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// someone may have inserted it in between
	if c, ok := s.cells[key]; ok {
		if flags == abi.UpdateNoExist {
			return abi.ErrKeyExist
		}
		c.Store(value)
		return nil
	}
	if len(s.cells) >= int(s.spec.MaxEntries) {
		return abi.ErrStoreFull
	}
	s.cells[key] = atomic.NewUint64(value)
	return nil
}

func (s *hashStore) Delete(key uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key &= s.keyMask
	if _, ok := s.cells[key]; !ok {
		return abi.ErrKeyNotExist
	}
	delete(s.cells, key)
	return nil
}

// NextKey walks keys in ascending order. A prev that is not in the store
// restarts from the smallest key.
func (s *hashStore) NextKey(prev *uint64) (uint64, error) {
	s.mu.RLock()
	keys := make([]uint64, 0, len(s.cells))
	for k := range s.cells {
		keys = append(keys, k)
	}
	_, found := s.cells[derefMasked(prev, s.keyMask)]
	s.mu.RUnlock()

	if len(keys) == 0 {
		return 0, abi.ErrKeyNotExist
	}
	slices.Sort(keys)
	if prev == nil || !found {
		return keys[0], nil
	}
	i, _ := slices.BinarySearch(keys, *prev&s.keyMask)
	if i+1 >= len(keys) {
		return 0, abi.ErrKeyNotExist
	}
	return keys[i+1], nil
}

func (s *hashStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}

func derefMasked(p *uint64, mask uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p & mask
}
