// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package countermap

import (
	"fmt"
	"slices"

	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/lock"
	"github.com/cilium/probehost/pkg/metrics/mapmetrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"
)

// lruStore behaves like hashStore, except that inserting into a full store
// evicts the least recently used key instead of failing.
type lruStore struct {
	base
	// mu serializes inserts so that the NOEXIST check and the add are one
	// step; the cache itself is safe for concurrent use.
	mu    lock.Mutex
	cache *lru.Cache[uint64, *atomic.Uint64]
}

func newLRUStore(b base) (*lruStore, error) {
	name := b.spec.Name
	cache, err := lru.NewWithEvict[uint64, *atomic.Uint64](int(b.spec.MaxEntries), func(uint64, *atomic.Uint64) {
		mapmetrics.MapEvictionInc(name)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return &lruStore{base: b, cache: cache}, nil
}

func (s *lruStore) Lookup(key uint64) abi.ValueRef {
	c, ok := s.cache.Get(key & s.keyMask)
	if !ok {
		return abi.ValueRef{}
	}
	return abi.NewValueRef(c)
}

func (s *lruStore) Update(key, value uint64, flags abi.UpdateFlags) error {
	if !validFlags(flags) {
		return abi.ErrInvalidFlags
	}
	key &= s.keyMask
	value &= s.valueMask

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cache.Get(key); ok {
		if flags == abi.UpdateNoExist {
			return abi.ErrKeyExist
		}
		c.Store(value)
		return nil
	}
	if flags == abi.UpdateExist {
		return abi.ErrKeyNotExist
	}
	s.cache.Add(key, atomic.NewUint64(value))
	return nil
}

func (s *lruStore) Delete(key uint64) error {
	if !s.cache.Remove(key & s.keyMask) {
		return abi.ErrKeyNotExist
	}
	return nil
}

// Peek is Lookup without marking key as recently used.
func (s *lruStore) Peek(key uint64) abi.ValueRef {
	c, ok := s.cache.Peek(key & s.keyMask)
	if !ok {
		return abi.ValueRef{}
	}
	return abi.NewValueRef(c)
}

// NextKey walks keys in ascending order, like hashStore. Recency order would
// shift under the walk as soon as a key is read back.
func (s *lruStore) NextKey(prev *uint64) (uint64, error) {
	keys := s.cache.Keys()
	if len(keys) == 0 {
		return 0, abi.ErrKeyNotExist
	}
	slices.Sort(keys)
	if prev == nil {
		return keys[0], nil
	}
	i, found := slices.BinarySearch(keys, *prev&s.keyMask)
	if !found {
		return keys[0], nil
	}
	if i+1 >= len(keys) {
		return 0, abi.ErrKeyNotExist
	}
	return keys[i+1], nil
}

func (s *lruStore) Len() int {
	return s.cache.Len()
}
