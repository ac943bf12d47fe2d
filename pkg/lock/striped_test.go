// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedSize(t *testing.T) {
	assert.Equal(t, DefaultStripes, NewStriped(0).Len())
	assert.Equal(t, 8, NewStriped(5).Len())
	assert.Equal(t, 1, NewStriped(1).Len())
}

func TestStripedStable(t *testing.T) {
	s := NewStriped(16)
	for k := uint64(0); k < 1000; k++ {
		i := s.Index(k)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 16)
		assert.Same(t, s.For(k), s.For(k))
	}
}

func TestStripedSerializes(t *testing.T) {
	s := NewStriped(4)
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mu := s.For(42)
				mu.Lock()
				counter++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000, counter)
}
