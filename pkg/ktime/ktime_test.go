// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ktime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffKtime(t *testing.T) {
	assert.Equal(t, 5*time.Nanosecond, DiffKtime(10, 15))
	assert.Equal(t, -5*time.Nanosecond, DiffKtime(15, 10))
	// the counter wrapped
	assert.Equal(t, 2*time.Nanosecond, DiffKtime(^uint64(0), 1))
}

func TestMonotonic(t *testing.T) {
	a, err := Monotonic()
	require.NoError(t, err)
	b, err := Monotonic()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, b, a)

	since, err := NanoTimeSince(int64(a))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, since, time.Duration(0))

	wall, err := DecodeKtime(int64(b), true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), wall, time.Minute)
}
