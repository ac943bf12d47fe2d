// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func Test_getLimit(t *testing.T) {
	eps := 1e-9

	assert.InDelta(t, float64(rate.Limit(0)), float64(getLimit(0, time.Minute)), eps)
	assert.InDelta(t, float64(rate.Limit(0)), float64(getLimit(0, 0)), eps)
	assert.InEpsilon(t, float64(rate.Limit(1)), float64(getLimit(60, time.Minute)), eps)
	assert.InEpsilon(t, float64(rate.Limit(10.0/60)), float64(getLimit(10, time.Minute)), eps)
	// 1/ms => 1000/second
	assert.InEpsilon(t, float64(rate.Limit(1000)), float64(getLimit(1, time.Millisecond)), eps)
	// 3600/hour => 1/second
	assert.InEpsilon(t, float64(rate.Limit(1)), float64(getLimit(60*60, time.Hour)), eps)

	// interval<=0 => infinite rate limit (allow all events)
	assert.InEpsilon(t, float64(rate.Inf), float64(getLimit(1, 0)), eps)
	assert.InEpsilon(t, float64(rate.Inf), float64(getLimit(1, -1)), eps)
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(context.Background(), time.Minute, -1))

	r := NewRateLimiter(context.Background(), time.Hour, 2)
	require.NotNil(t, r)
	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())
	r.Drop()
	r.Drop()
	assert.Equal(t, uint64(2), r.Dropped())
}
