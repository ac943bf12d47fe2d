// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package host

import (
	"time"

	"github.com/cilium/probehost/pkg/ktime"
	"github.com/cilium/probehost/pkg/logger"
)

// Clock is the time source behind KtimeGetNs.
type Clock interface {
	// Now returns monotonic nanoseconds.
	Now() uint64
}

// MonotonicClock reads CLOCK_MONOTONIC.
type MonotonicClock struct{}

var processStart = time.Now()

func (MonotonicClock) Now() uint64 {
	d, err := ktime.Monotonic()
	if err != nil {
		logger.GetLogger().WithError(err).Warn("CLOCK_MONOTONIC unavailable, using process clock")
		// time.Since uses the runtime's monotonic reading
		return uint64(time.Since(processStart))
	}
	return uint64(d)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 {
	return f()
}
