// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package ratelimit

import (
	"context"
	"time"

	"github.com/cilium/probehost/pkg/logger"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

type RateLimiter struct {
	*rate.Limiter
	reportInterval time.Duration
	dropped        atomic.Uint64
	total          atomic.Uint64
}

// getLimit converts an numEvents and interval to rate.Limit which is a floating point value
// representing number of events per second.
func getLimit(numEvents int, interval time.Duration) rate.Limit {
	if numEvents == 0 {
		return 0
	}
	return rate.Every(interval / time.Duration(numEvents))
}

// NewRateLimiter allows numEvents per interval. A negative numEvents means no
// limiter. When ctx can be cancelled, the number of drops is logged every
// interval until it is.
func NewRateLimiter(ctx context.Context, interval time.Duration, numEvents int) *RateLimiter {
	if numEvents < 0 {
		return nil
	}
	r := &RateLimiter{
		Limiter:        rate.NewLimiter(getLimit(numEvents, interval), numEvents),
		reportInterval: interval,
	}
	if ctx.Done() != nil && interval > 0 {
		go r.reportRateLimitInfo(ctx)
	}
	return r
}

func (r *RateLimiter) reportRateLimitInfo(ctx context.Context) {
	ticker := time.NewTicker(r.reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if dropped := r.dropped.Swap(0); dropped > 0 {
				logger.GetLogger().
					WithField("dropped", dropped).
					WithField("interval", r.reportInterval).
					Warn("Trace records dropped by rate limiter")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *RateLimiter) Drop() {
	r.dropped.Inc()
	r.total.Inc()
}

// Dropped returns the number of drops since the limiter was created.
func (r *RateLimiter) Dropped() uint64 {
	return r.total.Load()
}
