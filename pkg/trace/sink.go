// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package trace

import (
	"io"

	"github.com/cilium/lumberjack/v2"
	"github.com/cilium/probehost/pkg/lock"
	"github.com/cilium/probehost/pkg/metrics/tracemetrics"
	"github.com/cilium/probehost/pkg/ratelimit"
)

// Sink consumes finished records. Write is called concurrently from every
// CPU; an implementation must keep each record contiguous.
type Sink interface {
	Write(rec *Record) error
	Close() error
}

// StreamSink frames records onto an io.Writer, one Write call per record.
type StreamSink struct {
	mu  lock.Mutex
	w   io.Writer
	enc Encoder
	buf []byte
}

func NewStreamSink(w io.Writer, enc Encoder) *StreamSink {
	return &StreamSink{w: w, enc: enc}
}

func (s *StreamSink) Write(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = s.enc.AppendPacket(s.buf[:0], rec.Payload)
	n, err := s.w.Write(s.buf)
	if err != nil {
		tracemetrics.RecordDropped(tracemetrics.WriteFailed)
		return err
	}
	tracemetrics.RecordWritten(n)
	return nil
}

// Close closes the underlying writer if it is an io.Closer.
func (s *StreamSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FileConfig describes a rotated export file.
type FileConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// NewFileSink writes records to a file rotated by size.
func NewFileSink(cfg FileConfig, enc Encoder) *StreamSink {
	return NewStreamSink(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}, enc)
}

// RateLimitedSink drops records beyond the limiter's budget.
type RateLimitedSink struct {
	next    Sink
	limiter *ratelimit.RateLimiter
}

// NewRateLimitedSink wraps next. A nil limiter lets everything through.
func NewRateLimitedSink(next Sink, limiter *ratelimit.RateLimiter) *RateLimitedSink {
	return &RateLimitedSink{next: next, limiter: limiter}
}

func (s *RateLimitedSink) Write(rec *Record) error {
	if s.limiter != nil && !s.limiter.Allow() {
		s.limiter.Drop()
		tracemetrics.RecordDropped(tracemetrics.RateLimited)
		return nil
	}
	return s.next.Write(rec)
}

// Dropped returns the number of records dropped so far.
func (s *RateLimitedSink) Dropped() uint64 {
	if s.limiter == nil {
		return 0
	}
	return s.limiter.Dropped()
}

func (s *RateLimitedSink) Close() error {
	return s.next.Close()
}

// MemorySink keeps records in memory for in-process consumers.
type MemorySink struct {
	mu      lock.Mutex
	records []*Record
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(rec *Record) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// Records returns a snapshot of what was written so far.
func (s *MemorySink) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.records...)
}

// Payloads returns the payload of every record as a string.
func (s *MemorySink) Payloads() []string {
	recs := s.Records()
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = string(r.Payload)
	}
	return out
}

func (s *MemorySink) Close() error {
	return nil
}
