// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package trace

import (
	"github.com/cilium/probehost/pkg/probectx"
)

// Fragment is one emitted piece of a record: literal bytes from the raw
// path, or a template with its arguments.
type Fragment struct {
	Raw  bool
	Text string
	Args [MaxArgs]uint64
}

// Text returns a raw fragment.
func Text(s string) Fragment {
	return Fragment{Raw: true, Text: s}
}

// Template returns a template fragment. Missing arguments are zero.
func Template(tmpl string, args ...uint64) Fragment {
	f := Fragment{Text: tmpl}
	copy(f.Args[:], args)
	return f
}

// AppendTo renders the fragment into dst.
func (f Fragment) AppendTo(dst []byte) []byte {
	if f.Raw {
		return append(dst, f.Text...)
	}
	return AppendTemplate(dst, f.Text, f.Args[:]...)
}

func (f Fragment) String() string {
	return string(f.AppendTo(nil))
}

// Recorder buffers the fragments of one invocation in emission order. It is
// owned by a single invocation and is not safe for concurrent use.
type Recorder struct {
	buf       []byte
	fragments int
}

// Printk renders a template fragment and returns the number of bytes added.
func (r *Recorder) Printk(tmpl string, a1, a2, a3 uint64) int {
	n := len(r.buf)
	r.buf = AppendTemplate(r.buf, tmpl, a1, a2, a3)
	r.fragments++
	return len(r.buf) - n
}

// PrintStr appends b verbatim.
func (r *Recorder) PrintStr(b []byte) int {
	r.buf = append(r.buf, b...)
	r.fragments++
	return len(b)
}

// Add appends an already built fragment.
func (r *Recorder) Add(f Fragment) int {
	n := len(r.buf)
	r.buf = f.AppendTo(r.buf)
	r.fragments++
	return len(r.buf) - n
}

// Fragments returns the number of fragments emitted so far.
func (r *Recorder) Fragments() int {
	return r.fragments
}

// Len returns the payload size so far.
func (r *Recorder) Len() int {
	return len(r.buf)
}

// Payload returns the concatenated fragments. The slice is only valid until
// the next call on r.
func (r *Recorder) Payload() []byte {
	return r.buf
}

// Reset empties the recorder, keeping its buffer.
func (r *Recorder) Reset() {
	r.buf = r.buf[:0]
	r.fragments = 0
}

// Record is the trace output of one invocation.
type Record struct {
	Program string
	Kind    probectx.TriggerKind
	Addr    uint64
	CPU     uint32
	Seq     uint64
	Payload []byte
}

// Finish copies the recorder content into a record and resets the recorder.
func (r *Recorder) Finish(rec Record) *Record {
	rec.Payload = append([]byte(nil), r.buf...)
	r.Reset()
	return &rec
}
