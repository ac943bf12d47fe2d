// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package abi

import (
	"encoding/binary"
)

const (
	// StackSize is the stack every numeric-style probe program gets.
	StackSize = 512

	// FrameBase is the address of the first frame byte. Address 0 stays
	// invalid so that it can serve as the null pointer.
	FrameBase uint64 = 0x10000

	wordSize = 8
)

// Frame is the only memory a numeric-style probe program can address. It
// is fixed in size and every access is bounds checked; a bad address makes
// the access fail instead of touching host memory.
type Frame struct {
	buf []byte
	top int
}

// NewFrame allocates a frame holding extra bytes in front of the stack,
// e.g. for a marshalled probe context.
func NewFrame(extra int) *Frame {
	if extra < 0 {
		extra = 0
	}
	return &Frame{buf: make([]byte, extra+StackSize)}
}

// Size returns the number of addressable bytes.
func (f *Frame) Size() int {
	return len(f.buf)
}

// Alloc reserves n bytes, 8-byte aligned, and returns their address.
func (f *Frame) Alloc(n int) (uint64, bool) {
	if n < 0 {
		return 0, false
	}
	start := (f.top + wordSize - 1) &^ (wordSize - 1)
	if start+n > len(f.buf) {
		return 0, false
	}
	f.top = start + n
	return FrameBase + uint64(start), true
}

// Bytes returns a view of n bytes at addr.
func (f *Frame) Bytes(addr uint64, n uint64) ([]byte, bool) {
	if addr < FrameBase {
		return nil, false
	}
	off := addr - FrameBase
	size := uint64(len(f.buf))
	if off > size || n > size-off {
		return nil, false
	}
	return f.buf[off : off+n : off+n], true
}

// Write copies b to addr.
func (f *Frame) Write(addr uint64, b []byte) bool {
	dst, ok := f.Bytes(addr, uint64(len(b)))
	if !ok {
		return false
	}
	copy(dst, b)
	return true
}

// LoadUint reads a little-endian unsigned integer of width 4 or 8.
func (f *Frame) LoadUint(addr uint64, width int) (uint64, bool) {
	b, ok := f.Bytes(addr, uint64(width))
	if !ok {
		return 0, false
	}
	switch width {
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), true
	case 8:
		return binary.LittleEndian.Uint64(b), true
	}
	return 0, false
}

// StoreUint writes v as a little-endian unsigned integer of width 4 or 8.
func (f *Frame) StoreUint(addr uint64, width int, v uint64) bool {
	b, ok := f.Bytes(addr, uint64(width))
	if !ok {
		return false
	}
	switch width {
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
		return true
	case 8:
		binary.LittleEndian.PutUint64(b, v)
		return true
	}
	return false
}

// Load64 reads an 8-byte word.
func (f *Frame) Load64(addr uint64) (uint64, bool) {
	return f.LoadUint(addr, 8)
}

// Store64 writes an 8-byte word.
func (f *Frame) Store64(addr uint64, v uint64) bool {
	return f.StoreUint(addr, 8, v)
}

// CString places s followed by a NUL byte in the frame. The returned size
// counts the NUL, like sizeof on a C string literal.
func (f *Frame) CString(s string) (addr uint64, size uint64, ok bool) {
	addr, ok = f.Alloc(len(s) + 1)
	if !ok {
		return 0, 0, false
	}
	b, _ := f.Bytes(addr, uint64(len(s)+1))
	copy(b, s)
	b[len(s)] = 0
	return addr, uint64(len(s) + 1), true
}
