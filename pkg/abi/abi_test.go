// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package abi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type cell uint64

func (c cell) Load() uint64 { return uint64(c) }

// fakeHelpers records calls and serves a single 4-byte-key store.
type fakeHelpers struct {
	store  map[uint64]uint64
	text   []string
	comm   string
	update error
}

func newFakeHelpers() *fakeHelpers {
	return &fakeHelpers{store: map[uint64]uint64{}, comm: "initproc"}
}

func (f *fakeHelpers) MapLookupElem(_ Handle, key uint64) ValueRef {
	v, ok := f.store[key]
	if !ok {
		return ValueRef{}
	}
	return NewValueRef(cell(v))
}

func (f *fakeHelpers) MapUpdateElem(_ Handle, key, value uint64, flags UpdateFlags) error {
	if f.update != nil {
		return f.update
	}
	_, exists := f.store[key]
	switch {
	case flags == UpdateNoExist && exists:
		return ErrKeyExist
	case flags == UpdateExist && !exists:
		return ErrKeyNotExist
	}
	f.store[key] = value
	return nil
}

func (f *fakeHelpers) KtimeGetNs() uint64        { return 42 }
func (f *fakeHelpers) GetPrandomU32() uint32     { return 4 }
func (f *fakeHelpers) GetSmpProcessorID() uint32 { return 3 }
func (f *fakeHelpers) GetCurrentPidTgid() uint64 { return 7<<32 | 9 }

func (f *fakeHelpers) TracePrintk(tmpl string, a1, a2, a3 uint64) int {
	s := fmt.Sprintf("%s|%d|%d|%d", tmpl, a1, a2, a3)
	f.text = append(f.text, s)
	return len(s)
}

func (f *fakeHelpers) PrintStr(b []byte) int {
	f.text = append(f.text, string(b))
	return len(b)
}

func (f *fakeHelpers) GetCurrentComm(buf []byte) (int, bool) {
	if len(buf) == 0 {
		return 0, true
	}
	n := copy(buf[:len(buf)-1], f.comm)
	buf[n] = 0
	return n, n < len(f.comm)
}

type fakeLayout struct{}

func (fakeLayout) StoreLayout(h Handle) (int, int, error) {
	if h != 1 {
		return 0, 0, ErrInvalidHandle
	}
	return 4, 8, nil
}

func newTestMachine(h Helpers) *Machine {
	return NewMachine(h, fakeLayout{}, NewFrame(0), nil)
}

func TestHelperNumbering(t *testing.T) {
	// The numbers are the binary interface; they must never change.
	want := map[HelperID]uint32{
		MapLookupElem:     1,
		MapUpdateElem:     2,
		KtimeGetNs:        5,
		TracePrintk:       6,
		GetPrandomU32:     7,
		GetSmpProcessorID: 8,
		PrintStr:          9,
		GetCurrentPidTgid: 14,
		GetCurrentComm:    16,
	}
	for id, num := range want {
		assert.Equal(t, num, uint32(id), id.String())
	}
	assert.Equal(t, []HelperID{1, 2, 5, 6, 7, 8, 9, 14, 16}, DefaultTable().IDs())
	assert.Equal(t, "helper_3", HelperID(3).String())
}

func TestUnknownHelper(t *testing.T) {
	m := newTestMachine(newFakeHelpers())
	assert.Equal(t, -int64(unix.ENOSYS), m.Call(HelperID(3)))
	assert.Equal(t, -int64(unix.ENOSYS), m.Call(HelperID(1000)))
}

func TestScalarHelpers(t *testing.T) {
	m := newTestMachine(newFakeHelpers())
	assert.Equal(t, int64(42), m.Call(KtimeGetNs))
	assert.Equal(t, int64(3), m.Call(GetSmpProcessorID))
	assert.Equal(t, int64(4), m.Call(GetPrandomU32))
	id := uint64(m.Call(GetCurrentPidTgid))
	assert.Equal(t, uint64(9), id&PidMask)
	assert.Equal(t, uint64(7), id>>32)
}

func TestMapLookupUpdateNumeric(t *testing.T) {
	h := newFakeHelpers()
	m := newTestMachine(h)
	f := m.Frame()

	key, ok := f.Alloc(4)
	require.True(t, ok)
	val, ok := f.Alloc(8)
	require.True(t, ok)
	require.True(t, f.StoreUint(key, 4, 5))

	// miss is a null pointer, not an error
	assert.Equal(t, int64(0), m.Call(MapLookupElem, 1, key, val))

	require.True(t, f.Store64(val, 99))
	assert.Equal(t, int64(0), m.Call(MapUpdateElem, 1, key, val, uint64(UpdateAny)))
	assert.Equal(t, uint64(99), h.store[5])

	require.True(t, f.Store64(val, 0))
	ptr := m.Call(MapLookupElem, 1, key, val)
	require.Equal(t, int64(val), ptr)
	got, ok := f.Load64(uint64(ptr))
	require.True(t, ok)
	assert.Equal(t, uint64(99), got)

	assert.Equal(t, -int64(unix.EEXIST), m.Call(MapUpdateElem, 1, key, val, uint64(UpdateNoExist)))
	assert.Equal(t, -int64(unix.EBADF), m.Call(MapUpdateElem, 2, key, val, uint64(UpdateAny)))
	assert.Equal(t, int64(0), m.Call(MapLookupElem, 2, key, val))
	assert.Equal(t, efault, m.Call(MapUpdateElem, 1, 0, val, uint64(UpdateAny)))

	h.update = unix.E2BIG
	assert.Equal(t, -int64(unix.E2BIG), m.Call(MapUpdateElem, 1, key, val, uint64(UpdateAny)))
}

func TestTracePrintkNumeric(t *testing.T) {
	h := newFakeHelpers()
	m := newTestMachine(h)

	m.Printk("x{}y", 5, 0, 0)
	require.Len(t, h.text, 1)
	assert.Equal(t, "x{}y|5|0|0", h.text[0])

	// the template is cut at the first NUL
	addr, _, ok := m.Frame().CString("ab\x00cd")
	require.True(t, ok)
	m.Call(TracePrintk, addr, 6, 1, 2, 3)
	assert.Equal(t, "ab|1|2|3", h.text[1])

	assert.Equal(t, efault, m.Call(TracePrintk, addr, 1<<20))
}

func TestPrintkReleasesFrame(t *testing.T) {
	m := newTestMachine(newFakeHelpers())
	for i := 0; i < 4*StackSize; i++ {
		require.Positive(t, m.Printk("r{} = {}\n", uint64(i), 1, 0))
	}
}

func TestPrintStrNumeric(t *testing.T) {
	h := newFakeHelpers()
	m := newTestMachine(h)
	addr, _, ok := m.Frame().CString("%{}%")
	require.True(t, ok)
	assert.Equal(t, int64(4), m.Call(PrintStr, addr, 4))
	assert.Equal(t, "%{}%", h.text[0])
	assert.Equal(t, efault, m.Call(PrintStr, addr, uint64(StackSize)+1))
}

func TestGetCurrentCommNumeric(t *testing.T) {
	h := newFakeHelpers()
	m := newTestMachine(h)
	f := m.Frame()

	buf, ok := f.Alloc(16)
	require.True(t, ok)
	assert.Equal(t, int64(len("initproc")), m.Call(GetCurrentComm, buf, 16))
	b, _ := f.Bytes(buf, 9)
	assert.Equal(t, "initproc\x00", string(b))

	small, ok := f.Alloc(4)
	require.True(t, ok)
	guard, ok := f.Alloc(8)
	require.True(t, ok)
	require.True(t, f.Store64(guard, 0xdeadbeef))
	assert.Equal(t, -int64(unix.ENOSPC), m.Call(GetCurrentComm, small, 4))
	b, _ = f.Bytes(small, 4)
	assert.Equal(t, "ini\x00", string(b))
	g, _ := f.Load64(guard)
	assert.Equal(t, uint64(0xdeadbeef), g)
}

func TestFrameBounds(t *testing.T) {
	f := NewFrame(16)
	assert.Equal(t, 16+StackSize, f.Size())

	_, ok := f.Bytes(0, 1)
	assert.False(t, ok)
	_, ok = f.Bytes(FrameBase+uint64(f.Size()), 1)
	assert.False(t, ok)
	_, ok = f.Bytes(FrameBase+uint64(f.Size()), 0)
	assert.True(t, ok)
	_, ok = f.Bytes(FrameBase+8, ^uint64(0))
	assert.False(t, ok)
	_, ok = f.LoadUint(FrameBase, 2)
	assert.False(t, ok)

	_, ok = f.Alloc(f.Size() + 1)
	assert.False(t, ok)
}

func TestErrno(t *testing.T) {
	assert.Equal(t, int64(0), ReturnCode(nil))
	assert.Equal(t, -int64(unix.ENOENT), ReturnCode(fmt.Errorf("store 3: %w", ErrKeyNotExist)))
	assert.Equal(t, -int64(unix.EINVAL), ReturnCode(ErrInvalidFlags))
	assert.Equal(t, -int64(unix.EINVAL), ReturnCode(fmt.Errorf("something else")))
}

func TestValueRef(t *testing.T) {
	var miss ValueRef
	assert.True(t, miss.IsNil())
	assert.Equal(t, uint64(0), miss.Load())

	hit := NewValueRef(cell(12))
	assert.False(t, hit.IsNil())
	assert.Equal(t, uint64(12), hit.Load())
}
