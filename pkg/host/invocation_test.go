// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package host

import (
	"testing"

	"github.com/cilium/ebpf"
	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/countermap"
	"github.com/cilium/probehost/pkg/probectx"
	"github.com/cilium/probehost/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestInvocation(t *testing.T, comm string) (*Invocation, abi.Handle) {
	t.Helper()
	reg := countermap.NewRegistry()
	h, err := reg.Create(countermap.NewSpec("inv", ebpf.Hash, 4, 8, 8))
	require.NoError(t, err)
	inv := newInvocation(reg, ClockFunc(func() uint64 { return 5 }), 3, Task{PID: 9, TGID: 7, Comm: comm})
	return inv, h
}

func TestCommTruncation(t *testing.T) {
	inv, _ := newTestInvocation(t, "initproc")

	buf := make([]byte, 16)
	n, truncated := inv.GetCurrentComm(buf)
	assert.False(t, truncated)
	assert.Equal(t, 8, n)
	assert.Equal(t, "initproc\x00", string(buf[:9]))

	// the undersized buffer sits inside a larger one; nothing past it moves
	backing := []byte("XXXXXXXXXX")
	n, truncated = inv.GetCurrentComm(backing[:4])
	assert.True(t, truncated)
	assert.Equal(t, 3, n)
	assert.Equal(t, "ini\x00XXXXXX", string(backing))

	n, truncated = inv.GetCurrentComm(nil)
	assert.True(t, truncated)
	assert.Zero(t, n)

	// exactly enough room for the name and its NUL
	exact := make([]byte, 9)
	_, truncated = inv.GetCurrentComm(exact)
	assert.False(t, truncated)
}

func TestScalarHelpers(t *testing.T) {
	inv, _ := newTestInvocation(t, "initproc")
	assert.Equal(t, uint64(5), inv.KtimeGetNs())
	assert.Equal(t, uint32(3), inv.GetSmpProcessorID())
	assert.Equal(t, uint64(7<<32|9), inv.GetCurrentPidTgid())
	assert.Equal(t, uint32(9), inv.CurrentPID())
	inv.GetPrandomU32()
}

func TestKeyLockHandOver(t *testing.T) {
	inv, h := newTestInvocation(t, "")
	s, err := inv.stores.Get(h)
	require.NoError(t, err)

	// a miss still takes the key lock so that a create can follow
	assert.True(t, inv.MapLookupElem(h, 1).IsNil())
	assert.False(t, s.KeyLock(1).TryLock())

	// update of the held key writes and releases
	require.NoError(t, inv.MapUpdateElem(h, 1, 10, abi.UpdateNoExist))
	assert.Nil(t, inv.held)
	mu := s.KeyLock(1)
	require.True(t, mu.TryLock())
	mu.Unlock()

	// moving to another key gives the first one back
	inv.MapLookupElem(h, 1)
	inv.MapLookupElem(h, 2)
	assert.Equal(t, uint64(2), inv.heldKey)
	inv.release()
	assert.Nil(t, inv.held)

	// lookups on the same key do not self-deadlock
	inv.MapLookupElem(h, 1)
	assert.Equal(t, uint64(10), inv.MapLookupElem(h, 1).Load())
	assert.Nil(t, inv.finish(trace.Record{}))
	assert.Nil(t, inv.held)

	// bad handles
	assert.True(t, inv.MapLookupElem(99, 1).IsNil())
	assert.ErrorIs(t, inv.MapUpdateElem(99, 1, 1, abi.UpdateAny), abi.ErrInvalidHandle)
}

func TestRawProgram(t *testing.T) {
	rt, sink := newTestRuntime(t, 1)
	h, err := rt.CreateStore(countermap.NewSpec("raw", ebpf.Array, 4, 8, 4))
	require.NoError(t, err)

	prog := RawProgram("raw", func(m *abi.Machine, ctx uint64) int64 {
		f := m.Frame()
		kind, _ := f.Load64(ctx + probectx.OffsetKind)
		a0, _ := f.Load64(ctx + uint64(probectx.RegOffset(probectx.RegA0)))

		key, _ := f.Alloc(4)
		val, _ := f.Alloc(8)
		f.StoreUint(key, 4, 2)
		f.Store64(val, a0)
		if rc := m.Call(abi.MapUpdateElem, uint64(h), key, val, uint64(abi.UpdateAny)); rc != 0 {
			return rc
		}
		f.Store64(val, 0)
		if m.Call(abi.MapLookupElem, uint64(h), key, val) == 0 {
			return -1
		}
		got, _ := f.Load64(val)
		m.Printk("kind {} a0 {} stored {}", kind, a0, got)
		return m.Call(abi.HelperID(3))
	})
	_, err = rt.Attach(Point{Kretprobe, testAddr}, prog)
	require.NoError(t, err)

	res := fire(t, rt, probectx.ReturnExit, 0)
	require.Len(t, res, 1)
	assert.Equal(t, -int64(unix.ENOSYS), res[0].Status)
	assert.Equal(t, []string{"kind 2 a0 7 stored 7"}, sink.Payloads())

	s, err := rt.Stores().Get(h)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), s.Lookup(2).Load())
}
