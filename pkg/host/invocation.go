// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package host

import (
	"math/rand"

	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/countermap"
	"github.com/cilium/probehost/pkg/lock"
	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/logger/logfields"
	"github.com/cilium/probehost/pkg/metrics/helpermetrics"
	"github.com/cilium/probehost/pkg/metrics/mapmetrics"
	"github.com/cilium/probehost/pkg/trace"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Invocation is the helper implementation handed to one program run. It is
// owned by the goroutine running the program and must not be shared.
//
// Counter stores are serialized per key: a lookup takes the lock of its key
// and keeps it until the program updates that key, touches another key or
// returns. At most one key lock is held at a time, so read-modify-write
// sequences on one key are atomic and two invocations cannot deadlock.
type Invocation struct {
	stores *countermap.Registry
	clock  Clock
	cpu    uint32
	task   Task
	rec    trace.Recorder

	held       *lock.Mutex
	heldHandle abi.Handle
	heldKey    uint64
}

var (
	_ abi.Helpers = (*Invocation)(nil)
	_ abi.Layout  = (*Invocation)(nil)
)

func newInvocation(stores *countermap.Registry, clock Clock, cpu uint32, task Task) *Invocation {
	return &Invocation{
		stores: stores,
		clock:  clock,
		cpu:    cpu,
		task:   task,
	}
}

func called(id abi.HelperID) {
	helpermetrics.HelperCallInc(id.String())
}

func failed(id abi.HelperID, err error) {
	helpermetrics.HelperErrorInc(id.String(), unix.ErrnoName(abi.Errno(err)))
}

func (inv *Invocation) holds(h abi.Handle, key uint64) bool {
	return inv.held != nil && inv.heldHandle == h && inv.heldKey == key
}

func (inv *Invocation) release() {
	if inv.held != nil {
		inv.held.Unlock()
		inv.held = nil
	}
}

func (inv *Invocation) acquire(s countermap.Store, h abi.Handle, key uint64) {
	if inv.holds(h, key) {
		return
	}
	inv.release()
	mu := s.KeyLock(key)
	mu.Lock()
	inv.held, inv.heldHandle, inv.heldKey = mu, h, key
}

func (inv *Invocation) MapLookupElem(h abi.Handle, key uint64) abi.ValueRef {
	called(abi.MapLookupElem)
	s, err := inv.stores.Get(h)
	if err != nil {
		failed(abi.MapLookupElem, err)
		return abi.ValueRef{}
	}
	inv.acquire(s, h, key)
	ref := s.Lookup(key)
	if ref.IsNil() {
		mapmetrics.MapOpInc(s.Name(), "lookup", abi.ErrKeyNotExist)
	} else {
		mapmetrics.MapOpInc(s.Name(), "lookup", nil)
	}
	return ref
}

func (inv *Invocation) MapUpdateElem(h abi.Handle, key, value uint64, flags abi.UpdateFlags) error {
	called(abi.MapUpdateElem)
	s, err := inv.stores.Get(h)
	if err != nil {
		failed(abi.MapUpdateElem, err)
		return err
	}
	inv.acquire(s, h, key)
	err = s.Update(key, value, flags)
	inv.release()
	mapmetrics.MapOpInc(s.Name(), "update", err)
	if err != nil {
		failed(abi.MapUpdateElem, err)
	}
	return err
}

// StoreLayout implements abi.Layout for numeric programs.
func (inv *Invocation) StoreLayout(h abi.Handle) (int, int, error) {
	return inv.stores.StoreLayout(h)
}

func (inv *Invocation) KtimeGetNs() uint64 {
	called(abi.KtimeGetNs)
	return inv.clock.Now()
}

func (inv *Invocation) TracePrintk(tmpl string, a1, a2, a3 uint64) int {
	called(abi.TracePrintk)
	return inv.rec.Printk(tmpl, a1, a2, a3)
}

func (inv *Invocation) GetPrandomU32() uint32 {
	called(abi.GetPrandomU32)
	return rand.Uint32()
}

func (inv *Invocation) GetSmpProcessorID() uint32 {
	called(abi.GetSmpProcessorID)
	return inv.cpu
}

func (inv *Invocation) PrintStr(b []byte) int {
	called(abi.PrintStr)
	return inv.rec.PrintStr(b)
}

func (inv *Invocation) GetCurrentPidTgid() uint64 {
	called(abi.GetCurrentPidTgid)
	return inv.task.PidTgid()
}

// CurrentPID returns the pid half of the current task identity directly.
func (inv *Invocation) CurrentPID() uint32 {
	return inv.task.PID
}

func (inv *Invocation) GetCurrentComm(buf []byte) (int, bool) {
	called(abi.GetCurrentComm)
	if len(buf) == 0 {
		failed(abi.GetCurrentComm, unix.ENOSPC)
		return 0, true
	}
	n := copy(buf[:len(buf)-1], inv.task.Comm)
	buf[n] = 0
	truncated := n < len(inv.task.Comm)
	if truncated {
		failed(abi.GetCurrentComm, unix.ENOSPC)
	}
	return n, truncated
}

// finish releases what the invocation still holds and returns its trace
// record, or nil if the program emitted nothing.
func (inv *Invocation) finish(meta trace.Record) *trace.Record {
	inv.release()
	if inv.rec.Fragments() == 0 {
		return nil
	}
	return inv.rec.Finish(meta)
}

func (inv *Invocation) log() logrus.FieldLogger {
	return logger.GetLogger().WithFields(logrus.Fields{
		logfields.CPU: inv.cpu,
		"pid":         inv.task.PID,
		"tgid":        inv.task.TGID,
	})
}
