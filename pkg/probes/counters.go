// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package probes

import (
	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/host"
	"github.com/cilium/probehost/pkg/ktime"
	"github.com/cilium/probehost/pkg/probectx"
)

// MapIncrement adds one to key 0 of store h.
func MapIncrement(h abi.Handle) host.Program {
	return host.ProgramFunc("map-inc", func(_ *probectx.Context, hp abi.Helpers) int64 {
		hp.TracePrintk("map handle {}\n", uint64(h), 0, 0)
		var old uint64
		if v := hp.MapLookupElem(h, 0); !v.IsNil() {
			old = v.Load()
		}
		if err := hp.MapUpdateElem(h, 0, old+1, abi.UpdateAny); err != nil {
			return abi.ReturnCode(err)
		}
		hp.TracePrintk("inc value from {} to {}\n", old, old+1, 0)
		return 0
	})
}

// RawMapIncrement is MapIncrement through numbered helpers and frame
// memory.
func RawMapIncrement(h abi.Handle) host.Program {
	return host.RawProgram("map-inc-raw", func(m *abi.Machine, _ uint64) int64 {
		f := m.Frame()
		key, ok := f.Alloc(8)
		if !ok {
			return -1
		}
		val, ok := f.Alloc(8)
		if !ok {
			return -1
		}
		f.Store64(key, 0)
		f.Store64(val, 0)
		// val is left untouched on a miss
		m.Call(abi.MapLookupElem, uint64(h), key, val)
		old, _ := f.Load64(val)
		f.Store64(val, old+1)
		if rc := m.Call(abi.MapUpdateElem, uint64(h), key, val, uint64(abi.UpdateAny)); rc != 0 {
			return rc
		}
		m.Printk("inc value from {} to {}\n", old, old+1, 0)
		return 0
	})
}

// CPUTime stores the current time under the cpu id.
func CPUTime(h abi.Handle) host.Program {
	return host.ProgramFunc("cpu-time", func(_ *probectx.Context, hp abi.Helpers) int64 {
		cpu := hp.GetSmpProcessorID()
		now := hp.KtimeGetNs()
		return abi.ReturnCode(hp.MapUpdateElem(h, uint64(cpu), now, abi.UpdateAny))
	})
}

// Latency stamps RETURN_ENTRY per task in store h and prints the elapsed
// time and return value on the matching RETURN_EXIT.
func Latency(h abi.Handle) host.Program {
	return host.ProgramFunc("latency", func(ctx *probectx.Context, hp abi.Helpers) int64 {
		id := hp.GetCurrentPidTgid()
		switch ctx.Kind {
		case probectx.ReturnEntry:
			return abi.ReturnCode(hp.MapUpdateElem(h, id, hp.KtimeGetNs(), abi.UpdateAny))
		case probectx.ReturnExit:
			start := hp.MapLookupElem(h, id)
			if start.IsNil() {
				return 0
			}
			d := ktime.DiffKtime(start.Load(), hp.KtimeGetNs())
			hp.TracePrintk("pid {} latency {} ns ret {}\n", id&abi.PidMask, uint64(d), ctx.Regs.Ret())
		}
		return 0
	})
}
