// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package abi defines the helper interface between probe programs and the
// host.
//
// Probe programs bind to helpers by number only. The numbers below are part
// of the external interface and must never be renumbered; new helpers are
// appended. Go probe programs use the typed Helpers interface and never see a
// number; numeric dispatch happens in Table.Call.
package abi

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
)

// HelperID is the stable number of a host helper.
type HelperID uint32

// Numbers shared with Linux reuse the asm.BuiltinFunc values so that probe
// code compiled against the kernel headers binds to the same helper here.
const (
	MapLookupElem     = HelperID(asm.FnMapLookupElem)     // 1
	MapUpdateElem     = HelperID(asm.FnMapUpdateElem)     // 2
	KtimeGetNs        = HelperID(asm.FnKtimeGetNs)        // 5
	TracePrintk       = HelperID(asm.FnTracePrintk)       // 6
	GetPrandomU32     = HelperID(asm.FnGetPrandomU32)     // 7
	GetSmpProcessorID = HelperID(asm.FnGetSmpProcessorId) // 8
	// PrintStr takes number 9, which is skb_store_bytes on Linux. Socket
	// programs do not exist on this host, so the slot carries raw text.
	PrintStr          HelperID = 9
	GetCurrentPidTgid          = HelperID(asm.FnGetCurrentPidTgid) // 14
	GetCurrentComm             = HelperID(asm.FnGetCurrentComm)    // 16
)

var helperNames = map[HelperID]string{
	MapLookupElem:     "map_lookup_elem",
	MapUpdateElem:     "map_update_elem",
	KtimeGetNs:        "ktime_get_ns",
	TracePrintk:       "trace_printk",
	GetPrandomU32:     "get_prandom_u32",
	GetSmpProcessorID: "get_smp_processor_id",
	PrintStr:          "print_str",
	GetCurrentPidTgid: "get_current_pid_tgid",
	GetCurrentComm:    "get_current_comm",
}

func (id HelperID) String() string {
	if name, ok := helperNames[id]; ok {
		return name
	}
	return fmt.Sprintf("helper_%d", uint32(id))
}

// PidMask selects the pid half of a GetCurrentPidTgid value. The helper never
// unpacks the value itself.
const PidMask = 0xffffffff

// UpdateFlags selects the create/overwrite policy of MapUpdateElem.
type UpdateFlags = ebpf.MapUpdateFlags

const (
	// UpdateAny creates the entry if absent and overwrites it otherwise.
	UpdateAny = ebpf.UpdateAny
	// UpdateNoExist only creates; an existing entry is a conflict.
	UpdateNoExist = ebpf.UpdateNoExist
	// UpdateExist only overwrites; a missing entry is a conflict.
	UpdateExist = ebpf.UpdateExist
)

// Handle identifies a counter store. It is handed to a probe program at
// attachment time; probe code never creates one.
type Handle uint32

// ValueRef is a read-only view of a counter store value, as returned by a
// lookup. The zero ValueRef is the "not found" result.
type ValueRef struct {
	cell interface{ Load() uint64 }
}

// NewValueRef wraps a store cell. Only store implementations call this.
func NewValueRef(cell interface{ Load() uint64 }) ValueRef {
	return ValueRef{cell: cell}
}

// IsNil reports a lookup miss.
func (r ValueRef) IsNil() bool {
	return r.cell == nil
}

// Load returns the current value. Loading a nil ref is a probe bug; it
// yields 0 instead of faulting the host.
func (r ValueRef) Load() uint64 {
	if r.cell == nil {
		return 0
	}
	return r.cell.Load()
}

// Helpers is the typed form of the helper table. The host builds one
// implementation per invocation.
type Helpers interface {
	// MapLookupElem returns a view of the value stored under key, or a nil
	// ref if there is none. A miss is not an error.
	MapLookupElem(store Handle, key uint64) ValueRef
	// MapUpdateElem stores value under key following flags.
	MapUpdateElem(store Handle, key, value uint64, flags UpdateFlags) error
	// KtimeGetNs returns monotonic nanoseconds, free of wall-clock jumps.
	KtimeGetNs() uint64
	// TracePrintk appends a template fragment to the trace record. Each {}
	// in tmpl is replaced by the next argument in decimal.
	TracePrintk(tmpl string, a1, a2, a3 uint64) int
	// GetPrandomU32 returns a pseudo random number.
	GetPrandomU32() uint32
	// GetSmpProcessorID returns the logical CPU running the probe.
	GetSmpProcessorID() uint32
	// PrintStr appends b verbatim to the trace record.
	PrintStr(b []byte) int
	// GetCurrentPidTgid returns tgid<<32 | pid.
	GetCurrentPidTgid() uint64
	// GetCurrentComm copies the task name into buf, NUL terminated. When
	// buf is too small the copy is truncated to a valid prefix and
	// truncated is true.
	GetCurrentComm(buf []byte) (n int, truncated bool)
}
