// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package abi

import (
	"bytes"
	"slices"

	"golang.org/x/sys/unix"
)

// Args holds the five argument registers of a helper call.
type Args [5]uint64

// Func is the numeric form of a helper: it decodes register arguments
// against the caller's frame and forwards to the typed helper.
type Func func(m *Machine, args Args) int64

// Table maps helper numbers to implementations. It is fixed after
// construction.
type Table struct {
	funcs map[HelperID]Func
}

var defaultTable = &Table{
	funcs: map[HelperID]Func{
		MapLookupElem:     callMapLookupElem,
		MapUpdateElem:     callMapUpdateElem,
		KtimeGetNs:        callKtimeGetNs,
		TracePrintk:       callTracePrintk,
		GetPrandomU32:     callGetPrandomU32,
		GetSmpProcessorID: callGetSmpProcessorID,
		PrintStr:          callPrintStr,
		GetCurrentPidTgid: callGetCurrentPidTgid,
		GetCurrentComm:    callGetCurrentComm,
	},
}

// DefaultTable returns the helper table of this host.
func DefaultTable() *Table {
	return defaultTable
}

// Lookup returns the implementation of id.
func (t *Table) Lookup(id HelperID) (Func, bool) {
	fn, ok := t.funcs[id]
	return fn, ok
}

// IDs returns the registered helper numbers in ascending order.
func (t *Table) IDs() []HelperID {
	ids := make([]HelperID, 0, len(t.funcs))
	for id := range t.funcs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Call dispatches a numeric helper call. Unknown numbers return -ENOSYS.
func (t *Table) Call(m *Machine, id HelperID, args Args) int64 {
	fn, ok := t.funcs[id]
	if !ok {
		return -int64(unix.ENOSYS)
	}
	return fn(m, args)
}

var efault = -int64(unix.EFAULT)

// bpf_map_lookup_elem(handle, key *, value *): the value is copied into the
// caller's buffer and the buffer address is returned; 0 means not found.
func callMapLookupElem(m *Machine, args Args) int64 {
	h := Handle(args[0])
	keySize, valueSize, err := m.layout.StoreLayout(h)
	if err != nil {
		return 0
	}
	key, ok := m.frame.LoadUint(args[1], keySize)
	if !ok {
		return 0
	}
	ref := m.helpers.MapLookupElem(h, key)
	if ref.IsNil() {
		return 0
	}
	if !m.frame.StoreUint(args[2], valueSize, ref.Load()) {
		return 0
	}
	return int64(args[2])
}

// bpf_map_update_elem(handle, key *, value *, flags)
func callMapUpdateElem(m *Machine, args Args) int64 {
	h := Handle(args[0])
	keySize, valueSize, err := m.layout.StoreLayout(h)
	if err != nil {
		return ReturnCode(err)
	}
	key, ok := m.frame.LoadUint(args[1], keySize)
	if !ok {
		return efault
	}
	value, ok := m.frame.LoadUint(args[2], valueSize)
	if !ok {
		return efault
	}
	return ReturnCode(m.helpers.MapUpdateElem(h, key, value, UpdateFlags(args[3])))
}

func callKtimeGetNs(m *Machine, _ Args) int64 {
	return int64(m.helpers.KtimeGetNs())
}

// bpf_trace_printk(fmt *, fmt_size, p1, p2, p3)
func callTracePrintk(m *Machine, args Args) int64 {
	b, ok := m.frame.Bytes(args[0], args[1])
	if !ok {
		return efault
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return int64(m.helpers.TracePrintk(string(b), args[2], args[3], args[4]))
}

func callGetPrandomU32(m *Machine, _ Args) int64 {
	return int64(m.helpers.GetPrandomU32())
}

func callGetSmpProcessorID(m *Machine, _ Args) int64 {
	return int64(m.helpers.GetSmpProcessorID())
}

// print_str(buf *, len)
func callPrintStr(m *Machine, args Args) int64 {
	b, ok := m.frame.Bytes(args[0], args[1])
	if !ok {
		return efault
	}
	return int64(m.helpers.PrintStr(b))
}

func callGetCurrentPidTgid(m *Machine, _ Args) int64 {
	return int64(m.helpers.GetCurrentPidTgid())
}

// bpf_get_current_comm(buf *, size)
func callGetCurrentComm(m *Machine, args Args) int64 {
	buf, ok := m.frame.Bytes(args[0], args[1])
	if !ok {
		return efault
	}
	n, truncated := m.helpers.GetCurrentComm(buf)
	if truncated {
		return -int64(unix.ENOSPC)
	}
	return int64(n)
}
