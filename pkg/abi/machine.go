// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package abi

// Layout reports the key and value widths of a store so that numeric calls
// know how many bytes to read from the frame.
type Layout interface {
	StoreLayout(h Handle) (keySize, valueSize int, err error)
}

// Machine is what a numeric-style probe program sees: its frame and a way to
// call helpers by number.
type Machine struct {
	helpers Helpers
	layout  Layout
	frame   *Frame
	table   *Table
}

type noLayout struct{}

func (noLayout) StoreLayout(Handle) (int, int, error) {
	return 0, 0, ErrInvalidHandle
}

// NewMachine binds a frame to a helper implementation. A nil table selects
// DefaultTable; a nil layout makes every store handle invalid.
func NewMachine(h Helpers, layout Layout, frame *Frame, table *Table) *Machine {
	if table == nil {
		table = DefaultTable()
	}
	if layout == nil {
		layout = noLayout{}
	}
	return &Machine{
		helpers: h,
		layout:  layout,
		frame:   frame,
		table:   table,
	}
}

// Frame returns the machine memory.
func (m *Machine) Frame() *Frame {
	return m.frame
}

// Call invokes helper id with up to five argument registers.
func (m *Machine) Call(id HelperID, regs ...uint64) int64 {
	var args Args
	copy(args[:], regs)
	return m.table.Call(m, id, args)
}

// Printk is a convenience around TracePrintk for numeric-style programs: it
// places tmpl in the frame and passes its size, NUL included. The template
// space is given back once the call returns.
func (m *Machine) Printk(tmpl string, p1, p2, p3 uint64) int64 {
	mark := m.frame.top
	defer func() { m.frame.top = mark }()
	addr, size, ok := m.frame.CString(tmpl)
	if !ok {
		return efault
	}
	return m.Call(TracePrintk, addr, size, p1, p2, p3)
}
