// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package probectx holds the execution snapshot handed to a probe program.
package probectx

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TriggerKind tells which lifecycle phase of an attachment fired.
type TriggerKind uint64

// The values are stored in word 0 of the context layout and must not change.
const (
	Entry TriggerKind = iota
	ReturnEntry
	ReturnExit
	UserEntry

	numTriggerKinds
)

var triggerKindNames = [numTriggerKinds]string{
	Entry:       "kprobe",
	ReturnEntry: "kretprobe@entry",
	ReturnExit:  "kretprobe@exit",
	UserEntry:   "uprobe",
}

func (k TriggerKind) String() string {
	if k < numTriggerKinds {
		return triggerKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", uint64(k))
}

// Valid reports whether k is a known trigger kind.
func (k TriggerKind) Valid() bool {
	return k < numTriggerKinds
}

// Kernel reports whether the trigger comes from a kernel-side attachment.
func (k TriggerKind) Kernel() bool {
	return k == Entry || k == ReturnEntry || k == ReturnExit
}

// ParseTriggerKind accepts the names printed by String.
func ParseTriggerKind(s string) (TriggerKind, error) {
	for i, name := range triggerKindNames {
		if name == s {
			return TriggerKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown trigger kind %q", s)
}

// PrivilegedState is the supervisor status / exception pc pair. It is only
// populated for kernel-side triggers.
type PrivilegedState struct {
	Status uint64
	EPC    uint64
}

// Context is the read-only snapshot of one probe invocation. The host builds
// it right before running the program and drops it afterwards.
type Context struct {
	Kind TriggerKind
	Addr uint64
	Regs Registers
	Priv PrivilegedState
}

// New builds a context. User-space triggers never carry privileged state,
// whatever the caller passed in.
func New(kind TriggerKind, addr uint64, regs *Registers, priv PrivilegedState) *Context {
	ctx := &Context{
		Kind: kind,
		Addr: addr,
	}
	if regs != nil {
		ctx.Regs = *regs
	}
	if kind.Kernel() {
		ctx.Priv = priv
	}
	return ctx
}

// Binary layout, in 8-byte little-endian words:
//
//	0      kind
//	1      trigger address
//	2..33  registers x0..x31
//	34     status
//	35     exception pc
const (
	wordSize = 8

	OffsetKind   = 0
	OffsetAddr   = OffsetKind + wordSize
	OffsetRegs   = OffsetAddr + wordSize
	OffsetStatus = OffsetRegs + NumRegisters*wordSize
	OffsetEPC    = OffsetStatus + wordSize

	// Size is the size of a marshalled context.
	Size = OffsetEPC + wordSize
)

var ErrShortBuffer = errors.New("buffer too small for probe context")

// RegOffset returns the byte offset of register i in the binary layout.
func RegOffset(i int) int {
	return OffsetRegs + i*wordSize
}

// MarshalTo writes the binary layout into b, which must hold Size bytes.
func (c *Context) MarshalTo(b []byte) error {
	if len(b) < Size {
		return ErrShortBuffer
	}
	le := binary.LittleEndian
	le.PutUint64(b[OffsetKind:], uint64(c.Kind))
	le.PutUint64(b[OffsetAddr:], c.Addr)
	for i := 0; i < NumRegisters; i++ {
		le.PutUint64(b[RegOffset(i):], c.Regs[i])
	}
	le.PutUint64(b[OffsetStatus:], c.Priv.Status)
	le.PutUint64(b[OffsetEPC:], c.Priv.EPC)
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Context) MarshalBinary() ([]byte, error) {
	b := make([]byte, Size)
	return b, c.MarshalTo(b)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Context) UnmarshalBinary(b []byte) error {
	if len(b) < Size {
		return ErrShortBuffer
	}
	le := binary.LittleEndian
	c.Kind = TriggerKind(le.Uint64(b[OffsetKind:]))
	c.Addr = le.Uint64(b[OffsetAddr:])
	for i := 0; i < NumRegisters; i++ {
		c.Regs[i] = le.Uint64(b[RegOffset(i):])
	}
	c.Priv.Status = le.Uint64(b[OffsetStatus:])
	c.Priv.EPC = le.Uint64(b[OffsetEPC:])
	return nil
}
