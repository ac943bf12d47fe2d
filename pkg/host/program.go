// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package host

import (
	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/probectx"
)

// Program is a probe program. Run must return without blocking; the status
// is 0 to continue normally and anything else is recorded but otherwise
// ignored.
type Program interface {
	Name() string
	Run(ctx *probectx.Context, h abi.Helpers) int64
}

type funcProgram struct {
	name string
	fn   func(*probectx.Context, abi.Helpers) int64
}

func (p *funcProgram) Name() string { return p.name }

func (p *funcProgram) Run(ctx *probectx.Context, h abi.Helpers) int64 {
	return p.fn(ctx, h)
}

// ProgramFunc wraps fn as a Program.
func ProgramFunc(name string, fn func(*probectx.Context, abi.Helpers) int64) Program {
	return &funcProgram{name: name, fn: fn}
}

// RawFunc is a probe program written against the numeric interface. ctx is
// the frame address of the marshalled context.
type RawFunc func(m *abi.Machine, ctx uint64) int64

// rawProgram is run through an abi.Machine instead of the typed helpers.
type rawProgram struct {
	name string
	fn   RawFunc
}

// RawProgram wraps a numeric-style program. The host copies the context into
// the program frame and helpers are called by number.
func RawProgram(name string, fn RawFunc) Program {
	return &rawProgram{name: name, fn: fn}
}

func (p *rawProgram) Name() string { return p.name }

// Run copies ctx to the start of a fresh frame. Store widths come from h
// when it also implements abi.Layout, as an Invocation does.
func (p *rawProgram) Run(ctx *probectx.Context, h abi.Helpers) int64 {
	layout, _ := h.(abi.Layout)
	frame := abi.NewFrame(probectx.Size)
	addr, ok := frame.Alloc(probectx.Size)
	if !ok {
		return abi.ReturnCode(abi.ErrNotSupported)
	}
	buf, _ := frame.Bytes(addr, probectx.Size)
	if err := ctx.MarshalTo(buf); err != nil {
		return abi.ReturnCode(err)
	}
	return p.fn(abi.NewMachine(h, layout, frame, nil), addr)
}
