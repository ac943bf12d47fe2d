// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package probes

import (
	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/host"
	"github.com/cilium/probehost/pkg/probectx"
)

// ContextDump prints a human readable description of the context.
func ContextDump() host.Program {
	return host.ProgramFunc("context", func(ctx *probectx.Context, h abi.Helpers) int64 {
		h.TracePrintk("bpf prog triggered!\n", 0, 0, 0)
		h.TracePrintk(ctx.Kind.String(), 0, 0, 0)
		h.TracePrintk("\taddr = {}\n", ctx.Addr, 0, 0)
		h.TracePrintk("vcpu id: {}\n", uint64(h.GetSmpProcessorID()), 0, 0)
		pid := h.GetCurrentPidTgid() & abi.PidMask
		h.TracePrintk("pid: {}\n", pid, 0, 0)

		h.TracePrintk("print registers\n", 0, 0, 0)
		for i := 0; i < probectx.NumRegisters; i++ {
			h.TracePrintk("r{}", uint64(i), 0, 0)
			if i < 10 {
				h.TracePrintk(" ", 0, 0, 0)
			}
			h.TracePrintk(" = {}\n", ctx.Regs[i], 0, 0)
		}
		return 0
	})
}

// RegisterDump emits "R" followed by the registers in frame order, each
// terminated by a comma.
func RegisterDump() host.Program {
	return host.ProgramFunc("regs", func(ctx *probectx.Context, h abi.Helpers) int64 {
		h.PrintStr([]byte("R"))
		for i := 0; i < probectx.NumRegisters; i++ {
			h.TracePrintk("{},", ctx.Regs[i], 0, 0)
		}
		return 0
	})
}

// UserRegisterDump emits an "M" message record for user-space triggers.
func UserRegisterDump() host.Program {
	return host.ProgramFunc("user-regs", func(ctx *probectx.Context, h abi.Helpers) int64 {
		h.PrintStr([]byte("M"))
		h.TracePrintk(" Time: {}", h.KtimeGetNs(), 0, 0)
		h.TracePrintk(" vCPU: {}", uint64(h.GetSmpProcessorID()), 0, 0)
		h.TracePrintk(" User Addr = {}", ctx.Addr, 0, 0)
		h.TracePrintk(" PID: {}", h.GetCurrentPidTgid()&abi.PidMask, 0, 0)

		h.TracePrintk(" Registers:", 0, 0, 0)
		for i := 0; i < probectx.NumRegisters; i++ {
			h.TracePrintk(" x{}:{},", uint64(i), ctx.Regs[i], 0)
		}
		return 0
	})
}
