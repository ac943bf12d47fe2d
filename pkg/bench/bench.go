// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package bench drives a runtime with synthetic triggers, standing in for
// the breakpoint mechanism that fires attachment points on real hardware.
package bench

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cilium/probehost/pkg/host"
	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/logger/logfields"
	"github.com/cilium/probehost/pkg/probectx"
)

type Arguments struct {
	CPUs       int
	Iterations int
}

func (args *Arguments) String() string {
	return fmt.Sprintf("CPUs=%d, Iterations=%d", args.CPUs, args.Iterations)
}

// Status and exception pc reported for kernel-side triggers.
const (
	syntheticStatus = 0x8000000200006122
	stackTop        = 0x80300000
	stackPerCPU     = 0x4000
)

// Registers builds the synthetic frame for one trigger. x0 is always 0 and
// a0 carries the return value on RETURN_EXIT.
func Registers(cpu uint32, iter int, kind probectx.TriggerKind) probectx.Registers {
	var regs probectx.Registers
	for i := 1; i < probectx.NumRegisters; i++ {
		regs[i] = uint64(cpu)<<32 | uint64(i)
	}
	regs[probectx.RegSP] = stackTop - uint64(cpu)*stackPerCPU
	for i := 0; i < probectx.NumArgRegisters; i++ {
		regs[probectx.RegA0+i] = uint64(iter + i)
	}
	if kind == probectx.ReturnExit {
		regs[probectx.RegA0] = uint64(iter)
	}
	return regs
}

func triggerKinds(t host.PointType) []probectx.TriggerKind {
	switch t {
	case host.Kretprobe:
		return []probectx.TriggerKind{probectx.ReturnEntry, probectx.ReturnExit}
	case host.Uprobe:
		return []probectx.TriggerKind{probectx.UserEntry}
	}
	return []probectx.TriggerKind{probectx.Entry}
}

// Run fires every attached point args.Iterations times from each of
// args.CPUs goroutines. Triggers of one CPU are sequential.
func Run(ctx context.Context, rt *host.Runtime, args *Arguments) (*Summary, error) {
	summary := newSummary(args)
	points := rt.Points()
	log := logger.GetLogger().WithField(logfields.LogSubsys, "bench")
	log.WithFields(logrus.Fields{
		"points": len(points),
		"args":   args.String(),
	}).Info("Starting trigger run")

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for cpu := 0; cpu < args.CPUs; cpu++ {
		cpu := uint32(cpu)
		g.Go(func() error {
			for iter := 0; iter < args.Iterations; iter++ {
				for _, p := range points {
					for _, kind := range triggerKinds(p.Type) {
						if err := ctx.Err(); err != nil {
							return err
						}
						res, err := rt.Fire(host.Trigger{
							Kind: kind,
							Addr: p.Addr,
							CPU:  cpu,
							Regs: Registers(cpu, iter, kind),
							Priv: probectx.PrivilegedState{Status: syntheticStatus, EPC: p.Addr},
						})
						if err != nil {
							return fmt.Errorf("cpu %d: firing %s: %w", cpu, p, err)
						}
						mu.Lock()
						summary.add(res)
						mu.Unlock()
					}
				}
			}
			return nil
		})
	}
	err := g.Wait()
	summary.EndTime = time.Now()

	log.WithFields(logrus.Fields{
		"triggers": summary.Triggers,
		"runs":     summary.Runs,
		"duration": summary.EndTime.Sub(summary.StartTime),
	}).Info("Trigger run finished")
	return summary, err
}
