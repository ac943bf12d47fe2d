// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package probes holds the probe programs shipped with the host.
package probes

import (
	"fmt"
	"sort"

	"github.com/cilium/ebpf"
	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/countermap"
	"github.com/cilium/probehost/pkg/host"
)

// Definition describes a bundled program.
type Definition struct {
	Name        string
	Description string
	Point       host.PointType
	// Store derives the spec of the program's counter store from the
	// configured default, or is nil when the program uses no store.
	Store func(base countermap.Spec) *countermap.Spec
	// Build returns the program bound to its store handle (0 if none).
	Build func(h abi.Handle) host.Program
}

func sameStore(base countermap.Spec) *countermap.Spec {
	return base.Copy()
}

var definitions = map[string]Definition{
	"context": {
		Name:        "context",
		Description: "prints trigger kind, address, cpu, pid and all registers",
		Point:       host.Kprobe,
		Build:       func(abi.Handle) host.Program { return ContextDump() },
	},
	"regs": {
		Name:        "regs",
		Description: "emits an R record with the 32 registers",
		Point:       host.Kprobe,
		Build:       func(abi.Handle) host.Program { return RegisterDump() },
	},
	"user-regs": {
		Name:        "user-regs",
		Description: "emits an M record with time, cpu, address, pid and registers",
		Point:       host.Uprobe,
		Build:       func(abi.Handle) host.Program { return UserRegisterDump() },
	},
	"map-inc": {
		Name:        "map-inc",
		Description: "increments key 0 of its store and prints old and new value",
		Point:       host.Kprobe,
		Store:       sameStore,
		Build:       MapIncrement,
	},
	"map-inc-raw": {
		Name:        "map-inc-raw",
		Description: "map-inc written against the numeric helper interface",
		Point:       host.Kprobe,
		Store:       sameStore,
		Build:       RawMapIncrement,
	},
	"cpu-time": {
		Name:        "cpu-time",
		Description: "stores the last trigger time of every cpu",
		Point:       host.Kprobe,
		Store: func(base countermap.Spec) *countermap.Spec {
			s := base.Copy()
			s.ValueSize = 8
			return s
		},
		Build: CPUTime,
	},
	"latency": {
		Name:        "latency",
		Description: "measures call latency between return entry and return exit",
		Point:       host.Kretprobe,
		Store: func(base countermap.Spec) *countermap.Spec {
			s := base.Copy()
			// keyed by pid_tgid; an array cannot hold those
			if s.Type == ebpf.Array {
				s.Type = ebpf.Hash
			}
			s.KeySize, s.ValueSize = 8, 8
			return s
		},
		Build: Latency,
	},
}

// Lookup returns the definition called name.
func Lookup(name string) (Definition, error) {
	d, ok := definitions[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown probe %q, known probes: %v", name, Names())
	}
	return d, nil
}

// Names lists the bundled programs.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for n := range definitions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
