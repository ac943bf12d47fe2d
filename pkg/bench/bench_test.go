// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cilium/ebpf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/countermap"
	"github.com/cilium/probehost/pkg/host"
	"github.com/cilium/probehost/pkg/probectx"
	"github.com/cilium/probehost/pkg/probes"
	"github.com/cilium/probehost/pkg/trace"
)

func TestRegisters(t *testing.T) {
	regs := Registers(2, 5, probectx.ReturnExit)
	assert.Equal(t, uint64(0), regs[probectx.RegZero])
	assert.Equal(t, uint64(5), regs.Ret())
	assert.Equal(t, uint64(6), regs.Arg(1))
	assert.Equal(t, uint64(stackTop-2*stackPerCPU), regs.SP())
	assert.Equal(t, uint64(2)<<32|31, regs[probectx.RegT6])
}

func TestRun(t *testing.T) {
	sink := trace.NewMemorySink()
	rt := host.New(host.Options{
		Sink:  sink,
		Tasks: host.StaticTasks{Default: host.Task{PID: 1, TGID: 1}},
	})
	defer rt.Close()

	h, err := rt.CreateStore(countermap.NewSpec("counters", ebpf.Hash, 4, 8, 2048))
	require.NoError(t, err)
	_, err = rt.Attach(host.Point{Type: host.Kprobe, Addr: 0x1000}, probes.MapIncrement(h))
	require.NoError(t, err)
	_, err = rt.Attach(host.Point{Type: host.Kretprobe, Addr: 0x2000}, host.ProgramFunc("fails",
		func(*probectx.Context, abi.Helpers) int64 { return -1 }))
	require.NoError(t, err)

	summary, err := Run(context.Background(), rt, &Arguments{CPUs: 4, Iterations: 25})
	require.NoError(t, err)

	// 100 kprobe hits plus 100 kretprobe pairs
	assert.Equal(t, int64(300), summary.Triggers)
	assert.Equal(t, int64(100), summary.Programs["map-inc"].Runs)
	assert.Equal(t, int64(0), summary.Programs["map-inc"].Failures)
	assert.Equal(t, int64(200), summary.Programs["fails"].Failures)
	assert.Len(t, sink.Records(), 100)

	summary.AddStores(rt.Stores())
	require.Len(t, summary.Stores, 1)
	assert.Equal(t, []countermap.Entry{{Key: 0, Value: 100}}, summary.Stores[0].Entries)
	assert.Equal(t, uint32(2048), summary.Stores[0].Capacity)

	var buf bytes.Buffer
	require.NoError(t, summary.Dump(&buf))
	var back map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, float64(300), back["Triggers"])

	buf.Reset()
	summary.PrettyPrint(&buf)
	assert.Contains(t, buf.String(), "map-inc")
	assert.Contains(t, buf.String(), "0: 100")
	assert.Contains(t, buf.String(), "Store counters (Hash, capacity 2K)")
}

func TestRunCountsNonzeroStatus(t *testing.T) {
	rt := host.New(host.Options{Tasks: host.StaticTasks{}})
	defer rt.Close()
	_, err := rt.Attach(host.Point{Type: host.Uprobe, Addr: 0x1000}, host.ProgramFunc("positive",
		func(*probectx.Context, abi.Helpers) int64 { return 1 }))
	require.NoError(t, err)

	summary, err := Run(context.Background(), rt, &Arguments{CPUs: 1, Iterations: 3})
	require.NoError(t, err)
	st := summary.Programs["positive"]
	require.NotNil(t, st)
	assert.Equal(t, int64(3), st.Runs)
	assert.Equal(t, int64(3), st.Failures)
	assert.Equal(t, int64(1), st.LastStatus)
}

func TestRunCancelled(t *testing.T) {
	rt := host.New(host.Options{Tasks: host.StaticTasks{}})
	defer rt.Close()
	_, err := rt.Attach(host.Point{Type: host.Kprobe, Addr: 0x1000}, probes.RegisterDump())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, rt, &Arguments{CPUs: 2, Iterations: 10})
	assert.ErrorIs(t, err, context.Canceled)
}
