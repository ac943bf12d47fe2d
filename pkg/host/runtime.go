// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package host runs probe programs: it keeps the attachment table, builds a
// context for every trigger and hands each program its helpers.
package host

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cilium/probehost/pkg/abi"
	"github.com/cilium/probehost/pkg/countermap"
	"github.com/cilium/probehost/pkg/idtable"
	"github.com/cilium/probehost/pkg/lock"
	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/logger/logfields"
	"github.com/cilium/probehost/pkg/metrics/helpermetrics"
	"github.com/cilium/probehost/pkg/probectx"
	"github.com/cilium/probehost/pkg/trace"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

var (
	ErrInvalidPoint   = errors.New("invalid attachment point")
	ErrInvalidTrigger = errors.New("invalid trigger")
	ErrNoAttachment   = errors.New("no such attachment")
)

// PointType is the kind of attachment.
type PointType int

const (
	// Kprobe fires ENTRY triggers.
	Kprobe PointType = iota
	// Kretprobe fires the RETURN_ENTRY / RETURN_EXIT pair.
	Kretprobe
	// Uprobe fires USER_ENTRY triggers.
	Uprobe
)

func (t PointType) String() string {
	switch t {
	case Kprobe:
		return "kprobe"
	case Kretprobe:
		return "kretprobe"
	case Uprobe:
		return "uprobe"
	}
	return fmt.Sprintf("point(%d)", int(t))
}

// Point is an instrumented address.
type Point struct {
	Type PointType
	Addr uint64
}

func (p Point) String() string {
	return fmt.Sprintf("%s@%#x", p.Type, p.Addr)
}

func pointTypeOf(kind probectx.TriggerKind) (PointType, bool) {
	switch kind {
	case probectx.Entry:
		return Kprobe, true
	case probectx.ReturnEntry, probectx.ReturnExit:
		return Kretprobe, true
	case probectx.UserEntry:
		return Uprobe, true
	}
	return 0, false
}

// Trigger is one hit of an attachment point as reported by the attachment
// mechanism.
type Trigger struct {
	Kind probectx.TriggerKind
	Addr uint64
	CPU  uint32
	Regs probectx.Registers
	Priv probectx.PrivilegedState
}

// AttachmentID names an attachment for Detach.
type AttachmentID int

type attachment struct {
	id      AttachmentID
	point   Point
	program Program
}

// Result is the outcome of one program run.
type Result struct {
	Attachment AttachmentID
	Program    string
	Status     int64
}

// Options configures a Runtime. Zero fields get defaults: a fresh store
// registry, a memory sink, the calling OS thread as task and
// CLOCK_MONOTONIC.
type Options struct {
	Stores *countermap.Registry
	Sink   trace.Sink
	Tasks  TaskSource
	Clock  Clock
	// Debug logs every invocation at info level.
	Debug bool
}

// Runtime dispatches triggers to attached programs. Fire may be called
// concurrently, one goroutine per CPU.
type Runtime struct {
	stores *countermap.Registry
	sink   trace.Sink
	tasks  TaskSource
	clock  Clock
	debug  *logger.DebugLogger
	seq    atomic.Uint64

	mu          lock.RWMutex
	attachments *idtable.Table[*attachment]
	points      map[Point][]*attachment
}

func New(opts Options) *Runtime {
	rt := &Runtime{
		stores:      opts.Stores,
		sink:        opts.Sink,
		tasks:       opts.Tasks,
		clock:       opts.Clock,
		attachments: idtable.New[*attachment](),
		points:      make(map[Point][]*attachment),
	}
	if rt.stores == nil {
		rt.stores = countermap.NewRegistry()
	}
	if rt.sink == nil {
		rt.sink = trace.NewMemorySink()
	}
	if rt.tasks == nil {
		rt.tasks = NewOSTasks("/proc")
	}
	if rt.clock == nil {
		rt.clock = MonotonicClock{}
	}
	rt.debug = logger.NewDebugLogger(
		logger.GetLogger().WithField(logfields.LogSubsys, "host"), opts.Debug)
	return rt
}

// Stores returns the store registry programs resolve handles against.
func (rt *Runtime) Stores() *countermap.Registry {
	return rt.stores
}

// Sink returns where records go.
func (rt *Runtime) Sink() trace.Sink {
	return rt.sink
}

// Attach adds prog to point. Programs on the same point run in attach
// order.
func (rt *Runtime) Attach(point Point, prog Program) (AttachmentID, error) {
	if point.Type < Kprobe || point.Type > Uprobe {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPoint, point)
	}
	if prog == nil {
		return 0, fmt.Errorf("%w: nil program", ErrInvalidPoint)
	}

	rt.mu.Lock()
	a := &attachment{point: point, program: prog}
	a.id = AttachmentID(rt.attachments.AddEntry(a).ID)
	rt.points[point] = append(rt.points[point], a)
	rt.mu.Unlock()

	logger.GetLogger().WithFields(logrus.Fields{
		logfields.Program: prog.Name(),
		logfields.Point:   point.String(),
		"attachment":      a.id,
	}).Info("Probe attached")
	return a.id, nil
}

// Detach removes an attachment. Invocations already running finish.
func (rt *Runtime) Detach(id AttachmentID) error {
	rt.mu.Lock()
	a, err := rt.attachments.RemoveEntry(idtable.EntryID{ID: int(id)})
	if err != nil {
		rt.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoAttachment, id)
	}
	list := rt.points[a.point]
	kept := make([]*attachment, 0, len(list))
	for _, other := range list {
		if other != a {
			kept = append(kept, other)
		}
	}
	if len(kept) == 0 {
		delete(rt.points, a.point)
	} else {
		rt.points[a.point] = kept
	}
	rt.mu.Unlock()

	logger.GetLogger().WithFields(logrus.Fields{
		logfields.Program: a.program.Name(),
		logfields.Point:   a.point.String(),
		"attachment":      id,
	}).Info("Probe detached")
	return nil
}

// Points lists the points that currently have programs attached, ordered
// by address.
func (rt *Runtime) Points() []Point {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	pts := make([]Point, 0, len(rt.points))
	for p := range rt.points {
		pts = append(pts, p)
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Addr != pts[j].Addr {
			return pts[i].Addr < pts[j].Addr
		}
		return pts[i].Type < pts[j].Type
	})
	return pts
}

func (rt *Runtime) programsFor(p Point) []*attachment {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	// the slice is replaced, never modified in place, on Detach
	return rt.points[p]
}

// Fire runs every program attached where trig happened, synchronously and
// in attach order. Each program gets its own context and helpers.
func (rt *Runtime) Fire(trig Trigger) ([]Result, error) {
	pt, ok := pointTypeOf(trig.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: kind %s", ErrInvalidTrigger, trig.Kind)
	}
	attached := rt.programsFor(Point{Type: pt, Addr: trig.Addr})
	if len(attached) == 0 {
		return nil, nil
	}

	task := rt.tasks.Current(trig.CPU)
	results := make([]Result, 0, len(attached))
	for _, a := range attached {
		status := rt.invoke(a, &trig, task)
		results = append(results, Result{
			Attachment: a.id,
			Program:    a.program.Name(),
			Status:     status,
		})
	}
	return results, nil
}

func (rt *Runtime) invoke(a *attachment, trig *Trigger, task Task) (status int64) {
	ctx := probectx.New(trig.Kind, trig.Addr, &trig.Regs, trig.Priv)
	inv := newInvocation(rt.stores, rt.clock, trig.CPU, task)
	name := a.program.Name()

	helpermetrics.ProgramRunInc(name, trig.Kind.String())
	defer func() {
		if r := recover(); r != nil {
			inv.log().WithField(logfields.Program, name).
				WithField("panic", r).
				Error("Probe program faulted")
			status = -int64(unix.EFAULT)
		}
		rt.finish(inv, a, trig, status)
	}()
	return a.program.Run(ctx, inv)
}

func (rt *Runtime) finish(inv *Invocation, a *attachment, trig *Trigger, status int64) {
	name := a.program.Name()
	rec := inv.finish(trace.Record{
		Program: name,
		Kind:    trig.Kind,
		Addr:    trig.Addr,
		CPU:     trig.CPU,
		Seq:     rt.seq.Inc(),
	})

	if status != 0 {
		helpermetrics.ProgramFailureInc(name)
		rt.debug.Debugf("Probe %s returned %d at %s", name, status, a.point)
	}
	if rec == nil {
		return
	}
	rt.debug.Debugf("Probe %s emitted %d bytes on cpu %d", name, len(rec.Payload), trig.CPU)
	if err := rt.sink.Write(rec); err != nil {
		inv.log().WithError(err).WithField(logfields.Program, name).Warn("Failed to write trace record")
	}
}

// Close detaches every program and closes the sink.
func (rt *Runtime) Close() error {
	rt.mu.RLock()
	var ids []AttachmentID
	rt.attachments.ForEach(func(id idtable.EntryID, _ *attachment) {
		ids = append(ids, AttachmentID(id.ID))
	})
	rt.mu.RUnlock()

	var err error
	for _, id := range ids {
		err = multierr.Append(err, rt.Detach(id))
	}
	return multierr.Append(err, rt.sink.Close())
}

// CreateStore is a convenience around Stores().Create.
func (rt *Runtime) CreateStore(spec *countermap.Spec) (abi.Handle, error) {
	return rt.stores.Create(spec)
}
