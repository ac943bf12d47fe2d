// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package host

import (
	"os"

	"github.com/cilium/probehost/pkg/logger"
	"github.com/cilium/probehost/pkg/reader/proc"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Task is the identity of the task a trigger interrupted.
type Task struct {
	// PID is the kernel task id (a thread id in user space terms).
	PID uint32
	// TGID is the thread group id (the process id in user space terms).
	TGID uint32
	Comm string
}

// PidTgid packs the task identity the way GetCurrentPidTgid returns it.
func (t Task) PidTgid() uint64 {
	return uint64(t.TGID)<<32 | uint64(t.PID)
}

// TaskSource tells which task is running on a CPU.
type TaskSource interface {
	Current(cpu uint32) Task
}

// StaticTasks serves a fixed task per CPU, falling back to Default.
type StaticTasks struct {
	Default Task
	PerCPU  map[uint32]Task
}

func (s StaticTasks) Current(cpu uint32) Task {
	if t, ok := s.PerCPU[cpu]; ok {
		return t
	}
	return s.Default
}

// OSTasks reports the calling OS thread. Comm is read from procfs and left
// empty when procfs is not available.
type OSTasks struct {
	fs   *proc.FS
	tgid uint32
}

// NewOSTasks opens procfs at mount. The process id is taken from procfs so
// that comm lookups address the same pid namespace.
func NewOSTasks(mount string) *OSTasks {
	s := &OSTasks{tgid: uint32(os.Getpid())}
	fs, err := proc.NewFS(mount)
	if err != nil {
		logger.GetLogger().WithError(err).Warn("procfs unavailable, task names will be empty")
		return s
	}
	s.fs = fs
	if pid, err := fs.SelfPid(); err == nil {
		s.tgid = uint32(pid)
	}
	return s
}

func (s *OSTasks) Current(uint32) Task {
	t := Task{
		PID:  uint32(unix.Gettid()),
		TGID: s.tgid,
	}
	if s.fs == nil {
		return t
	}
	comm, err := s.fs.TaskComm(int(t.TGID), int(t.PID))
	if err != nil {
		logger.GetLogger().WithError(err).WithFields(logrus.Fields{
			"pid":  t.PID,
			"tgid": t.TGID,
		}).Debug("Failed to read task comm")
	}
	t.Comm = comm
	return t
}
