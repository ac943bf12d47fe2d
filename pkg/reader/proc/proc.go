// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package proc reads task identities out of a procfs mount.
package proc

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// FS is a procfs mount. The mount point is configurable so that a host
// procfs bind-mounted into a container can be used.
type FS struct {
	mount string
	fs    procfs.FS
}

func NewFS(mount string) (*FS, error) {
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, fmt.Errorf("procfs %s: %w", mount, err)
	}
	return &FS{mount: mount, fs: fs}, nil
}

// Mount returns the mount point the FS was opened on.
func (f *FS) Mount() string {
	return f.mount
}

// SelfPid returns the pid of the current process as seen by this procfs.
func (f *FS) SelfPid() (int, error) {
	p, err := f.fs.Self()
	if err != nil {
		return 0, err
	}
	return p.PID, nil
}

// TaskComm returns the short name of thread tid in process pid. The comm
// file is tried first; stat is the fallback for kernels that hide it.
func (f *FS) TaskComm(pid, tid int) (string, error) {
	t, err := f.fs.Thread(pid, tid)
	if err != nil {
		return "", err
	}
	if comm, err := t.Comm(); err == nil {
		return comm, nil
	}
	st, err := t.Stat()
	if err != nil {
		return "", fmt.Errorf("task %d/%d: %w", pid, tid, err)
	}
	return st.Comm, nil
}
