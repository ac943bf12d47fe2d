// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package proc

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const zshStat = "206305 (zsh( )foo) S 206303 206305 206305 34821 206368 4194304 9687 4455 0 0 56 17 2 0 20 0 1 0 19321046 17514496 1866 18446744073709551615 94273300672512 94273301280581 140729040978832 0 0 0 2 3686400 134295555 1 0 0 17 3 0 0 0 0 0 94273301428976 94273301458280 94273325256704 140729040984354 140729040984358 140729040984358 140729040986095 0\n"

func taskDir(root string, pid, tid int) string {
	return filepath.Join(root, strconv.Itoa(pid), "task", strconv.Itoa(tid))
}

func TestTaskCommFallback(t *testing.T) {
	root := t.TempDir()
	dir := taskDir(root, 206303, 206305)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(zshStat), 0o644))

	fs, err := NewFS(root)
	require.NoError(t, err)
	assert.Equal(t, root, fs.Mount())

	comm, err := fs.TaskComm(206303, 206305)
	require.NoError(t, err)
	assert.Equal(t, "zsh( )foo", comm)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte("worker\n"), 0o644))
	comm, err = fs.TaskComm(206303, 206305)
	require.NoError(t, err)
	assert.Equal(t, "worker", comm)

	_, err = fs.TaskComm(206303, 12)
	assert.Error(t, err)
	_, err = fs.TaskComm(1, 1)
	assert.Error(t, err)
}

func TestSelfPid(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "77"), 0o755))
	require.NoError(t, os.Symlink("77", filepath.Join(root, "self")))

	fs, err := NewFS(root)
	require.NoError(t, err)
	pid, err := fs.SelfPid()
	require.NoError(t, err)
	assert.Equal(t, 77, pid)
}

func TestNewFSMissing(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestHostProcfs(t *testing.T) {
	if _, err := os.Stat("/proc/self"); err != nil {
		t.Skipf("no procfs: %v", err)
	}
	fs, err := NewFS("/proc")
	require.NoError(t, err)
	pid, err := fs.SelfPid()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	comm, err := fs.TaskComm(os.Getpid(), unix.Gettid())
	require.NoError(t, err)
	assert.NotEmpty(t, comm)
}
