// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package abi

import (
	"errors"

	"golang.org/x/sys/unix"
)

var (
	ErrKeyNotExist   = errors.New("key does not exist")
	ErrKeyExist      = errors.New("key already exists")
	ErrStoreFull     = errors.New("store is full")
	ErrKeyOutOfRange = errors.New("key out of range")
	ErrInvalidFlags  = errors.New("invalid update flags")
	ErrInvalidHandle = errors.New("invalid store handle")
	ErrNotSupported  = errors.New("operation not supported by store")
)

var errnos = []struct {
	err   error
	errno unix.Errno
}{
	{ErrKeyNotExist, unix.ENOENT},
	{ErrKeyExist, unix.EEXIST},
	{ErrStoreFull, unix.E2BIG},
	{ErrKeyOutOfRange, unix.E2BIG},
	{ErrInvalidFlags, unix.EINVAL},
	{ErrInvalidHandle, unix.EBADF},
	{ErrNotSupported, unix.EOPNOTSUPP},
}

// Errno maps a helper error to the errno a numeric caller sees. Errors that
// are not helper sentinels map to EINVAL.
func Errno(err error) unix.Errno {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	for _, e := range errnos {
		if errors.Is(err, e.err) {
			return e.errno
		}
	}
	return unix.EINVAL
}

// ReturnCode converts err to a helper return value: 0 on success, a negative
// errno otherwise.
func ReturnCode(err error) int64 {
	if err == nil {
		return 0
	}
	return -int64(Errno(err))
}
