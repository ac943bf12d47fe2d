// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package logfields

const (
	// LogSubsys is the field denoting the subsystem when logging
	LogSubsys = "subsys"

	// Error is the Go error
	Error = "error"

	Program = "program"
	Point   = "point"
	Kind    = "kind"
	Store   = "store"
	CPU     = "cpu"
)
