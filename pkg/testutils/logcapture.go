// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package testutils

import (
	"strings"
	"testing"

	"github.com/cilium/probehost/pkg/logger"
)

type LogCapturer struct {
	TB testing.TB
}

func (tl LogCapturer) Write(p []byte) (n int, err error) {
	// Since we are calling T.Log() here, we want to avoid appending multiple "\n", so
	// trim whatever was added by the inner logger.
	tl.TB.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// CaptureLog redirects the default logger to testing.Log until the test
// ends. Nothing may log from a goroutine that outlives the test.
func CaptureLog(tb testing.TB) {
	logger.SetOutput(LogCapturer{TB: tb})
	tb.Cleanup(logger.ResetLogOutput)
}
