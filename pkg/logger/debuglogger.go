// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package logger

import (
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
)

// logrus has no per-subsystem levels, so subsystems that want chatty output
// on demand (a single probe program, say) wrap their logger in this.

func initEmptyLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

var (
	emptyLogger = initEmptyLogger()
)

type DebugLogger struct {
	logger       logrus.FieldLogger
	debugEnabled bool
}

func NewDebugLogger(logger logrus.FieldLogger, debugEnabled bool) *DebugLogger {
	return &DebugLogger{
		logger:       logger,
		debugEnabled: debugEnabled,
	}
}

// Enabled reports whether debug output is forced on.
func (d *DebugLogger) Enabled() bool {
	return d.debugEnabled
}

func (d *DebugLogger) DebugLogWithCallers(nCallers int) logrus.FieldLogger {
	if !d.debugEnabled {
		return emptyLogger
	}

	log := d.logger
	for i := 1; i <= nCallers; i++ {
		pc, _, _, ok := runtime.Caller(i)
		if !ok {
			return log
		}
		fn := runtime.FuncForPC(pc)
		key := fmt.Sprintf("caller-%d", i)
		log = log.WithField(key, fn.Name())
	}

	return log
}

// Debugf logs at info level when enabled so that the message shows up
// without turning on debug for the whole process.
func (d *DebugLogger) Debugf(format string, args ...any) {
	if d.debugEnabled {
		d.logger.Infof(format, args...)
	} else {
		d.logger.Debugf(format, args...)
	}
}
