// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package logger holds the process-wide logrus logger. Trace records own
// stdout, so log lines always go to stderr unless redirected.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogFormat string

const (
	levelOpt  = "level"
	formatOpt = "format"

	logFormatText LogFormat = "text"
	logFormatJSON LogFormat = "json"

	defaultLogFormat LogFormat    = logFormatText
	defaultLogLevel  logrus.Level = logrus.InfoLevel
)

// DefaultLogger is separate from the logrus standard logger, which
// SetupLogging silences so that libraries stay quiet.
var DefaultLogger = InitializeDefaultLogger()

// LogOptions holds the "level" and "format" settings. PopulateLogOpts only
// stores values that parse.
type LogOptions map[string]string

func InitializeDefaultLogger() *logrus.Logger {
	l := logrus.New()
	f, _ := getFormatter(defaultLogFormat)
	l.SetFormatter(f)
	l.SetLevel(defaultLogLevel)
	l.SetOutput(os.Stderr)
	return l
}

func getFormatter(format LogFormat) (logrus.Formatter, error) {
	switch format {
	case logFormatText:
		return &logrus.TextFormatter{DisableColors: true}, nil
	case logFormatJSON:
		return &logrus.JSONFormatter{}, nil
	}
	return &logrus.TextFormatter{DisableColors: true}, fmt.Errorf("invalid log format %q", format)
}

func (o LogOptions) getLogLevel() logrus.Level {
	l, ok := o[levelOpt]
	if !ok {
		return defaultLogLevel
	}
	level, err := logrus.ParseLevel(l)
	if err != nil {
		DefaultLogger.WithError(err).Warn("Ignoring log level")
		return defaultLogLevel
	}
	return level
}

func (o LogOptions) getLogFormat() LogFormat {
	if f, ok := o[formatOpt]; ok {
		return LogFormat(f)
	}
	return defaultLogFormat
}

// SetOutput redirects the default logger, mostly for tests.
func SetOutput(w io.Writer) {
	DefaultLogger.SetOutput(w)
}

func ResetLogOutput() {
	DefaultLogger.SetOutput(os.Stderr)
}

func GetLogLevel() logrus.Level {
	return DefaultLogger.GetLevel()
}

func setLogLevel(level logrus.Level) {
	DefaultLogger.SetLevel(level)
}

func setLogFormat(format LogFormat) {
	f, err := getFormatter(format)
	if err != nil {
		DefaultLogger.WithError(err).Warn("Ignoring log format")
	}
	DefaultLogger.SetFormatter(f)
}

// PopulateLogOpts validates level and format and records the valid ones in
// o. Empty values leave the defaults in place.
func PopulateLogOpts(o LogOptions, level, format string) {
	if level != "" {
		if _, err := logrus.ParseLevel(level); err != nil {
			DefaultLogger.WithError(err).Warn("Ignoring --log-level")
		} else {
			o[levelOpt] = level
		}
	}
	if format == "" {
		return
	}
	format = strings.ToLower(format)
	if _, err := getFormatter(LogFormat(format)); err != nil {
		DefaultLogger.WithError(err).Warn("Ignoring --log-format, expected text or json")
		return
	}
	o[formatOpt] = format
}

// SetupLogging applies o to the default logger; debug forces DebugLevel.
func SetupLogging(o LogOptions, debug bool) error {
	setLogFormat(o.getLogFormat())
	if debug {
		setLogLevel(logrus.DebugLevel)
	} else {
		setLogLevel(o.getLogLevel())
	}
	logrus.SetLevel(logrus.PanicLevel)
	return nil
}

func GetLogger() logrus.FieldLogger {
	return DefaultLogger
}
