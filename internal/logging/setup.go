// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options control the logger. The zero value logs info and above as text to
// stderr on the standard logrus logger.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Empty means info.
	Level string
	// JSON selects the JSON formatter, used by long-running servers.
	JSON bool
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// Logger defaults to logrus.StandardLogger(). Used by tests.
	Logger *logrus.Logger
}

// Configure sets up the logger and returns it. It is safe to call more than
// once but not concurrently.
func Configure(opts Options) *logrus.Logger {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
	logger.SetLevel(ParseLevel(opts.Level))
	logger.ReplaceHooks(make(logrus.LevelHooks))
	logger.AddHook(utcHook{})
	logger.AddHook(maskHook{})
	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000000Z07:00"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:             true,
			TimestampFormat:           "2006-01-02 15:04:05.000000 MST",
			EnvironmentOverrideColors: true,
		})
	}
	return logger
}

// ParseLevel maps a config level name to a logrus level, defaulting to info.
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// utcHook converts entry timestamps to UTC.
type utcHook struct{}

func (utcHook) Levels() []logrus.Level { return logrus.AllLevels }

func (utcHook) Fire(entry *logrus.Entry) error {
	entry.Time = entry.Time.UTC()
	return nil
}

// maskHook scrubs secrets from the message, string fields and error fields.
type maskHook struct{}

func (maskHook) Levels() []logrus.Level { return logrus.AllLevels }

func (maskHook) Fire(entry *logrus.Entry) error {
	entry.Message = Mask(entry.Message)
	for k, v := range entry.Data {
		switch val := v.(type) {
		case string:
			entry.Data[k] = Mask(val)
		case error:
			entry.Data[k] = Mask(val.Error())
		}
	}
	return nil
}
