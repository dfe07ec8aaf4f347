// Package log provides the process-wide structured logger, backed by logrus.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"firestige.xyz/vbridge/internal/config"
)

type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger = mustNew(defaultConfig(), os.Stdout)
)

// GetLogger returns the process logger. Before Init it logs at info level to stdout.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process logger according to cfg. Stdout is always an
// output; file output is added when enabled.
func Init(cfg config.LogConfig) error {
	out := NewMultiWriter().Add(os.Stdout)
	if cfg.Outputs.File.Enabled {
		w, err := createFileWriter(cfg.Outputs.File)
		if err != nil {
			return fmt.Errorf("failed to create file output: %w", err)
		}
		out.Add(w)
	}

	l, err := New(cfg, out)
	if err != nil {
		return err
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func defaultConfig() config.LogConfig {
	return config.LogConfig{
		Level:      "info",
		Format:     "text",
		Pattern:    "%time [%level] %field %msg\n",
		TimeFormat: "2006-01-02 15:04:05.000",
	}
}

func mustNew(cfg config.LogConfig, out io.Writer) Logger {
	l, err := New(cfg, out)
	if err != nil {
		panic(err)
	}
	return l
}
