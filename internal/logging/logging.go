// Package logging builds the logrus logger shared by the binary.
//
// Output always goes to stderr, since stdout carries the MCP protocol. When
// a file is configured, entries are also written there through a rotating
// lumberjack writer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RequestIDKey is the field name carrying a censoring run's id.
const RequestIDKey = "request_id"

// Fields is an alias so callers need not import logrus for field maps.
type Fields = logrus.Fields

// Options configures the logger.
type Options struct {
	Level string `json:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`

	// File enables a rotating log file in addition to stderr.
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" validate:"gte=0"`
	MaxBackups int    `json:"max_backups,omitempty" validate:"gte=0"`
	MaxAgeDays int    `json:"max_age_days,omitempty" validate:"gte=0"`
	Compress   bool   `json:"compress,omitempty"`

	// Colors enables ANSI colours on stderr.
	Colors bool `json:"colors,omitempty"`

	// Caller adds the calling file, line and function to each entry.
	Caller bool `json:"caller,omitempty"`
}

// DefaultOptions logs at info level to stderr only.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// New builds a logger writing to stderr and, optionally, a log file. The
// returned close function releases the file; it is safe to call when no
// file is configured.
func New(opts Options) (*logrus.Logger, func() error, error) {
	return NewWithWriter(opts, os.Stderr)
}

// NewWithWriter is New with an explicit console writer.
func NewWithWriter(opts Options, console io.Writer) (*logrus.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(newFormatter(opts))
	logger.SetReportCaller(opts.Caller)

	writers := []io.Writer{console}
	closeFn := func() error { return nil }
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   opts.Compress,
			MaxSize:    opts.MaxSizeMB,
			MaxAge:     opts.MaxAgeDays,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, file)
		closeFn = file.Close
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, closeFn, nil
}

// ParseLevel parses a level name; an empty name means info.
func ParseLevel(name string) (logrus.Level, error) {
	if strings.TrimSpace(name) == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

func newFormatter(opts Options) *formatter.Formatter {
	f := &formatter.Formatter{
		NoColors:        !opts.Colors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
	}
	if opts.Caller {
		f.CustomCallerFormatter = func(frame *runtime.Frame) string {
			s := strings.Split(frame.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(frame.File), frame.Line, s[len(s)-1])
		}
	}
	return f
}

// Discard returns a logger that drops everything, for callers that have no
// logger of their own.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
