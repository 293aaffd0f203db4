// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much is logged.
type Options struct {
	Level      string    // zerolog level name; empty means info
	File       string    // optional rotating log file
	MaxSizeMB  int       // rotation size for File
	MaxBackups int       // rotated files to keep
	Console    io.Writer // human-readable output; defaults to stderr
}

// Setup installs the global logger and returns the run id attached to every
// entry, plus a closer for the log file.
func Setup(opts Options) (string, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return "", nil, fmt.Errorf("unknown log level %q", opts.Level)
		}
		level = l
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return "", nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, lj)
		closer = lj
	}

	runID := uuid.NewString()
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger()

	return runID, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
