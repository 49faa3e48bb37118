// Package logx configures the process logger.
//
// Diagnostics go to stderr by default so they never corrupt command output
// on stdout. When a log file is configured the logger writes there instead,
// with size-based rotation so long-running watch sessions can't fill a disk.
package logx

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger destination and rotation.
type Options struct {
	File       string // empty means stderr only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Verbose    bool // also mirror to stderr when logging to a file
}

// New builds a logger from the options.
func New(opts Options) *log.Logger {
	var w io.Writer = os.Stderr
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		if opts.Verbose {
			w = io.MultiWriter(rotating, os.Stderr)
		} else {
			w = rotating
		}
	}
	return log.New(w, "", log.LstdFlags)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
