package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the global logger.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// File, when set, also writes JSON logs to a rotated file.
	File string
	// Out is the console destination. Defaults to stderr.
	Out io.Writer
	// MaxSizeMB and MaxBackups bound the rotated file. Zero uses lumberjack defaults.
	MaxSizeMB  int
	MaxBackups int
}

// Setup installs the global zerolog logger and returns a function that
// releases the log file, if any.
func Setup(opts Options) (func() error, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: out}
	closer := func() error { return nil }

	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(w, rotated)
		closer = rotated.Close
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	return closer, nil
}
