// Package logger wraps a process-wide zerolog instance. Log output goes
// to stderr so stdout stays clean for command results.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.New(io.Discard)

// Init configures the global logger. An unrecognized level falls back
// to info. When logFile is non-empty, entries are mirrored there in
// structured form alongside the console writer.
func Init(level string, logFile string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	log = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return nil
}

// InitQuiet drops all log output. Used by commands whose stdout is
// meant to be piped.
func InitQuiet() {
	log = zerolog.New(io.Discard)
}

func Debug() *zerolog.Event { return log.Debug() }

func Info() *zerolog.Event { return log.Info() }

func Warn() *zerolog.Event { return log.Warn() }

func Error() *zerolog.Event { return log.Error() }

// Fatal logs the event and exits the process.
func Fatal() *zerolog.Event { return log.Fatal() }
