// Package logging provides structured logging using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit.
	Level zerolog.Level
	// Output defaults to os.Stderr.
	Output io.Writer
	// Pretty enables human-readable console output.
	Pretty bool
}

// Init initializes the global logger.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// ParseLevel parses a log level string, case-insensitively. Unrecognized
// values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug starts a debug level log message.
func Debug() *zerolog.Event { return Logger.Debug() }

// Info starts an info level log message.
func Info() *zerolog.Event { return Logger.Info() }

// Warn starts a warn level log message.
func Warn() *zerolog.Event { return Logger.Warn() }

// Error starts an error level log message.
func Error() *zerolog.Event { return Logger.Error() }

// Fatal starts a fatal level log message; sending it exits the process.
func Fatal() *zerolog.Event { return Logger.Fatal() }

func init() {
	Init(Config{Level: zerolog.InfoLevel})
}
