// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

const RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"

// ConfigureCliLogging sets up text logging on stderr at info level, suitable
// before any configuration has been read.
func ConfigureCliLogging() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: RFC3339Milli,
	})
}

// Configure applies a level ("debug", "info", ...) and format ("text" or "json")
func Configure(level, format string) error {
	return ConfigureWriter(os.Stderr, level, format)
}

// ConfigureWriter is Configure with an explicit output
func ConfigureWriter(out io.Writer, level, format string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var formatter log.Formatter
	switch strings.ToLower(format) {
	case "", "text":
		formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: RFC3339Milli,
		}
	case "json":
		formatter = &log.JSONFormatter{
			TimestampFormat: RFC3339Milli,
		}
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(formatter)
	return nil
}
