// Package logging configures the zerolog loggers shared by the proxy, the
// interception pipeline and the upstream fetcher.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every cache lookup and upstream call.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs stores and lifecycle events.
	LevelInfo LogLevel = "info"

	// LevelWarn logs degraded cache operation.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed upstream fetches and fatal errors.
	LevelError LogLevel = "error"
)

// Component names used as the "component" field.
const (
	ComponentProxy     = "proxy"
	ComponentIntercept = "intercept"
	ComponentUpstream  = "upstream"
	ComponentAdmin     = "admin"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name. "warning" is accepted for warn.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// zerologLevel maps a LogLevel to zerolog. Unknown levels fall back to info.
func zerologLevel(level LogLevel) zerolog.Level {
	parsed, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch parsed {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug:
//   - Cache lookups and hits (url, tier)
//   - Upstream requests and redirects
//
// Info:
//   - Responses written to the cache (url, tier, ttl_seconds)
//   - Server startup/shutdown
//
// Warn:
//   - Shared tier read/write failures (request continues as a miss)
//   - Recoverable proxy errors
//
// Error:
//   - Upstream fetches that ended in an abort (url, status, reason)
//   - Configuration errors
//
// Context Fields:
//   - component: proxy, intercept, upstream, admin
//   - url: request URL, which is also the cache key
//   - tier: ephemeral or shared
//   - request_id: id assigned by the proxy to one intercepted request
