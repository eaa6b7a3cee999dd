package logging

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/niels/minihttpd/pkg/config"
	"github.com/rs/zerolog"
)

var (
	// Global logger instance
	globalLogger = NewLogger(false, os.Stderr)
)

// InitGlobalLogger initializes the global logger.
//
// Without file logging everything goes to stderr. With file logging the
// rotating file is the only sink, unless debug is on, in which case stderr
// gets a copy.
func InitGlobalLogger(debug bool, cfg *config.Config) {
	var output io.Writer = os.Stderr

	if cfg != nil && cfg.Logging.LogToFile {
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.Logging.LogFilePath,
			MaxSize:    cfg.Logging.MaxSize, // megabytes
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAge, // days
			Compress:   cfg.Logging.Compress,
		}

		if debug {
			output = io.MultiWriter(fileLogger, os.Stderr)
		} else {
			output = fileLogger
			// Tell the operator where the logs went, once
			tempLogger := NewLogger(false, os.Stderr)
			tempLogger.Info().Msg("Logging to file only: " + cfg.Logging.LogFilePath)
		}
	}

	globalLogger = NewLogger(debug, output)
}

// SetOutput replaces the global logger with one writing to output
func SetOutput(debug bool, output io.Writer) {
	globalLogger = NewLogger(debug, output)
}

// NewLogger creates a new zerolog logger with the specified debug level
func NewLogger(debug bool, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stderr
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Debug logs a message at debug level
func Debug(msg string) {
	globalLogger.Debug().Msg(msg)
}

// InfoWith logs a message at info level with additional context
func InfoWith(msg string, fields map[string]interface{}) {
	event := globalLogger.Info()
	for k, v := range fields {
		event = addField(event, k, v)
	}
	event.Msg(msg)
}

// ErrorWith logs a message at error level with additional context
func ErrorWith(msg string, fields map[string]interface{}) {
	event := globalLogger.Error()
	for k, v := range fields {
		event = addField(event, k, v)
	}
	event.Msg(msg)
}

// WithComponent returns a logger with the component field set
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}

// WithConnection returns a logger tagged with a connection id and its remote address
func WithConnection(id uint64, remote string) zerolog.Logger {
	return globalLogger.With().
		Str("component", "dispatcher").
		Uint64("conn", id).
		Str("remote", remote).
		Logger()
}

// addField adds a field to the log event based on its type
func addField(event *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return event.Str(key, v)
	case int:
		return event.Int(key, v)
	case int64:
		return event.Int64(key, v)
	case uint64:
		return event.Uint64(key, v)
	case bool:
		return event.Bool(key, v)
	case time.Duration:
		return event.Dur(key, v)
	case time.Time:
		return event.Time(key, v)
	case []string:
		return event.Strs(key, v)
	case error:
		return event.Err(v).Str(key, v.Error())
	default:
		return event.Interface(key, v)
	}
}
