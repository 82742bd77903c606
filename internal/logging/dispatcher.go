package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DispatcherLogger adapts a zerolog.Logger to the dispatcher's Logger
// interface so operator command traffic lands in the console log.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger wraps a zerolog.Logger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger}
}

// Debug logs a debug message with optional key-value pairs.
func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	emit(l.logger.Debug(), msg, keysAndValues)
}

// Info logs an info message with optional key-value pairs.
func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	emit(l.logger.Info(), msg, keysAndValues)
}

// Error logs an error message with optional key-value pairs.
func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	emit(l.logger.Error(), msg, keysAndValues)
}

// emit attaches the key-value pairs to the event and writes it.
// Non-string keys are stringified rather than dropped; a trailing
// value without a key is ignored.
func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
