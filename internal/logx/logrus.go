package logx

import "github.com/sirupsen/logrus"

// LogrusAdapter adapts a logrus entry to the logx.Logger interface.
type LogrusAdapter struct {
	e *logrus.Entry
}

// NewLogrusAdapter returns a Logger implementation backed by the provided *logrus.Logger.
func NewLogrusAdapter(l *logrus.Logger) Logger {
	return &LogrusAdapter{e: logrus.NewEntry(l)}
}

// Debug logs a debug-level message with optional structured fields.
func (a *LogrusAdapter) Debug(msg string, fields ...Field) {
	a.e.WithFields(toLogrus(fields)).Debug(msg)
}

// Info logs an info-level message with optional structured fields.
func (a *LogrusAdapter) Info(msg string, fields ...Field) {
	a.e.WithFields(toLogrus(fields)).Info(msg)
}

// Warn logs a warning-level message with optional structured fields.
func (a *LogrusAdapter) Warn(msg string, fields ...Field) {
	a.e.WithFields(toLogrus(fields)).Warn(msg)
}

// Error logs an error-level message with optional structured fields.
func (a *LogrusAdapter) Error(msg string, fields ...Field) {
	a.e.WithFields(toLogrus(fields)).Error(msg)
}

// With returns a new logger with the provided fields attached to every subsequent log entry.
func (a *LogrusAdapter) With(fields ...Field) Logger {
	return &LogrusAdapter{e: a.e.WithFields(toLogrus(fields))}
}

// Sync is a no-op; logrus writes synchronously.
func (a *LogrusAdapter) Sync() error { return nil }

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok && err != nil {
			out[f.Key] = err.Error()
			continue
		}
		out[f.Key] = f.Value
	}
	return out
}
