package logx

import "log/slog"

// SlogAdapter adapts *slog.Logger to Logger.
type SlogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter wraps l. A nil l gives the slog default logger.
func NewSlogAdapter(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogAdapter{l: l}
}

func (s *SlogAdapter) Debug(msg string, fields ...Field) {
	s.l.Debug(msg, toSlogArgs(fields)...)
}

func (s *SlogAdapter) Info(msg string, fields ...Field) {
	s.l.Info(msg, toSlogArgs(fields)...)
}

func (s *SlogAdapter) Warn(msg string, fields ...Field) {
	s.l.Warn(msg, toSlogArgs(fields)...)
}

func (s *SlogAdapter) Error(msg string, fields ...Field) {
	s.l.Error(msg, toSlogArgs(fields)...)
}

// With returns a child logger carrying fields on every record.
func (s *SlogAdapter) With(fields ...Field) Logger {
	return &SlogAdapter{l: s.l.With(toSlogArgs(fields)...)}
}

// Sync is a no-op: slog handlers write through.
func (s *SlogAdapter) Sync() error { return nil }

// errors are logged by message so JSON handlers do not print "{}".
func toSlogArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok && err != nil {
			args = append(args, slog.String(f.Key, err.Error()))
			continue
		}
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

type nopLogger struct{}

// Nop returns a Logger that drops everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) With(...Field) Logger   { return nopLogger{} }
func (nopLogger) Sync() error            { return nil }
