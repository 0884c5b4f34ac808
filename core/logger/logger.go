package logger

// Logger exposes leveled printf-style logging.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// With returns a Logger that attaches fields to every entry.
	With(fields map[string]any) Logger
}
