// Package logger defines the logging contract shared by the engine wrapper,
// the stores and the transports.
package logger

// Logger is implemented by infra/logger. Fields passed to the *w methods are
// emitted as structured key/value pairs.
type Logger interface {
	Debugf(format string, args ...any)
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Infow(msg string, fields map[string]any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
