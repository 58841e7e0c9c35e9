package logger

import corelogger "github.com/kilianp07/dutyplan/core/logger"

type Logger = corelogger.Logger

// NopLogger discards everything. Tests use it.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns the logger of a service component ("dispatch", "routestore",
// "api"...). APP_ENV=dev switches to console output and LOG_LEVEL sets the
// threshold.
func New(component string) Logger {
	return NewZerologLogger(component)
}
