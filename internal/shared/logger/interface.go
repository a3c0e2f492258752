package logger

import "log/slog"

// Interface is the structured logger handed to migration components.
// Key/value pairs follow slog conventions.
type Interface interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Interface
}

type componentLogger struct {
	logger *slog.Logger
}

// New wraps l.
func New(l *slog.Logger) Interface {
	return &componentLogger{logger: l}
}

// Discard drops every record.
func Discard() Interface {
	return New(slog.New(slog.DiscardHandler))
}

func (l *componentLogger) Debugw(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *componentLogger) Infow(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *componentLogger) Warnw(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l *componentLogger) Errorw(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *componentLogger) With(keysAndValues ...any) Interface {
	return &componentLogger{logger: l.logger.With(keysAndValues...)}
}
