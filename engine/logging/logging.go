// Package logging defines the structured logging contract used across the engine.
//
// Components depend on the small Logger interface rather than a concrete
// implementation. Production wiring uses zap; tests use NewNop or a recorder.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface for structured logging.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Bind(fields ...any) Logger
}

// zapLogger adapts a zap SugaredLogger to the Logger interface.
type zapLogger struct {
	sl *zap.SugaredLogger
}

// NewZap wraps a zap logger.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{sl: l.Sugar()}
}

// NewProduction builds a production zap logger at the given level.
// Level accepts zap level strings ("debug", "info", "warn", "error");
// unknown values fall back to info.
func NewProduction(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.Set(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sl: l.Sugar()}, nil
}

// NewDevelopment builds a human-readable development logger.
func NewDevelopment() (Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sl: l.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{sl: zap.NewNop().Sugar()}
}

func (z *zapLogger) Debug(msg string, fields ...any) { z.sl.Debugw(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...any)  { z.sl.Infow(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...any)  { z.sl.Warnw(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...any) { z.sl.Errorw(msg, fields...) }

func (z *zapLogger) Bind(fields ...any) Logger {
	return &zapLogger{sl: z.sl.With(fields...)}
}
