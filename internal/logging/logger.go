// Package logging provides the structured logger used across the scanner core.
package logging

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type scanIDKey struct{}

// WithScanID attaches a scan correlation id to ctx, picked up by Logger.WithTrace.
func WithScanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scanIDKey{}, id)
}

// Logger is the structured logging interface every component depends on.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	With(fields map[string]interface{}) Logger
	WithTrace(ctx context.Context) Logger
	Sync() error
}

// ZapLogger wraps a zap.SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New creates a production or development zap-backed Logger.
func New(debug bool) (Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: l.Sugar()}, nil
}

// NewDefault builds a production logger, following a "default means
// production, opt into debug" convention.
func NewDefault() (Logger, error) { return New(false) }

func (z *ZapLogger) Info(msg string, args ...interface{})  { z.sugar.Infof(msg, args...) }
func (z *ZapLogger) Error(msg string, args ...interface{}) { z.sugar.Errorf(msg, args...) }
func (z *ZapLogger) Warn(msg string, args ...interface{})  { z.sugar.Warnf(msg, args...) }
func (z *ZapLogger) Debug(msg string, args ...interface{}) { z.sugar.Debugf(msg, args...) }

func (z *ZapLogger) With(fields map[string]interface{}) Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapLogger{sugar: z.sugar.With(args...)}
}

// WithTrace tags log lines with the scan id stashed by WithScanID, if any.
func (z *ZapLogger) WithTrace(ctx context.Context) Logger {
	id, ok := ctx.Value(scanIDKey{}).(string)
	if !ok || id == "" {
		return z
	}
	return &ZapLogger{sugar: z.sugar.With("scan_id", id)}
}

func (z *ZapLogger) Sync() error { return z.sugar.Sync() }

// StdLogger is a dependency-free fallback used by tests and small CLIs that
// don't want to pay for zap's config surface.
type StdLogger struct {
	out   *log.Logger
	debug bool
	tags  map[string]interface{}
}

// NewStd builds a logger atop the standard library's log package.
func NewStd(debug bool) Logger {
	return &StdLogger{out: log.New(os.Stdout, "", log.LstdFlags), debug: debug}
}

func (s *StdLogger) Info(msg string, args ...interface{})  { s.out.Printf("[INFO] "+msg, args...) }
func (s *StdLogger) Error(msg string, args ...interface{}) { s.out.Printf("[ERROR] "+msg, args...) }
func (s *StdLogger) Warn(msg string, args ...interface{})  { s.out.Printf("[WARN] "+msg, args...) }

func (s *StdLogger) Debug(msg string, args ...interface{}) {
	if s.debug {
		s.out.Printf("[DEBUG] "+msg, args...)
	}
}

func (s *StdLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(s.tags)+len(fields))
	for k, v := range s.tags {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &StdLogger{out: s.out, debug: s.debug, tags: merged}
}

func (s *StdLogger) WithTrace(ctx context.Context) Logger {
	id, ok := ctx.Value(scanIDKey{}).(string)
	if !ok || id == "" {
		return s
	}
	return s.With(map[string]interface{}{"scan_id": id})
}

func (s *StdLogger) Sync() error { return nil }
