package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var (
	once   sync.Once
	logger *zap.SugaredLogger
)

// Get initializes the process-wide zap.SugaredLogger on first use and
// returns the same instance for subsequent calls. The level is read from
// LOG_LEVEL; JSON output is enabled when JSON_LOG is set.
func Get() *zap.SugaredLogger {
	once.Do(func() {
		level := zap.InfoLevel
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			if parsed, err := zapcore.ParseLevel(env); err == nil {
				level = parsed
			}
		}

		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder := zapcore.NewConsoleEncoder(encoderCfg)

		if os.Getenv("JSON_LOG") != "" {
			jsonCfg := zap.NewProductionEncoderConfig()
			jsonCfg.TimeKey = "timestamp"
			jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			encoder = zapcore.NewJSONEncoder(jsonCfg)
		}

		core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(level))
		logger = zap.New(core).Sugar()
	})

	return logger
}

// FromCtx returns the logger attached to ctx, falling back to the
// process-wide logger when none is attached.
func FromCtx(ctx context.Context, with ...any) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok {
		return l.With(with...)
	}

	return Get().With(with...)
}

// WithCtx returns a copy of ctx carrying l.
func WithCtx(ctx context.Context, l *zap.SugaredLogger) context.Context {
	if attached, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && attached == l {
		return ctx
	}

	return context.WithValue(ctx, ctxKey{}, l)
}
