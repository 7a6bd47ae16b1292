package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	logger *zap.Logger
}

func initZapLogger(serviceName string) (Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true

	// skip the package-level helpers so the caller points at application code
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return &ZapLogger{
		logger: l.With(zap.String("service", serviceName)),
	}, nil
}

func (l *ZapLogger) Log(_ context.Context, entry LogEntry) {
	fields := make([]zap.Field, 0, len(entry.Attributes)+1)
	for key, value := range entry.Attributes {
		fields = append(fields, zap.Any(key, value))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}

	switch entry.Level {
	case LogLevelDebug:
		l.logger.Debug(entry.Message, fields...)
	case LogLevelInfo:
		l.logger.Info(entry.Message, fields...)
	case LogLevelWarn:
		l.logger.Warn(entry.Message, fields...)
	case LogLevelError:
		l.logger.Error(entry.Message, fields...)
	case LogLevelFatal:
		l.logger.Fatal(entry.Message, fields...)
	}
}

func (l *ZapLogger) Shutdown(context.Context) error {
	// stdout sync returns EINVAL on some terminals
	_ = l.logger.Sync()
	return nil
}
