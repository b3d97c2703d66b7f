package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	streamIDKey  contextKey = "stream_id"
	modelKey     contextKey = "model"
)

// WithContext returns a logger carrying the gateway fields stored in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	fields := make([]zap.Field, 0, 3)
	if v := GetRequestID(ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := GetStreamID(ctx); v != "" {
		fields = append(fields, zap.String("stream_id", v))
	}
	if v := GetModel(ctx); v != "" {
		fields = append(fields, zap.String("model", v))
	}

	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// FromContext extracts logger from context, returns the global logger if not found
func FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return L()
	}
	if lg, ok := ctx.Value(loggerKey).(*Logger); ok && lg != nil {
		return lg.WithContext(ctx)
	}
	return L().WithContext(ctx)
}

// ToContext adds logger to context
func ToContext(ctx context.Context, lg *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, lg)
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithStreamID adds the stream ID of an in-flight completion stream
func WithStreamID(ctx context.Context, streamID string) context.Context {
	return context.WithValue(ctx, streamIDKey, streamID)
}

// WithModel adds the model being called to context
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, modelKey, model)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func GetStreamID(ctx context.Context) string {
	v, _ := ctx.Value(streamIDKey).(string)
	return v
}

func GetModel(ctx context.Context) string {
	v, _ := ctx.Value(modelKey).(string)
	return v
}
