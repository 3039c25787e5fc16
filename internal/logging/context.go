package logging

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Standard field names shared by every layer.
const (
	FieldLayer     = "layer"
	FieldAdapter   = "adapter"
	FieldUseCase   = "usecase"
	FieldAction    = "action"
	FieldHandler   = "handler"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration"
	FieldClientIP  = "client_ip"
	FieldRequestID = "request_id"
	FieldImage     = "image"
)

// CtxWithFields returns a context whose logger carries fields on top of the
// logger already attached to ctx.
func CtxWithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := zerolog.Ctx(ctx).With().Fields(fields).Logger()
	return logger.WithContext(ctx)
}

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromCtx returns the logger attached to ctx, or the default logger.
func FromCtx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WrapErr logs err at error level and returns it wrapped with msg.
func WrapErr(logger *zerolog.Logger, err error, msg string) error {
	logger.Error().Err(err).Msg(msg)
	return fmt.Errorf("%s: %w", msg, err)
}
