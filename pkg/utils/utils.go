package utils

import (
	"context"

	"golang-options/pkg/logger"

	"go.uber.org/zap"
)

// ShouldContinue reports false once ctx is done and logs why, together with
// fields identifying the work that stops.
func ShouldContinue(ctx context.Context, log *logger.Logger, fields ...zap.Field) bool {
	if ctx.Err() == nil {
		return true
	}
	fields = append(fields, logger.ErrorField(context.Cause(ctx)))
	log.WarnContext(ctx, "Context cancelled, stopping", fields...)
	return false
}
