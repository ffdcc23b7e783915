package middleware

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"malcolm-pva/message"
)

// LoggingMiddleware logs every request with its duration, and the reason
// of ERROR replies. A nil logger logs nothing.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.MalcolmMessage) *message.MalcolmMessage {
			start := time.Now()
			reply := next(ctx, req)
			fields := []zap.Field{
				zap.String("type", string(req.Type)),
				zap.Int64("id", req.ID),
				zap.Duration("duration", time.Since(start)),
			}
			if req.Method != "" {
				fields = append(fields, zap.String("method", string(req.Method)))
			}
			if len(req.Endpoint) > 0 {
				fields = append(fields, zap.String("endpoint", strings.Join(req.Endpoint, ".")))
			}
			if reply.IsError() {
				logger.Warn("request failed", append(fields, zap.String("error", reply.Message))...)
				return reply
			}
			logger.Debug("request", fields...)
			return reply
		}
	}
}
