package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"malcolm-pva/message"
)

// RateLimitMiddleware lets r requests per second through, with bursts of
// up to burst. Other requests get the ERROR reply "rate limit exceeded".
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.MalcolmMessage) *message.MalcolmMessage {
			if !limiter.Allow() {
				return req.Errorf("rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
