package middleware

import (
	"context"
	"time"

	"malcolm-pva/message"
)

// TimeoutMiddleware bounds the round trip. A request that takes longer
// gets the ERROR reply "request timed out".
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.MalcolmMessage) *message.MalcolmMessage {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.MalcolmMessage, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case reply := <-done:
				return reply
			case <-ctx.Done():
				return req.Errorf("request timed out")
			}
		}
	}
}
