// Package middleware wraps the round trip of a Malcolm message.
package middleware

import (
	"context"

	"malcolm-pva/message"
)

// HandlerFunc answers a request. Failures come back as ERROR replies.
type HandlerFunc func(ctx context.Context, req *message.MalcolmMessage) *message.MalcolmMessage

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines middlewares. The first one is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
