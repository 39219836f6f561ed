// Package kit provides the transport-agnostic endpoint plumbing shared by
// the domlens service surfaces (MCP, HTTP, connectivity): typed endpoints,
// middleware chaining, and request-scoped context keys.
package kit

import "context"

// Endpoint is a transport-agnostic operation: typed request in, typed
// response out. Transports decode into the request type and marshal the
// response.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left to right: the first argument is the
// outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
