package connectivity

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// HandlerMiddleware wraps a Handler with cross-cutting behaviour without
// changing its bytes-in/bytes-out signature.
type HandlerMiddleware func(next Handler) Handler

// Chain composes middlewares so the first argument is the outermost wrapper:
//
//	wrap := Chain(Recovery(logger), Logging(logger))
//	router.RegisterLocal("domlens_snapshot", wrap(handler))
func Chain(mws ...HandlerMiddleware) HandlerMiddleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs every call with its duration and payload sizes. Failures log
// at error level; successful perception calls are debug-only, they are the
// steady-state traffic.
func Logging(logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			start := time.Now()
			resp, err := next(ctx, payload)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "connectivity: call failed",
					"duration_ms", elapsed.Milliseconds(),
					"payload_bytes", len(payload),
					"error", err)
				return resp, err
			}
			logger.DebugContext(ctx, "connectivity: call ok",
				"duration_ms", elapsed.Milliseconds(),
				"payload_bytes", len(payload),
				"response_bytes", len(resp))
			return resp, nil
		}
	}
}

// Timeout bounds a call's duration. A page capture stuck on a wedged tab
// returns context.DeadlineExceeded to the caller; the handler goroutine
// itself is not killed.
func Timeout(d time.Duration) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, payload)
		}
	}
}

// Recovery converts handler panics into errors. Captured pages are hostile
// input; a panic in one perception call must not take the service down.
func Recovery(logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "connectivity: handler panic recovered",
						"panic", r,
						"stack", string(debug.Stack()))
					err = &ErrPanic{Value: r}
				}
			}()
			return next(ctx, payload)
		}
	}
}

// ErrPanic wraps a recovered panic value as an error.
type ErrPanic struct {
	Value any
}

func (e *ErrPanic) Error() string {
	return "connectivity: handler panicked"
}
