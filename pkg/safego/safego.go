// Package safego launches goroutines that survive their own panics.
package safego

import (
	"context"

	"go.uber.org/zap"
)

// Go launches fn in a new goroutine with panic recovery. If fn panics, the
// panic value and stack are logged under the given component name and the
// goroutine exits cleanly instead of crashing the process.
func Go(logger *zap.Logger, component string, fn func()) {
	go func() {
		defer recoverAndLog(logger, component)
		fn()
	}()
}

// GoWithContext is Go for a function that wants to observe cancellation
// without having to close over the context itself.
func GoWithContext(ctx context.Context, logger *zap.Logger, component string, fn func(ctx context.Context)) {
	go func() {
		defer recoverAndLog(logger, component)
		fn(ctx)
	}()
}

func recoverAndLog(logger *zap.Logger, component string) {
	if r := recover(); r != nil {
		logger.Error("goroutine panicked",
			zap.String("component", component),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}
