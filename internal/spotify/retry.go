package spotify

import (
	"context"
	"log/slog"
	"time"
)

// retryBackoff is the fixed pause between LoopUntilOk attempts. Distinct
// from GetWithRetry's 401/429 handling: that layer resolves
// protocol-level retries against a single identity and terminates on
// its own; this layer retries an entire operation (which may itself
// call GetWithRetry) against outcome-level failures — a dropped
// connection, a malformed page, a context-free panic recovery upstream
// — and never gives up.
const retryBackoff = 3 * time.Second

// LoopUntilOk calls fn(arg) until it succeeds, sleeping retryBackoff
// between attempts, and logging each failure. It never returns an
// error; ctx cancellation is the only way out, in which case the zero
// value of R is returned.
func LoopUntilOk[A, R any](ctx context.Context, logger *slog.Logger, fn func(context.Context, A) (R, error), arg A) R {
	for {
		result, err := fn(ctx, arg)
		if err == nil {
			return result
		}

		if logger != nil {
			logger.Warn("spotify: retrying failed operation", "err", err)
		}

		select {
		case <-ctx.Done():
			var zero R
			return zero
		case <-time.After(retryBackoff):
		}
	}
}
