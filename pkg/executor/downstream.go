package executor

import (
	"context"
	"errors"

	"helmet-orchestrator-be/internal/pkg/apperr"
	"helmet-orchestrator-be/pkg/gateway"

	"github.com/cenkalti/backoff/v5"
)

// call invokes a collaborator with a per-attempt timeout and exponential
// backoff. Timeouts and refusals both count against the retry budget; once
// it is spent the service is marked degraded.
func (e *Executor) call(ctx context.Context, service string, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.RetryBaseDelay
	b.MaxInterval = 8 * e.opts.RetryBaseDelay

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, e.opts.CommandTimeout)
		defer cancel()

		err := op(attemptCtx)
		switch {
		case err == nil:
			return struct{}{}, nil
		case ctx.Err() != nil:
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.opts.RetryBudget+1)),
	)

	switch {
	case err == nil:
		e.health.MarkHealthy(service)
		return nil
	case ctx.Err() != nil:
		return cancelled(ctx)
	}

	e.health.MarkDegraded(service)
	e.logger.Warn(module, "Collaborator unavailable", map[string]interface{}{
		"service":  service,
		"attempts": attempts,
		"refused":  errors.Is(err, gateway.ErrRefused),
		"error":    err.Error(),
	})
	return apperr.DownstreamUnavailable(service, err)
}
