package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/opsplan/pkg/otelhelper"
	"github.com/dukex/opsplan/pkg/services"
	"go.opentelemetry.io/otel/attribute"
)

// call runs fn under the session's per-attempt timeout, retrying persistence failures with
// exponential backoff. Any other error is returned after the first attempt.
func call[T any](ctx context.Context, s *Session, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "editor."+op,
		attribute.String(otelhelper.ProjectIDKey, s.cfg.ProjectID),
		attribute.String(otelhelper.WorkflowIDKey, s.workflowID),
	)
	defer span.End()

	var (
		result   T
		attempts int
	)

	attempt := func() error {
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		out, err := fn(attemptCtx)
		if err == nil {
			result = out

			return nil
		}

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", services.ErrPersistenceFailure, err)
		}

		if !services.IsPersistenceFailure(err) {
			return backoff.Permanent(err)
		}

		s.logger.WarnContext(ctx, "backend call failed", "op", op, "attempt", attempts, "error", err)

		return err
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = s.cfg.RetryInterval
	retry.MaxElapsedTime = 0

	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(retry, s.cfg.MaxRetries), ctx)); err != nil {
		otelhelper.SetError(span, err, attribute.Int("attempts", attempts))

		var zero T

		return zero, &SyncError{Op: op, Err: err}
	}

	return result, nil
}
