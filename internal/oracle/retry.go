package oracle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/types"
)

// Retrying bounds every oracle call with a timeout and retries calls that
// failed to reach the service, sleeping attempt*backoff between tries.
// Malformed or incomplete answers are returned at once.
type Retrying struct {
	next        Oracle
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// WithRetry wraps next. maxAttempts below one is treated as one.
func WithRetry(next Oracle, timeout time.Duration, maxAttempts int, backoff time.Duration, logger *zap.Logger) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, timeout: timeout, maxAttempts: maxAttempts, backoff: backoff, logger: logger}
}

func (r *Retrying) do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		err = call(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if types.KindOf(err) != types.FailureOracleUnavailable {
			return err
		}

		r.logger.Warn("oracle call failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Error(err))
		if attempt == r.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return types.NewAnalysisError(types.FailureOracleUnavailable, "Failed to analyze food image", ctx.Err())
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}
	return types.NewAnalysisError(types.FailureOracleUnavailable, "Failed to analyze food image",
		fmt.Errorf("%s failed after %d attempts: %w", op, r.maxAttempts, err))
}

func (r *Retrying) Identify(ctx context.Context, img types.FoodImage) (string, error) {
	var name string
	err := r.do(ctx, "identify", func(ctx context.Context) error {
		var err error
		name, err = r.next.Identify(ctx, img)
		return err
	})
	return name, err
}

func (r *Retrying) Verify(ctx context.Context, img types.FoodImage, label string) (bool, error) {
	var ok bool
	err := r.do(ctx, "verify", func(ctx context.Context) error {
		var err error
		ok, err = r.next.Verify(ctx, img, label)
		return err
	})
	return ok, err
}

func (r *Retrying) Analyze(ctx context.Context, img types.FoodImage, req AnalysisRequest) (*types.FoodRecord, error) {
	var record *types.FoodRecord
	err := r.do(ctx, "analyze", func(ctx context.Context) error {
		var err error
		record, err = r.next.Analyze(ctx, img, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
