package ledger

import (
	"context"
	"time"

	"github.com/hance08/purse/internal/model"
	"go.uber.org/zap"
)

// ExecuteWithRetry repeats an attempt that lost an optimistic version race,
// up to MaxRetries times with doubling backoff. The idempotency key is
// reused; a conflicted attempt releases it.
func (e *Executor) ExecuteWithRetry(ctx context.Context, req TransferRequest) (*model.Transaction, error) {
	backoff := e.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 20 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		tx, err := e.ExecuteTransfer(ctx, req)
		if !IsRetryable(err) || attempt >= e.cfg.MaxRetries {
			return tx, err
		}

		e.logger.Debug("retrying transfer after conflict",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return tx, err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
