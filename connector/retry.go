package connector

import (
	"context"
	"time"

	"github.com/ceyewan/autoid/clog"
)

// connectWithRetry 按 maxRetries 次数重试 attempt，每次尝试受 timeout 约束
func connectWithRetry(ctx context.Context, logger clog.Logger, maxRetries int, interval, timeout time.Duration,
	attempt func(ctx context.Context) error) error {
	var err error
	for i := 0; i <= maxRetries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err = attempt(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if i == maxRetries {
			break
		}
		logger.Warn("connect attempt failed, retrying",
			clog.Int("attempt", i+1), clog.Duration("interval", interval), clog.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return err
}
