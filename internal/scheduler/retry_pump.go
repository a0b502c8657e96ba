package scheduler

import (
	"context"
	"fmt"

	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/metadata"
)

// RetryPump drives metadata retry sweeps. It deliberately carries no
// ticker: a sweep only runs at startup and when the foreground trigger
// fires, so an idle process never spends retry budget on its own.
type RetryPump struct {
	coordinator *metadata.Coordinator
	logger      logger.Logger
	trigger     chan struct{}
	stopCh      chan struct{}
}

// NewRetryPump creates a new retry pump listening on trigger.
func NewRetryPump(coordinator *metadata.Coordinator, log logger.Logger, trigger chan struct{}) *RetryPump {
	return &RetryPump{
		coordinator: coordinator,
		logger:      log,
		trigger:     trigger,
		stopCh:      make(chan struct{}),
	}
}

// Start runs the initial sweep, then waits for triggers. The initial
// sweep is what resumes links whose process died mid-retry.
func (rp *RetryPump) Start(ctx context.Context) error {
	if err := rp.coordinator.Sweep(ctx); err != nil {
		return fmt.Errorf("initial metadata sweep failed: %w", err)
	}

	go func() {
		for {
			select {
			case <-rp.trigger:
				rp.logger.Info("foreground trigger received, sweeping metadata retries")
				if err := rp.coordinator.Sweep(ctx); err != nil {
					rp.logger.Error("metadata sweep failed",
						logger.Error(err))
				}
			case <-rp.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the pump
func (rp *RetryPump) Stop() {
	close(rp.stopCh)
}
