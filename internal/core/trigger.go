package core

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/db"
)

// AggregationRunner is the part of the aggregator the trigger coordinator
// needs.
type AggregationRunner interface {
	Run(ctx context.Context, trigger Trigger) (*RunResult, error)
}

// TriggerCoordinator funnels every aggregation trigger (cron ticks, source
// data changes, manual requests) into a single worker goroutine. A one-slot
// queue coalesces bursts: while a run executes, any number of further
// triggers collapse into at most one follow-up request. Trigger failures are
// logged and never propagate to the trigger source.
type TriggerCoordinator struct {
	runner  AggregationRunner
	logger  *zap.Logger
	pending chan Trigger

	cron   *cron.Cron
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTriggerCoordinator creates a coordinator around the given runner. Call
// StartSchedule or StartWatching (or neither, for manual-only operation),
// then Close on shutdown.
func NewTriggerCoordinator(runner AggregationRunner, logger *zap.Logger) *TriggerCoordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &TriggerCoordinator{
		runner:  runner,
		logger:  logger,
		pending: make(chan Trigger, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.worker(ctx)
	return c
}

// Request asks for an aggregation run. Never blocks: if a request is already
// queued the new one is absorbed into it.
func (c *TriggerCoordinator) Request(trigger Trigger) {
	select {
	case c.pending <- trigger:
	default:
		c.logger.Debug("Aggregation trigger coalesced into queued request",
			zap.String("trigger", string(trigger)))
	}
}

// StartSchedule begins requesting runs on the given cron schedule
// (e.g. "@every 24h" or "0 3 * * *").
func (c *TriggerCoordinator) StartSchedule(schedule string) error {
	cr := cron.New()
	if _, err := cr.AddFunc(schedule, func() {
		c.Request(TriggerScheduled)
	}); err != nil {
		return err
	}
	cr.Start()
	c.cron = cr
	c.logger.Info("Scheduled aggregation enabled", zap.String("schedule", schedule))
	return nil
}

// StartWatching begins requesting runs whenever the watcher reports a change
// in the source collections. The watcher runs until ctx is cancelled.
func (c *TriggerCoordinator) StartWatching(ctx context.Context, watcher db.ChangeWatcher) {
	go watcher.Watch(ctx, func() {
		c.Request(TriggerChange)
	})
	c.logger.Info("Reactive aggregation enabled")
}

// Close stops the scheduler and the worker. Snapshot listeners stop when
// their context (passed to StartWatching) is cancelled by the caller.
func (c *TriggerCoordinator) Close() {
	if c.cron != nil {
		c.cron.Stop()
	}
	c.cancel()
	<-c.done
}

func (c *TriggerCoordinator) worker(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-c.pending:
			if _, err := c.runner.Run(ctx, trigger); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					// The runner queued a follow-up itself; nothing to do.
					continue
				}
				c.logger.Error("Triggered aggregation run failed",
					zap.String("trigger", string(trigger)), zap.Error(err))
			}
		}
	}
}
