package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cartoonclub-backend-go/internal/db"
	"cartoonclub-backend-go/internal/models"
	"cartoonclub-backend-go/pkg/cache"
	"cartoonclub-backend-go/pkg/messagequeue"
)

// Trigger identifies what started an aggregation run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerChange    Trigger = "change"
)

// SummaryCacheKey is the Redis key holding the JSON of the latest main
// summary.
const SummaryCacheKey = "reports:main_summary"

// SummaryCacheTTL bounds the staleness of the cached summary if the refresh
// pipeline ever stops; every successful run overwrites the entry long before
// it expires.
const SummaryCacheTTL = 24 * time.Hour

// EventsQueue is the queue receiving run-completion events.
const EventsQueue = "reports.refreshed"

// ErrRunInProgress is returned when a run is already executing. The new
// trigger is not lost: exactly one follow-up run is queued and starts when
// the current run releases the guard.
var ErrRunInProgress = errors.New("aggregation run already in progress")

// ErrClosed is returned once the service has been shut down.
var ErrClosed = errors.New("aggregator service is closed")

// SnapshotLoadError reports a failed whole-collection read. The run is
// aborted and the previous summary documents stay untouched.
type SnapshotLoadError struct {
	Collection string
	Err        error
}

func (e *SnapshotLoadError) Error() string {
	return fmt.Sprintf("failed to load %s snapshot: %v", e.Collection, e.Err)
}

func (e *SnapshotLoadError) Unwrap() error { return e.Err }

// WriteError reports a failed summary write. Each summary document is a
// single full-document overwrite, so a failed write leaves the previous
// version intact rather than a half-updated one.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// RunResult describes a completed aggregation run.
type RunResult struct {
	Trigger    Trigger   `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Degraded is set when per-entity reads failed and some units contributed
	// default values; the run still completed.
	Degraded      bool `json:"degraded"`
	PartialErrors int  `json:"partialErrors"`
}

// runEvent is the payload published to EventsQueue after every run attempt,
// successful or not.
type runEvent struct {
	Status        string    `json:"status"` // "ok" or "error"
	Trigger       Trigger   `json:"trigger"`
	Error         string    `json:"error,omitempty"`
	Degraded      bool      `json:"degraded,omitempty"`
	PartialErrors int       `json:"partialErrors,omitempty"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// AlertFunc delivers an operational alert (subject, body). Optional.
type AlertFunc func(subject, body string)

// AggregatorService loads a consistent snapshot of users, payments and
// content, computes every summary metric from it, and overwrites the derived
// report documents. Runs serialize through a single-flight guard: at most one
// run executes at a time, with at most one follow-up queued.
//
// The service is an explicit instance constructed with injected dependencies;
// the caller owns its lifecycle via Run and Close.
type AggregatorService struct {
	users   db.UserRepository
	content db.ContentRepository
	reports db.ReportRepository

	queue messagequeue.MessageQueue // optional
	cache cache.Cache               // optional
	alert AlertFunc                 // optional

	logger         *zap.Logger
	now            func() time.Time
	renewalVariant RenewalVariant

	mu             sync.Mutex
	running        bool
	pending        bool
	pendingTrigger Trigger
	closed         bool
	idle           sync.WaitGroup
}

// AggregatorOption customizes an AggregatorService.
type AggregatorOption func(*AggregatorService)

// WithClock overrides the time source; tests use a fixed instant.
func WithClock(now func() time.Time) AggregatorOption {
	return func(s *AggregatorService) { s.now = now }
}

// WithCache enables post-run refresh of the summary cache.
func WithCache(c cache.Cache) AggregatorOption {
	return func(s *AggregatorService) { s.cache = c }
}

// WithMessageQueue enables run-completion events.
func WithMessageQueue(q messagequeue.MessageQueue) AggregatorOption {
	return func(s *AggregatorService) { s.queue = q }
}

// WithAlerts enables alerting for aborted runs.
func WithAlerts(fn AlertFunc) AggregatorOption {
	return func(s *AggregatorService) { s.alert = fn }
}

// WithRenewalVariant selects the renewal-rate rule.
func WithRenewalVariant(v RenewalVariant) AggregatorOption {
	return func(s *AggregatorService) { s.renewalVariant = v }
}

// NewAggregatorService creates an AggregatorService.
func NewAggregatorService(
	users db.UserRepository,
	content db.ContentRepository,
	reports db.ReportRepository,
	logger *zap.Logger,
	opts ...AggregatorOption,
) *AggregatorService {
	s := &AggregatorService{
		users:          users,
		content:        content,
		reports:        reports,
		logger:         logger,
		now:            time.Now,
		renewalVariant: RenewalVariantActive,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one aggregation run. If a run is already in flight it queues
// exactly one follow-up (coalescing any number of concurrent triggers) and
// returns ErrRunInProgress immediately; the follow-up starts when the current
// run finishes.
func (s *AggregatorService) Run(ctx context.Context, trigger Trigger) (*RunResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.running {
		if !s.pending {
			s.pending = true
			s.pendingTrigger = trigger
		}
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.idle.Add(1)
	s.mu.Unlock()

	result, err := s.runOnce(ctx, trigger)
	s.release()
	return result, err
}

// release clears the running flag and starts the queued follow-up run, if
// any, on a background context (the original trigger's context may be gone).
func (s *AggregatorService) release() {
	s.mu.Lock()
	s.running = false
	followUp := s.pending && !s.closed
	trigger := s.pendingTrigger
	s.pending = false
	s.mu.Unlock()
	s.idle.Done()

	if followUp {
		go func() {
			if _, err := s.Run(context.Background(), trigger); err != nil &&
				!errors.Is(err, ErrRunInProgress) && !errors.Is(err, ErrClosed) {
				s.logger.Error("Queued follow-up aggregation run failed", zap.Error(err))
			}
		}()
	}
}

// Close stops the service: pending follow-ups are dropped, new Run calls
// fail with ErrClosed, and Close blocks until any in-flight run finishes.
func (s *AggregatorService) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = false
	s.mu.Unlock()
	s.idle.Wait()
}

func (s *AggregatorService) runOnce(ctx context.Context, trigger Trigger) (*RunResult, error) {
	started := s.now()
	s.logger.Info("Starting aggregation run", zap.String("trigger", string(trigger)))

	snap, partialErrors, err := s.loadSnapshot(ctx)
	if err != nil {
		s.logger.Error("Aggregation run aborted: snapshot load failed", zap.Error(err))
		s.publishEvent(runEvent{Status: "error", Trigger: trigger, Error: err.Error(), FinishedAt: s.now()})
		if s.alert != nil {
			s.alert("Reports aggregation aborted",
				fmt.Sprintf("The %s aggregation run at %s failed to read source data: %v",
					trigger, started.Format(time.RFC3339), err))
		}
		return nil, err
	}

	main, daily, monthlies := s.computeSummaries(snap)

	if err := s.writeSummaries(ctx, main, daily, monthlies); err != nil {
		s.logger.Error("Aggregation run failed: summary write failed", zap.Error(err))
		s.publishEvent(runEvent{Status: "error", Trigger: trigger, Error: err.Error(), FinishedAt: s.now()})
		return nil, err
	}

	result := &RunResult{
		Trigger:       trigger,
		StartedAt:     started,
		FinishedAt:    s.now(),
		Degraded:      partialErrors > 0,
		PartialErrors: partialErrors,
	}

	s.refreshCache(ctx, main)
	s.publishEvent(runEvent{
		Status:        "ok",
		Trigger:       trigger,
		Degraded:      result.Degraded,
		PartialErrors: result.PartialErrors,
		FinishedAt:    result.FinishedAt,
	})

	s.logger.Info("Aggregation run completed",
		zap.String("trigger", string(trigger)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
		zap.Int("members", len(snap.Members)),
		zap.Int("payments", len(snap.Payments)),
		zap.Int("partial_errors", partialErrors),
	)
	return result, nil
}

// loadSnapshot reads all source collections as of one instant. A failed
// whole-collection read of users or content aborts the run; payment loading
// prefers the collection-group query and degrades to per-user loads, where a
// single user's failure only zeroes that user's contribution. Weekly bucket
// reads default to 0 on error.
func (s *AggregatorService) loadSnapshot(ctx context.Context) (*Snapshot, int, error) {
	now := s.now()

	var (
		users   []*models.User
		content []*models.Content
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if users, err = s.users.ListAll(gctx); err != nil {
			return &SnapshotLoadError{Collection: "users", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if content, err = s.content.ListAll(gctx); err != nil {
			return &SnapshotLoadError{Collection: "content", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	partialErrors := 0

	payments, err := s.users.ListSucceededPayments(ctx)
	if err != nil {
		s.logger.Warn("Payments collection-group query failed, falling back to per-user loads", zap.Error(err))
		payments = payments[:0]
		for _, u := range users {
			if u.Role == models.RoleAdmin {
				continue
			}
			userPayments, perr := s.users.ListPaymentsForUser(ctx, u.ID)
			if perr != nil {
				s.logger.Warn("Skipping payments of one user after load failure",
					zap.String("userID", u.ID), zap.Error(perr))
				partialErrors++
				continue
			}
			payments = append(payments, userPayments...)
		}
	}

	weekKey := WeekKey(now)
	weekly := make(map[string]int64, len(content))
	for _, c := range content {
		minutes, werr := s.content.WeeklyMinutes(ctx, c.ID, weekKey)
		if werr != nil {
			s.logger.Warn("Weekly bucket read failed, defaulting to 0",
				zap.String("contentID", c.ID), zap.String("weekKey", weekKey), zap.Error(werr))
			partialErrors++
			continue
		}
		if minutes != 0 {
			weekly[c.ID] = minutes
		}
	}

	return NewSnapshot(now, users, content, payments, weekly), partialErrors, nil
}

// computeSummaries derives every summary document from one snapshot, so the
// numbers in main, daily and monthly documents agree with each other.
func (s *AggregatorService) computeSummaries(snap *Snapshot) (*models.MainSummary, *models.DailySummary, []*models.MonthlyReport) {
	totalRevenue := snap.TotalRevenue()
	newMembers := snap.NewMemberCount()
	churnRate := snap.ChurnRate()
	renewalRate := snap.RenewalRate(s.renewalVariant)
	totalMembers := snap.ActiveMemberCount()
	distribution := snap.PackageDistribution()
	revenueByPackage := snap.RevenueByPackage()
	top10 := snap.TopContent(10)
	top10Weekly := snap.TopContentWeekly(10)
	trends := snap.MonthlyTrends()

	main := &models.MainSummary{
		TotalRevenue:        totalRevenue,
		NewMembers:          newMembers,
		ChurnRate:           churnRate,
		RenewalRate:         renewalRate,
		TotalMembers:        totalMembers,
		PackageDistribution: distribution,
		RevenueByPackage:    revenueByPackage,
		Top10Content:        top10,
		Top10Weekly:         top10Weekly,
		MonthlyTrends:       trends,
	}

	daily := &models.DailySummary{
		TotalRevenue:        totalRevenue,
		NewMembers:          newMembers,
		ChurnRate:           churnRate,
		RenewalRate:         renewalRate,
		TotalMembers:        totalMembers,
		PackageDistribution: distribution,
		RevenueByPackage:    revenueByPackage,
		Top10Content:        top10,
		Top10Weekly:         top10Weekly,
	}

	monthlies := make([]*models.MonthlyReport, 0, len(trends))
	for _, t := range trends {
		monthlies = append(monthlies, &models.MonthlyReport{
			Year:       t.Year,
			Month:      t.Month,
			Revenue:    t.Revenue,
			NewMembers: t.NewMembers,
		})
	}
	return main, daily, monthlies
}

// writeSummaries overwrites each target document. Writes are independent:
// one failed document does not stop the others, and the first failure is
// reported as a WriteError after all writes were attempted.
func (s *AggregatorService) writeSummaries(ctx context.Context, main *models.MainSummary, daily *models.DailySummary, monthlies []*models.MonthlyReport) error {
	var firstErr error

	if err := s.reports.SaveMainSummary(ctx, main); err != nil {
		firstErr = &WriteError{Path: "reports/main_summary", Err: err}
	}
	if err := s.reports.SaveDailySummary(ctx, daily); err != nil && firstErr == nil {
		firstErr = &WriteError{Path: "reports/daily_summary", Err: err}
	}
	for _, m := range monthlies {
		if err := s.reports.SaveMonthlyReport(ctx, m); err != nil {
			s.logger.Error("Failed to write monthly report",
				zap.Int("year", m.Year), zap.Int("month", m.Month), zap.Error(err))
			if firstErr == nil {
				firstErr = &WriteError{Path: fmt.Sprintf("reports/monthly_%d_%02d", m.Year, m.Month), Err: err}
			}
		}
	}
	return firstErr
}

// refreshCache stores the fresh main summary JSON for dashboard reads.
// Best effort: a cache failure never fails the run.
func (s *AggregatorService) refreshCache(ctx context.Context, main *models.MainSummary) {
	if s.cache == nil {
		return
	}
	body, err := json.Marshal(main)
	if err != nil {
		s.logger.Warn("Failed to marshal summary for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, SummaryCacheKey, body, SummaryCacheTTL); err != nil {
		s.logger.Warn("Failed to refresh summary cache", zap.Error(err))
	}
}

// publishEvent notifies observers that a run finished (possibly with an
// error flag). Best effort.
func (s *AggregatorService) publishEvent(ev runEvent) {
	if s.queue == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("Failed to marshal run event", zap.Error(err))
		return
	}
	if err := s.queue.Publish(EventsQueue, body); err != nil {
		s.logger.Warn("Failed to publish run event", zap.Error(err))
	}
}
