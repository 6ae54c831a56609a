package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/db"
)

// WatchTimeService accumulates playback seconds per content in memory and
// periodically flushes whole minutes to the store, applying each flush to
// both the all-time counter and the current ISO-week bucket. Sub-minute
// remainders carry over to the next flush so no watch time is lost.
type WatchTimeService struct {
	content db.ContentRepository
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	seconds map[string]int64

	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
	done     chan struct{}
	started  bool
}

// NewWatchTimeService creates a WatchTimeService flushing at the given
// interval.
func NewWatchTimeService(content db.ContentRepository, interval time.Duration, logger *zap.Logger) *WatchTimeService {
	return &WatchTimeService{
		content:  content,
		logger:   logger,
		now:      time.Now,
		seconds:  make(map[string]int64),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// AddWatchSeconds records playback seconds for a content item. Cheap and
// non-blocking; the store is only touched on flush.
func (s *WatchTimeService) AddWatchSeconds(contentID string, seconds int64) {
	if contentID == "" || seconds <= 0 {
		return
	}
	s.mu.Lock()
	s.seconds[contentID] += seconds
	s.mu.Unlock()
}

// RecordWatchMinutes applies already-whole minutes directly to the store,
// bypassing the accumulator. Used when a client reports a final total on
// playback completion.
func (s *WatchTimeService) RecordWatchMinutes(ctx context.Context, contentID string, minutes int64, at time.Time) error {
	if minutes <= 0 {
		return nil
	}
	if err := s.content.AddWatchMinutes(ctx, contentID, minutes); err != nil {
		return err
	}
	return s.content.AddWeeklyMinutes(ctx, contentID, WeekKey(at), minutes)
}

// Follow increments the follower count of a content item.
func (s *WatchTimeService) Follow(ctx context.Context, contentID string) error {
	return s.content.AddFollowers(ctx, contentID, 1)
}

// Unfollow decrements the follower count of a content item.
func (s *WatchTimeService) Unfollow(ctx context.Context, contentID string) error {
	return s.content.AddFollowers(ctx, contentID, -1)
}

// Flush writes the accumulated whole minutes of every content item to the
// store. On a per-content write failure the full accumulated seconds are
// restored so the minutes retry on the next flush.
func (s *WatchTimeService) Flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.seconds
	s.seconds = make(map[string]int64, len(batch))
	s.mu.Unlock()

	at := s.now()
	weekKey := WeekKey(at)

	for contentID, secs := range batch {
		minutes := secs / 60
		remainder := secs % 60
		if minutes == 0 {
			s.restore(contentID, secs)
			continue
		}

		if err := s.content.AddWatchMinutes(ctx, contentID, minutes); err != nil {
			s.logger.Warn("Watch time flush failed, retrying next interval",
				zap.String("contentID", contentID), zap.Error(err))
			s.restore(contentID, secs)
			continue
		}
		if err := s.content.AddWeeklyMinutes(ctx, contentID, weekKey, minutes); err != nil {
			// The all-time counter took the minutes; only re-queue the
			// sub-minute remainder to avoid double counting.
			s.logger.Warn("Weekly bucket flush failed",
				zap.String("contentID", contentID), zap.String("weekKey", weekKey), zap.Error(err))
		}
		s.restore(contentID, remainder)
	}
}

// FlushContent immediately flushes a single content item, returning the
// minutes written. Used when a playback session ends.
func (s *WatchTimeService) FlushContent(ctx context.Context, contentID string) (int64, error) {
	s.mu.Lock()
	secs := s.seconds[contentID]
	delete(s.seconds, contentID)
	s.mu.Unlock()

	minutes := secs / 60
	remainder := secs % 60
	if minutes == 0 {
		s.restore(contentID, secs)
		return 0, nil
	}

	at := s.now()
	if err := s.content.AddWatchMinutes(ctx, contentID, minutes); err != nil {
		s.restore(contentID, secs)
		return 0, err
	}
	if err := s.content.AddWeeklyMinutes(ctx, contentID, WeekKey(at), minutes); err != nil {
		s.restore(contentID, remainder)
		return minutes, err
	}
	s.restore(contentID, remainder)
	return minutes, nil
}

func (s *WatchTimeService) restore(contentID string, secs int64) {
	if secs <= 0 {
		return
	}
	s.mu.Lock()
	s.seconds[contentID] += secs
	s.mu.Unlock()
}

// Start begins the periodic flush loop.
func (s *WatchTimeService) Start() {
	if s.started {
		return
	}
	s.started = true
	s.ticker = time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.stop:
				return
			case <-s.ticker.C:
				s.Flush(context.Background())
			}
		}
	}()
	s.logger.Info("Watch time flush loop started", zap.Duration("interval", s.interval))
}

// Close stops the flush loop and performs a final flush so accumulated
// minutes survive a shutdown.
func (s *WatchTimeService) Close() {
	if s.started {
		s.ticker.Stop()
		close(s.stop)
		<-s.done
	}
	s.Flush(context.Background())
}
