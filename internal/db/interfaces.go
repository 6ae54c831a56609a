package db

import (
	"context"
	"time"

	"cartoonclub-backend-go/internal/models"
)

// UserRepository defines the read/write contract for user documents and their
// payments subcollections.
type UserRepository interface {
	ListAll(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error

	// ListSucceededPayments queries the payments subcollections of all users
	// at once (collection-group query), filtered to succeeded rows. Preferred
	// over per-user loads for scale.
	ListSucceededPayments(ctx context.Context) ([]*models.Payment, error)

	// ListPaymentsForUser is the per-user fallback; it returns succeeded
	// payments for a single user.
	ListPaymentsForUser(ctx context.Context, userID string) ([]*models.Payment, error)
}

// ContentRepository defines the contract for content documents, their
// atomic counters, and the per-week watch-minute buckets.
type ContentRepository interface {
	ListAll(ctx context.Context) ([]*models.Content, error)
	Create(ctx context.Context, content *models.Content) error

	// WeeklyMinutes reads content/{id}/weekly/{weekKey}.minutes, returning 0
	// when the bucket does not exist.
	WeeklyMinutes(ctx context.Context, contentID, weekKey string) (int64, error)

	// AddWatchMinutes atomically increments the content's totalWatchMinutes
	// counter.
	AddWatchMinutes(ctx context.Context, contentID string, minutes int64) error

	// AddWeeklyMinutes upserts the weekly bucket with an atomic minute
	// increment and refreshes its updatedAt server timestamp.
	AddWeeklyMinutes(ctx context.Context, contentID, weekKey string, minutes int64) error

	// AddFollowers atomically adjusts followerCount by delta (±1).
	AddFollowers(ctx context.Context, contentID string, delta int64) error
}

// ReportRepository defines the contract for derived summary documents under
// the reports collection. Summary writes are full-document overwrites.
type ReportRepository interface {
	SaveMainSummary(ctx context.Context, summary *models.MainSummary) error
	SaveDailySummary(ctx context.Context, summary *models.DailySummary) error
	SaveMonthlyReport(ctx context.Context, report *models.MonthlyReport) error

	MainSummary(ctx context.Context) (*models.MainSummary, error)

	// MonthlyReports reads the trailing `months` monthly documents ending at
	// the month of `now`, oldest first. Missing months are skipped.
	MonthlyReports(ctx context.Context, now time.Time, months int) ([]*models.MonthlyReport, error)
}

// PackageRepository defines the contract for the package catalog.
type PackageRepository interface {
	ListAll(ctx context.Context) ([]*models.Package, error)
	Put(ctx context.Context, pkg *models.Package) error
}

// ChangeWatcher delivers store-level change notifications for the collections
// feeding the aggregation pipeline.
type ChangeWatcher interface {
	// Watch blocks listeners on users, payments and content until ctx is
	// cancelled, invoking onChange for every snapshot notification. The
	// debounce/coalescing policy is the caller's concern.
	Watch(ctx context.Context, onChange func())
}
