package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/core"
	"cartoonclub-backend-go/internal/models"
)

type fakeUserStore struct {
	created []*models.User
}

func (f *fakeUserStore) ListAll(ctx context.Context) ([]*models.User, error) { return f.created, nil }
func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUserStore) Create(ctx context.Context, u *models.User) error {
	f.created = append(f.created, u)
	return nil
}
func (f *fakeUserStore) ListSucceededPayments(ctx context.Context) ([]*models.Payment, error) {
	return nil, nil
}
func (f *fakeUserStore) ListPaymentsForUser(ctx context.Context, id string) ([]*models.Payment, error) {
	return nil, nil
}

type fakeContentStore struct {
	created []*models.Content
	weekly  map[string]int64 // "contentID/weekKey" -> minutes
}

func (f *fakeContentStore) ListAll(ctx context.Context) ([]*models.Content, error) {
	return f.created, nil
}
func (f *fakeContentStore) Create(ctx context.Context, c *models.Content) error {
	f.created = append(f.created, c)
	return nil
}
func (f *fakeContentStore) WeeklyMinutes(ctx context.Context, contentID, weekKey string) (int64, error) {
	return f.weekly[contentID+"/"+weekKey], nil
}
func (f *fakeContentStore) AddWatchMinutes(ctx context.Context, contentID string, minutes int64) error {
	return nil
}
func (f *fakeContentStore) AddWeeklyMinutes(ctx context.Context, contentID, weekKey string, minutes int64) error {
	if f.weekly == nil {
		f.weekly = make(map[string]int64)
	}
	f.weekly[contentID+"/"+weekKey] += minutes
	return nil
}
func (f *fakeContentStore) AddFollowers(ctx context.Context, contentID string, delta int64) error {
	return nil
}

type fakePackageStore struct {
	put map[string]*models.Package
}

func (f *fakePackageStore) ListAll(ctx context.Context) ([]*models.Package, error) { return nil, nil }
func (f *fakePackageStore) Put(ctx context.Context, pkg *models.Package) error {
	if f.put == nil {
		f.put = make(map[string]*models.Package)
	}
	f.put[pkg.ID] = pkg
	return nil
}

type recordedPayment struct {
	userID string
	fields map[string]interface{}
}

func newTestSeeder(users *fakeUserStore, content *fakeContentStore, packages *fakePackageStore, payments *[]recordedPayment) *seeder {
	return &seeder{
		users:    users,
		content:  content,
		packages: packages,
		payments: func(ctx context.Context, userID, paymentID string, fields map[string]interface{}) error {
			*payments = append(*payments, recordedPayment{userID: userID, fields: fields})
			return nil
		},
		rng:    rand.New(rand.NewSource(1)),
		now:    time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		logger: zap.NewNop(),
	}
}

func TestSeeder_Run(t *testing.T) {
	users := &fakeUserStore{}
	content := &fakeContentStore{}
	packages := &fakePackageStore{}
	var payments []recordedPayment

	s := newTestSeeder(users, content, packages, &payments)
	require.NoError(t, s.run(context.Background(), 30, 12))

	t.Run("package catalog", func(t *testing.T) {
		require.Len(t, packages.put, 3)
		require.Equal(t, 0.0, packages.put[models.PackageFree].Price)
		require.Equal(t, 159.0, packages.put[models.PackageMonthly].Price)
		require.Equal(t, 1500.0, packages.put[models.PackageYearly].Price)
	})

	t.Run("users", func(t *testing.T) {
		require.Len(t, users.created, 30)

		admins := 0
		for _, u := range users.created {
			require.NotEmpty(t, u.ID)
			require.NotNil(t, u.Subscription)
			require.False(t, u.CreatedAt.After(s.now))
			if u.IsAdmin() {
				admins++
			}
		}
		require.Equal(t, 1, admins)
	})

	t.Run("payments belong to paying members only", func(t *testing.T) {
		require.NotEmpty(t, payments)

		paying := make(map[string]string) // userID -> packageID
		for _, u := range users.created {
			if u.Subscription.PackageID != models.PackageFree {
				paying[u.ID] = u.Subscription.PackageID
			}
		}
		succeededBy := make(map[string]int)
		for _, p := range payments {
			pkgID, ok := paying[p.userID]
			require.True(t, ok, "payment for a non-paying user %s", p.userID)
			require.Equal(t, pkgID, p.fields["packageId"])
			if p.fields["status"] == models.PaymentSucceeded {
				succeededBy[p.userID]++
			}
		}
		for userID := range paying {
			require.GreaterOrEqual(t, succeededBy[userID], 1,
				"paying user %s has no succeeded payment", userID)
		}
	})

	t.Run("content and weekly buckets", func(t *testing.T) {
		require.Len(t, content.created, 12)

		weekKey := core.WeekKey(s.now)
		for _, c := range content.created {
			require.NotEmpty(t, c.ID)
			require.NotEmpty(t, c.Title)
			_, hasBucket := content.weekly[c.ID+"/"+weekKey]
			require.True(t, hasBucket, "content %s has no current-week bucket", c.ID)
		}
	})
}
