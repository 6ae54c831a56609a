package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/models"
)

type fakeUserRepo struct {
	users    []*models.User
	payments []*models.Payment

	listErr     error
	groupErr    error
	perUserErr  map[string]error
	listGate    chan struct{} // when set, ListAll blocks until the gate closes
	listStarted chan struct{}
}

func (f *fakeUserRepo) ListAll(ctx context.Context) ([]*models.User, error) {
	if f.listStarted != nil {
		f.listStarted <- struct{}{}
	}
	if f.listGate != nil {
		<-f.listGate
	}
	return f.users, f.listErr
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserRepo) ListSucceededPayments(ctx context.Context) ([]*models.Payment, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return f.payments, nil
}

func (f *fakeUserRepo) ListPaymentsForUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	if err := f.perUserErr[userID]; err != nil {
		return nil, err
	}
	var out []*models.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeContentRepo struct {
	content   []*models.Content
	weekly    map[string]int64 // contentID -> minutes
	weeklyErr map[string]error
}

func (f *fakeContentRepo) ListAll(ctx context.Context) ([]*models.Content, error) {
	return f.content, nil
}

func (f *fakeContentRepo) Create(ctx context.Context, c *models.Content) error {
	f.content = append(f.content, c)
	return nil
}

func (f *fakeContentRepo) WeeklyMinutes(ctx context.Context, contentID, weekKey string) (int64, error) {
	if err := f.weeklyErr[contentID]; err != nil {
		return 0, err
	}
	return f.weekly[contentID], nil
}

func (f *fakeContentRepo) AddWatchMinutes(ctx context.Context, contentID string, minutes int64) error {
	return nil
}

func (f *fakeContentRepo) AddWeeklyMinutes(ctx context.Context, contentID, weekKey string, minutes int64) error {
	return nil
}

func (f *fakeContentRepo) AddFollowers(ctx context.Context, contentID string, delta int64) error {
	return nil
}

type fakeReportRepo struct {
	mu        sync.Mutex
	main      *models.MainSummary
	daily     *models.DailySummary
	monthlies []*models.MonthlyReport

	mainErr error
	saves   int
}

func (f *fakeReportRepo) SaveMainSummary(ctx context.Context, s *models.MainSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mainErr != nil {
		return f.mainErr
	}
	f.main = s
	f.saves++
	return nil
}

func (f *fakeReportRepo) SaveDailySummary(ctx context.Context, s *models.DailySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.daily = s
	return nil
}

func (f *fakeReportRepo) SaveMonthlyReport(ctx context.Context, r *models.MonthlyReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monthlies = append(f.monthlies, r)
	return nil
}

func (f *fakeReportRepo) MainSummary(ctx context.Context) (*models.MainSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.main == nil {
		return nil, errors.New("not found")
	}
	return f.main, nil
}

func (f *fakeReportRepo) MonthlyReports(ctx context.Context, now time.Time, months int) ([]*models.MonthlyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monthlies, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.entries[key] = string(v)
	case string:
		f.entries[key] = v
	}
	f.ttls[key] = expiration
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	delete(f.ttls, key)
	return nil
}

func newTestAggregator(users *fakeUserRepo, content *fakeContentRepo, reports *fakeReportRepo, opts ...AggregatorOption) *AggregatorService {
	opts = append([]AggregatorOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewAggregatorService(users, content, reports, zap.NewNop(), opts...)
}

func TestAggregatorService_RunWritesAllSummaries(t *testing.T) {
	users := &fakeUserRepo{
		users: []*models.User{member("u1", 10, activeSub(models.PackageMonthly))},
		payments: []*models.Payment{{
			ID: "p1", UserID: "u1",
			Amount: decimal.NewFromInt(159),
			Date:   testNow.AddDate(0, 0, -10),
			Status: models.PaymentSucceeded, PackageID: models.PackageMonthly,
		}},
	}
	content := &fakeContentRepo{
		content: []*models.Content{{ID: "c1", Title: "Alpha", TotalWatchMinutes: 120}},
		weekly:  map[string]int64{"c1": 45},
	}
	reports := &fakeReportRepo{}

	svc := newTestAggregator(users, content, reports)
	defer svc.Close()

	result, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.False(t, result.Degraded)

	require.NotNil(t, reports.main)
	require.Equal(t, 159.0, reports.main.TotalRevenue)
	require.Equal(t, 1, reports.main.NewMembers)
	require.Equal(t, 1, reports.main.TotalMembers)
	require.Len(t, reports.main.MonthlyTrends, 12)
	require.Equal(t, int64(45), reports.main.Top10Weekly[0].WatchMinutes)

	require.NotNil(t, reports.daily)
	require.Equal(t, reports.main.TotalRevenue, reports.daily.TotalRevenue)
	require.Len(t, reports.monthlies, 12)
}

func TestAggregatorService_RunIsIdempotent(t *testing.T) {
	users := &fakeUserRepo{
		users: []*models.User{member("u1", 10, activeSub(models.PackageMonthly))},
	}
	reports := &fakeReportRepo{}
	svc := newTestAggregator(users, &fakeContentRepo{}, reports)
	defer svc.Close()

	_, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	first := *reports.main

	_, err = svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.Equal(t, first, *reports.main)
}

func TestAggregatorService_SnapshotFailureAbortsWithoutWrites(t *testing.T) {
	users := &fakeUserRepo{listErr: errors.New("firestore unavailable")}
	reports := &fakeReportRepo{}

	var alertSubject string
	svc := newTestAggregator(users, &fakeContentRepo{}, reports,
		WithAlerts(func(subject, body string) { alertSubject = subject }))
	defer svc.Close()

	_, err := svc.Run(context.Background(), TriggerScheduled)
	require.Error(t, err)

	var loadErr *SnapshotLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, "users", loadErr.Collection)

	require.Nil(t, reports.main)
	require.Nil(t, reports.daily)
	require.Empty(t, reports.monthlies)
	require.NotEmpty(t, alertSubject)
}

func TestAggregatorService_WeeklyFailureDegradesButCompletes(t *testing.T) {
	content := &fakeContentRepo{
		content: []*models.Content{
			{ID: "c1", Title: "Alpha"},
			{ID: "c2", Title: "Beta"},
		},
		weekly:    map[string]int64{"c1": 30},
		weeklyErr: map[string]error{"c2": errors.New("deadline exceeded")},
	}
	reports := &fakeReportRepo{}
	svc := newTestAggregator(&fakeUserRepo{}, content, reports)
	defer svc.Close()

	result, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, result.Degraded)
	require.Equal(t, 1, result.PartialErrors)
	require.NotNil(t, reports.main)
}

func TestAggregatorService_FallsBackToPerUserPayments(t *testing.T) {
	users := &fakeUserRepo{
		users: []*models.User{
			member("u1", 10, activeSub(models.PackageMonthly)),
			member("u2", 10, activeSub(models.PackageMonthly)),
		},
		payments: []*models.Payment{
			{ID: "p1", UserID: "u1", Amount: decimal.NewFromInt(159),
				Date: testNow.AddDate(0, 0, -5), Status: models.PaymentSucceeded},
			{ID: "p2", UserID: "u2", Amount: decimal.NewFromInt(159),
				Date: testNow.AddDate(0, 0, -5), Status: models.PaymentSucceeded},
		},
		groupErr:   errors.New("index missing"),
		perUserErr: map[string]error{"u2": errors.New("deadline exceeded")},
	}
	reports := &fakeReportRepo{}
	svc := newTestAggregator(users, &fakeContentRepo{}, reports)
	defer svc.Close()

	result, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	// u1's payment survives via the per-user fallback, u2's failure only
	// degrades the run.
	require.Equal(t, 159.0, reports.main.TotalRevenue)
	require.True(t, result.Degraded)
	require.Equal(t, 1, result.PartialErrors)
}

func TestAggregatorService_WriteFailureReturnsWriteError(t *testing.T) {
	reports := &fakeReportRepo{mainErr: errors.New("quota exceeded")}
	svc := newTestAggregator(&fakeUserRepo{}, &fakeContentRepo{}, reports)
	defer svc.Close()

	_, err := svc.Run(context.Background(), TriggerManual)
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	require.Equal(t, "reports/main_summary", writeErr.Path)

	// The other documents were still written.
	require.NotNil(t, reports.daily)
	require.Len(t, reports.monthlies, 12)
}

func TestAggregatorService_SingleFlightCoalesces(t *testing.T) {
	users := &fakeUserRepo{
		listGate:    make(chan struct{}),
		listStarted: make(chan struct{}, 4),
	}
	reports := &fakeReportRepo{}
	svc := newTestAggregator(users, &fakeContentRepo{}, reports)
	defer svc.Close()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), TriggerManual)
		done <- err
	}()
	<-users.listStarted // first run is inside the snapshot load

	// Every trigger arriving during the run coalesces into one follow-up.
	_, err := svc.Run(context.Background(), TriggerChange)
	require.ErrorIs(t, err, ErrRunInProgress)
	_, err = svc.Run(context.Background(), TriggerChange)
	require.ErrorIs(t, err, ErrRunInProgress)

	close(users.listGate)
	require.NoError(t, <-done)

	// The single queued follow-up run starts on release.
	select {
	case <-users.listStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("queued follow-up run never started")
	}

	require.Eventually(t, func() bool {
		reports.mu.Lock()
		defer reports.mu.Unlock()
		return reports.saves == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAggregatorService_RefreshesCacheWithTTL(t *testing.T) {
	users := &fakeUserRepo{
		users: []*models.User{member("u1", 10, activeSub(models.PackageMonthly))},
		payments: []*models.Payment{{
			ID: "p1", UserID: "u1",
			Amount: decimal.NewFromInt(159),
			Date:   testNow.AddDate(0, 0, -10),
			Status: models.PaymentSucceeded, PackageID: models.PackageMonthly,
		}},
	}
	cached := newFakeCache()
	svc := newTestAggregator(users, &fakeContentRepo{}, &fakeReportRepo{}, WithCache(cached))
	defer svc.Close()

	_, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)

	body, _ := cached.Get(context.Background(), SummaryCacheKey)
	require.NotEmpty(t, body)
	require.Contains(t, body, `"totalRevenue":159`)

	// A dead refresh pipeline must not leave an immortal entry behind.
	require.Equal(t, SummaryCacheTTL, cached.ttls[SummaryCacheKey])
}

func TestAggregatorService_ClosedRejectsRuns(t *testing.T) {
	svc := newTestAggregator(&fakeUserRepo{}, &fakeContentRepo{}, &fakeReportRepo{})
	svc.Close()

	_, err := svc.Run(context.Background(), TriggerManual)
	require.ErrorIs(t, err, ErrClosed)
}
