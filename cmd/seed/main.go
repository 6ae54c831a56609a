// Command seed populates a Firestore project with demo data: the package
// catalog, a batch of users with subscriptions and payment histories, and a
// content library with watch counters and current-week buckets. Intended for
// local development and staging.
//
// Catalog, user and content writes go through the same repositories the
// server uses; payments are written directly (they are append-only billing
// input in production, so no repository exposes a writer for them).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/config"
	"cartoonclub-backend-go/internal/core"
	"cartoonclub-backend-go/internal/db"
	"cartoonclub-backend-go/internal/models"
)

var (
	userCount    = flag.Int("users", 50, "number of users to create")
	contentCount = flag.Int("content", 20, "number of content items to create")
	seedFlag     = flag.Int64("seed", 0, "random seed (0 uses the current time)")
)

var catalog = []*models.Package{
	{ID: models.PackageFree, Name: "Free", Price: 0, DurationDays: 0,
		Features: []string{"SD quality", "Ads"}},
	{ID: models.PackageMonthly, Name: "Monthly", Price: 159, DurationDays: 30,
		Features: []string{"HD quality", "No ads"}},
	{ID: models.PackageYearly, Name: "Yearly", Price: 1500, DurationDays: 365,
		Features: []string{"HD quality", "No ads", "Early access"}},
}

var contentTitles = []string{
	"Shadow Detective", "Moon Rabbit Academy", "Iron Chef Junior",
	"Galaxy Racers", "The Lost Kingdom", "Bakery Wars", "Dragon Diary",
	"Phantom School", "Robot Friends", "Sky Pirates",
}

// paymentWriter appends one payment document under a user.
type paymentWriter func(ctx context.Context, userID, paymentID string, fields map[string]interface{}) error

// seeder generates and writes the demo dataset.
type seeder struct {
	users    db.UserRepository
	content  db.ContentRepository
	packages db.PackageRepository
	payments paymentWriter

	rng    *rand.Rand
	now    time.Time
	logger *zap.Logger
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	clients, err := db.NewClients(ctx, appConfig)
	if err != nil {
		logger.Fatal("Failed to initialize Firestore", zap.Error(err))
	}
	defer clients.Close()

	rngSeed := *seedFlag
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	logger.Info("Seeding", zap.Int64("seed", rngSeed),
		zap.Int("users", *userCount), zap.Int("content", *contentCount))

	s := &seeder{
		users:    db.NewFirestoreUserRepository(clients.Firestore),
		content:  db.NewFirestoreContentRepository(clients.Firestore),
		packages: db.NewFirestorePackageRepository(clients.Firestore),
		payments: firestorePaymentWriter(clients.Firestore),
		rng:      rand.New(rand.NewSource(rngSeed)),
		now:      time.Now().UTC(),
		logger:   logger,
	}
	if err := s.run(ctx, *userCount, *contentCount); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seed complete")
}

func firestorePaymentWriter(client *firestore.Client) paymentWriter {
	return func(ctx context.Context, userID, paymentID string, fields map[string]interface{}) error {
		_, err := client.Collection("users").Doc(userID).
			Collection("payments").Doc(paymentID).Set(ctx, fields)
		return err
	}
}

func (s *seeder) run(ctx context.Context, users, content int) error {
	for _, pkg := range catalog {
		if err := s.packages.Put(ctx, pkg); err != nil {
			return fmt.Errorf("seed package %s: %w", pkg.ID, err)
		}
	}

	for i := 0; i < users; i++ {
		if err := s.seedUser(ctx, i); err != nil {
			return fmt.Errorf("seed user %d: %w", i, err)
		}
	}

	weekKey := core.WeekKey(s.now)
	for i := 0; i < content; i++ {
		if err := s.seedContent(ctx, weekKey, i); err != nil {
			return fmt.Errorf("seed content %d: %w", i, err)
		}
	}
	return nil
}

func (s *seeder) seedUser(ctx context.Context, i int) error {
	createdAt := s.now.AddDate(0, 0, -s.rng.Intn(400))

	role := models.RoleUser
	if i == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:          uuid.NewString(),
		Email:       fmt.Sprintf("user%03d@example.com", i),
		DisplayName: fmt.Sprintf("User %03d", i),
		Role:        role,
		CreatedAt:   createdAt,
	}

	pkg := catalog[s.rng.Intn(len(catalog))]
	if pkg.ID != models.PackageFree {
		start := createdAt
		end := start.AddDate(0, 0, pkg.DurationDays)
		status := models.SubscriptionActive
		if end.Before(s.now) && s.rng.Intn(2) == 0 {
			status = models.SubscriptionExpired
		}
		user.Subscription = &models.Subscription{
			Status:    status,
			PackageID: pkg.ID,
			StartDate: start,
			EndDate:   &end,
			AutoRenew: s.rng.Intn(2) == 0,
		}
	} else {
		user.Subscription = &models.Subscription{
			Status:    models.SubscriptionActive,
			PackageID: models.PackageFree,
			StartDate: createdAt,
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	// Paying users get a succeeded payment per elapsed billing period, plus
	// the occasional failed attempt so the status filter has something to do.
	if user.Subscription.PackageID == models.PackageFree {
		return nil
	}
	periods := int(s.now.Sub(createdAt).Hours()/24)/pkg.DurationDays + 1
	if periods > 6 {
		periods = 6
	}
	for p := 0; p < periods; p++ {
		err := s.payments(ctx, user.ID, uuid.NewString(), map[string]interface{}{
			"amount":    pkg.Price,
			"date":      createdAt.AddDate(0, 0, p*pkg.DurationDays),
			"status":    models.PaymentSucceeded,
			"packageId": pkg.ID,
		})
		if err != nil {
			return err
		}
	}
	if s.rng.Intn(5) == 0 {
		err := s.payments(ctx, user.ID, uuid.NewString(), map[string]interface{}{
			"amount":    pkg.Price,
			"date":      s.now.AddDate(0, 0, -s.rng.Intn(30)),
			"status":    models.PaymentFailed,
			"packageId": pkg.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedContent(ctx context.Context, weekKey string, i int) error {
	title := fmt.Sprintf("%s %d", contentTitles[i%len(contentTitles)], i/len(contentTitles)+1)

	contentType := models.ContentSeries
	if s.rng.Intn(3) == 0 {
		contentType = models.ContentMovie
	}

	content := &models.Content{
		ID:                uuid.NewString(),
		Title:             title,
		Type:              contentType,
		TotalWatchMinutes: int64(s.rng.Intn(50000)),
		FollowerCount:     int64(s.rng.Intn(2000)),
	}
	if err := s.content.Create(ctx, content); err != nil {
		return err
	}

	// The merge-increment upsert creates the bucket on first write, same as
	// the playback flush path does for a fresh week.
	return s.content.AddWeeklyMinutes(ctx, content.ID, weekKey, int64(s.rng.Intn(3000)))
}
