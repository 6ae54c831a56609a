package db

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"cartoonclub-backend-go/internal/models"
)

// firestoreChangeWatcher implements ChangeWatcher over Firestore snapshot
// listeners on the users collection, the cross-user payments collection
// group, and the content collection. It mirrors the reactive trigger mode of
// the reports pipeline: any change in source data should schedule a re-run.
type firestoreChangeWatcher struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreChangeWatcher creates a ChangeWatcher backed by Firestore
// snapshot listeners.
func NewFirestoreChangeWatcher(client *firestore.Client, logger *zap.Logger) ChangeWatcher {
	return &firestoreChangeWatcher{client: client, logger: logger}
}

// Watch blocks until ctx is cancelled. Each watched query gets its own
// goroutine; a listener error ends only that listener (and is logged), never
// the caller. onChange may be invoked concurrently from multiple listeners.
func (w *firestoreChangeWatcher) Watch(ctx context.Context, onChange func()) {
	queries := map[string]firestore.Query{
		"users":    w.client.Collection(usersCollection).Query,
		"payments": w.client.CollectionGroup(paymentsCollection).Where("status", "==", models.PaymentSucceeded),
		"content":  w.client.Collection(contentCollection).Query,
	}

	var wg sync.WaitGroup
	for name, query := range queries {
		wg.Add(1)
		go func(name string, query firestore.Query) {
			defer wg.Done()
			w.watchQuery(ctx, name, query, onChange)
		}(name, query)
	}
	wg.Wait()
}

func (w *firestoreChangeWatcher) watchQuery(ctx context.Context, name string, query firestore.Query, onChange func()) {
	snaps := query.Snapshots(ctx)
	defer snaps.Stop()

	for {
		_, err := snaps.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("Change listener stopped", zap.String("source", name), zap.Error(err))
			return
		}
		onChange()
	}
}
