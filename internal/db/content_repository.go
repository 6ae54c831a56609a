package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cartoonclub-backend-go/internal/models"
)

const (
	contentCollection = "content"
	weeklyCollection  = "weekly"
)

// firestoreContentRepository implements the ContentRepository interface using Firestore.
type firestoreContentRepository struct {
	client *firestore.Client
}

// NewFirestoreContentRepository creates a new instance of firestoreContentRepository.
func NewFirestoreContentRepository(client *firestore.Client) ContentRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ContentRepository.")
	}
	return &firestoreContentRepository{client: client}
}

// ListAll retrieves every content document.
func (r *firestoreContentRepository) ListAll(ctx context.Context) ([]*models.Content, error) {
	iter := r.client.Collection(contentCollection).Documents(ctx)
	defer iter.Stop()

	var items []*models.Content
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate content: %w", err)
		}

		var c models.Content
		if err := doc.DataTo(&c); err != nil {
			log.Printf("Error decoding content data (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		c.ID = doc.Ref.ID
		items = append(items, &c)
	}
	return items, nil
}

// Create adds a new content document with the given ID.
func (r *firestoreContentRepository) Create(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		return errors.New("content ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(contentCollection).Doc(content.ID).Create(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to create content with ID '%s': %w", content.ID, err)
	}
	return nil
}

// WeeklyMinutes reads the minute counter of one weekly bucket. A missing
// bucket is not an error; it reads as zero.
func (r *firestoreContentRepository) WeeklyMinutes(ctx context.Context, contentID, weekKey string) (int64, error) {
	if contentID == "" || weekKey == "" {
		return 0, errors.New("contentID and weekKey cannot be empty for WeeklyMinutes operation")
	}
	docSnap, err := r.weeklyDoc(contentID, weekKey).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get weekly bucket '%s' for content '%s': %w", weekKey, contentID, err)
	}

	var bucket models.WeeklyBucket
	if err := docSnap.DataTo(&bucket); err != nil {
		return 0, fmt.Errorf("failed to decode weekly bucket '%s' for content '%s': %w", weekKey, contentID, err)
	}
	return bucket.Minutes, nil
}

// AddWatchMinutes atomically increments totalWatchMinutes on the content
// document. Concurrent playback sessions must never lose increments, so this
// is a server-side increment, not read-modify-write.
func (r *firestoreContentRepository) AddWatchMinutes(ctx context.Context, contentID string, minutes int64) error {
	if contentID == "" {
		return errors.New("contentID cannot be empty for AddWatchMinutes operation")
	}
	_, err := r.client.Collection(contentCollection).Doc(contentID).Update(ctx, []firestore.Update{
		{Path: "totalWatchMinutes", Value: firestore.Increment(minutes)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("content with ID '%s' not found: %w", contentID, ErrNotFound)
		}
		return fmt.Errorf("failed to increment watch minutes for content '%s': %w", contentID, err)
	}
	return nil
}

// AddWeeklyMinutes upserts content/{id}/weekly/{weekKey} with an atomic
// minute increment. Set with MergeAll creates the bucket on first write of a
// new week.
func (r *firestoreContentRepository) AddWeeklyMinutes(ctx context.Context, contentID, weekKey string, minutes int64) error {
	if contentID == "" || weekKey == "" {
		return errors.New("contentID and weekKey cannot be empty for AddWeeklyMinutes operation")
	}
	_, err := r.weeklyDoc(contentID, weekKey).Set(ctx, map[string]interface{}{
		"minutes":   firestore.Increment(minutes),
		"updatedAt": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly bucket '%s' for content '%s': %w", weekKey, contentID, err)
	}
	return nil
}

// AddFollowers atomically adjusts followerCount by delta.
func (r *firestoreContentRepository) AddFollowers(ctx context.Context, contentID string, delta int64) error {
	if contentID == "" {
		return errors.New("contentID cannot be empty for AddFollowers operation")
	}
	_, err := r.client.Collection(contentCollection).Doc(contentID).Update(ctx, []firestore.Update{
		{Path: "followerCount", Value: firestore.Increment(delta)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("content with ID '%s' not found: %w", contentID, ErrNotFound)
		}
		return fmt.Errorf("failed to adjust follower count for content '%s': %w", contentID, err)
	}
	return nil
}

func (r *firestoreContentRepository) weeklyDoc(contentID, weekKey string) *firestore.DocumentRef {
	return r.client.Collection(contentCollection).Doc(contentID).Collection(weeklyCollection).Doc(weekKey)
}
