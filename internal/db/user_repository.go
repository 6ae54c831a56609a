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
	usersCollection    = "users"
	paymentsCollection = "payments"
)

// ErrNotFound is returned when a document does not exist in Firestore.
var ErrNotFound = errors.New("document not found")

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for UserRepository.")
	}
	return &firestoreUserRepository{client: client}
}

// ListAll retrieves every user document. Documents that fail to decode are
// logged and skipped rather than aborting the listing.
func (r *firestoreUserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []*models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}

		var user models.User
		if err := doc.DataTo(&user); err != nil {
			log.Printf("Error decoding user data (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		user.ID = doc.Ref.ID
		users = append(users, &user)
	}
	return users, nil
}

// GetByID retrieves a user document by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}

	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}

// Create adds a new user document, using the Firebase Auth UID as the
// document ID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s' already exists: %w", user.ID, err)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// ListSucceededPayments queries every user's payments subcollection in one
// collection-group query, filtered server-side to succeeded rows. The owning
// user ID is recovered from the document path (users/{userId}/payments/{id}).
func (r *firestoreUserRepository) ListSucceededPayments(ctx context.Context) ([]*models.Payment, error) {
	iter := r.client.CollectionGroup(paymentsCollection).
		Where("status", "==", models.PaymentSucceeded).
		Documents(ctx)
	defer iter.Stop()

	var payments []*models.Payment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate payments collection group: %w", err)
		}
		payments = append(payments, paymentFromDoc(doc))
	}
	return payments, nil
}

// ListPaymentsForUser retrieves one user's succeeded payments.
func (r *firestoreUserRepository) ListPaymentsForUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for ListPaymentsForUser operation")
	}
	iter := r.client.Collection(usersCollection).Doc(userID).Collection(paymentsCollection).
		Where("status", "==", models.PaymentSucceeded).
		Documents(ctx)
	defer iter.Stop()

	var payments []*models.Payment
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate payments for user '%s': %w", userID, err)
		}
		payments = append(payments, paymentFromDoc(doc))
	}
	return payments, nil
}

// paymentFromDoc decodes a payment document through the normalization helpers
// rather than DataTo: amount and date fields vary in type across writers, and
// the coercion rules (bad amount -> 0, never NaN) live in exactly one place.
func paymentFromDoc(doc *firestore.DocumentSnapshot) *models.Payment {
	data := doc.Data()
	p := &models.Payment{
		ID:     doc.Ref.ID,
		Amount: coerceAmount(data["amount"]),
		Date:   coerceTime(data["date"]),
	}
	if s, ok := data["status"].(string); ok {
		p.Status = s
	}
	if s, ok := data["packageId"].(string); ok {
		p.PackageID = s
	}
	if parent := doc.Ref.Parent.Parent; parent != nil {
		p.UserID = parent.ID
	}
	return p
}
