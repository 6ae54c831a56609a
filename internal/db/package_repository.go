package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"cartoonclub-backend-go/internal/models"
)

const packagesCollection = "packages"

// firestorePackageRepository implements the PackageRepository interface using Firestore.
type firestorePackageRepository struct {
	client *firestore.Client
}

// NewFirestorePackageRepository creates a new instance of firestorePackageRepository.
func NewFirestorePackageRepository(client *firestore.Client) PackageRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PackageRepository.")
	}
	return &firestorePackageRepository{client: client}
}

// ListAll retrieves the package catalog ordered by price ascending.
func (r *firestorePackageRepository) ListAll(ctx context.Context) ([]*models.Package, error) {
	iter := r.client.Collection(packagesCollection).OrderBy("price", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var pkgs []*models.Package
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate packages: %w", err)
		}

		var pkg models.Package
		if err := doc.DataTo(&pkg); err != nil {
			log.Printf("Error decoding package data (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		pkg.ID = doc.Ref.ID
		pkgs = append(pkgs, &pkg)
	}
	return pkgs, nil
}

// Put writes a package document keyed by its ID, overwriting any previous
// version. Used by the seeding tool.
func (r *firestorePackageRepository) Put(ctx context.Context, pkg *models.Package) error {
	if pkg.ID == "" {
		return errors.New("package ID cannot be empty for Put operation")
	}
	_, err := r.client.Collection(packagesCollection).Doc(pkg.ID).Set(ctx, pkg)
	if err != nil {
		return fmt.Errorf("failed to write package '%s': %w", pkg.ID, err)
	}
	return nil
}
