package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/planregistration/internal/models"
)

var (
	// ErrRegistrationExists is returned by Create when the registration id is taken.
	ErrRegistrationExists = errors.New("registration already exists")
	// ErrRegistrationNotFound is returned by Get for unknown registration ids.
	ErrRegistrationNotFound = errors.New("registration not found")
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RegistrationStore keeps one Firestore document per registration, keyed by
// the registration id.
type RegistrationStore struct {
	client     *firestore.Client
	collection string
}

func NewRegistrationStore(client *firestore.Client, collection string) *RegistrationStore {
	return &RegistrationStore{client: client, collection: collection}
}

func (s *RegistrationStore) doc(registrationID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(registrationID)
}

// Create writes a new registration document. It never overwrites.
func (s *RegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	if reg.RegistrationID == "" {
		return errors.New("registration id must be set")
	}
	if _, err := s.doc(reg.RegistrationID).Create(ctx, reg); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%s: %w", reg.RegistrationID, ErrRegistrationExists)
		}
		return fmt.Errorf("failed to create registration %s: %w", reg.RegistrationID, err)
	}
	return nil
}

// Get loads a registration document.
func (s *RegistrationStore) Get(ctx context.Context, registrationID string) (*models.Registration, error) {
	snap, err := s.doc(registrationID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s: %w", registrationID, ErrRegistrationNotFound)
		}
		return nil, fmt.Errorf("failed to read registration %s: %w", registrationID, err)
	}
	var reg models.Registration
	if err := snap.DataTo(&reg); err != nil {
		return nil, fmt.Errorf("failed to decode registration %s: %w", registrationID, err)
	}
	reg.RegistrationID = snap.Ref.ID
	return &reg, nil
}

// Update applies field updates to an existing registration document.
func (s *RegistrationStore) Update(ctx context.Context, registrationID string, updates []firestore.Update) error {
	if _, err := s.doc(registrationID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s: %w", registrationID, ErrRegistrationNotFound)
		}
		return fmt.Errorf("failed to update registration %s: %w", registrationID, err)
	}
	return nil
}

// StatusUpdates builds the updates that move a registration to status,
// recording errDetails when it is non-empty.
func StatusUpdates(status, errDetails string) []firestore.Update {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	return updates
}
