package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/gcp"
	"github.com/Lllllllleong/planregistration/internal/models"
)

// RegistrationRepository persists registration documents.
// *gcp.RegistrationStore implements it.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	Get(ctx context.Context, registrationID string) (*models.Registration, error)
	Update(ctx context.Context, registrationID string, updates []firestore.Update) error
}

// BlobStore stores whole objects. *gcp.ObjectStore implements it.
type BlobStore interface {
	Put(ctx context.Context, bucket, object, contentType string, content []byte) (string, error)
	Get(ctx context.Context, bucket, object string) ([]byte, error)
}

// Registrar is the registration backend: it stores the house photo and
// creates the registration document in parallel.
type Registrar struct {
	store       RegistrationRepository
	blobs       BlobStore
	photoBucket string
	now         func() time.Time
}

func NewRegistrar(store RegistrationRepository, blobs BlobStore, photoBucket string) *Registrar {
	return &Registrar{store: store, blobs: blobs, photoBucket: photoBucket, now: time.Now}
}

// Register implements wizard.Submitter.
func (r *Registrar) Register(ctx context.Context, registrationID string, rec models.RegistrationRecord, plan catalog.Plan) error {
	logCtx := slog.With("registrationId", registrationID, "planId", plan.ID)

	reg := &models.Registration{
		RegistrationID:       registrationID,
		Status:               models.StatusSubmitted,
		PlanID:               plan.ID,
		PlanName:             plan.Name,
		MonthlyPrice:         plan.MonthlyPrice,
		FullName:             rec.FullName,
		NationalID:           rec.NationalID,
		Email:                rec.Email,
		Phone:                rec.Phone,
		InstallAddress:       rec.InstallAddress,
		PreferredInstallDate: rec.PreferredInstallDate,
		CreatedAt:            r.now(),
	}
	var photoObject, contentType string
	if rec.HasPhoto() {
		var ext string
		contentType, ext = photoType(rec.HousePhoto)
		photoObject = fmt.Sprintf("%s/house-photo%s", registrationID, ext)
		reg.HousePhotoURI = gcp.GCSURI(r.photoBucket, photoObject)
	}

	var created atomic.Bool
	eg, gctx := errgroup.WithContext(ctx)
	if photoObject != "" {
		eg.Go(func() error {
			if _, err := r.blobs.Put(gctx, r.photoBucket, photoObject, contentType, rec.HousePhoto); err != nil {
				return fmt.Errorf("house photo: %w", err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		if err := r.store.Create(gctx, reg); err != nil {
			return fmt.Errorf("registration document: %w", err)
		}
		created.Store(true)
		return nil
	})
	if err := eg.Wait(); err != nil {
		logCtx.Error("Registration failed.", "error", err)
		if created.Load() {
			if uerr := r.store.Update(ctx, registrationID, gcp.StatusUpdates(models.StatusFailed, err.Error())); uerr != nil {
				logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a registration error.", "updateError", uerr)
			}
		}
		return err
	}
	logCtx.Info("Registration stored.", "housePhotoUri", reg.HousePhotoURI)
	return nil
}

// photoType sniffs the upload to pick a content type and object extension.
func photoType(data []byte) (contentType, ext string) {
	contentType = http.DetectContentType(data)
	switch contentType {
	case "image/jpeg":
		return contentType, ".jpg"
	case "image/png":
		return contentType, ".png"
	case "image/gif":
		return contentType, ".gif"
	case "image/webp":
		return contentType, ".webp"
	case "image/bmp":
		return contentType, ".bmp"
	default:
		return "application/octet-stream", ".bin"
	}
}

// SimulatedRegistrar stands in for the backend when no project is
// configured: it waits Delay and succeeds.
type SimulatedRegistrar struct {
	Delay time.Duration
}

// Register implements wizard.Submitter.
func (s SimulatedRegistrar) Register(ctx context.Context, registrationID string, _ models.RegistrationRecord, plan catalog.Plan) error {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		slog.Info("Simulated registration accepted.", "registrationId", registrationID, "planId", plan.ID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
