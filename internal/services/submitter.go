package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/config"
	"github.com/Lllllllleong/planregistration/internal/document"
	"github.com/Lllllllleong/planregistration/internal/gcp"
	"github.com/Lllllllleong/planregistration/internal/models"
	"github.com/Lllllllleong/planregistration/internal/wizard"
)

// ErrInvalidRequest marks requests that are malformed before any gate runs.
var ErrInvalidRequest = errors.New("invalid registration request")

// SubmitterConfig holds all configuration for the registration-submitter service.
type SubmitterConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	CollectionName  string `env:"FIRESTORE_COLLECTION" envDefault:"registrations"`
	PhotoBucket     string `env:"HOUSE_PHOTO_BUCKET"`
	DocumentBucket  string `env:"REGISTRATION_DOCUMENT_BUCKET"`
	PlanCatalogPath string `env:"PLAN_CATALOG_PATH"`
}

func loadSubmitterConfig() (*SubmitterConfig, error) {
	var cfg SubmitterConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if cfg.PhotoBucket == "" {
		return nil, fmt.Errorf("HOUSE_PHOTO_BUCKET environment variable must be set")
	}
	if cfg.DocumentBucket == "" {
		return nil, fmt.Errorf("REGISTRATION_DOCUMENT_BUCKET environment variable must be set")
	}
	return &cfg, nil
}

// RegistrationSubmitterFunction holds the dependencies of the
// registration-submitter HTTP function.
type RegistrationSubmitterFunction struct {
	catalog   *catalog.Catalog
	store     RegistrationRepository
	blobs     BlobStore
	registrar wizard.Submitter
	renderer  *document.Renderer
	renderPDF func(*document.Document) ([]byte, error)
	newID     func() string
	config    SubmitterConfig
}

// NewRegistrationSubmitter creates a new RegistrationSubmitterFunction instance.
func NewRegistrationSubmitter(ctx context.Context) (*RegistrationSubmitterFunction, error) {
	cfg, err := loadSubmitterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cat, err := catalog.Load(cfg.PlanCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan catalog: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	f := newRegistrationSubmitter(*cfg, cat,
		gcp.NewRegistrationStore(firestoreClient, cfg.CollectionName),
		gcp.NewObjectStore(storageClient),
	)
	slog.Info("Registration submitter initialized.", "collection", cfg.CollectionName, "documentBucket", cfg.DocumentBucket)
	return f, nil
}

func newRegistrationSubmitter(cfg SubmitterConfig, cat *catalog.Catalog, store RegistrationRepository, blobs BlobStore) *RegistrationSubmitterFunction {
	return &RegistrationSubmitterFunction{
		catalog:   cat,
		store:     store,
		blobs:     blobs,
		registrar: NewRegistrar(store, blobs, cfg.PhotoBucket),
		renderer:  document.NewRenderer(),
		renderPDF: document.RenderPDF,
		newID:     wizard.NewRegistrationID,
		config:    cfg,
	}
}

// Process replays the submitted form through a fresh wizard session, so
// every gate is re-checked server side, then registers the customer and
// stores the rendered registration record. Gate failures are returned as
// *wizard.ValidationError.
func (f *RegistrationSubmitterFunction) Process(ctx context.Context, req *models.SubmitRegistrationRequest) (*models.SubmitRegistrationResponse, error) {
	logCtx := slog.With("planId", req.PlanID)

	var installDate *time.Time
	if s := strings.TrimSpace(req.PreferredInstallDate); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("%w: preferredInstallDate must be YYYY-MM-DD", ErrInvalidRequest)
		}
		installDate = &d
	}

	ctrl := wizard.NewController(f.catalog, f.registrar, wizard.WithIDGenerator(f.newID))
	if req.PlanID != "" {
		if err := ctrl.SelectPlan(req.PlanID); err != nil {
			return nil, err
		}
	}
	if err := ctrl.Advance(); err != nil {
		return nil, err
	}
	fields := []struct {
		field wizard.Field
		value string
	}{
		{wizard.FieldFullName, req.FullName},
		{wizard.FieldNationalID, req.NationalID},
		{wizard.FieldEmail, req.Email},
		{wizard.FieldPhone, req.Phone},
		{wizard.FieldInstallAddress, req.InstallAddress},
	}
	for _, fv := range fields {
		if err := ctrl.SetField(fv.field, fv.value); err != nil {
			return nil, err
		}
	}
	if err := ctrl.SetPreferredInstallDate(installDate); err != nil {
		return nil, err
	}
	if err := ctrl.AttachHousePhoto(req.HousePhoto); err != nil {
		return nil, err
	}
	if err := ctrl.Advance(); err != nil {
		return nil, err
	}

	registrationID, err := ctrl.Submit(ctx)
	if err != nil {
		logCtx.Error("Registration submission failed.", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("registrationId", registrationID)
	logCtx.Info("Registration submitted.")

	snap := ctrl.Snapshot()
	doc, err := f.renderer.Render(snap.Record, *snap.Plan, registrationID)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, registrationID, "failed to lay out registration record", err)
	}
	pdf, err := f.renderPDF(doc)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, registrationID, "failed to render registration PDF", err)
	}
	objectName := fmt.Sprintf("%s/%s", registrationID, doc.Filename)
	documentURI, err := f.blobs.Put(ctx, f.config.DocumentBucket, objectName, "application/pdf", pdf)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, registrationID, "failed to upload registration PDF", err)
	}

	updates := append(gcp.StatusUpdates(models.StatusDocumentUploaded, ""), firestore.Update{Path: "documentUri", Value: documentURI})
	if err := f.store.Update(ctx, registrationID, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, registrationID, "failed to update status to DOCUMENT_UPLOADED", err)
	}

	logCtx.Info("Registration record stored.", "documentGcsUri", documentURI, "imageFallback", doc.ImageFallback)
	return &models.SubmitRegistrationResponse{
		Status:         "success",
		RegistrationID: registrationID,
		Filename:       doc.Filename,
		DocumentGCSUri: documentURI,
		ImageFallback:  doc.ImageFallback,
	}, nil
}

func (f *RegistrationSubmitterFunction) handleError(ctx context.Context, logCtx *slog.Logger, registrationID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.store.Update(ctx, registrationID, gcp.StatusUpdates(models.StatusFailed, fullError)); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}
