package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/planregistration/internal/config"
	"github.com/Lllllllleong/planregistration/internal/gcp"
	"github.com/Lllllllleong/planregistration/internal/models"
)

// WorkflowTrigger starts a workflow execution. *gcp.WorkflowRunner implements it.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, argument any) (string, error)
}

// ArchiverConfig holds all configuration for the document-archiver service.
type ArchiverConfig struct {
	ProjectID        string `env:"PROJECT_ID"`
	CollectionName   string `env:"FIRESTORE_COLLECTION" envDefault:"registrations"`
	WorkflowID       string `env:"WORKFLOW_ID" envDefault:"installation-scheduling"`
	WorkflowLocation string `env:"WORKFLOW_LOCATION" envDefault:"us-central1"`
}

// DocumentArchiverFunction verifies uploaded registration PDFs and hands the
// registration over to installation scheduling.
type DocumentArchiverFunction struct {
	store    RegistrationRepository
	blobs    BlobStore
	workflow WorkflowTrigger
	inspect  func([]byte) (int, error)
	config   ArchiverConfig
}

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NewDocumentArchiver creates a new DocumentArchiverFunction instance.
func NewDocumentArchiver(ctx context.Context) (*DocumentArchiverFunction, error) {
	var cfg ArchiverConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &DocumentArchiverFunction{
		store:    gcp.NewRegistrationStore(firestoreClient, cfg.CollectionName),
		blobs:    gcp.NewObjectStore(storageClient),
		workflow: gcp.NewWorkflowRunner(executionsClient, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID),
		inspect:  inspectPDF,
		config:   cfg,
	}
	slog.Info("Document archiver initialized.", "workflowId", cfg.WorkflowID)
	return f, nil
}

// Process handles one finalized object. Objects that are not registration
// PDFs, and registrations that are already READY, are skipped. A recorded
// workflow execution id is reused, so a redelivered event never starts a
// second installation-scheduling execution.
func (f *DocumentArchiverFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	registrationID, ok := registrationIDFromObject(e.Name)
	if !ok {
		logCtx.Info("Object is not a registration document. Skipping.")
		return nil
	}
	logCtx = logCtx.With("registrationId", registrationID)

	reg, err := f.store.Get(ctx, registrationID)
	if err != nil {
		if errors.Is(err, gcp.ErrRegistrationNotFound) {
			logCtx.Warn("No registration for uploaded document. Skipping.")
			return nil
		}
		logCtx.Error("Failed to read registration", "error", err)
		return err
	}
	if reg.Status == models.StatusReady {
		logCtx.Info("Registration already archived. Skipping.")
		return nil
	}

	data, err := f.blobs.Get(ctx, e.Bucket, e.Name)
	if err != nil {
		return f.handleError(ctx, logCtx, registrationID, "failed to download registration PDF", err)
	}
	pageCount, err := f.inspect(data)
	if err != nil {
		return f.handleError(ctx, logCtx, registrationID, "failed to validate registration PDF", err)
	}
	logCtx.Info("Registration PDF validated.", "pageCount", pageCount)

	documentURI := gcp.GCSURI(e.Bucket, e.Name)
	executionName := reg.WorkflowExecutionID
	switch {
	case executionName != "":
		logCtx.Info("Installation scheduling already triggered. Reusing execution.", "execution", executionName)
	case reg.Status == models.StatusScheduling:
		// An earlier delivery may have started an execution without recording it.
		logCtx.Error("Registration is stuck in SCHEDULING without an execution id. Not triggering again.")
		return nil
	default:
		if err := f.store.Update(ctx, registrationID, gcp.StatusUpdates(models.StatusScheduling, "")); err != nil {
			return f.handleError(ctx, logCtx, registrationID, "failed to update status to SCHEDULING", err)
		}
		executionName, err = f.workflow.Trigger(ctx, models.SchedulingWorkflowArgument{
			RegistrationID: registrationID,
			DocumentGCSUri: documentURI,
			PageCount:      pageCount,
		})
		if err != nil {
			return f.handleError(ctx, logCtx, registrationID, "failed to trigger installation scheduling", err)
		}
	}

	execution := firestore.Update{Path: "workflowExecutionId", Value: executionName}
	updates := append(gcp.StatusUpdates(models.StatusReady, ""),
		firestore.Update{Path: "pageCount", Value: pageCount},
		firestore.Update{Path: "documentUri", Value: documentURI},
		execution,
	)
	if err := f.store.Update(ctx, registrationID, updates); err != nil {
		return f.handleError(ctx, logCtx, registrationID, "failed to update status to READY", err, execution)
	}
	logCtx.Info("Hand-off to installation scheduling complete.", "execution", executionName)
	return nil
}

// registrationIDFromObject extracts <id> from "<id>/<name>.pdf".
func registrationIDFromObject(name string) (string, bool) {
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		return "", false
	}
	dir := path.Dir(name)
	if dir == "." || dir == "/" || strings.Contains(dir, "/") {
		return "", false
	}
	return dir, true
}

// inspectPDF validates data and returns its page count.
func inspectPDF(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, err
	}
	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount < 1 {
		return 0, errors.New("document has no pages")
	}
	return pageCount, nil
}

// handleError records FAILED together with extra, so that fields such as the
// workflow execution id survive a failed final update.
func (f *DocumentArchiverFunction) handleError(ctx context.Context, logCtx *slog.Logger, registrationID, message string, originalErr error, extra ...firestore.Update) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	updates := append(gcp.StatusUpdates(models.StatusFailed, fullError), extra...)
	if err := f.store.Update(ctx, registrationID, updates); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}
