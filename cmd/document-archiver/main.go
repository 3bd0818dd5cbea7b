package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/planregistration/internal/services"
)

var (
	archiverInstance *services.DocumentArchiverFunction
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ArchiveRegistrationDocument", archiveRegistrationDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// archiveRegistrationDocument is the Cloud Function entry point for object
// finalize events on the registration document bucket.
func archiveRegistrationDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		archiverInstance, initErr = services.NewDocumentArchiver(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Returning an error marks the invocation as failed.
	return archiverInstance.Process(ctx, gcsEvent)
}
