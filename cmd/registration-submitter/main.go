package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/planregistration/internal/models"
	"github.com/Lllllllleong/planregistration/internal/services"
	"github.com/Lllllllleong/planregistration/internal/wizard"
)

// maxRequestBytes bounds the JSON body, which carries the base64 house photo.
const maxRequestBytes = 16 << 20

var (
	submitterInstance *services.RegistrationSubmitterFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleSubmitRegistration", handleSubmitRegistration)
}

// main is required by the Go Functions Framework.
func main() {}

func handleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		submitterInstance, initErr = services.NewRegistrationSubmitter(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.SubmitRegistrationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := submitterInstance.Process(r.Context(), &req)
	if err != nil {
		status, body := errorResponse(err)
		if status == http.StatusInternalServerError {
			// The specific error is already logged inside the Process method.
			http.Error(w, "Internal Server Error: processing failed", status)
			return
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// errorResponse maps a Process error to a status code and a client-safe body.
func errorResponse(err error) (int, *models.SubmitRegistrationResponse) {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		missing := make([]string, len(verr.Missing))
		for i, f := range verr.Missing {
			missing[i] = string(f)
		}
		return http.StatusBadRequest, &models.SubmitRegistrationResponse{
			Status:  "invalid",
			Step:    verr.Step.String(),
			Missing: missing,
			Message: verr.Message,
		}
	case errors.Is(err, wizard.ErrUnknownPlan):
		return http.StatusUnprocessableEntity, &models.SubmitRegistrationResponse{
			Status:  "invalid",
			Step:    wizard.StepPlanSelection.String(),
			Missing: []string{string(wizard.FieldPlan)},
			Message: "Paket yang dipilih tidak tersedia. Silakan pilih ulang paket.",
		}
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, &models.SubmitRegistrationResponse{
			Status:  "invalid",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
