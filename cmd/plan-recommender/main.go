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
)

var (
	recommenderInstance *services.PlanRecommenderFunction
	once                sync.Once
	initErr             error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleRecommendPlan" is the entry point name we'll see in GCP.
	functions.HTTP("HandleRecommendPlan", handleRecommendPlan)
}

// main is required by the Go Functions Framework.
func main() {}

func handleRecommendPlan(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		recommenderInstance, initErr = services.NewPlanRecommender(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.RecommendPlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := recommenderInstance.Process(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrEmptyDescription) {
			http.Error(w, "Bad Request: description must not be empty", http.StatusBadRequest)
			return
		}
		slog.Error("Recommendation processing failed", "error", err)
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
