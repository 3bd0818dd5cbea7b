package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/config"
	"github.com/Lllllllleong/planregistration/internal/gcp"
	"github.com/Lllllllleong/planregistration/internal/models"
)

// ErrEmptyDescription is returned for requests without a need description.
var ErrEmptyDescription = errors.New("description must not be empty")

// RecommenderConfig holds all configuration for the plan-recommender service.
type RecommenderConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	VertexAIRegion  string `env:"VERTEX_AI_REGION" envDefault:"us-central1"`
	Model           string `env:"RECOMMENDER_MODEL" envDefault:"gemini-2.5-flash"`
	PlanCatalogPath string `env:"PLAN_CATALOG_PATH"`
}

// LoadRecommenderConfig reads RecommenderConfig from the environment. An
// empty PROJECT_ID is allowed and leaves the recommender unconfigured.
func LoadRecommenderConfig() (*RecommenderConfig, error) {
	var cfg RecommenderConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewRecommenderFromConfig wires a Recommender to Vertex AI when a project is
// configured. The returned close function is never nil.
func NewRecommenderFromConfig(ctx context.Context, cfg RecommenderConfig, cat *catalog.Catalog) (*Recommender, func() error, error) {
	if cfg.ProjectID == "" {
		slog.Warn("PROJECT_ID is not set; plan recommendations are disabled.")
		return NewRecommender(nil, cat), func() error { return nil }, nil
	}
	planIDs := make([]string, 0, cat.Len())
	for _, p := range cat.Plans() {
		planIDs = append(planIDs, p.ID)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.Model, planIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return NewRecommender(vertexClient.RecommenderModel, cat), vertexClient.Close, nil
}

// PlanRecommenderFunction holds the dependencies of the plan-recommender
// HTTP function.
type PlanRecommenderFunction struct {
	recommender *Recommender
	config      RecommenderConfig
}

// NewPlanRecommender creates a new PlanRecommenderFunction instance.
func NewPlanRecommender(ctx context.Context) (*PlanRecommenderFunction, error) {
	cfg, err := LoadRecommenderConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cat, err := catalog.Load(cfg.PlanCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan catalog: %w", err)
	}
	recommender, _, err := NewRecommenderFromConfig(ctx, *cfg, cat)
	if err != nil {
		return nil, err
	}
	slog.Info("Plan recommender initialized.", "model", cfg.Model, "configured", recommender.Configured(), "plans", cat.Len())
	return &PlanRecommenderFunction{recommender: recommender, config: *cfg}, nil
}

func newPlanRecommenderFunction(r *Recommender) *PlanRecommenderFunction {
	return &PlanRecommenderFunction{recommender: r}
}

// Process answers a recommendation request. Adapter failures are reported in
// the response body, not as errors.
func (f *PlanRecommenderFunction) Process(ctx context.Context, req *models.RecommendPlanRequest) (*models.RecommendPlanResponse, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrEmptyDescription
	}
	outcome := f.recommender.Recommend(ctx, req.Description)
	if !outcome.OK() {
		slog.Warn("Recommendation unavailable.", "failure", string(outcome.Failure), "error", outcome.Err)
		return &models.RecommendPlanResponse{
			Status:  "unavailable",
			Failure: string(outcome.Failure),
			Message: UnavailableNotice,
		}, nil
	}
	return &models.RecommendPlanResponse{
		Status:            "success",
		RecommendedPlanID: outcome.Recommendation.RecommendedPlanID,
		Reasoning:         outcome.Recommendation.Reasoning,
	}, nil
}
