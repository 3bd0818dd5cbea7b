package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/gcp"
	"github.com/Lllllllleong/planregistration/internal/models"
)

// FailureKind classifies why no recommendation was produced.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureEmptyInput    FailureKind = "empty-input"
	FailureNotConfigured FailureKind = "not-configured"
	FailureService       FailureKind = "service"
	FailureMalformed     FailureKind = "malformed"
)

// UnavailableNotice is shown to the customer whenever no recommendation is
// available and the plan has to be chosen by hand.
const UnavailableNotice = "Maaf, AI sedang sibuk. Silakan pilih paket secara manual."

// ContentGenerator is the part of *genai.GenerativeModel the recommender uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Outcome is either a Recommendation or a failure classification; it is
// never both.
type Outcome struct {
	Recommendation *models.Recommendation
	Failure        FailureKind
	Err            error
}

// OK reports whether a recommendation was produced.
func (o Outcome) OK() bool {
	return o.Recommendation != nil
}

func failed(kind FailureKind, err error) Outcome {
	return Outcome{Failure: kind, Err: err}
}

// Recommender turns a free-text need description into a plan recommendation.
// It never returns a hard error: every failure is folded into the Outcome.
type Recommender struct {
	model   ContentGenerator
	catalog *catalog.Catalog
}

// NewRecommender returns a recommender backed by model. A nil model yields a
// recommender that reports FailureNotConfigured without calling out.
func NewRecommender(model ContentGenerator, cat *catalog.Catalog) *Recommender {
	return &Recommender{model: model, catalog: cat}
}

// Configured reports whether an external model is available.
func (r *Recommender) Configured() bool {
	return r.model != nil
}

// Recommend makes one attempt; there is no retry.
func (r *Recommender) Recommend(ctx context.Context, description string) Outcome {
	description = strings.TrimSpace(description)
	if description == "" {
		return failed(FailureEmptyInput, errors.New("description is empty"))
	}
	if r.model == nil {
		return failed(FailureNotConfigured, errors.New("recommendation model is not configured"))
	}
	logCtx := slog.With("component", "recommender")

	prompt, err := r.prompt(description)
	if err != nil {
		return failed(FailureService, err)
	}
	resp, err := r.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		logCtx.Warn("Recommendation call failed.", "error", err)
		return failed(FailureService, fmt.Errorf("failed to generate content from gemini: %w", err))
	}

	rec, err := r.parse(extractJSONContent(resp))
	if err != nil {
		logCtx.Warn("Recommendation response rejected.", "error", err)
		return failed(FailureMalformed, err)
	}
	logCtx.Info("Plan recommended.", "planId", rec.RecommendedPlanID)
	return Outcome{Recommendation: rec}
}

func (r *Recommender) prompt(description string) (string, error) {
	summary, err := json.Marshal(r.catalog.Summaries())
	if err != nil {
		return "", fmt.Errorf("failed to serialize catalog: %w", err)
	}
	return fmt.Sprintf(gcp.RecommenderUserPrompt, description, summary), nil
}

// parse accepts exactly {recommendedPlanId, reasoning} naming a known plan.
func (r *Recommender) parse(body string) (*models.Recommendation, error) {
	if body == "" {
		return nil, errors.New("empty response")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	var raw struct {
		RecommendedPlanID *string `json:"recommendedPlanId"`
		Reasoning         *string `json:"reasoning"`
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing data after response object")
	}
	if raw.RecommendedPlanID == nil || raw.Reasoning == nil {
		return nil, errors.New("response is missing recommendedPlanId or reasoning")
	}
	planID := strings.TrimSpace(*raw.RecommendedPlanID)
	if !r.catalog.Contains(planID) {
		return nil, fmt.Errorf("response names unknown plan %q", planID)
	}
	reasoning := strings.TrimSpace(*raw.Reasoning)
	if reasoning == "" {
		return nil, errors.New("response reasoning is empty")
	}
	return &models.Recommendation{RecommendedPlanID: planID, Reasoning: reasoning}, nil
}

// extractJSONContent concatenates the text parts of the first candidate and
// strips markdown fences.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	cleanJSON := strings.TrimSpace(b.String())
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	return strings.TrimSpace(cleanJSON)
}
