package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Recommender Model Prompts ---
const RecommenderSystemPrompt = "You are a sales assistant for an Indonesian home internet provider. Your task is to pick the single best plan for a customer from the provided catalog. You must output your response as a valid JSON object."
const RecommenderUserPrompt = `A customer described their internet needs as follows:

%s

The available plans are listed in this JSON array (price is the monthly price in IDR):

%s

Follow these rules precisely:
1.  Choose exactly one plan from the list. Use its "id" value verbatim.
2.  Respect each plan's eligibilityNote when deciding.
3.  Explain the choice in one or two short sentences in Bahasa Indonesia.
4.  Respond with a single JSON object with exactly two keys:
    - "recommendedPlanId": the chosen plan id.
    - "reasoning": your explanation.
Do not include any text before or after the JSON object.`

// VertexClient holds the pre-configured generative models for our app.
type VertexClient struct {
	RecommenderModel *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a client whose recommender model may only answer
// with one of planIDs.
func NewVertexClient(ctx context.Context, projectID, region, modelName string, planIDs []string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("NewVertexClient: model name cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	recommenderModel := baseClient.GenerativeModel(modelName)
	recommenderModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(RecommenderSystemPrompt)},
	}
	recommenderModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   RecommendationSchema(planIDs),
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		RecommenderModel: recommenderModel,
		baseClient:       baseClient,
	}, nil
}

// RecommendationSchema constrains model output to {recommendedPlanId, reasoning}.
func RecommendationSchema(planIDs []string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"recommendedPlanId": {
				Type: genai.TypeString,
				Enum: planIDs,
			},
			"reasoning": {
				Type: genai.TypeString,
			},
		},
		Required: []string{"recommendedPlanId", "reasoning"},
	}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
