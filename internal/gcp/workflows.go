package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
)

// WorkflowParent is the resource name of a deployed workflow.
func WorkflowParent(projectID, location, workflowID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

// WorkflowRunner starts executions of a single workflow.
type WorkflowRunner struct {
	client *executions.Client
	parent string
}

func NewWorkflowRunner(client *executions.Client, projectID, location, workflowID string) *WorkflowRunner {
	return &WorkflowRunner{client: client, parent: WorkflowParent(projectID, location, workflowID)}
}

// Trigger starts an execution with argument serialized as JSON and returns
// the execution name.
func (r *WorkflowRunner) Trigger(ctx context.Context, argument any) (string, error) {
	payloadBytes, err := json.Marshal(argument)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: r.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	execution, err := r.client.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return execution.GetName(), nil
}
