package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
)

// Starter implements ports.WorkflowStarter with a Temporal client.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a new Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartArtifactNotification starts ArtifactNotificationWorkflow for a calculation.
func (s *Starter) StartArtifactNotification(ctx context.Context, calculationID int64) error {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("artifact-notification-%d-%s", calculationID, uuid.NewString()),
		TaskQueue: s.taskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, ArtifactNotificationWorkflow, ArtifactNotificationInput{
		CalculationID: calculationID,
	})
	if err != nil {
		return fmt.Errorf("start artifact notification: %w", err)
	}
	return nil
}
