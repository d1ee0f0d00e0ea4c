package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

// ArtifactNotificationInput is the input for the artifact notification workflow.
type ArtifactNotificationInput struct {
	CalculationID int64
}

// RecipientPlan is what the workflow needs to notify one calculation owner.
type RecipientPlan struct {
	Email  string
	Groups []domain.ArtifactGroup
}

// ArtifactNotificationWorkflow emails the owner of a calculation once per
// artifact group and then marks the calculation complete. If an email
// cannot be delivered the calculation is marked failed instead.
func ArtifactNotificationWorkflow(ctx workflow.Context, input ArtifactNotificationInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting artifact notification workflow", "calculationID", input.CalculationID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var plan RecipientPlan
	if err := workflow.ExecuteActivity(ctx, "LoadArtifactRecipients", input.CalculationID).Get(ctx, &plan); err != nil {
		return err
	}

	if plan.Email == "" {
		logger.Warn("calculation has no owner email, skipping notifications")
	}
	for _, group := range plan.Groups {
		if plan.Email == "" {
			break
		}
		err := workflow.ExecuteActivity(ctx, "SendArtifactEmail", plan.Email, group).Get(ctx, nil)
		if err != nil {
			logger.Warn("artifact email failed, marking calculation failed", "group", group.Name, "error", err)
			_ = workflow.ExecuteActivity(ctx, "FailCalculation", input.CalculationID).Get(ctx, nil)
			return err
		}
	}

	if err := workflow.ExecuteActivity(ctx, "CompleteCalculation", input.CalculationID).Get(ctx, nil); err != nil {
		return err
	}
	logger.Info("Artifact notifications sent", "groups", len(plan.Groups))
	return nil
}
