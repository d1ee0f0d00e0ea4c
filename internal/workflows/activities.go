package workflows

import (
	"context"
	"fmt"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/usecases"
	"github.com/gemfoundation/exposure/internal/pkg/metrics"
)

// ArtifactActivities holds the activity implementations for the artifact
// notification workflow.
type ArtifactActivities struct {
	Notifications *usecases.NotificationService
}

// LoadArtifactRecipients returns the owner address and artifact groups.
func (a *ArtifactActivities) LoadArtifactRecipients(ctx context.Context, calculationID int64) (RecipientPlan, error) {
	email, groups, err := a.Notifications.Recipients(ctx, calculationID)
	if err != nil {
		return RecipientPlan{}, fmt.Errorf("load recipients: %w", err)
	}
	return RecipientPlan{Email: email, Groups: groups}, nil
}

// SendArtifactEmail emails one artifact group.
func (a *ArtifactActivities) SendArtifactEmail(ctx context.Context, to string, group domain.ArtifactGroup) error {
	if err := a.Notifications.SendGroup(ctx, to, group); err != nil {
		return err
	}
	metrics.NotificationsSent.WithLabelValues(group.Name).Inc()
	return nil
}

// CompleteCalculation marks the calculation complete.
func (a *ArtifactActivities) CompleteCalculation(ctx context.Context, calculationID int64) error {
	return a.Notifications.Complete(ctx, calculationID)
}

// FailCalculation marks the calculation failed (saga compensation).
func (a *ArtifactActivities) FailCalculation(ctx context.Context, calculationID int64) error {
	return a.Notifications.Fail(ctx, calculationID)
}
