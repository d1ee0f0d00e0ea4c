package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
)

// ArtifactEmail renders the message announcing a new artifact group.
func ArtifactEmail(group domain.ArtifactGroup) (subject, body string) {
	names := make([]string, len(group.Artifacts))
	for i, a := range group.Artifacts {
		names[i] = a.Name
	}
	subject = fmt.Sprintf("A new %s is available", group.Name)
	body = "\nThe following new artifacts are available:\n" +
		strings.Join(names, "\n") +
		"\n\nLogin into Openquake platform to see them.\n"
	return subject, body
}

// NotificationService emails calculation owners about new artifacts.
type NotificationService struct {
	calcs  ports.CalculationRepository
	mailer ports.Mailer
	status *CalculationService
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(calcs ports.CalculationRepository, mailer ports.Mailer, status *CalculationService) *NotificationService {
	return &NotificationService{calcs: calcs, mailer: mailer, status: status}
}

// Recipients returns the owner address and the artifact groups of a calculation.
func (s *NotificationService) Recipients(ctx context.Context, id int64) (string, []domain.ArtifactGroup, error) {
	calc, err := s.status.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	groups, err := s.calcs.ArtifactGroups(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("artifact groups of calculation %d: %w", id, err)
	}
	return calc.OwnerEmail, groups, nil
}

// SendGroup emails one artifact group to its owner.
func (s *NotificationService) SendGroup(ctx context.Context, to string, group domain.ArtifactGroup) error {
	subject, body := ArtifactEmail(group)
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, to, err)
	}
	return nil
}

// Complete marks the calculation as complete.
func (s *NotificationService) Complete(ctx context.Context, id int64) error {
	return s.status.UpdateStatus(ctx, id, domain.CalculationComplete)
}

// Fail marks the calculation as failed.
func (s *NotificationService) Fail(ctx context.Context, id int64) error {
	return s.status.UpdateStatus(ctx, id, domain.CalculationFailed)
}

// NotifyArtifacts sends one email per artifact group, then completes the
// calculation. A calculation without an owner address is completed silently.
func (s *NotificationService) NotifyArtifacts(ctx context.Context, id int64) error {
	to, groups, err := s.Recipients(ctx, id)
	if err != nil {
		return err
	}
	if to == "" {
		slog.WarnContext(ctx, "calculation has no owner email", "calculation_id", id)
	} else {
		for _, g := range groups {
			if err := s.SendGroup(ctx, to, g); err != nil {
				_ = s.Fail(ctx, id)
				return err
			}
		}
	}
	return s.Complete(ctx, id)
}
