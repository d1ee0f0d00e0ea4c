package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
	"github.com/gemfoundation/exposure/internal/pkg/validation"
)

// CalculationService manages icebox calculations.
type CalculationService struct {
	calcs     ports.CalculationRepository
	publisher ports.EventPublisher
}

// NewCalculationService creates a new CalculationService. publisher may be nil.
func NewCalculationService(calcs ports.CalculationRepository, publisher ports.EventPublisher) *CalculationService {
	return &CalculationService{calcs: calcs, publisher: publisher}
}

// List returns a page of calculations and the total count.
func (s *CalculationService) List(ctx context.Context, offset, limit int) ([]domain.Calculation, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.calcs.List(ctx, offset, limit)
}

// Get returns a calculation or an error wrapping domain.ErrNotFound.
func (s *CalculationService) Get(ctx context.Context, id int64) (*domain.Calculation, error) {
	calc, err := s.calcs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, fmt.Errorf("calculation %d: %w", id, domain.ErrNotFound)
	}
	return calc, nil
}

// Create registers a new calculation in the created state.
func (s *CalculationService) Create(ctx context.Context, in domain.NewCalculation) (*domain.Calculation, error) {
	in.CalculationType = strings.TrimSpace(in.CalculationType)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	calc := &domain.Calculation{
		CalculationType: in.CalculationType,
		Status:          domain.CalculationCreated,
		OwnerEmail:      in.OwnerEmail,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.calcs.Create(ctx, calc); err != nil {
		return nil, fmt.Errorf("create calculation: %w", err)
	}
	return calc, nil
}

// UpdateStatus sets the status of an existing calculation and announces it.
func (s *CalculationService) UpdateStatus(ctx context.Context, id int64, status domain.CalculationStatus) error {
	if !status.Valid() {
		allowed := make([]string, len(domain.CalculationStatuses))
		for i, st := range domain.CalculationStatuses {
			allowed[i] = string(st)
		}
		return &domain.InvalidParameterError{Name: "status", Value: string(status), Allowed: allowed}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.calcs.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update calculation %d: %w", id, err)
	}
	s.publishStatus(ctx, id, status)
	return nil
}

// ProcessLayers marks the calculation as processing and hands it to the
// notifier, which imports the output layers and emails the owner.
func (s *CalculationService) ProcessLayers(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.calcs.UpdateStatus(ctx, id, domain.CalculationProcessing); err != nil {
		return fmt.Errorf("update calculation %d: %w", id, err)
	}
	if s.publisher == nil {
		return nil
	}
	event := &domain.CalculationEvent{
		CalculationID: id,
		Status:        domain.CalculationProcessing,
		Time:          time.Now().UTC(),
	}
	if err := s.publisher.PublishCalculationProcess(ctx, event); err != nil {
		return fmt.Errorf("publish process request: %w", err)
	}
	return nil
}

// publishStatus is best-effort; the status is already stored.
func (s *CalculationService) publishStatus(ctx context.Context, id int64, status domain.CalculationStatus) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishCalculationStatus(ctx, &domain.CalculationEvent{
		CalculationID: id,
		Status:        status,
		Time:          time.Now().UTC(),
	})
}

// ArtifactGroups returns the artifact groups of an existing calculation.
func (s *CalculationService) ArtifactGroups(ctx context.Context, id int64) ([]domain.ArtifactGroup, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	groups, err := s.calcs.ArtifactGroups(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("artifact groups of calculation %d: %w", id, err)
	}
	return groups, nil
}
