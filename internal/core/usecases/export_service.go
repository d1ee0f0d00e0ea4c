package usecases

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
)

// ExportService builds exposure and population exports for a bounding box.
type ExportService struct {
	repo      ports.ExposureRepository
	publisher ports.EventPublisher
	maxArea   float64
}

// NewExportService creates a new ExportService. A non-positive maxArea
// falls back to DefaultMaxExportAreaSqDeg. publisher may be nil.
func NewExportService(repo ports.ExposureRepository, publisher ports.EventPublisher, maxArea float64) *ExportService {
	if maxArea <= 0 {
		maxArea = DefaultMaxExportAreaSqDeg
	}
	return &ExportService{repo: repo, publisher: publisher, maxArea: maxArea}
}

// MaxArea returns the largest exportable area in square degrees.
func (s *ExportService) MaxArea() float64 { return s.maxArea }

// ValidateArea checks the box against the configured maximum.
func (s *ExportService) ValidateArea(box domain.BoundingBox) error {
	return ValidateExportArea(box, s.maxArea)
}

// Stream validates req and returns a lazy stream over the export document.
// Nothing is read from the repository until the first call to Next, and
// an invalid request never reaches it.
func (s *ExportService) Stream(ctx context.Context, req domain.ExportRequest) (*ExportStream, error) {
	format, err := ParseOutputFormat(string(req.Format))
	if err != nil {
		return nil, err
	}
	req.Format = format

	if err := s.ValidateArea(req.Box); err != nil {
		return nil, err
	}

	enc, err := NewEncoder(req.Kind, req.Format)
	if err != nil {
		return nil, err
	}

	st := &ExportStream{repo: s.repo, req: req, enc: enc}
	switch req.Kind {
	case domain.ExportBuilding:
		occupancy, err := OccupancyFor(req.Residential)
		if err != nil {
			return nil, err
		}
		cols, err := AdminLevelColumnsFor(req.AdminLevel)
		if err != nil {
			return nil, err
		}
		if err := ValidateTimeOfDay(req.TimeOfDay); err != nil {
			return nil, err
		}
		st.occupancy = occupancy
		st.cols = cols
		st.stage = stageResolveIDs
	case domain.ExportPopulation:
		st.cols = adminLevelColumns[domain.Admin0]
		st.stage = stagePopulation
	default:
		return nil, &domain.InvalidParameterError{
			Name:    "kind",
			Value:   string(req.Kind),
			Allowed: []string{string(domain.ExportBuilding), string(domain.ExportPopulation)},
		}
	}
	return st, nil
}

// Drain writes the whole stream to w and publishes an export event.
// A consumer that stops reading is not an error: the stream is closed and
// the event is marked truncated. Producer errors are returned after the
// stream is closed; by then the response headers are usually gone, so the
// document simply ends early.
func (s *ExportService) Drain(ctx context.Context, st *ExportStream, w io.Writer, userID string) error {
	err := st.WriteTo(ctx, w)
	req := st.Request()

	event := &domain.ExportEvent{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Format:    req.Format,
		UserID:    userID,
		Records:   st.Records(),
		Truncated: !st.Complete(),
	}

	switch {
	case err == nil:
		slog.InfoContext(ctx, "export complete",
			"kind", req.Kind, "format", req.Format, "records", event.Records)
	case errors.Is(err, ErrConsumerGone):
		slog.InfoContext(ctx, "export stopped by consumer",
			"kind", req.Kind, "records", event.Records, "reason", err)
		err = nil
	default:
		slog.ErrorContext(ctx, "export failed mid-stream",
			"kind", req.Kind, "records", event.Records, "error", err)
	}

	if s.publisher != nil {
		if perr := s.publisher.PublishExportCompleted(context.WithoutCancel(ctx), event); perr != nil {
			slog.WarnContext(ctx, "publish export event", "error", perr)
		}
	}
	return err
}
