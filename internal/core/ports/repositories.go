package ports

import (
	"context"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

// PopulationRows is a forward-only cursor over the population table.
// Close must be called once the caller is done, even after an early stop.
type PopulationRows interface {
	Next() bool
	Row() domain.PopulationRow
	Err() error
	Close()
}

// ExposureRepository reads the gridded exposure database.
type ExposureRepository interface {
	// AvailableAdminLevels returns the admin levels that have grid data
	// inside the box.
	AvailableAdminLevels(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error)

	// AdminLevelAndRegionIDs returns the distinct admin-level ids and
	// geographic region ids of the grid cells inside the box.
	AdminLevelAndRegionIDs(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (adminIDs, regionIDs []int64, err error)

	// PopulationTable opens a cursor over the populated grid cells inside the box.
	PopulationTable(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (PopulationRows, error)

	// PopRatios returns the population ratios of the regions for a time of day.
	PopRatios(ctx context.Context, regionIDs []int64, tod domain.TimeOfDay, occupancy []int) ([]domain.PopRatio, error)

	// DwellingFractions returns the dwelling fractions of the admin units.
	DwellingFractions(ctx context.Context, adminIDs []int64, occupancy []int, cols domain.AdminLevelColumns) ([]domain.DwellingFraction, error)
}

// CalculationRepository persists icebox calculations.
type CalculationRepository interface {
	Create(ctx context.Context, calc *domain.Calculation) error
	GetByID(ctx context.Context, id int64) (*domain.Calculation, error)
	List(ctx context.Context, offset, limit int) ([]domain.Calculation, int, error)
	UpdateStatus(ctx context.Context, id int64, status domain.CalculationStatus) error
	ArtifactGroups(ctx context.Context, calculationID int64) ([]domain.ArtifactGroup, error)
}
