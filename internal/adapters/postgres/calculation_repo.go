package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

// CalculationRepo implements ports.CalculationRepository with pgx.
type CalculationRepo struct {
	db *DB
}

// NewCalculationRepo creates a new CalculationRepo.
func NewCalculationRepo(db *DB) *CalculationRepo {
	return &CalculationRepo{db: db}
}

// Create inserts a calculation and fills in its id.
func (r *CalculationRepo) Create(ctx context.Context, c *domain.Calculation) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO icebox_calculation (calculation_type, status, owner_email, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING id
	`, c.CalculationType, c.Status, c.OwnerEmail, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
}

// GetByID returns a calculation, or nil if it does not exist.
func (r *CalculationRepo) GetByID(ctx context.Context, id int64) (*domain.Calculation, error) {
	var c domain.Calculation
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, calculation_type, status, COALESCE(owner_email, ''), created_at, updated_at
		FROM icebox_calculation WHERE id = $1
	`, id).Scan(&c.ID, &c.CalculationType, &c.Status, &c.OwnerEmail, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns a page of calculations, newest first, and the total count.
func (r *CalculationRepo) List(ctx context.Context, offset, limit int) ([]domain.Calculation, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM icebox_calculation`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count calculations: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, calculation_type, status, COALESCE(owner_email, ''), created_at, updated_at
		FROM icebox_calculation
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var calcs []domain.Calculation
	for rows.Next() {
		var c domain.Calculation
		if err := rows.Scan(&c.ID, &c.CalculationType, &c.Status, &c.OwnerEmail, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		calcs = append(calcs, c)
	}
	return calcs, total, rows.Err()
}

// UpdateStatus sets the status and bumps updated_at.
func (r *CalculationRepo) UpdateStatus(ctx context.Context, id int64, status domain.CalculationStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE icebox_calculation SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("calculation %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ArtifactGroups returns the groups of a calculation with their artifacts.
func (r *CalculationRepo) ArtifactGroups(ctx context.Context, calculationID int64) ([]domain.ArtifactGroup, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT g.id, g.name, a.id, a.name
		FROM icebox_artifact_group g
		LEFT JOIN icebox_artifact a ON a.artifact_group_id = g.id
		WHERE g.calculation_id = $1
		ORDER BY g.id, a.id
	`, calculationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.ArtifactGroup
	for rows.Next() {
		var (
			groupID      int64
			groupName    string
			artifactID   *int64
			artifactName *string
		)
		if err := rows.Scan(&groupID, &groupName, &artifactID, &artifactName); err != nil {
			return nil, err
		}
		if len(groups) == 0 || groups[len(groups)-1].ID != groupID {
			groups = append(groups, domain.ArtifactGroup{
				ID:            groupID,
				CalculationID: calculationID,
				Name:          groupName,
				Artifacts:     []domain.Artifact{},
			})
		}
		if artifactID != nil && artifactName != nil {
			g := &groups[len(groups)-1]
			g.Artifacts = append(g.Artifacts, domain.Artifact{ID: *artifactID, Name: *artifactName})
		}
	}
	return groups, rows.Err()
}
