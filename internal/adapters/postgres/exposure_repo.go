package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
	"github.com/gemfoundation/exposure/internal/pkg/geospatial"
)

// ExposureRepo implements ports.ExposureRepository over the ged2 schema.
type ExposureRepo struct {
	db *DB
}

// NewExposureRepo creates a new ExposureRepo.
func NewExposureRepo(db *DB) *ExposureRepo {
	return &ExposureRepo{db: db}
}

const gridInBox = `
		FROM ged2.grid_point gp
		JOIN ged2.grid_point_attribute gpa ON gpa.grid_point_id = gp.id
		JOIN ged2.geographic_region gr ON gr.id = gpa.geographic_region_id`

const boxFilter = `ST_Intersects(gp.the_geom, ST_GeomFromText($1, 4326))`

// AvailableAdminLevels reports which admin levels have grid cells in the box.
func (r *ExposureRepo) AvailableAdminLevels(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error) {
	wkt, err := geospatial.WKT(box)
	if err != nil {
		return nil, err
	}

	var has [4]bool
	err = r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(bool_or(gr.gadm_country_id IS NOT NULL), false),
		       COALESCE(bool_or(gr.gadm_admin_1_id IS NOT NULL), false),
		       COALESCE(bool_or(gr.gadm_admin_2_id IS NOT NULL), false),
		       COALESCE(bool_or(gr.gadm_admin_3_id IS NOT NULL), false)`+gridInBox+`
		WHERE `+boxFilter,
		wkt,
	).Scan(&has[0], &has[1], &has[2], &has[3])
	if err != nil {
		return nil, fmt.Errorf("available admin levels: %w", err)
	}

	var levels []domain.AdminLevel
	for i, ok := range has {
		if ok {
			levels = append(levels, domain.AdminLevels[i])
		}
	}
	return levels, nil
}

func adminRegionIDsSQL(cols domain.AdminLevelColumns) string {
	col := pgx.Identifier{"gr", cols.Column}.Sanitize()
	return `
		SELECT DISTINCT ` + col + `, gr.id` + gridInBox + `
		WHERE ` + boxFilter + `
		AND ` + col + ` IS NOT NULL`
}

// AdminLevelAndRegionIDs returns the distinct admin ids and region ids of
// the grid cells inside the box, each in first-seen order.
func (r *ExposureRepo) AdminLevelAndRegionIDs(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) ([]int64, []int64, error) {
	wkt, err := geospatial.WKT(box)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Pool.Query(ctx, adminRegionIDsSQL(cols), wkt)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var adminIDs, regionIDs []int64
	seenAdmin := map[int64]bool{}
	seenRegion := map[int64]bool{}
	for rows.Next() {
		var adminID, regionID int64
		if err := rows.Scan(&adminID, &regionID); err != nil {
			return nil, nil, err
		}
		if !seenAdmin[adminID] {
			seenAdmin[adminID] = true
			adminIDs = append(adminIDs, adminID)
		}
		if !seenRegion[regionID] {
			seenRegion[regionID] = true
			regionIDs = append(regionIDs, regionID)
		}
	}
	return adminIDs, regionIDs, rows.Err()
}

func populationSQL(cols domain.AdminLevelColumns) string {
	col := pgx.Identifier{"gr", cols.Column}.Sanitize()
	table := pgx.Identifier{"ged2", cols.Table}.Sanitize()
	return `
		SELECT gp.id, ST_X(gp.the_geom), ST_Y(gp.the_geom),
		       gc.iso, gr.id, ` + col + `, gpa.is_urban, pop.pop_value
		FROM ged2.grid_point gp
		JOIN ged2.population pop ON pop.grid_point_id = gp.id
		JOIN ged2.grid_point_attribute gpa ON gpa.grid_point_id = gp.id
		JOIN ged2.geographic_region gr ON gr.id = gpa.geographic_region_id
		JOIN ` + table + ` adm ON adm.id = ` + col + `
		JOIN ged2.gadm_country gc ON gc.id = gr.gadm_country_id
		WHERE ` + boxFilter
}

// PopulationTable opens a server-side cursor over the populated grid cells.
// The connection stays checked out until the returned rows are closed.
func (r *ExposureRepo) PopulationTable(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (ports.PopulationRows, error) {
	wkt, err := geospatial.WKT(box)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, populationSQL(cols), wkt)
	if err != nil {
		return nil, err
	}
	return &populationRows{rows: rows}, nil
}

type populationRows struct {
	rows pgx.Rows
	row  domain.PopulationRow
	err  error
}

func (p *populationRows) Next() bool {
	if p.err != nil || !p.rows.Next() {
		return false
	}
	var row domain.PopulationRow
	if err := p.rows.Scan(
		&row.GridID, &row.Lon, &row.Lat,
		&row.ISO, &row.StudyRegion, &row.AdminLevelID, &row.IsUrban, &row.Population,
	); err != nil {
		p.err = fmt.Errorf("scan population row: %w", err)
		return false
	}
	p.row = row
	return true
}

func (p *populationRows) Row() domain.PopulationRow { return p.row }

func (p *populationRows) Err() error {
	if p.err != nil {
		return p.err
	}
	return p.rows.Err()
}

func (p *populationRows) Close() { p.rows.Close() }

// popRatioExpr selects the ratio column for a time of day.
func popRatioExpr(tod domain.TimeOfDay) (string, error) {
	switch tod {
	case domain.TimeOfDayDay, domain.TimeOfDayNight, domain.TimeOfDayTransit:
		return string(tod) + "_pop_ratio", nil
	case domain.TimeOfDayAll:
		return "(day_pop_ratio + night_pop_ratio + transit_pop_ratio)", nil
	case domain.TimeOfDayOff:
		return "1", nil
	}
	return "", &domain.InvalidParameterError{
		Name:    "timeOfDay",
		Value:   string(tod),
		Allowed: []string{"day", "night", "transit", "all", "off"},
	}
}

func popRatiosSQL(tod domain.TimeOfDay) (string, error) {
	expr, err := popRatioExpr(tod)
	if err != nil {
		return "", err
	}
	return `
		SELECT geographic_region_id AS region_code,
		       occupancy_id,
		       is_urban,
		       ` + expr + ` AS pop_ratio
		FROM ged2.pop_allocation
		WHERE geographic_region_id = ANY($1)
		AND occupancy_id = ANY($2)`, nil
}

// PopRatios returns the ratios of the regions for one time of day.
func (r *ExposureRepo) PopRatios(ctx context.Context, regionIDs []int64, tod domain.TimeOfDay, occupancy []int) ([]domain.PopRatio, error) {
	query, err := popRatiosSQL(tod)
	if err != nil {
		return nil, err
	}
	if len(regionIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, query, regionIDs, occupancy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratios []domain.PopRatio
	for rows.Next() {
		var pr domain.PopRatio
		if err := rows.Scan(&pr.RegionCode, &pr.Occupancy, &pr.IsUrban, &pr.Ratio); err != nil {
			return nil, err
		}
		ratios = append(ratios, pr)
	}
	return ratios, rows.Err()
}

func dwellingFractionsSQL(cols domain.AdminLevelColumns) string {
	col := pgx.Identifier{"gr", cols.Column}.Sanitize()
	return `
		SELECT DISTINCT ` + col + `, df.occupancy_id, df.is_urban,
		       df.building_type, df.dwelling_fraction
		FROM ged2.dwelling_fraction df
		JOIN ged2.geographic_region gr ON gr.id = df.geographic_region_id
		WHERE ` + col + ` = ANY($1)
		AND df.occupancy_id = ANY($2)`
}

// DwellingFractions returns the taxonomy fractions of the admin units.
func (r *ExposureRepo) DwellingFractions(ctx context.Context, adminIDs []int64, occupancy []int, cols domain.AdminLevelColumns) ([]domain.DwellingFraction, error) {
	if len(adminIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, dwellingFractionsSQL(cols), adminIDs, occupancy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fractions []domain.DwellingFraction
	for rows.Next() {
		var df domain.DwellingFraction
		if err := rows.Scan(&df.AdminLevelID, &df.Occupancy, &df.IsUrban, &df.Taxonomy, &df.Fraction); err != nil {
			return nil, err
		}
		fractions = append(fractions, df)
	}
	return fractions, rows.Err()
}
