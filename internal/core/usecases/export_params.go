package usecases

import (
	"github.com/gemfoundation/exposure/internal/core/domain"
)

var adminLevelColumns = map[domain.AdminLevel]domain.AdminLevelColumns{
	domain.Admin0: {Column: "gadm_country_id", Table: "gadm_country"},
	domain.Admin1: {Column: "gadm_admin_1_id", Table: "gadm_admin_1"},
	domain.Admin2: {Column: "gadm_admin_2_id", Table: "gadm_admin_2"},
	domain.Admin3: {Column: "gadm_admin_3_id", Table: "gadm_admin_3"},
}

var timesOfDay = []domain.TimeOfDay{
	domain.TimeOfDayDay,
	domain.TimeOfDayNight,
	domain.TimeOfDayTransit,
	domain.TimeOfDayAll,
	domain.TimeOfDayOff,
}

// ParseOutputFormat accepts "csv" or "nrml".
func ParseOutputFormat(s string) (domain.OutputFormat, error) {
	switch f := domain.OutputFormat(s); f {
	case domain.FormatCSV, domain.FormatNRML:
		return f, nil
	}
	return "", &domain.UnsupportedFormatError{Format: s}
}

// OccupancyFor maps a residential selection to occupancy codes.
func OccupancyFor(sel domain.Residential) ([]int, error) {
	switch sel {
	case domain.ResidentialRes:
		return []int{domain.OccupancyResidential}, nil
	case domain.ResidentialNonRes:
		return []int{domain.OccupancyNonResidential}, nil
	case domain.ResidentialBoth:
		return []int{domain.OccupancyResidential, domain.OccupancyNonResidential}, nil
	}
	return nil, &domain.InvalidParameterError{
		Name:    "residential",
		Value:   string(sel),
		Allowed: []string{"res", "non-res", "both"},
	}
}

// AdminLevelColumnsFor resolves an admin level to its region column and GADM table.
func AdminLevelColumnsFor(level domain.AdminLevel) (domain.AdminLevelColumns, error) {
	cols, ok := adminLevelColumns[level]
	if !ok {
		allowed := make([]string, len(domain.AdminLevels))
		for i, l := range domain.AdminLevels {
			allowed[i] = string(l)
		}
		return domain.AdminLevelColumns{}, &domain.InvalidParameterError{
			Name:    "adminLevel",
			Value:   string(level),
			Allowed: allowed,
		}
	}
	return cols, nil
}

// ValidateTimeOfDay rejects anything outside day, night, transit, all, off.
func ValidateTimeOfDay(tod domain.TimeOfDay) error {
	for _, t := range timesOfDay {
		if t == tod {
			return nil
		}
	}
	allowed := make([]string, len(timesOfDay))
	for i, t := range timesOfDay {
		allowed[i] = string(t)
	}
	return &domain.InvalidParameterError{
		Name:    "timeOfDay",
		Value:   string(tod),
		Allowed: allowed,
	}
}
