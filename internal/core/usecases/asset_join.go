package usecases

import (
	"github.com/gemfoundation/exposure/internal/core/domain"
)

type ratioKey struct {
	region    int64
	occupancy int
	urban     bool
}

type fractionKey struct {
	admin int64
	urban bool
}

// assetJoiner indexes the ratio and dwelling-fraction tables so that each
// population row can be expanded on its own.
type assetJoiner struct {
	ratios    map[ratioKey]float64
	fractions map[fractionKey][]domain.DwellingFraction
}

func newAssetJoiner(ratios []domain.PopRatio, fractions []domain.DwellingFraction) *assetJoiner {
	j := &assetJoiner{
		ratios:    make(map[ratioKey]float64, len(ratios)),
		fractions: make(map[fractionKey][]domain.DwellingFraction),
	}
	for _, r := range ratios {
		k := ratioKey{region: r.RegionCode, occupancy: r.Occupancy, urban: r.IsUrban}
		if _, seen := j.ratios[k]; !seen {
			j.ratios[k] = r.Ratio
		}
	}
	for _, f := range fractions {
		k := fractionKey{admin: f.AdminLevelID, urban: f.IsUrban}
		j.fractions[k] = append(j.fractions[k], f)
	}
	return j
}

// expand returns one asset per dwelling fraction that applies to the row and
// has a ratio for the row's region. Rows without a match yield nothing.
func (j *assetJoiner) expand(row domain.PopulationRow, dst []domain.Asset) []domain.Asset {
	for _, f := range j.fractions[fractionKey{admin: row.AdminLevelID, urban: row.IsUrban}] {
		ratio, ok := j.ratios[ratioKey{region: row.StudyRegion, occupancy: f.Occupancy, urban: row.IsUrban}]
		if !ok {
			continue
		}
		dst = append(dst, domain.Asset{
			ISO:          row.ISO,
			Value:        row.Population * ratio * f.Fraction,
			GridID:       row.GridID,
			Lon:          row.Lon,
			Lat:          row.Lat,
			StudyRegion:  row.StudyRegion,
			AdminLevelID: row.AdminLevelID,
			Taxonomy:     f.Taxonomy,
		})
	}
	return dst
}

// populationAsset carries a bare population row through the encoders.
func populationAsset(row domain.PopulationRow) domain.Asset {
	return domain.Asset{
		ISO:          row.ISO,
		Value:        row.Population,
		GridID:       row.GridID,
		Lon:          row.Lon,
		Lat:          row.Lat,
		StudyRegion:  row.StudyRegion,
		AdminLevelID: row.AdminLevelID,
	}
}
