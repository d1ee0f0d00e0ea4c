package domain

// OutputFormat selects how an export is serialized.
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatNRML OutputFormat = "nrml"
)

// OutputFormats lists the accepted formats in the order they are reported to users.
var OutputFormats = []OutputFormat{FormatNRML, FormatCSV}

// ExportKind distinguishes the building exposure export from the raw
// population export.
type ExportKind string

const (
	ExportBuilding   ExportKind = "building"
	ExportPopulation ExportKind = "population"
)

// Residential is the user's occupancy selection.
type Residential string

const (
	ResidentialRes    Residential = "res"
	ResidentialNonRes Residential = "non-res"
	ResidentialBoth   Residential = "both"
)

// Occupancy codes stored in the exposure database.
const (
	OccupancyResidential    = 0
	OccupancyNonResidential = 1
)

// TimeOfDay selects which population ratio column scales the grid population.
type TimeOfDay string

const (
	TimeOfDayDay     TimeOfDay = "day"
	TimeOfDayNight   TimeOfDay = "night"
	TimeOfDayTransit TimeOfDay = "transit"
	TimeOfDayAll     TimeOfDay = "all"
	TimeOfDayOff     TimeOfDay = "off"
)

// AdminLevel is a GADM administrative subdivision granularity.
type AdminLevel string

const (
	Admin0 AdminLevel = "admin0"
	Admin1 AdminLevel = "admin1"
	Admin2 AdminLevel = "admin2"
	Admin3 AdminLevel = "admin3"
)

// AdminLevels lists every supported level, coarsest first.
var AdminLevels = []AdminLevel{Admin0, Admin1, Admin2, Admin3}

// AdminLevelColumns names the geographic_region column holding the GADM id
// for a level, and the GADM table that id points into.
type AdminLevelColumns struct {
	Column string `json:"column"`
	Table  string `json:"table"`
}

// ExportRequest is a fully parsed export query. It is immutable once built.
type ExportRequest struct {
	Kind        ExportKind   `json:"kind"`
	Format      OutputFormat `json:"format"`
	Residential Residential  `json:"residential,omitempty"`
	TimeOfDay   TimeOfDay    `json:"time_of_day,omitempty"`
	AdminLevel  AdminLevel   `json:"admin_level,omitempty"`
	Box         BoundingBox  `json:"box"`
}

// PopulationRow is one grid cell of the population table.
type PopulationRow struct {
	GridID       int64   `json:"grid_id"`
	Lon          float64 `json:"lon"`
	Lat          float64 `json:"lat"`
	ISO          string  `json:"iso"`
	StudyRegion  int64   `json:"study_region"`
	AdminLevelID int64   `json:"admin_level_id"`
	IsUrban      bool    `json:"is_urban"`
	Population   float64 `json:"population"`
}

// PopRatio scales a region's raw population into the share present at the
// selected time of day for one occupancy.
type PopRatio struct {
	RegionCode int64   `json:"region_code"`
	Occupancy  int     `json:"occupancy"`
	IsUrban    bool    `json:"is_urban"`
	Ratio      float64 `json:"ratio"`
}

// DwellingFraction distributes an admin unit's population over one building
// taxonomy.
type DwellingFraction struct {
	AdminLevelID int64   `json:"admin_level_id"`
	Occupancy    int     `json:"occupancy"`
	IsUrban      bool    `json:"is_urban"`
	Taxonomy     string  `json:"taxonomy"`
	Fraction     float64 `json:"fraction"`
}

// Asset is one exported exposure record.
type Asset struct {
	ISO          string  `json:"iso"`
	Value        float64 `json:"value"`
	GridID       int64   `json:"grid_id"`
	Lon          float64 `json:"lon"`
	Lat          float64 `json:"lat"`
	StudyRegion  int64   `json:"study_region"`
	AdminLevelID int64   `json:"admin_level_id"`
	Taxonomy     string  `json:"taxonomy"`
}

// ExportEvent is published once an export stream has finished.
type ExportEvent struct {
	ID        string       `json:"id"`
	Kind      ExportKind   `json:"kind"`
	Format    OutputFormat `json:"format"`
	UserID    string       `json:"user_id,omitempty"`
	Records   int          `json:"records"`
	Truncated bool         `json:"truncated"`
}
