package http_test

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	handler "github.com/gemfoundation/exposure/internal/adapters/http"
	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
	"github.com/gemfoundation/exposure/internal/core/usecases"
)

const largeBox = "lat1=0&lng1=0&lat2=10&lng2=10"

// exposureRepo serves one populated cell with two building taxonomies.
func exposureRepo() *mockExposureRepo {
	return &mockExposureRepo{
		adminAndRegionIDsFn: func(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) ([]int64, []int64, error) {
			return []int64{3}, []int64{7}, nil
		},
		populationTableFn: func(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (ports.PopulationRows, error) {
			return &mockRows{rows: []domain.PopulationRow{
				{GridID: 1001, Lon: 8.5, Lat: 45.5, ISO: "ITA", StudyRegion: 7, AdminLevelID: 3, IsUrban: true, Population: 100},
			}}, nil
		},
		popRatiosFn: func(ctx context.Context, regionIDs []int64, tod domain.TimeOfDay, occupancy []int) ([]domain.PopRatio, error) {
			return []domain.PopRatio{{RegionCode: 7, Occupancy: 0, IsUrban: true, Ratio: 0.5}}, nil
		},
		dwellingFractionsFn: func(ctx context.Context, adminIDs []int64, occupancy []int, cols domain.AdminLevelColumns) ([]domain.DwellingFraction, error) {
			return []domain.DwellingFraction{
				{AdminLevelID: 3, Occupancy: 0, IsUrban: true, Taxonomy: "MUR/LWAL", Fraction: 0.25},
				{AdminLevelID: 3, Occupancy: 0, IsUrban: true, Taxonomy: "CR/LFINF", Fraction: 0.75},
			}, nil
		},
	}
}

func withExports(repo *mockExposureRepo, pub ports.EventPublisher) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Exports = usecases.NewExportService(repo, pub, 4)
	}
}

func get(t *testing.T, deps *handler.Dependencies, path string) (int, map[string]string, string) {
	t.Helper()
	app := setupApp(deps)
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", "Bearer "+token(t))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	headers := map[string]string{}
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, headers, string(readBody(t, resp.Body))
}

func buildingPath(format string) string {
	return "/exposure/export_building?outputType=" + format + "&residential=res&timeOfDay=day&adminLevel=admin0&" + smallBox
}

func TestExportBuilding_CSV(t *testing.T) {
	pub := &mockPublisher{}
	status, headers, body := get(t, makeDeps(withExports(exposureRepo(), pub)),
		buildingPath("csv"))

	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if ct := headers["Content-Type"]; ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := headers["Content-Disposition"]; cd != `attachment; filename="exposure_export.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	for _, want := range []string{
		"# Version 1.0 released on 31.01.2013\n",
		"\nISO, pop_calculated_value, pop_cell_ID, lon, lat, study_region, gadm_level_id, GEM_taxonomy\n",
		"\nITA,12.5,1001,8.5,45.5,7,3,MUR/LWAL\n",
		"\nITA,37.5,1001,8.5,45.5,7,3,CR/LFINF\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	if len(pub.exports) != 1 {
		t.Fatalf("expected 1 export event, got %d", len(pub.exports))
	}
	if ev := pub.exports[0]; ev.Records != 2 || ev.Truncated || ev.UserID != testUser.ID {
		t.Errorf("unexpected export event %+v", ev)
	}
}

func TestExportBuilding_NRML(t *testing.T) {
	status, headers, body := get(t, makeDeps(withExports(exposureRepo(), nil)),
		buildingPath("nrml"))

	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if ct := headers["Content-Type"]; ct != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if cd := headers["Content-Disposition"]; cd != `attachment; filename="exposure_export.xml"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	dec := xml.NewDecoder(strings.NewReader(body))
	assets := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("document is not well-formed: %v", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "assetDefinition" {
			assets++
		}
	}
	if assets != 2 {
		t.Errorf("expected 2 assets, got %d", assets)
	}
}

func TestExportBuilding_LargeBoxIsForbiddenBeforeFormatCheck(t *testing.T) {
	repo := exposureRepo()
	status, headers, body := get(t, makeDeps(withExports(repo, nil)),
		"/exposure/export_building?outputType=pdf&residential=res&timeOfDay=day&adminLevel=admin0&"+largeBox)

	if status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}
	if !strings.HasPrefix(headers["Content-Type"], "text/html") {
		t.Errorf("Content-Type = %q, want text/html", headers["Content-Type"])
	}
	if !strings.Contains(body, "exceeds the max allowed size") {
		t.Errorf("unexpected body %q", body)
	}
	if repo.calls != 0 {
		t.Errorf("repository should not be called, got %d calls", repo.calls)
	}
}

func TestExportBuilding_UnsupportedFormat(t *testing.T) {
	repo := exposureRepo()
	status, _, body := get(t, makeDeps(withExports(repo, nil)),
		buildingPath("pdf"))

	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal([]byte(body), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Message != "Unrecognized output type 'pdf', only 'nrml' and 'csv' are supported" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.RequestID == "" {
		t.Error("request id should be set")
	}
	if repo.calls != 0 {
		t.Errorf("repository should not be called, got %d calls", repo.calls)
	}
}

func TestExportBuilding_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			"residential",
			"outputType=csv&residential=x&timeOfDay=day&adminLevel=admin0&" + smallBox,
			"Invalid 'residential' selection: 'x'. Expected 'res', 'non-res', or 'both'.",
		},
		{
			"admin level",
			"outputType=csv&residential=res&timeOfDay=day&adminLevel=admin4&" + smallBox,
			"Invalid 'adminLevel' selection: 'admin4'. Expected 'admin0', 'admin1', 'admin2', or 'admin3'.",
		},
		{
			"time of day",
			"outputType=csv&residential=res&timeOfDay=tea_time&adminLevel=admin0&" + smallBox,
			"Invalid 'timeOfDay' selection: 'tea_time'. Expected 'day', 'night', 'transit', 'all', or 'off'.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, body := get(t, makeDeps(withExports(exposureRepo(), nil)), "/exposure/export_building?"+tt.query)
			if status != 400 {
				t.Fatalf("expected 400, got %d", status)
			}
			var apiErr handler.APIError
			if err := json.Unmarshal([]byte(body), &apiErr); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if apiErr.Message != tt.want {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.want)
			}
		})
	}
}

func TestExportBuilding_MissingCoordinates(t *testing.T) {
	status, _, body := get(t, makeDeps(), "/exposure/export_building?outputType=csv&lat1=45&lng1=8&lat2=46")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal([]byte(body), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "validation_failed" || len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "lng2" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestExportBuilding_OutOfRangeLatitude(t *testing.T) {
	status, _, _ := get(t, makeDeps(), "/exposure/export_building?outputType=csv&lat1=95&lng1=8&lat2=46&lng2=9")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestExportPopulation_CSV(t *testing.T) {
	status, headers, body := get(t, makeDeps(withExports(exposureRepo(), nil)),
		"/exposure/export_population?outputType=csv&"+smallBox)

	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if cd := headers["Content-Disposition"]; cd != `attachment; filename="exposure_export.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(body, "\nITA,100,1001,8.5,45.5,7\n") {
		t.Errorf("population row missing from %q", body)
	}
}

func TestExportPopulation_LargeBox(t *testing.T) {
	status, _, _ := get(t, makeDeps(withExports(exposureRepo(), nil)),
		"/exposure/export_population?outputType=csv&"+largeBox)
	if status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}
}

func TestValidateExport_LargeBox(t *testing.T) {
	app := setupApp(makeDeps())
	req := httptest.NewRequest("GET", "/exposure/validate_export?"+largeBox, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	body := string(readBody(t, resp.Body))
	for _, want := range []string{"Selected area: 100 square degrees", "Max selection area: 4 square degrees"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestBuildingForm(t *testing.T) {
	repo := &mockExposureRepo{
		availableAdminLevelsFn: func(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error) {
			return []domain.AdminLevel{domain.Admin0, domain.Admin1}, nil
		},
	}
	deps := makeDeps(func(d *handler.Dependencies) { d.Forms = usecases.NewFormService(repo, nil) })

	status, _, body := get(t, deps, "/exposure/building_form?"+smallBox)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var form struct {
		Lat1        float64  `json:"lat1"`
		Lng2        float64  `json:"lng2"`
		AdminLevels []string `json:"admin_levels"`
	}
	if err := json.Unmarshal([]byte(body), &form); err != nil {
		t.Fatal(err)
	}
	if form.Lat1 != 45 || form.Lng2 != 9 {
		t.Errorf("box not echoed: %+v", form)
	}
	if strings.Join(form.AdminLevels, ",") != "admin0,admin1" {
		t.Errorf("admin levels = %v", form.AdminLevels)
	}
}

func TestBuildingForm_NoAdminLevels(t *testing.T) {
	status, _, body := get(t, makeDeps(), "/exposure/building_form?"+smallBox)
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}
	if body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestPopulationForm(t *testing.T) {
	status, _, body := get(t, makeDeps(), "/exposure/population_form?lat1=45.5&lng1=8&lat2=46&lng2=9.25")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var form map[string]float64
	if err := json.Unmarshal([]byte(body), &form); err != nil {
		t.Fatal(err)
	}
	if form["lat1"] != 45.5 || form["lng2"] != 9.25 {
		t.Errorf("unexpected form %v", form)
	}
}
