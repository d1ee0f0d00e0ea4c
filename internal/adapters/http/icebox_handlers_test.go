package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	handler "github.com/gemfoundation/exposure/internal/adapters/http"
	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/usecases"
)

func withCalculations(repo *mockCalcRepo, pub *mockPublisher) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		if pub == nil {
			d.Calculations = usecases.NewCalculationService(repo, nil)
			return
		}
		d.Calculations = usecases.NewCalculationService(repo, pub)
	}
}

// storedCalc returns a repo holding one calculation whose status updates are kept.
func storedCalc(calc *domain.Calculation) *mockCalcRepo {
	return &mockCalcRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.Calculation, error) {
			if id != calc.ID {
				return nil, nil
			}
			c := *calc
			return &c, nil
		},
		updateStatusFn: func(ctx context.Context, id int64, status domain.CalculationStatus) error {
			calc.Status = status
			return nil
		},
	}
}

func do(t *testing.T, deps *handler.Dependencies, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	app := setupApp(deps)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+token(t))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestListCalculations_Pagination(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockCalcRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.Calculation, int, error) {
			gotOffset, gotLimit = offset, limit
			return []domain.Calculation{{ID: 3}, {ID: 4}}, 6, nil
		},
	}
	resp := do(t, makeDeps(withCalculations(repo, nil)), "GET", "/icebox/calculations?offset=2&limit=2", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotOffset != 2 || gotLimit != 2 {
		t.Errorf("repo called with offset=%d limit=%d", gotOffset, gotLimit)
	}

	var result struct {
		Data       []domain.Calculation `json:"data"`
		Pagination handler.Pagination   `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data) != 2 || result.Pagination.Total != 6 {
		t.Errorf("unexpected page %+v", result)
	}

	link := resp.Header.Get("Link")
	for _, want := range []string{
		`</icebox/calculations?offset=0&limit=2>; rel="first"`,
		`</icebox/calculations?offset=0&limit=2>; rel="prev"`,
		`</icebox/calculations?offset=4&limit=2>; rel="next"`,
		`</icebox/calculations?offset=4&limit=2>; rel="last"`,
	} {
		if !strings.Contains(link, want) {
			t.Errorf("Link header %q missing %q", link, want)
		}
	}
}

func TestListCalculations_EmptyIsArray(t *testing.T) {
	resp := do(t, makeDeps(), "GET", "/icebox/calculations", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := string(readBody(t, resp.Body)); !strings.Contains(body, `"data":[]`) {
		t.Errorf("expected an empty data array, got %s", body)
	}
}

func TestCreateCalculation_Form(t *testing.T) {
	var created *domain.Calculation
	repo := &mockCalcRepo{
		createFn: func(ctx context.Context, calc *domain.Calculation) error {
			calc.ID = 5
			created = calc
			return nil
		},
	}
	resp := do(t, makeDeps(withCalculations(repo, nil)), "POST", "/icebox/calculations",
		"application/x-www-form-urlencoded", strings.NewReader("calculation_type=hazard"))

	if resp.StatusCode != 303 {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/icebox/calculations/5" {
		t.Errorf("Location = %q", loc)
	}
	if created == nil || created.CalculationType != "hazard" || created.Status != domain.CalculationCreated {
		t.Fatalf("unexpected calculation %+v", created)
	}
	if created.OwnerEmail != testUser.Email {
		t.Errorf("owner should default to the caller, got %q", created.OwnerEmail)
	}
}

func TestCreateCalculation_Invalid(t *testing.T) {
	resp := do(t, makeDeps(), "POST", "/icebox/calculations",
		"application/json", strings.NewReader(`{"calculation_type":"  ","owner_email":"nope"}`))
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatal(err)
	}
	if len(apiErr.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %+v", apiErr.Fields)
	}
}

func TestGetCalculation(t *testing.T) {
	deps := makeDeps(withCalculations(storedCalc(&domain.Calculation{ID: 9, CalculationType: "risk"}), nil))

	resp := do(t, deps, "GET", "/icebox/calculations/9", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var calc domain.Calculation
	if err := json.NewDecoder(resp.Body).Decode(&calc); err != nil {
		t.Fatal(err)
	}
	if calc.ID != 9 || calc.CalculationType != "risk" {
		t.Errorf("unexpected calculation %+v", calc)
	}

	if resp := do(t, deps, "GET", "/icebox/calculations/10", "", nil); resp.StatusCode != 404 {
		t.Errorf("missing calculation: expected 404, got %d", resp.StatusCode)
	}
	if resp := do(t, deps, "GET", "/icebox/calculations/abc", "", nil); resp.StatusCode != 400 {
		t.Errorf("bad id: expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateCalculation_Status(t *testing.T) {
	calc := &domain.Calculation{ID: 9, Status: domain.CalculationProcessing}
	pub := &mockPublisher{}
	deps := makeDeps(withCalculations(storedCalc(calc), pub))

	resp := do(t, deps, "POST", "/icebox/calculations/9",
		"application/x-www-form-urlencoded", strings.NewReader("status=complete"))
	if resp.StatusCode != 303 {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if calc.Status != domain.CalculationComplete {
		t.Errorf("status = %s, want complete", calc.Status)
	}
	if len(pub.statuses) != 1 {
		t.Errorf("expected a status event, got %d", len(pub.statuses))
	}

	resp = do(t, deps, "POST", "/icebox/calculations/9",
		"application/x-www-form-urlencoded", strings.NewReader("status=finished"))
	if resp.StatusCode != 400 {
		t.Errorf("unknown status: expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateCalculation_ProcessLayers(t *testing.T) {
	calc := &domain.Calculation{ID: 9, Status: domain.CalculationCreated}
	pub := &mockPublisher{}
	deps := makeDeps(withCalculations(storedCalc(calc), pub))

	resp := do(t, deps, "POST", "/icebox/calculations/9", "", nil)
	if resp.StatusCode != 303 {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if calc.Status != domain.CalculationProcessing {
		t.Errorf("status = %s, want processing", calc.Status)
	}
	if len(pub.process) != 1 || pub.process[0].CalculationID != 9 {
		t.Errorf("expected a process request for calculation 9, got %+v", pub.process)
	}

	if resp := do(t, deps, "POST", "/icebox/calculations/10", "", nil); resp.StatusCode != 404 {
		t.Errorf("missing calculation: expected 404, got %d", resp.StatusCode)
	}
}

func TestCalculationArtifacts(t *testing.T) {
	repo := storedCalc(&domain.Calculation{ID: 9})
	repo.artifactGroupsFn = func(ctx context.Context, id int64) ([]domain.ArtifactGroup, error) {
		return []domain.ArtifactGroup{{ID: 1, CalculationID: id, Name: "loss maps",
			Artifacts: []domain.Artifact{{ID: 11, Name: "loss_map_0.1"}}}}, nil
	}

	resp := do(t, makeDeps(withCalculations(repo, nil)), "GET", "/icebox/calculations/9/artifacts", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var groups []domain.ArtifactGroup
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Artifacts) != 1 {
		t.Errorf("unexpected groups %+v", groups)
	}
}
