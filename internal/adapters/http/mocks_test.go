package http_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/gemfoundation/exposure/internal/adapters/http"
	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
	"github.com/gemfoundation/exposure/internal/core/usecases"
)

// ---- Mock repositories ----

type mockExposureRepo struct {
	availableAdminLevelsFn func(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error)
	adminAndRegionIDsFn    func(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) ([]int64, []int64, error)
	populationTableFn      func(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (ports.PopulationRows, error)
	popRatiosFn            func(ctx context.Context, regionIDs []int64, tod domain.TimeOfDay, occupancy []int) ([]domain.PopRatio, error)
	dwellingFractionsFn    func(ctx context.Context, adminIDs []int64, occupancy []int, cols domain.AdminLevelColumns) ([]domain.DwellingFraction, error)

	mu    sync.Mutex
	calls int
}

func (m *mockExposureRepo) called() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockExposureRepo) AvailableAdminLevels(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error) {
	m.called()
	if m.availableAdminLevelsFn != nil {
		return m.availableAdminLevelsFn(ctx, box)
	}
	return nil, nil
}

func (m *mockExposureRepo) AdminLevelAndRegionIDs(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) ([]int64, []int64, error) {
	m.called()
	if m.adminAndRegionIDsFn != nil {
		return m.adminAndRegionIDsFn(ctx, box, cols)
	}
	return nil, nil, nil
}

func (m *mockExposureRepo) PopulationTable(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (ports.PopulationRows, error) {
	m.called()
	if m.populationTableFn != nil {
		return m.populationTableFn(ctx, box, cols)
	}
	return &mockRows{}, nil
}

func (m *mockExposureRepo) PopRatios(ctx context.Context, regionIDs []int64, tod domain.TimeOfDay, occupancy []int) ([]domain.PopRatio, error) {
	m.called()
	if m.popRatiosFn != nil {
		return m.popRatiosFn(ctx, regionIDs, tod, occupancy)
	}
	return nil, nil
}

func (m *mockExposureRepo) DwellingFractions(ctx context.Context, adminIDs []int64, occupancy []int, cols domain.AdminLevelColumns) ([]domain.DwellingFraction, error) {
	m.called()
	if m.dwellingFractionsFn != nil {
		return m.dwellingFractionsFn(ctx, adminIDs, occupancy, cols)
	}
	return nil, nil
}

type mockRows struct {
	rows []domain.PopulationRow
	pos  int
}

func (r *mockRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *mockRows) Row() domain.PopulationRow { return r.rows[r.pos-1] }
func (r *mockRows) Err() error                { return nil }
func (r *mockRows) Close()                    {}

type mockCalcRepo struct {
	createFn         func(ctx context.Context, calc *domain.Calculation) error
	getByIDFn        func(ctx context.Context, id int64) (*domain.Calculation, error)
	listFn           func(ctx context.Context, offset, limit int) ([]domain.Calculation, int, error)
	updateStatusFn   func(ctx context.Context, id int64, status domain.CalculationStatus) error
	artifactGroupsFn func(ctx context.Context, id int64) ([]domain.ArtifactGroup, error)
}

func (m *mockCalcRepo) Create(ctx context.Context, calc *domain.Calculation) error {
	if m.createFn != nil {
		return m.createFn(ctx, calc)
	}
	return nil
}

func (m *mockCalcRepo) GetByID(ctx context.Context, id int64) (*domain.Calculation, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCalcRepo) List(ctx context.Context, offset, limit int) ([]domain.Calculation, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockCalcRepo) UpdateStatus(ctx context.Context, id int64, status domain.CalculationStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockCalcRepo) ArtifactGroups(ctx context.Context, id int64) ([]domain.ArtifactGroup, error) {
	if m.artifactGroupsFn != nil {
		return m.artifactGroupsFn(ctx, id)
	}
	return nil, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	process  []domain.CalculationEvent
	statuses []domain.CalculationEvent
	exports  []domain.ExportEvent
}

func (p *mockPublisher) PublishCalculationProcess(ctx context.Context, e *domain.CalculationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.process = append(p.process, *e)
	return nil
}

func (p *mockPublisher) PublishCalculationStatus(ctx context.Context, e *domain.CalculationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, *e)
	return nil
}

func (p *mockPublisher) PublishExportCompleted(ctx context.Context, e *domain.ExportEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exports = append(p.exports, *e)
	return nil
}

// ---- Test helpers ----

const testSecret = "test-secret"

var testUser = domain.User{ID: "42", Email: "risk@example.org", Name: "Risk Modeller"}

func testAuth() *handler.Authenticator {
	return handler.NewAuthenticator(testSecret, "oqp_session")
}

func token(t *testing.T) string {
	t.Helper()
	tok, err := testAuth().Sign(testUser, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: handler.ErrorHandler})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Exports:      usecases.NewExportService(&mockExposureRepo{}, nil, 4),
		Forms:        usecases.NewFormService(&mockExposureRepo{}, nil),
		Calculations: usecases.NewCalculationService(&mockCalcRepo{}, nil),
		Auth:         testAuth(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}
