package usecases_test

import (
	"context"
	"sync"

	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
)

// --- Mock ExposureRepository ---

type mockExposureRepo struct {
	availableAdminLevelsFn func(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error)
	adminAndRegionIDsFn    func(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) ([]int64, []int64, error)
	populationTableFn      func(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (ports.PopulationRows, error)
	popRatiosFn            func(ctx context.Context, regionIDs []int64, tod domain.TimeOfDay, occupancy []int) ([]domain.PopRatio, error)
	dwellingFractionsFn    func(ctx context.Context, adminIDs []int64, occupancy []int, cols domain.AdminLevelColumns) ([]domain.DwellingFraction, error)

	calls []string
}

func (m *mockExposureRepo) AvailableAdminLevels(ctx context.Context, box domain.BoundingBox) ([]domain.AdminLevel, error) {
	m.calls = append(m.calls, "admin_levels")
	if m.availableAdminLevelsFn != nil {
		return m.availableAdminLevelsFn(ctx, box)
	}
	return nil, nil
}

func (m *mockExposureRepo) AdminLevelAndRegionIDs(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) ([]int64, []int64, error) {
	m.calls = append(m.calls, "ids")
	if m.adminAndRegionIDsFn != nil {
		return m.adminAndRegionIDsFn(ctx, box, cols)
	}
	return nil, nil, nil
}

func (m *mockExposureRepo) PopulationTable(ctx context.Context, box domain.BoundingBox, cols domain.AdminLevelColumns) (ports.PopulationRows, error) {
	m.calls = append(m.calls, "population")
	if m.populationTableFn != nil {
		return m.populationTableFn(ctx, box, cols)
	}
	return &mockRows{}, nil
}

func (m *mockExposureRepo) PopRatios(ctx context.Context, regionIDs []int64, tod domain.TimeOfDay, occupancy []int) ([]domain.PopRatio, error) {
	m.calls = append(m.calls, "ratios")
	if m.popRatiosFn != nil {
		return m.popRatiosFn(ctx, regionIDs, tod, occupancy)
	}
	return nil, nil
}

func (m *mockExposureRepo) DwellingFractions(ctx context.Context, adminIDs []int64, occupancy []int, cols domain.AdminLevelColumns) ([]domain.DwellingFraction, error) {
	m.calls = append(m.calls, "fractions")
	if m.dwellingFractionsFn != nil {
		return m.dwellingFractionsFn(ctx, adminIDs, occupancy, cols)
	}
	return nil, nil
}

// --- Mock PopulationRows ---

type mockRows struct {
	rows   []domain.PopulationRow
	err    error
	pos    int
	closed int
}

func (r *mockRows) Next() bool {
	if r.closed > 0 || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *mockRows) Row() domain.PopulationRow { return r.rows[r.pos-1] }
func (r *mockRows) Err() error                { return r.err }
func (r *mockRows) Close()                    { r.closed++ }

// --- Mock CalculationRepository ---

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

// --- Mock EventPublisher ---

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

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
	ttls map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (c *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mockCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

// --- Mock Mailer ---

type sentMail struct {
	to, subject, body string
}

type mockMailer struct {
	sent   []sentMail
	sendFn func(to, subject, body string) error
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.sendFn != nil {
		if err := m.sendFn(to, subject, body); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
