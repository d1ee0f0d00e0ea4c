//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	handler "github.com/gemfoundation/exposure/internal/adapters/http"
	"github.com/gemfoundation/exposure/internal/adapters/postgres"
	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/usecases"
	"github.com/gemfoundation/exposure/internal/pkg/config"
)

// setupTestDB connects to the database configured through EXPOSURE_DATABASE_*.
// The icebox tables must exist (cmd/migrate up).
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("exposure-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	t.Cleanup(pool.Close)
	return &postgres.DB{Pool: pool}
}

// seedCalculation inserts a calculation with one artifact group of two
// artifacts and removes it when the test ends.
func seedCalculation(t *testing.T, db *postgres.DB) int64 {
	ctx := context.Background()
	repo := postgres.NewCalculationRepo(db)
	now := time.Now().UTC()
	calc := &domain.Calculation{
		CalculationType: "risk",
		Status:          domain.CalculationCreated,
		OwnerEmail:      testUser.Email,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.Create(ctx, calc); err != nil {
		t.Fatalf("seed calculation: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM icebox_calculation WHERE id = $1`, calc.ID)
	})

	var groupID int64
	if err := db.Pool.QueryRow(ctx, `
		INSERT INTO icebox_artifact_group (calculation_id, name) VALUES ($1, 'loss maps') RETURNING id
	`, calc.ID).Scan(&groupID); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO icebox_artifact (artifact_group_id, name) VALUES ($1, 'loss_map_0.1'), ($1, 'loss_map_0.5')
	`, groupID); err != nil {
		t.Fatalf("seed artifacts: %v", err)
	}
	return calc.ID
}

func TestIcebox_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	id := seedCalculation(t, db)

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Calculations = usecases.NewCalculationService(postgres.NewCalculationRepo(db), nil)
		d.DB = db
	})

	path := fmt.Sprintf("/icebox/calculations/%d", id)
	resp := do(t, deps, "GET", path, "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var calc domain.Calculation
	if err := json.NewDecoder(resp.Body).Decode(&calc); err != nil {
		t.Fatal(err)
	}
	if calc.OwnerEmail != testUser.Email || calc.Status != domain.CalculationCreated {
		t.Errorf("unexpected calculation %+v", calc)
	}

	resp = do(t, deps, "GET", path+"/artifacts", "", nil)
	var groups []domain.ArtifactGroup
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Artifacts) != 2 {
		t.Fatalf("unexpected groups %+v", groups)
	}

	resp = do(t, deps, "POST", path, "application/x-www-form-urlencoded", strings.NewReader("status=failed"))
	if resp.StatusCode != 303 {
		t.Fatalf("update: expected 303, got %d", resp.StatusCode)
	}
	got, err := postgres.NewCalculationRepo(db).GetByID(context.Background(), id)
	if err != nil || got == nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.CalculationFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}

	resp, err = setupApp(deps).Test(httptest.NewRequest("GET", "/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("ready: expected 200 with a live database, got %d", resp.StatusCode)
	}
}
