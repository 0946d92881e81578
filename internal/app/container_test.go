package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/db"
)

// These tests run against a real Postgres and are skipped unless TEST_DB_DSN is set.

type env struct {
	container *Container
	pool      *pgxpool.Pool
}

func setup(t *testing.T) *env {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn, db.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.ApplySchema(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE TABLE public.workflow_events, public.permit_workers, public.permit_approvals,
		public.permit_requests, public.tasks, public.maintenance_requests, public.contracts, public.shops CASCADE`)
	require.NoError(t, err)

	c, err := NewContainer(Config{
		DBPool:        pool,
		JWTSecret:     "integration-secret",
		JWTTTL:        30 * time.Minute,
		NotifyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &env{container: c, pool: pool}
}

func (e *env) do(t *testing.T, method, path string, body any, actor auth.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	token, err := e.container.JWTManager.GenerateAccessToken(actor)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	e.container.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var manager = auth.Actor{ID: uuid.NewString(), Role: auth.RoleManager}

func createShop(t *testing.T, e *env, name string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/shops", map[string]any{"name": name, "location": "Level 1", "size": 42.5}, manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["id"].(string)
}

func TestContractConflictAgainstPostgres(t *testing.T) {
	e := setup(t)
	shopID := createShop(t, e, "Shop A")
	day := func(d int) time.Time { return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC) }

	w := e.do(t, http.MethodPost, "/v1/contracts", map[string]any{
		"shop_id": shopID, "tenant_id": "T1", "start_time": day(1), "end_time": day(31), "amount": 1000,
	}, manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[map[string]any](t, w)["id"].(string)

	w = e.do(t, http.MethodPost, "/v1/contracts/"+first+"/status", map[string]any{"status": "active"}, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/v1/contracts", map[string]any{
		"shop_id": shopID, "tenant_id": "T2", "start_time": day(15), "end_time": time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
	}, manager)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Back-to-back periods do not overlap.
	w = e.do(t, http.MethodPost, "/v1/contracts", map[string]any{
		"shop_id": shopID, "tenant_id": "T2", "start_time": day(31), "end_time": time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	}, manager)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/v1/ledger/contract/"+first, nil, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	history := decode[map[string]any](t, w)
	assert.EqualValues(t, 2, history["total"])
}

func TestConcurrentActivationAgainstPostgres(t *testing.T) {
	e := setup(t)
	shopID := createShop(t, e, "Shop B")
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var drafts []string
	for i := 0; i < 2; i++ {
		// Drafts do not occupy, so both overlapping drafts are accepted.
		w := e.do(t, http.MethodPost, "/v1/contracts", map[string]any{
			"shop_id": shopID, "tenant_id": uuid.NewString(), "start_time": start, "end_time": start.AddDate(0, 1, 0),
		}, manager)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		drafts = append(drafts, decode[map[string]any](t, w)["id"].(string))
	}

	codes := make([]int, len(drafts))
	var wg sync.WaitGroup
	for i, id := range drafts {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			codes[i] = e.do(t, http.MethodPost, "/v1/contracts/"+id+"/status", map[string]any{"status": "active"}, manager).Code
		}(i, id)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)
}

func TestPermitAndTaskFlowsAgainstPostgres(t *testing.T) {
	e := setup(t)
	tenant := auth.Actor{ID: uuid.NewString(), Role: auth.RoleTenant}
	from := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	w := e.do(t, http.MethodPost, "/v1/permits", map[string]any{
		"company_name": "Bright Fitouts", "job_location": "G-12", "onsite_in_charge": "Sam",
		"contact_no": "555", "tenant_or_contractor": "contractor", "job_date_from": from,
		"job_date_to": from.AddDate(0, 0, 1), "job_type": "electrical", "requested_by": "Kim",
		"workers": []map[string]any{{"name": "A. Worker"}},
	}, tenant)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	permitID := decode[map[string]any](t, w)["id"].(string)

	for party, role := range map[string]auth.Role{
		"facilities": auth.RoleFacilitiesManager,
		"marketing":  auth.RoleMarketingManager,
		"operations": auth.RoleOperationsManager,
	} {
		w = e.do(t, http.MethodPost, "/v1/permits/"+permitID+"/approve/"+party, nil, auth.Actor{ID: uuid.NewString(), Role: role})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, "approved", decode[map[string]any](t, w)["status"])

	ops := auth.Actor{ID: uuid.NewString(), Role: auth.RoleOperationsManager, Department: "operations"}
	w = e.do(t, http.MethodPost, "/v1/tasks", map[string]any{"title": "Inspect wiring", "department_id": "operations"}, ops)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	taskID := decode[map[string]any](t, w)["id"].(string)

	for _, step := range []string{"yellow_warning", "returned"} {
		w = e.do(t, http.MethodPost, "/v1/tasks/"+taskID+"/workflow", map[string]any{"step": step}, ops)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	got := decode[map[string]map[string]any](t, w)
	assert.Equal(t, "returned", got["task"]["status"])
}

func TestMaintenanceFlowAgainstPostgres(t *testing.T) {
	e := setup(t)
	tenant := auth.Actor{ID: uuid.NewString(), Role: auth.RoleTenant}
	fm := auth.Actor{ID: uuid.NewString(), Role: auth.RoleFacilitiesManager, Department: "facilities"}

	w := e.do(t, http.MethodPost, "/v1/maintenance", map[string]any{
		"description": "Water leak behind the counter", "category": "plumbing", "workers": []string{"Reza", "Nima"},
	}, tenant)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, []any{"Reza", "Nima"}, created["workers"])

	for _, step := range []string{"assigned", "completed"} {
		w = e.do(t, http.MethodPost, "/v1/maintenance/"+id+"/workflow", map[string]any{"step": step}, fm)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	got := decode[map[string]map[string]any](t, w)
	assert.Equal(t, "resolved", got["request"]["status"])
	assert.NotNil(t, got["request"]["resolved_at"])

	w = e.do(t, http.MethodGet, "/v1/ledger/maintenance/"+id, nil, auth.Actor{ID: uuid.NewString(), Role: auth.RoleManager})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 3, decode[map[string]any](t, w)["total"])
}
