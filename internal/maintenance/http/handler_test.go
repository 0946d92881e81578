package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/db/dbtest"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger/ledgertest"
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance"
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance/maintenancetest"
	"github.com/nekogravitycat/mall-admin-backend/internal/notify/notifytest"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
)

var (
	opsManager = auth.Actor{ID: "u-ops", Role: auth.RoleOperationsManager, Department: "operations"}
	technician = auth.Actor{ID: "u-tech", Role: auth.RoleStaff, Department: "facilities"}
	tenant     = auth.Actor{ID: "t-cafe", Role: auth.RoleTenant}
	neighbour  = auth.Actor{ID: "t-books", Role: auth.RoleTenant}
	marketing  = auth.Actor{ID: "u-mkt", Role: auth.RoleMarketingManager, Department: "marketing"}
)

type testServer struct {
	router   *gin.Engine
	jwt      *auth.JWTManager
	notifier *notifytest.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := maintenancetest.New()
	events := ledgertest.New()
	events.RegisterOwners(ledger.OwnerMaintenance, repo.Exists)
	tx := dbtest.NewTxManager(repo, events)
	notifier := notifytest.New()
	svc := maintenance.NewService(repo, ledger.NewService(events, tx, nil), status.NewDeriver(), tx, notifier)

	jwt := auth.NewJWTManager("test-secret", time.Hour)
	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), auth.AuthRequired(jwt))
	return &testServer{router: r, jwt: jwt, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body any, actor auth.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	token, err := s.jwt.GenerateAccessToken(actor)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestMaintenanceWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	category := "electrical"
	w := s.do(t, http.MethodPost, "/v1/maintenance", CreateMaintenanceRequest{
		Description: "Sign lights are out",
		Category:    &category,
		Workers:     []string{"Reza"},
	}, tenant)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created MaintenanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, tenant.ID, created.TenantID)
	assert.Equal(t, []string{"Reza"}, created.Workers)
	assert.Equal(t, []string{maintenance.TopicRequested}, s.notifier.Topics())

	// Tenants file requests but do not work them.
	w = s.do(t, http.MethodPost, "/v1/maintenance/"+created.ID+"/workflow", AppendStepRequest{Step: "completed"}, tenant)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assignee := technician.ID
	w = s.do(t, http.MethodPost, "/v1/maintenance/"+created.ID+"/workflow", AppendStepRequest{Step: "assigned", AssignedTo: &assignee}, opsManager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var step StepResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &step))
	assert.Equal(t, "in_progress", step.Request.Status)
	assert.Equal(t, "assigned", step.Event.Step)
	require.NotNil(t, step.Request.AssignedTo)
	assert.Equal(t, technician.ID, *step.Request.AssignedTo)

	w = s.do(t, http.MethodPost, "/v1/maintenance/"+created.ID+"/workflow", AppendStepRequest{Step: "resolved"}, technician)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &step))
	assert.Equal(t, "resolved", step.Request.Status)
	assert.NotNil(t, step.Request.ResolvedAt)

	w = s.do(t, http.MethodGet, "/v1/maintenance/"+created.ID+"/workflow", nil, tenant)
	require.Equal(t, http.StatusOK, w.Code)
	var history response.ListResponse[map[string]any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Equal(t, 3, history.Total)

	// Another tenant can neither read the request nor find it in a listing.
	w = s.do(t, http.MethodGet, "/v1/maintenance/"+created.ID, nil, neighbour)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/v1/maintenance", nil, neighbour)
	require.Equal(t, http.StatusOK, w.Code)
	var page response.PageResponse[MaintenanceResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Zero(t, page.Total)

	w = s.do(t, http.MethodGet, "/v1/maintenance?status=resolved", nil, opsManager)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, created.ID, page.Items[0].ID)
}

func TestMaintenanceEndpointsRejectBadInput(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/maintenance", CreateMaintenanceRequest{}, tenant)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/maintenance", CreateMaintenanceRequest{Description: "No tenant"}, opsManager)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/maintenance", CreateMaintenanceRequest{TenantID: "t-cafe", Description: "Banner"}, marketing)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/v1/maintenance/not-a-uuid", nil, opsManager)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/maintenance/"+uuid.NewString(), nil, opsManager)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/v1/maintenance/"+uuid.NewString()+"/workflow", AppendStepRequest{Step: "assigned"}, opsManager)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/v1/maintenance?status=fixed", nil, opsManager)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
