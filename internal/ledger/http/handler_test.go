package http

import (
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
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
)

func TestReadLedger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	taskID := uuid.NewString()
	repo := ledgertest.New()
	repo.RegisterOwners(ledger.OwnerTask, func(id string) bool { return id == taskID })
	svc := ledger.NewService(repo, dbtest.NewTxManager(repo), nil)

	for _, step := range []string{"created", "completed"} {
		_, err := svc.Append(context.Background(), ledger.AppendRequest{OwnerType: ledger.OwnerTask, OwnerID: taskID, Step: step})
		require.NoError(t, err)
	}

	jwt := auth.NewJWTManager("test-secret", time.Hour)
	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), auth.AuthRequired(jwt))

	get := func(path string, actor auth.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		token, err := jwt.GenerateAccessToken(actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	manager := auth.Actor{ID: "u-mgr", Role: auth.RoleManager}

	w := get("/v1/ledger/task/"+taskID, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body response.ListResponse[EventResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Total)
	assert.Equal(t, "created", body.Items[0].Step)
	assert.Equal(t, "completed", body.Items[1].Step)
	assert.Less(t, body.Items[0].Seq, body.Items[1].Seq)

	assert.Equal(t, http.StatusBadRequest, get("/v1/ledger/invoice/"+taskID, manager).Code)
	assert.Equal(t, http.StatusBadRequest, get("/v1/ledger/task/"+uuid.NewString(), manager).Code)
	assert.Equal(t, http.StatusForbidden, get("/v1/ledger/task/"+taskID, auth.Actor{ID: "t", Role: auth.RoleTenant}).Code)
}
