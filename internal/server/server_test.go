package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/smallbiznis/stockwise/internal/audit"
	"github.com/smallbiznis/stockwise/internal/auth"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/authorization"
	"github.com/smallbiznis/stockwise/internal/clock"
	"github.com/smallbiznis/stockwise/internal/config"
	"github.com/smallbiznis/stockwise/internal/inventory"
	"github.com/smallbiznis/stockwise/internal/locking"
	"github.com/smallbiznis/stockwise/internal/migration"
	"github.com/smallbiznis/stockwise/internal/observability"
	"github.com/smallbiznis/stockwise/internal/order"
	"github.com/smallbiznis/stockwise/internal/reorder"
	"github.com/smallbiznis/stockwise/internal/tenant"
	"github.com/smallbiznis/stockwise/pkg/db"
)

const testSecret = "server-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   errorPayload    `json:"error"`
}

type harness struct {
	srv     *Server
	authsvc authdomain.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.Apply(conn))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	h := &harness{}
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(
			conn,
			node,
			config.Config{AuthJWTSecret: testSecret, Environment: "test", HTTPAddr: ":0"},
		),
		fx.Provide(
			func() *zap.Logger { return zaptest.NewLogger(t) },
			func() clock.Clock { return clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) },
			func() *config.InventoryConfigHolder {
				return config.NewStaticInventoryConfigHolder(config.DefaultInventoryConfig())
			},
			func() *gin.Engine { return NewEngine(observability.Config{Environment: "test"}, nil) },
		),
		authorization.Module,
		audit.Module,
		auth.Module,
		tenant.Module,
		inventory.Module,
		order.Module,
		reorder.Module,
		fx.Provide(NewServer),
		fx.Populate(&h.srv, &h.authsvc),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return h
}

func (h *harness) user(t *testing.T, email string, role string) (string, string) {
	t.Helper()
	resp, err := h.authsvc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    email,
		Password: "correct-horse-battery",
		Role:     role,
	})
	require.NoError(t, err)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   resp.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return resp.ID, raw
}

func (h *harness) do(t *testing.T, method, path, token, tenantID string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if tenantID != "" {
		req.Header.Set(HeaderTenant, tenantID)
	}
	rec := httptest.NewRecorder()
	h.srv.Engine().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type idResponse struct {
	ID string `json:"id"`
}

// branch creates a tenant and enrolls members with the given per-tenant roles.
func (h *harness) branch(t *testing.T, adminToken string, name string, members map[string]string) string {
	t.Helper()
	rec, env := h.do(t, http.MethodPost, "/tenants", adminToken, "", gin.H{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tenantID := decodeData[idResponse](t, env).ID

	for userID, role := range members {
		rec, _ := h.do(t, http.MethodPut, "/members/"+userID, adminToken, tenantID, gin.H{"role": role})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	return tenantID
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec, _ := h.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	h := newHarness(t)
	rec, env := h.do(t, http.MethodGet, "/nope", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "not_found", env.Error.Type)
}

func TestBearerTokenIsRequired(t *testing.T) {
	h := newHarness(t)

	rec, env := h.do(t, http.MethodGet, "/inventory/items", "", "1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", env.Error.Type)

	rec, _ = h.do(t, http.MethodGet, "/inventory/items", "not-a-jwt", "1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantHeaderResolution(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.user(t, "admin@example.com", authorization.RoleAdmin)
	_, outsiderToken := h.user(t, "outsider@example.com", authorization.RoleStaff)
	tenantID := h.branch(t, adminToken, "North Branch", nil)

	rec, env := h.do(t, http.MethodGet, "/inventory/items", adminToken, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", env.Error.Type)

	rec, _ = h.do(t, http.MethodGet, "/inventory/items", adminToken, "branch-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/inventory/items", adminToken, "12345", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = h.do(t, http.MethodGet, "/inventory/items", outsiderToken, tenantID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Error.Type)

	// Global admins need no membership row.
	rec, env = h.do(t, http.MethodGet, "/inventory/items", adminToken, tenantID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestRejectedSweepDoesNotReachLimiter(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.user(t, "admin@example.com", authorization.RoleAdmin)
	tenantID := h.branch(t, adminToken, "North Branch", nil)

	// Nothing listens on port 1, so any limiter call fails as an internal error.
	guard, err := locking.NewGuard(fxtest.NewLifecycle(t), config.Config{
		RedisAddr:           "127.0.0.1:1",
		RedisLockTTLSeconds: 30,
		SweepRatePerMinute:  6,
		SweepBurst:          3,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	h.srv.guard = guard

	rec, env := h.do(t, http.MethodPost, "/reorders/auto", adminToken, tenantID, gin.H{"defaultRequestedQuantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", env.Error.Type)

	rec, env = h.do(t, http.MethodPost, "/reorders/auto", adminToken, tenantID, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", env.Error.Type)
}

func TestOnlyGlobalAdminsManageTenantsAndUsers(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.user(t, "admin@example.com", authorization.RoleAdmin)
	staffID, staffToken := h.user(t, "staff@example.com", authorization.RoleStaff)

	rec, _ := h.do(t, http.MethodPost, "/tenants", staffToken, "", gin.H{"name": "Rogue"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/users", staffToken, "", gin.H{"email": "x@example.com", "password": "long-enough-1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := h.do(t, http.MethodPost, "/users", adminToken, "", gin.H{"email": "new@example.com", "password": "long-enough-1", "role": "manager"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[authdomain.UserResponse](t, env)
	assert.Equal(t, "manager", created.Role)

	rec, env = h.do(t, http.MethodPost, "/users", adminToken, "", gin.H{"email": "new@example.com", "password": "long-enough-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error.Type)

	tenantID := h.branch(t, adminToken, "Main Branch", map[string]string{staffID: authorization.RoleStaff})

	rec, env = h.do(t, http.MethodGet, "/tenants", staffToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tenants := decodeData[[]struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}](t, env)
	require.Len(t, tenants, 1)
	assert.Equal(t, tenantID, tenants[0].ID)
	assert.Equal(t, authorization.RoleStaff, tenants[0].Role)

	// Staff may view members but not manage them.
	rec, _ = h.do(t, http.MethodGet, "/members", staffToken, tenantID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = h.do(t, http.MethodPut, "/members/"+created.ID, staffToken, tenantID, gin.H{"role": "staff"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type itemView struct {
	ID       string `json:"id"`
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

type orderView struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	StockAdjusted bool   `json:"stockAdjusted"`
}

func TestFulfillmentFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.user(t, "admin@example.com", authorization.RoleAdmin)
	staffID, staffToken := h.user(t, "staff@example.com", authorization.RoleStaff)
	managerID, managerToken := h.user(t, "manager@example.com", authorization.RoleStaff)
	tenantID := h.branch(t, adminToken, "Main Branch", map[string]string{
		staffID:   authorization.RoleStaff,
		managerID: authorization.RoleManager,
	})

	rec, env := h.do(t, http.MethodPost, "/inventory/items", staffToken, tenantID, gin.H{
		"sku":          "SKU-1",
		"name":         "Gauze",
		"quantity":     10,
		"reorderLevel": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decodeData[itemView](t, env)
	assert.Equal(t, int64(10), item.Quantity)

	rec, env = h.do(t, http.MethodPost, "/inventory/items/"+item.ID+"/adjust", staffToken, tenantID, gin.H{"delta": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", env.Error.Type)

	rec, env = h.do(t, http.MethodPost, "/inventory/items/"+item.ID+"/adjust", staffToken, tenantID, gin.H{"delta": -11})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient stock for SKU-1", env.Error.Message)

	rec, _ = h.do(t, http.MethodPost, "/inventory/items/12345/adjust", staffToken, tenantID, gin.H{"delta": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = h.do(t, http.MethodPost, "/orders", staffToken, tenantID, gin.H{
		"items": []gin.H{{"itemId": item.ID, "quantity": 6}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[orderView](t, env)
	assert.Equal(t, "created", created.Status)

	rec, _ = h.do(t, http.MethodPatch, "/orders/"+created.ID+"/status", staffToken, tenantID, gin.H{"status": "fulfilled"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = h.do(t, http.MethodPatch, "/orders/"+created.ID+"/status", managerToken, tenantID, gin.H{"status": "fulfilled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fulfilled := decodeData[orderView](t, env)
	assert.Equal(t, "fulfilled", fulfilled.Status)
	assert.True(t, fulfilled.StockAdjusted)

	rec, env = h.do(t, http.MethodGet, "/inventory/items/"+item.ID, staffToken, tenantID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), decodeData[itemView](t, env).Quantity)

	rec, env = h.do(t, http.MethodPatch, "/orders/"+created.ID+"/status", managerToken, tenantID, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order is closed", env.Error.Message)

	rec, _ = h.do(t, http.MethodPatch, "/orders/"+created.ID+"/status", managerToken, tenantID, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/reorders/auto", staffToken, tenantID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = h.do(t, http.MethodPost, "/reorders/auto", managerToken, tenantID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sweep := decodeData[struct {
		Created int `json:"created"`
		Scanned int `json:"scanned"`
	}](t, env)
	assert.Equal(t, 1, sweep.Created)
	assert.Equal(t, 1, sweep.Scanned)

	rec, env = h.do(t, http.MethodPost, "/reorders/auto", managerToken, tenantID, gin.H{"defaultRequestedQuantity": 25})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"created":0`)

	rec, _ = h.do(t, http.MethodPost, "/reorders/auto", managerToken, tenantID, gin.H{"defaultRequestedQuantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = h.do(t, http.MethodGet, "/inventory/items/"+item.ID+"/logs", staffToken, tenantID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeData[struct {
		Logs []struct {
			Action      string  `json:"action"`
			OrderStatus *string `json:"orderStatus"`
		} `json:"logs"`
	}](t, env)
	require.Len(t, logs.Logs, 2)
	assert.Equal(t, "remove", logs.Logs[0].Action)
	require.NotNil(t, logs.Logs[0].OrderStatus)
	assert.Equal(t, "fulfilled", *logs.Logs[0].OrderStatus)
	assert.Equal(t, "create", logs.Logs[1].Action)

	rec, env = h.do(t, http.MethodGet, "/audit-logs?action=order.transitioned", adminToken, tenantID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), "order.transitioned")

	rec, _ = h.do(t, http.MethodGet, "/audit-logs", managerToken, tenantID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCrossTenantIDsAreNotFound(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.user(t, "admin@example.com", authorization.RoleAdmin)
	north := h.branch(t, adminToken, "North", nil)
	south := h.branch(t, adminToken, "South", nil)

	rec, env := h.do(t, http.MethodPost, "/inventory/items", adminToken, north, gin.H{"sku": "SKU-1", "name": "Gauze", "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decodeData[itemView](t, env)

	rec, _ = h.do(t, http.MethodGet, "/inventory/items/"+item.ID, adminToken, south, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, http.MethodDelete, "/inventory/items/"+item.ID, adminToken, south, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/inventory/items", adminToken, south, gin.H{"sku": "SKU-1", "name": "Gauze"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, env = h.do(t, http.MethodPost, "/inventory/items", adminToken, north, gin.H{"sku": "SKU-1", "name": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "sku already exists", env.Error.Message)
}
