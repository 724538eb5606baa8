package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	auditdomain "github.com/smallbiznis/stockwise/internal/audit/domain"
	authdomain "github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/authorization"
	inventorydomain "github.com/smallbiznis/stockwise/internal/inventory/domain"
	"github.com/smallbiznis/stockwise/internal/locking"
	orderdomain "github.com/smallbiznis/stockwise/internal/order/domain"
	reorderdomain "github.com/smallbiznis/stockwise/internal/reorder/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{inventorydomain.ErrInvalidDelta, http.StatusBadRequest, "invalid_input"},
		{orderdomain.ErrInvalidStatus, http.StatusBadRequest, "invalid_input"},
		{authorization.ErrInvalidTenant, http.StatusBadRequest, "invalid_input"},
		{invalidRequestError(), http.StatusBadRequest, "invalid_input"},
		{authdomain.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{authorization.ErrTenantNotFound, http.StatusNotFound, "not_found"},
		{inventorydomain.ErrItemNotFound, http.StatusNotFound, "not_found"},
		{reorderdomain.ErrRequestNotFound, http.StatusNotFound, "not_found"},
		{orderdomain.ErrOrderClosed, http.StatusConflict, "conflict"},
		{orderdomain.ErrConcurrentTransition, http.StatusConflict, "conflict"},
		{inventorydomain.ErrConcurrentUpdate, http.StatusConflict, "conflict"},
		{inventorydomain.ErrItemHeld, http.StatusConflict, "conflict"},
		{reorderdomain.ErrOpenRequest, http.StatusConflict, "conflict"},
		{locking.ErrBusy, http.StatusConflict, "conflict"},
		{locking.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}

func TestInsufficientStockNamesSKU(t *testing.T) {
	err := fmt.Errorf("apply batch: %w", &inventorydomain.InsufficientStockError{SKU: "SKU-9"})
	status, payload := mapError(err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insufficient stock for SKU-9", payload.Message)
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	_, payload := mapError(errors.New("pq: relation inventory_items does not exist"))
	assert.Equal(t, "internal server error", payload.Message)

	kind, code := classifyErrorForLog(errors.New("pq: relation inventory_items does not exist"))
	assert.Equal(t, "internal_error", kind)
	assert.Equal(t, "internal", code)

	kind, code = classifyErrorForLog(orderdomain.ErrInvalidStatus)
	assert.Equal(t, "invalid_input", kind)
	assert.Equal(t, "invalid_status", code)
}

type failingAudit struct{}

func (failingAudit) Record(ctx context.Context, e auditdomain.Entry) error {
	return errors.New("audit store unavailable")
}

func (failingAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func TestAuditFailureIsLoggedNotReturned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.WarnLevel)
	s := &Server{auditSvc: failingAudit{}, log: zap.New(core)}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPatch, "/reorders/1/status", nil)
	s.recordAudit(c, auditdomain.Entry{Action: "reorder_request.status_updated", TargetID: "1"})

	assert.Empty(t, c.Errors)
	entries := logs.FilterMessage("failed to write audit log").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "reorder_request.status_updated", entries[0].ContextMap()["action"])
}
