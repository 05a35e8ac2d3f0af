package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/controller"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	mock_service "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/test/service_mock"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

func TestApprovalController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockApprovalService := mock_service.NewMockIApprovalService(ctrl)
	approvalController := controller.NewApprovalController(mockApprovalService)

	router := setupRouter()
	approvalController.RegisterRoutes(router.Group("/"))

	// A second router whose requests carry an authenticated identity.
	authed := setupRouter()
	authedGroup := authed.Group("/")
	authedGroup.Use(func(c *gin.Context) {
		c.Set(util.ContextIdentity, "carol")
		c.Next()
	})
	approvalController.RegisterRoutes(authedGroup)

	do := func(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		var req *http.Request
		if body == "" {
			req, _ = http.NewRequest(method, path, nil)
		} else {
			req, _ = http.NewRequest(method, path, strings.NewReader(body))
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("ListApprovals_DefaultsToPending", func(t *testing.T) {
		mockApprovalService.EXPECT().
			ListApprovals(gomock.Any(), "pending", 50, 0).
			Return([]*model.PendingApproval{{ApprovalID: "APR-1", Status: model.ApprovalPending}}, 1, nil)

		w := do(router, "GET", "/approvals", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Approvals []model.PendingApproval `json:"approvals"`
			Total     int                     `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Total)
		assert.Equal(t, "APR-1", body.Approvals[0].ApprovalID)
	})

	t.Run("ListApprovals_Failure_BadStatus", func(t *testing.T) {
		mockApprovalService.EXPECT().
			ListApprovals(gomock.Any(), "weird", 10, 0).
			Return(nil, 0, gw_errors.ErrInvalidRequest)

		w := do(router, "GET", "/approvals?status=weird&limit=10", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ListApprovals_Failure_BadPagination", func(t *testing.T) {
		w := do(router, "GET", "/approvals?limit=x", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GetApproval_Failure_NotFound", func(t *testing.T) {
		mockApprovalService.EXPECT().
			GetApproval(gomock.Any(), "APR-9").
			Return(nil, gw_errors.ErrApprovalNotFound)

		w := do(router, "GET", "/approvals/APR-9", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Approve_UsesAuthenticatedIdentity", func(t *testing.T) {
		mockApprovalService.EXPECT().
			Approve(gomock.Any(), "APR-1", "carol").
			Return(&model.PendingApproval{ApprovalID: "APR-1", Status: model.ApprovalApproved}, nil)

		w := do(authed, "POST", "/approvals/APR-1/approve", `{"approver":"mallory"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Approve_BodyApproverWithoutAuth", func(t *testing.T) {
		mockApprovalService.EXPECT().
			Approve(gomock.Any(), "APR-1", "dave").
			Return(&model.PendingApproval{ApprovalID: "APR-1", Status: model.ApprovalApproved}, nil)

		w := do(router, "POST", "/approvals/APR-1/approve", `{"approver":"dave"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Approve_Failure_NoApprover", func(t *testing.T) {
		w := do(router, "POST", "/approvals/APR-1/approve", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Approve_Failure_NotAllowed", func(t *testing.T) {
		mockApprovalService.EXPECT().
			Approve(gomock.Any(), "APR-1", "carol").
			Return(nil, gw_errors.ErrApproverNotAllowed)

		w := do(authed, "POST", "/approvals/APR-1/approve", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Deny_Failure_AlreadyDecided", func(t *testing.T) {
		mockApprovalService.EXPECT().
			Deny(gomock.Any(), "APR-1", "carol", "not today").
			Return(nil, gw_errors.ErrInvalidApprovalState)

		w := do(authed, "POST", "/approvals/APR-1/deny", `{"reason":"not today"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("RecordExecution_Success", func(t *testing.T) {
		mockApprovalService.EXPECT().
			RecordExecution(gomock.Any(), "APR-1", model.ExecutionCompleted, gomock.Any(), "").
			Return(&model.PendingApproval{ApprovalID: "APR-1", ExecutionStatus: model.ExecutionCompleted}, nil)

		w := do(router, "POST", "/approvals/APR-1/execution", `{"status":"completed","result":{"ok":true}}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GetExecutionResult_Success", func(t *testing.T) {
		mockApprovalService.EXPECT().
			GetExecutionResult(gomock.Any(), "APR-1").
			Return(&model.ExecutionResult{ApprovalID: "APR-1", ExecutionStatus: model.ExecutionFailed, Error: "boom"}, nil)

		w := do(router, "GET", "/approvals/APR-1/execution", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"execution_status":"failed"`)
	})

	t.Run("ClearResolved_Success", func(t *testing.T) {
		mockApprovalService.EXPECT().ClearResolved(gomock.Any()).Return(3, nil)

		w := do(router, "DELETE", "/approvals/resolved", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"cleared":3}`, w.Body.String())
	})
}
