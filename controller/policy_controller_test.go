// controller/policy_controller_test.go
package controller_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/controller"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	mock_service "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/test/service_mock"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestPolicyController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPolicyService := mock_service.NewMockIPolicyService(ctrl)
	policyController := controller.NewPolicyController(mockPolicyService)
	router := setupRouter()
	api := router.Group("/")
	policyController.RegisterRoutes(api)

	t.Run("GetPolicy_Success", func(t *testing.T) {
		mockPolicyService.EXPECT().
			GetPolicy(gomock.Any()).
			Return(&model.PolicyState{Catalog: map[string]model.CatalogEntry{"mail": {ServiceName: "mail"}}}, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policy", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"service_name":"mail"`)
	})

	t.Run("PutService_UsesPathName", func(t *testing.T) {
		mockPolicyService.EXPECT().
			PutService(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, entry model.CatalogEntry) (*model.CatalogEntry, error) {
				assert.Equal(t, "mail", entry.ServiceName)
				assert.Equal(t, model.TagGated, entry.Tools["send"])
				return &entry, nil
			})

		body := strings.NewReader(`{"service_name":"ignored","enabled":true,"tools":{"send":"gated"}}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policy/services/mail", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("PutService_Failure_InvalidData", func(t *testing.T) {
		mockPolicyService.EXPECT().
			PutService(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: tool \"send\" has unknown tag", gw_errors.ErrInvalidPolicyData))

		body := strings.NewReader(`{"tools":{"send":"secret"}}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policy/services/mail", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("PutService_Failure_MalformedJSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policy/services/mail", strings.NewReader(`{`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DeleteService_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.EXPECT().
			DeleteService(gomock.Any(), "nope").
			Return(gw_errors.ErrServiceNotFound)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/policy/services/nope", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PutRule_Success", func(t *testing.T) {
		mockPolicyService.EXPECT().
			PutRule(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, rule model.AccessRule) (*model.AccessRule, error) {
				assert.Equal(t, "r1", rule.ID)
				return &rule, nil
			})

		body := strings.NewReader(`{"match":{"identity":"alice"},"allowed_services":["mail"],"allowed_tools":["*"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policy/rules/r1", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DeleteRule_Success", func(t *testing.T) {
		mockPolicyService.EXPECT().DeleteRule(gomock.Any(), "r1").Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/policy/rules/r1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Revoke_Success", func(t *testing.T) {
		mockPolicyService.EXPECT().Revoke(gomock.Any(), "mallory").Return(nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policy/revocations", strings.NewReader(`{"subject":"mallory"}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Revoke_Failure_MissingSubject", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policy/revocations", strings.NewReader(`{}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unrevoke_Failure_Database", func(t *testing.T) {
		mockPolicyService.EXPECT().
			Unrevoke(gomock.Any(), "mallory").
			Return(gw_errors.ErrDatabaseOperation)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/policy/revocations/mallory", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
