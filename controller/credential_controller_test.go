package controller_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/controller"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/credential"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	mock_service "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/test/service_mock"
)

func TestCredentialController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCredentialService := mock_service.NewMockICredentialService(ctrl)
	credentialController := controller.NewCredentialController(mockCredentialService)
	router := setupRouter()
	credentialController.RegisterRoutes(router.Group("/"))
	credentialController.RegisterAdminRoutes(router.Group("/admin"))

	post := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", path, strings.NewReader(body))
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Inject_Success", func(t *testing.T) {
		mockCredentialService.EXPECT().
			Inject(gomock.Any(), credential.InjectRequest{Service: "github", Tenant: "work", Identity: "alice"}).
			Return(&credential.Injection{
				Credential: "github_work",
				Kind:       model.InjectEnvironment,
				Values:     map[string]string{"GITHUB_TOKEN": "ghp_x"},
			}, nil)

		w := post("/credentials/inject", `{"service":"github","tenant":"work","identity":"alice"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"GITHUB_TOKEN":"ghp_x"`)
	})

	t.Run("Inject_Failure_MissingService", func(t *testing.T) {
		w := post("/credentials/inject", `{"tenant":"work"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Inject_Failure_Configuration", func(t *testing.T) {
		mockCredentialService.EXPECT().
			Inject(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: unknown credential", gw_errors.ErrConfiguration))

		w := post("/credentials/inject", `{"service":"jira"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Inject_Failure_StoreUnavailable", func(t *testing.T) {
		mockCredentialService.EXPECT().
			Inject(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: timeout", gw_errors.ErrCredentialFetch))

		w := post("/credentials/inject", `{"service":"github"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("Inject_Failure_TokenRefresh", func(t *testing.T) {
		mockCredentialService.EXPECT().
			Inject(gomock.Any(), gomock.Any()).
			Return(nil, gw_errors.ErrTokenRefresh)

		w := post("/credentials/inject", `{"service":"calendar"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("TestInjection_Success", func(t *testing.T) {
		mockCredentialService.EXPECT().
			TestInjection(gomock.Any(), gomock.Any()).
			Return(&credential.Injection{
				Credential: "github_work",
				Values:     map[string]string{"GITHUB_TOKEN": "[REDACTED]"},
				Redacted:   true,
			}, nil)

		w := post("/admin/credentials/test-injection", `{"service":"github"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "[REDACTED]")
	})

	t.Run("ClearCache_ByName", func(t *testing.T) {
		mockCredentialService.EXPECT().ClearCache("github_work").Return(2)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/admin/credentials/cache?name=github_work", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"cleared":2}`, w.Body.String())
	})

	t.Run("ListDefinitions", func(t *testing.T) {
		mockCredentialService.EXPECT().
			Definitions().
			Return([]model.CredentialDefinition{{Name: "github_work"}})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/admin/credentials/definitions", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "github_work")
	})
}
