package controller_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/controller"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	mock_service "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/test/service_mock"
)

func TestSnapshotController(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSnapshotService := mock_service.NewMockISnapshotService(ctrl)
	router := setupRouter()
	controller.NewSnapshotController(mockSnapshotService).RegisterRoutes(router.Group("/"))

	snap := &model.PolicySnapshot{Revision: "abc123", Catalog: map[string]model.CatalogEntry{}}

	get := func(path, etag string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("GetSnapshot_Full", func(t *testing.T) {
		mockSnapshotService.EXPECT().Get("").Return(snap, true)

		w := get("/snapshot", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `"abc123"`, w.Header().Get("ETag"))
		assert.Contains(t, w.Body.String(), `"revision":"abc123"`)
	})

	t.Run("GetSnapshot_NotModified_ETag", func(t *testing.T) {
		mockSnapshotService.EXPECT().Get("abc123").Return(snap, false)

		w := get("/snapshot", `"abc123"`)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("GetSnapshot_NotModified_Query", func(t *testing.T) {
		mockSnapshotService.EXPECT().Get("abc123").Return(snap, false)

		w := get("/snapshot?revision=abc123", "")
		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("GetSnapshot_Unavailable", func(t *testing.T) {
		mockSnapshotService.EXPECT().Get("").Return(nil, false)

		w := get("/snapshot", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
