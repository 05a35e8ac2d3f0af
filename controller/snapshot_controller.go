// controller/snapshot_controller.go
package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/service"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

type SnapshotController struct {
	snapshotService service.ISnapshotService
}

func NewSnapshotController(snapshotService service.ISnapshotService) *SnapshotController {
	return &SnapshotController{snapshotService: snapshotService}
}

// RegisterRoutes registers the API routes
func (sc *SnapshotController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/snapshot", sc.GetSnapshot)
}

// GetSnapshot returns the current snapshot, or 304 when the caller already
// holds its revision (If-None-Match or ?revision=).
func (sc *SnapshotController) GetSnapshot(c *gin.Context) {
	last := c.Query("revision")
	if last == "" {
		last = strings.Trim(strings.TrimPrefix(c.GetHeader("If-None-Match"), "W/"), `"`)
	}

	snap, changed := sc.snapshotService.Get(last)
	if snap == nil {
		util.RespondWithError(c, http.StatusServiceUnavailable, "No policy snapshot available", gw_errors.ErrNoSnapshot)
		return
	}
	c.Header("ETag", `"`+snap.Revision+`"`)
	if !changed {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, snap)
}

