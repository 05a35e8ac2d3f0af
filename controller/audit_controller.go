// controller/audit_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/audit"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
	helper_util "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util/helper"
)

const defaultAuditWindow = 24 * time.Hour

type AuditController struct {
	auditService audit.Service
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{auditService: auditService}
}

// RegisterRoutes registers the API routes
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit/decisions", ac.QueryDecisions)
}

// QueryDecisions endpoint. from and to are RFC 3339; the default window is
// the last 24 hours.
func (ac *AuditController) QueryDecisions(c *gin.Context) {
	to := time.Now().UTC()
	if raw := c.Query("to"); raw != "" {
		t, err := helper_util.ParseTime(raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' time", err)
			return
		}
		to = t
	}
	from := to.Add(-defaultAuditWindow)
	if raw := c.Query("from"); raw != "" {
		t, err := helper_util.ParseTime(raw)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' time", err)
			return
		}
		from = t
	}
	if from.After(to) {
		util.RespondWithError(c, http.StatusBadRequest, "'from' must not be after 'to'", nil)
		return
	}

	logs, err := ac.auditService.QueryLogs(c.Request.Context(), from, to, c.Query("identity"), c.Query("service"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit logs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": logs, "from": from, "to": to})
}
