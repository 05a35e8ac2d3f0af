// controller/decision_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/service"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

type DecisionController struct {
	decisionService service.IDecisionService
}

func NewDecisionController(decisionService service.IDecisionService) *DecisionController {
	return &DecisionController{decisionService: decisionService}
}

// RegisterRoutes registers the API routes
func (dc *DecisionController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/decide", dc.Decide)
}

// Decide answers 200 on allow, 202 on pending and 403 on deny. The decision
// is also carried in X-Decision and related headers.
func (dc *DecisionController) Decide(c *gin.Context) {
	var req pdp_model.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid decision request", gw_errors.ErrInvalidRequest)
		return
	}

	// An unreachable evaluator still yields a deny decision.
	decision, _ := dc.decisionService.Decide(c.Request.Context(), req.ToolCallRequest())

	for k, v := range decision.ResponseHeaders() {
		c.Header(k, v)
	}
	c.JSON(decisionStatus(decision), decision)
}

func decisionStatus(d pdp_model.Decision) int {
	switch d.Effect {
	case pdp_model.EffectAllow:
		return http.StatusOK
	case pdp_model.EffectPending:
		return http.StatusAccepted
	default:
		return http.StatusForbidden
	}
}
