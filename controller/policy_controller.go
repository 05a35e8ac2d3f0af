// controller/policy_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/service"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	policy := r.Group("/policy")
	{
		policy.GET("", pc.GetPolicy)
		policy.PUT("/services/:name", pc.PutService)
		policy.DELETE("/services/:name", pc.DeleteService)
		policy.PUT("/rules/:id", pc.PutRule)
		policy.DELETE("/rules/:id", pc.DeleteRule)
		policy.POST("/revocations", pc.Revoke)
		policy.DELETE("/revocations/:subject", pc.Unrevoke)
	}
}

type RevocationBody struct {
	Subject string `json:"subject" binding:"required"`
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	state, err := pc.policyService.GetPolicy(c.Request.Context())
	if err != nil {
		respondPolicyError(c, "Failed to retrieve policy", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// PutService endpoint. The path name wins over the body.
func (pc *PolicyController) PutService(c *gin.Context) {
	var entry model.CatalogEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", gw_errors.ErrInvalidPolicyData)
		return
	}
	entry.ServiceName = c.Param("name")

	saved, err := pc.policyService.PutService(c.Request.Context(), entry)
	if err != nil {
		respondPolicyError(c, "Failed to save service", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteService endpoint
func (pc *PolicyController) DeleteService(c *gin.Context) {
	if err := pc.policyService.DeleteService(c.Request.Context(), c.Param("name")); err != nil {
		respondPolicyError(c, "Failed to delete service", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PutRule endpoint
func (pc *PolicyController) PutRule(c *gin.Context) {
	var rule model.AccessRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", gw_errors.ErrInvalidPolicyData)
		return
	}
	rule.ID = c.Param("id")

	saved, err := pc.policyService.PutRule(c.Request.Context(), rule)
	if err != nil {
		respondPolicyError(c, "Failed to save access rule", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteRule endpoint
func (pc *PolicyController) DeleteRule(c *gin.Context) {
	if err := pc.policyService.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		respondPolicyError(c, "Failed to delete access rule", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Revoke endpoint
func (pc *PolicyController) Revoke(c *gin.Context) {
	var body RevocationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid revocation", gw_errors.ErrInvalidPolicyData)
		return
	}
	if err := pc.policyService.Revoke(c.Request.Context(), body.Subject); err != nil {
		respondPolicyError(c, "Failed to revoke", err)
		return
	}
	c.Status(http.StatusCreated)
}

// Unrevoke endpoint
func (pc *PolicyController) Unrevoke(c *gin.Context) {
	if err := pc.policyService.Unrevoke(c.Request.Context(), c.Param("subject")); err != nil {
		respondPolicyError(c, "Failed to remove revocation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondPolicyError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, gw_errors.ErrInvalidPolicyData):
		util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, gw_errors.ErrServiceNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Service not found", err)
	case errors.Is(err, gw_errors.ErrRuleNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Access rule not found", err)
	case errors.Is(err, gw_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, message, err)
	}
}
