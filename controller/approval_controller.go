// controller/approval_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/service"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
	helper_util "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util/helper"
)

type ApprovalController struct {
	approvalService service.IApprovalService
}

func NewApprovalController(approvalService service.IApprovalService) *ApprovalController {
	return &ApprovalController{approvalService: approvalService}
}

// RegisterRoutes registers the API routes
func (ac *ApprovalController) RegisterRoutes(r *gin.RouterGroup) {
	approvals := r.Group("/approvals")
	{
		approvals.GET("", ac.ListApprovals)
		approvals.DELETE("/resolved", ac.ClearResolved)
		approvals.GET("/:id", ac.GetApproval)
		approvals.POST("/:id/approve", ac.Approve)
		approvals.POST("/:id/deny", ac.Deny)
		approvals.GET("/:id/execution", ac.GetExecutionResult)
		approvals.POST("/:id/execution", ac.RecordExecution)
	}
}

// DecisionBody is the optional body of approve and deny. Approver is only
// read when the request carries no authenticated identity.
type DecisionBody struct {
	Approver string `json:"approver"`
	Reason   string `json:"reason"`
}

type ExecutionBody struct {
	Status model.ExecutionStatus `json:"status" binding:"required"`
	Result json.RawMessage       `json:"result"`
	Error  string                `json:"error"`
}

// ListApprovals endpoint
func (ac *ApprovalController) ListApprovals(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}
	status := c.DefaultQuery("status", service.StatusPending)

	approvals, total, err := ac.approvalService.ListApprovals(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondApprovalError(c, "Failed to list approvals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"approvals": approvals,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetApproval endpoint
func (ac *ApprovalController) GetApproval(c *gin.Context) {
	rec, err := ac.approvalService.GetApproval(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondApprovalError(c, "Failed to retrieve approval", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Approve endpoint
func (ac *ApprovalController) Approve(c *gin.Context) {
	body, ok := bindDecisionBody(c)
	if !ok {
		return
	}
	rec, err := ac.approvalService.Approve(c.Request.Context(), c.Param("id"), body.Approver)
	if err != nil {
		respondApprovalError(c, "Failed to approve", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Deny endpoint
func (ac *ApprovalController) Deny(c *gin.Context) {
	body, ok := bindDecisionBody(c)
	if !ok {
		return
	}
	rec, err := ac.approvalService.Deny(c.Request.Context(), c.Param("id"), body.Approver, body.Reason)
	if err != nil {
		respondApprovalError(c, "Failed to deny", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func bindDecisionBody(c *gin.Context) (DecisionBody, bool) {
	var body DecisionBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
			return body, false
		}
	}
	if identity := util.GetIdentityFromContext(c); identity != "" {
		body.Approver = identity
	}
	if body.Approver == "" {
		util.RespondWithError(c, http.StatusUnauthorized, "Approver identity required", gw_errors.ErrUnauthorized)
		return body, false
	}
	return body, true
}

// RecordExecution endpoint
func (ac *ApprovalController) RecordExecution(c *gin.Context) {
	var body ExecutionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid execution result", err)
		return
	}
	rec, err := ac.approvalService.RecordExecution(c.Request.Context(), c.Param("id"), body.Status, body.Result, body.Error)
	if err != nil {
		respondApprovalError(c, "Failed to record execution", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetExecutionResult endpoint
func (ac *ApprovalController) GetExecutionResult(c *gin.Context) {
	result, err := ac.approvalService.GetExecutionResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondApprovalError(c, "Failed to retrieve execution result", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ClearResolved endpoint
func (ac *ApprovalController) ClearResolved(c *gin.Context) {
	n, err := ac.approvalService.ClearResolved(c.Request.Context())
	if err != nil {
		respondApprovalError(c, "Failed to clear resolved approvals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

func respondApprovalError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, gw_errors.ErrApprovalNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Approval not found", err)
	case errors.Is(err, gw_errors.ErrApproverNotAllowed):
		util.RespondWithError(c, http.StatusForbidden, "Approver not allowed", err)
	case errors.Is(err, gw_errors.ErrInvalidApprovalState):
		util.RespondWithError(c, http.StatusConflict, "Invalid approval state", err)
	case errors.Is(err, gw_errors.ErrInvalidRequest):
		util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, gw_errors.ErrLockNotAcquired):
		util.RespondWithError(c, http.StatusServiceUnavailable, "Approval busy, retry", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, message, err)
	}
}
