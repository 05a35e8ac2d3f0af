// controller/credential_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/credential"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/service"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

type CredentialController struct {
	credentialService service.ICredentialService
}

func NewCredentialController(credentialService service.ICredentialService) *CredentialController {
	return &CredentialController{credentialService: credentialService}
}

// RegisterRoutes registers the injection route used by gateways.
func (cc *CredentialController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/credentials/inject", cc.Inject)
}

// RegisterAdminRoutes registers the diagnostic and cache routes.
func (cc *CredentialController) RegisterAdminRoutes(r *gin.RouterGroup) {
	credentials := r.Group("/credentials")
	{
		credentials.GET("/definitions", cc.ListDefinitions)
		credentials.POST("/test-injection", cc.TestInjection)
		credentials.DELETE("/cache", cc.ClearCache)
	}
}

// Inject endpoint
func (cc *CredentialController) Inject(c *gin.Context) {
	var req credential.InjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid injection request", gw_errors.ErrInvalidRequest)
		return
	}
	inj, err := cc.credentialService.Inject(c.Request.Context(), req)
	if err != nil {
		respondCredentialError(c, err)
		return
	}
	c.JSON(http.StatusOK, inj)
}

// TestInjection endpoint. Values in the response are redacted.
func (cc *CredentialController) TestInjection(c *gin.Context) {
	var req credential.InjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid injection request", gw_errors.ErrInvalidRequest)
		return
	}
	inj, err := cc.credentialService.TestInjection(c.Request.Context(), req)
	if err != nil {
		respondCredentialError(c, err)
		return
	}
	c.JSON(http.StatusOK, inj)
}

// ClearCache endpoint. Without ?name= every entry is dropped.
func (cc *CredentialController) ClearCache(c *gin.Context) {
	n := cc.credentialService.ClearCache(c.Query("name"))
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

// ListDefinitions endpoint
func (cc *CredentialController) ListDefinitions(c *gin.Context) {
	c.JSON(http.StatusOK, cc.credentialService.Definitions())
}

func respondCredentialError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gw_errors.ErrConfiguration):
		util.RespondWithError(c, http.StatusUnprocessableEntity, "Credential configuration error", err)
	case errors.Is(err, gw_errors.ErrCredentialFetch):
		c.Header("Retry-After", "1")
		util.RespondWithError(c, http.StatusServiceUnavailable, "Secret store unavailable", err)
	case errors.Is(err, gw_errors.ErrTokenRefresh):
		util.RespondWithError(c, http.StatusBadGateway, "Token refresh failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to inject credential", err)
	}
}
