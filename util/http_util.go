// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
)

// Context keys set by the auth middleware.
const (
	ContextIdentity = "identity"
	ContextClaims   = "claims"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if code >= 500 {
		logger.Error(message, fields...)
	} else {
		logger.Warn(message, fields...)
	}
	c.JSON(code, gin.H{"error": message})
}

// GetIdentityFromContext returns the authenticated subject, or "" when auth is off.
func GetIdentityFromContext(c *gin.Context) string {
	identity, exists := c.Get(ContextIdentity)
	if !exists {
		return ""
	}
	s, _ := identity.(string)
	return s
}

// GetClaimsFromContext returns the authenticated caller's claims.
func GetClaimsFromContext(c *gin.Context) map[string]any {
	claims, exists := c.Get(ContextClaims)
	if !exists {
		return nil
	}
	m, _ := claims.(map[string]any)
	return m
}
