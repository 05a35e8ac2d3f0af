// middleware/claims_auth.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

// GroupsClaim lists the groups of the bearer.
const GroupsClaim = "groups"

// ClaimsAuth validates an HS256 bearer token and requires membership in at
// least one of requiredGroups. The subject and claims are put in the context.
func ClaimsAuth(secret []byte, requiredGroups ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			logger.Warn("No bearer token provided", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			logger.Warn("Invalid bearer token", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		subject, _ := claims.GetSubject()
		if len(requiredGroups) > 0 && !inAnyGroup(claims, requiredGroups) {
			logger.Warn("Caller lacks required group",
				zap.String("subject", subject),
				zap.Strings("required", requiredGroups))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set(util.ContextIdentity, subject)
		c.Set(util.ContextClaims, map[string]any(claims))
		c.Next()
	}
}

// ParseToken verifies signature and expiry of an HS256 token.
func ParseToken(secret []byte, tokenString string) (jwt.MapClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("no signing secret configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if sub, _ := claims.GetSubject(); sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

func inAnyGroup(claims jwt.MapClaims, required []string) bool {
	var groups []string
	switch v := claims[GroupsClaim].(type) {
	case []any:
		for _, g := range v {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}
	case string:
		groups = strings.Fields(v)
	}
	for _, want := range required {
		for _, have := range groups {
			if have == want {
				return true
			}
		}
	}
	return false
}
