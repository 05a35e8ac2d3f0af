package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ClaimsAuth(testSecret, "pdp-approver", "pdp-admin"))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"identity": util.GetIdentityFromContext(c),
			"team":     util.GetClaimsFromContext(c)["team"],
		})
	})
	return r
}

func TestClaimsAuth(t *testing.T) {
	r := authRouter()
	exp := time.Now().Add(time.Hour).Unix()

	call := func(auth string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/whoami", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("ValidToken", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{"sub": "carol", "groups": []string{"pdp-approver"}, "team": "ops", "exp": exp})
		w := call("Bearer " + tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"identity":"carol","team":"ops"}`, w.Body.String())
	})

	t.Run("MissingToken", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call("").Code)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		tok := signToken(t, []byte("other"), jwt.MapClaims{"sub": "carol", "groups": []string{"pdp-admin"}, "exp": exp})
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+tok).Code)
	})

	t.Run("Expired", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{"sub": "carol", "groups": []string{"pdp-admin"}, "exp": time.Now().Add(-time.Minute).Unix()})
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+tok).Code)
	})

	t.Run("NoExpiry", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{"sub": "carol", "groups": []string{"pdp-admin"}})
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+tok).Code)
	})

	t.Run("WrongGroup", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{"sub": "bob", "groups": []string{"pdp-gateway"}, "exp": exp})
		assert.Equal(t, http.StatusForbidden, call("Bearer "+tok).Code)
	})

	t.Run("AlgNone", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "eve", "groups": []string{"pdp-admin"}, "exp": exp}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call("Bearer "+tok).Code)
	})
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := gin.New()
	r.Use(RateLimiter(client, 2, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(nil, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLoggerSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
}
