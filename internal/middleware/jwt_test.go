package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NightreignMatch/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JwtAuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("identity"))
	})
	return r
}

func token(t *testing.T, identity string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	tok, err := auth.IssueToken(secret, identity, now, now.Add(ttl))
	require.NoError(t, err)
	return tok
}

func get(r http.Handler, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJwtAuth_BearerHeader(t *testing.T) {
	w := get(newRouter(), "/me", "Bearer "+token(t, "alice", time.Hour))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestJwtAuth_QueryToken(t *testing.T) {
	w := get(newRouter(), "/me?token="+token(t, "bob", time.Hour), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", w.Body.String())
}

func TestJwtAuth_Rejects(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+token(t, "alice", -time.Minute)).Code)

	// 其他密钥签发
	other, err := auth.IssueToken([]byte("other"), "alice", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+other).Code)

	// 没有 sub
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).SignedString(secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+noSub).Code)

	// 非 HS256
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "Bearer "+none).Code)
}
