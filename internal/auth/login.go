package auth

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// identity 只允许字母数字与 _ -，避免出现在日志 / redis key 里的奇怪字符
var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type GuestRequest struct {
	Identity string `json:"identity"`
}

type Handler struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// 工厂方法：创建 handler
func NewHandler(secret string, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handler{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// POST /auth/guest  body: {identity?}
// 不带 identity 时分配一个随机 guest id
func (h *Handler) Guest(c *gin.Context) {
	var req GuestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}

	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		identity = "guest-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	if !identityPattern.MatchString(identity) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity"})
		return
	}

	// -----------------------------
	// ✓ 生成 JWT
	// -----------------------------
	expiresAt := h.now().Add(h.ttl)
	jwtStr, err := IssueToken(h.secret, identity, h.now(), expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jwt":       jwtStr,
		"identity":  identity,
		"expiresAt": expiresAt.UTC(),
	})
}

// IssueToken HS256，sub = identity
func IssueToken(secret []byte, identity string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": identity,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
