package matchmaker

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// POST /match/join  body: {identity, platform, bosses, characters}
// 若中间件已注入 identity（JWT），以中间件为准
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if id := c.GetString("identity"); id != "" {
		req.Identity = id
	}
	out, err := h.svc.SubmitJoin(c.Request.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrResourceExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if out.Formed() && out.Match.Includes(req.Identity) {
		c.JSON(http.StatusOK, out.Match.ViewFor(req.Identity))
		return
	}
	c.JSON(http.StatusOK, WaitingResponse{Success: false, Message: WaitingMessage})
}

// POST /match/cancel body: {identity}
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelRequest
	if id := c.GetString("identity"); id != "" {
		req.Identity = id
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SubmitDisconnect(c.Request.Context(), req.Identity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /match/:password  仅限该队伍成员查询
func (h *Handler) Lookup(c *gin.Context) {
	repo := h.svc.Repo()
	if repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match archive disabled"})
		return
	}
	m, err := repo.MatchByPassword(c.Request.Context(), c.Param("password"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	id := c.GetString("identity")
	if m == nil || (id != "" && !m.Includes(id)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}
