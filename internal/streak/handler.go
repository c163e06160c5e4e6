package streak

import (
	"net/http"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/user"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperror.HTTPStatus(err), apperror.Response(err))
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStreak 处理 GET /streak
func (h *Handler) GetStreak(c *gin.Context) {
	v, err := h.service.GetStreak(c.Request.Context(), user.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Recompute 处理 POST /streak/recompute
func (h *Handler) Recompute(c *gin.Context) {
	v, err := h.service.RecomputeFromHistory(c.Request.Context(), user.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
