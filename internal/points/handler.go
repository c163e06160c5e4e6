package points

import (
	"net/http"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/user"
	"github.com/gin-gonic/gin"
)

// DailyPointsRequest 是 PUT /points/daily/:date 的请求体
type DailyPointsRequest struct {
	Points *int64 `json:"points" binding:"required"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperror.HTTPStatus(err), apperror.Response(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error(), "code": apperror.InvalidArgument.String()})
}

// GetLedger 处理 GET /points
func (h *Handler) GetLedger(c *gin.Context) {
	userID := user.UserID(c)
	l, err := h.service.GetLedger(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if l == nil {
		respondError(c, apperror.New(apperror.NotFound, "points.GetLedger", "积分账本不存在").WithUser(userID))
		return
	}
	c.JSON(http.StatusOK, l)
}

// SetLedger 处理 PUT /points
func (h *Handler) SetLedger(c *gin.Context) {
	var body LedgerUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	l, err := h.service.SetLedger(c.Request.Context(), user.UserID(c), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// UpdateDailyPoints 处理 PUT /points/daily/:date
func (h *Handler) UpdateDailyPoints(c *gin.Context) {
	var body DailyPointsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.UpdateDailyPoints(c.Request.Context(), user.UserID(c), c.Param("date"), *body.Points); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
