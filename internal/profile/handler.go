package profile

import (
	"net/http"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/user"
	"github.com/gin-gonic/gin"
)

// UpsertProfileRequest 是 PUT /profile 的请求体
type UpsertProfileRequest struct {
	DisplayName string `json:"displayName" binding:"max=100"`
}

// ProfileResponse 是资料行的API响应
type ProfileResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TodayDate   string `json:"todayDate,omitempty"`
}

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

func toResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		TodayDate:   p.TodayDate,
	}
}

// GetProfile 处理 GET /profile，资料行不存在时返回404
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.service.GetProfile(c.Request.Context(), user.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

// UpsertProfile 确保当前用户的资料行存在
func (h *Handler) UpsertProfile(c *gin.Context) {
	var body UpsertProfileRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error(), "code": apperror.InvalidArgument.String()})
			return
		}
	}

	p, err := h.service.EnsureProfile(c.Request.Context(), user.UserID(c), body.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}
