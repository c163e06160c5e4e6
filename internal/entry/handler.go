package entry

import (
	"net/http"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/user"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/gin-gonic/gin"
)

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

func kindParam(c *gin.Context) (Kind, bool) {
	kind, err := ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, apperror.New(apperror.InvalidArgument, "entry.handler", "%v", err))
		return "", false
	}
	return kind, true
}

// AppendEntry 处理 POST /entries/:kind
func (h *Handler) AppendEntry(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error(), "code": apperror.InvalidArgument.String()})
		return
	}
	req.Kind = kind

	id, err := h.service.AppendEntry(c.Request.Context(), user.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListEntries 处理 GET /entries/:kind?date=，不带日期时取今天
func (h *Handler) ListEntries(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	date := c.DefaultQuery("date", clock.Today(h.service.clock))
	entries, err := h.service.ListEntries(c.Request.Context(), user.UserID(c), kind, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "entries": entries})
}

// RemoveEntry 处理 DELETE /entries/:kind/:id，删除不存在的条目同样返回204
func (h *Handler) RemoveEntry(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	if err := h.service.RemoveEntry(c.Request.Context(), user.UserID(c), kind, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
