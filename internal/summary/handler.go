package summary

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

// GetSummary 处理 GET /summaries/:date，没有条目的日子返回全零汇总
func (h *Handler) GetSummary(c *gin.Context) {
	userID := user.UserID(c)
	date := c.Param("date")
	row, err := h.service.GetSummary(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	if row == nil {
		row = &DailySummary{UserID: userID, Date: date}
	}
	c.JSON(http.StatusOK, row)
}

// GetSummaryRange 处理 GET /summaries?start=&end=
func (h *Handler) GetSummaryRange(c *gin.Context) {
	rows, err := h.service.GetSummaryRange(c.Request.Context(), user.UserID(c), c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": rows})
}

// GetWeek 处理 GET /summaries/week?date=，不带日期时取本周
func (h *Handler) GetWeek(c *gin.Context) {
	date := c.DefaultQuery("date", clock.Today(h.service.clock))
	view, err := h.service.GetWeek(c.Request.Context(), user.UserID(c), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetToday 处理 GET /today
func (h *Handler) GetToday(c *gin.Context) {
	snap, err := h.service.GetTodaySnapshot(c.Request.Context(), user.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
