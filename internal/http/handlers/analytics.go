package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/response"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type AnalyticsHandler struct {
	log       *logger.Logger
	analytics services.AnalyticsService
	devMode   bool
}

func NewAnalyticsHandler(log *logger.Logger, analytics services.AnalyticsService, devMode bool) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:       log.With("handler", "AnalyticsHandler"),
		analytics: analytics,
		devMode:   devMode,
	}
}

func (h *AnalyticsHandler) Overview(c *gin.Context) {
	report, err := h.analytics.Overview(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, report)
}

func (h *AnalyticsHandler) Categories(c *gin.Context) {
	usage, err := h.analytics.PerCategory(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, usage)
}

func (h *AnalyticsHandler) TopContent(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	report, err := h.analytics.TopContent(c.Request.Context(), limit)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, report)
}
