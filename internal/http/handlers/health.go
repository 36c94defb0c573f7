package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/db"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
)

type HealthHandler struct {
	log *logger.Logger
	pg  *db.PostgresService
}

func NewHealthHandler(log *logger.Logger, pg *db.PostgresService) *HealthHandler {
	return &HealthHandler{
		log: log.With("handler", "HealthHandler"),
		pg:  pg,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	code := http.StatusOK
	if err := h.pg.Ping(); err != nil {
		h.log.Error("database ping failed", "error", err)
		status = "degraded"
		dbStatus = "unreachable"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
	})
}
