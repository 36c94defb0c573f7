package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/response"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type TutorialHandler struct {
	log       *logger.Logger
	tutorials services.TutorialService
	devMode   bool
}

func NewTutorialHandler(log *logger.Logger, tutorials services.TutorialService, devMode bool) *TutorialHandler {
	return &TutorialHandler{
		log:       log.With("handler", "TutorialHandler"),
		tutorials: tutorials,
		devMode:   devMode,
	}
}

func (h *TutorialHandler) List(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_category_id", err)
			return
		}
		categoryID = &id
	}
	views, err := h.tutorials.List(c.Request.Context(), categoryID, userEmail(c))
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, views)
}

func (h *TutorialHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.tutorials.Get(c.Request.Context(), id, userEmail(c), c.ClientIP())
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, view)
}

func (h *TutorialHandler) Create(c *gin.Context) {
	var input services.TutorialInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	tut, err := h.tutorials.Create(c.Request.Context(), input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondCreated(c, tut)
}

func (h *TutorialHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input services.TutorialInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	tut, err := h.tutorials.Update(c.Request.Context(), id, input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, tut)
}

func (h *TutorialHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tutorials.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, gin.H{"message": "tutorial deleted"})
}
