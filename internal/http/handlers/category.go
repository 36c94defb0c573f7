package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/response"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/services"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type CategoryHandler struct {
	log        *logger.Logger
	categories services.CategoryService
	devMode    bool
}

func NewCategoryHandler(log *logger.Logger, categories services.CategoryService, devMode bool) *CategoryHandler {
	return &CategoryHandler{
		log:        log.With("handler", "CategoryHandler"),
		categories: categories,
		devMode:    devMode,
	}
}

func (h *CategoryHandler) List(c *gin.Context) {
	cats, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, cats)
}

// Get looks a category up by numeric ID, or by slug when the path segment
// is not a number.
func (h *CategoryHandler) Get(c *gin.Context) {
	raw := c.Param("id")
	var (
		cat *types.Category
		err error
	)
	if id, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
		cat, err = h.categories.Get(c.Request.Context(), id)
	} else {
		cat, err = h.categories.GetBySlug(c.Request.Context(), raw)
	}
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, cat)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondCreated(c, cat)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), id, input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, cat)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, gin.H{"message": "category deleted"})
}
