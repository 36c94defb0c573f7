package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/middleware"
	"github.com/openshelf/openshelf-backend/internal/http/response"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type UserHandler struct {
	log     *logger.Logger
	users   services.UserService
	devMode bool
}

func NewUserHandler(log *logger.Logger, users services.UserService, devMode bool) *UserHandler {
	return &UserHandler{
		log:     log.With("handler", "UserHandler"),
		users:   users,
		devMode: devMode,
	}
}

// Me answers with the authenticated caller's own record.
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("authentication required"))
		return
	}
	response.RespondOK(c, user)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, users)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, user)
}

func (h *UserHandler) Create(c *gin.Context) {
	var input services.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	user, err := h.users.Create(c.Request.Context(), input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondCreated(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input services.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	user, err := h.users.Update(c.Request.Context(), id, input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, gin.H{"message": "user deleted"})
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	if req.IsActive == nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", fmt.Errorf("is_active is required"))
		return
	}
	user, err := h.users.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, user)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	user, err := h.users.AssignRole(c.Request.Context(), id, req.Role)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, user)
}

func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.users.RemoveRole(c.Request.Context(), id, c.Param("role"))
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, user)
}
