package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/response"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/services"
)

const uploadFieldName = "file"

type UploadHandler struct {
	log     *logger.Logger
	uploads services.UploadService
	thumbs  services.ThumbnailService
	devMode bool
}

func NewUploadHandler(log *logger.Logger, uploads services.UploadService, thumbs services.ThumbnailService, devMode bool) *UploadHandler {
	return &UploadHandler{
		log:     log.With("handler", "UploadHandler"),
		uploads: uploads,
		thumbs:  thumbs,
		devMode: devMode,
	}
}

// UploadFile accepts a multipart file and answers with its stored location.
func (h *UploadHandler) UploadFile(c *gin.Context) {
	header, err := c.FormFile(uploadFieldName)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	stored, err := h.uploads.Store(c.Request.Context(), uploadFieldName, header)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	if email := c.PostForm("userEmail"); email != "" {
		h.log.Info("file uploaded", "path", stored.FilePath, "by", email)
	}
	response.RespondOK(c, stored)
}

type generateThumbnailRequest struct {
	FilePath string `json:"filePath"`
	Type     string `json:"type"`
}

// GenerateThumbnail rasterizes the first page of an already-uploaded PDF
// and answers with the rendered image's public path.
func (h *UploadHandler) GenerateThumbnail(c *gin.Context) {
	var req generateThumbnailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	path, err := h.thumbs.GenerateFromPath(c.Request.Context(), req.FilePath)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, gin.H{"thumbnailPath": path})
}
