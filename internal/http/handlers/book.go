package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/middleware"
	"github.com/openshelf/openshelf-backend/internal/http/response"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/services"
)

type BookHandler struct {
	log     *logger.Logger
	books   services.BookService
	content services.ContentService
	thumbs  services.ThumbnailService

	devMode bool
}

func NewBookHandler(
	log *logger.Logger,
	books services.BookService,
	content services.ContentService,
	thumbs services.ThumbnailService,
	devMode bool,
) *BookHandler {
	return &BookHandler{
		log:     log.With("handler", "BookHandler"),
		books:   books,
		content: content,
		thumbs:  thumbs,
		devMode: devMode,
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func userEmail(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.GetHeader(middleware.UserEmailHeader)))
}

func (h *BookHandler) List(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_category_id", err)
			return
		}
		categoryID = &id
	}
	views, err := h.books.List(c.Request.Context(), categoryID, userEmail(c))
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, views)
}

func (h *BookHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.books.Get(c.Request.Context(), id, userEmail(c))
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, view)
}

func (h *BookHandler) Create(c *gin.Context) {
	var input services.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	book, err := h.books.Create(c.Request.Context(), input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondCreated(c, book)
}

func (h *BookHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var input services.BookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	book, err := h.books.Update(c.Request.Context(), id, input)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, book)
}

func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.books.Delete(c.Request.Context(), id); err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, gin.H{"message": "book deleted"})
}

// Download resolves the delivery strategy from the stored path and answers
// with a presigned-URL payload, a disk stream, or inline bytes.
func (h *BookHandler) Download(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.content.ResolveDownload(c.Request.Context(), id, userEmail(c), c.ClientIP())
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	switch res.Kind {
	case services.DownloadRedirect:
		response.RespondOK(c, gin.H{"url": res.URL})
	case services.DownloadStream:
		c.FileAttachment(res.FilePath, res.Filename)
	case services.DownloadInline:
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
		c.Header("Content-Length", strconv.FormatInt(res.Size, 10))
		c.Data(http.StatusOK, res.Mime, res.Data)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", nil)
	}
}

// Thumbnail serves the resolved thumbnail with day-long caching headers and
// honors If-None-Match revalidation.
func (h *BookHandler) Thumbnail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.thumbs.Resolve(c.Request.Context(), id)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	switch res.Kind {
	case services.ThumbnailFile:
		c.File(res.FilePath)
	case services.ThumbnailRedirect:
		c.Redirect(http.StatusFound, res.RedirectURL)
	case services.ThumbnailBytes:
		c.Header("Cache-Control", "public, max-age=86400")
		c.Header("ETag", res.ETag)
		if match := c.GetHeader("If-None-Match"); match != "" && match == res.ETag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Data(http.StatusOK, res.Mime, res.Data)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", nil)
	}
}

type patchCoverRequest struct {
	CoverImagePath   *string `json:"cover_image_path"`
	CoverImageBase64 *string `json:"cover_image_base64"`
	CoverImageType   *string `json:"cover_image_type"`
}

// PatchCover replaces the cover either by path or by inline image bytes.
func (h *BookHandler) PatchCover(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req patchCoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	if req.CoverImageBase64 != nil && *req.CoverImageBase64 != "" {
		encoded := *req.CoverImageBase64
		if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
			encoded = encoded[idx+len(";base64,"):]
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_base64", err)
			return
		}
		declared := ""
		if req.CoverImageType != nil {
			declared = *req.CoverImageType
		}
		coverPath, err := h.thumbs.SetCover(c.Request.Context(), id, raw, declared)
		if err != nil {
			response.RespondAppError(c, err, h.devMode)
			return
		}
		response.RespondOK(c, gin.H{"message": "cover updated", "cover_image_path": coverPath})
		return
	}

	if req.CoverImagePath != nil && *req.CoverImagePath != "" {
		book, err := h.books.Update(c.Request.Context(), id, services.BookInput{CoverImagePath: req.CoverImagePath})
		if err != nil {
			response.RespondAppError(c, err, h.devMode)
			return
		}
		response.RespondOK(c, gin.H{"message": "cover updated", "cover_image_path": book.CoverImagePath})
		return
	}

	response.RespondError(c, http.StatusBadRequest, "validation_error",
		fmt.Errorf("cover_image_path or cover_image_base64 is required"))
}
