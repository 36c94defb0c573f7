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

type RatingHandler struct {
	log     *logger.Logger
	ratings services.RatingService
	devMode bool
}

func NewRatingHandler(log *logger.Logger, ratings services.RatingService, devMode bool) *RatingHandler {
	return &RatingHandler{
		log:     log.With("handler", "RatingHandler"),
		ratings: ratings,
		devMode: devMode,
	}
}

type castVoteRequest struct {
	ContentType string `json:"content_type"`
	ContentID   int64  `json:"content_id"`
	Vote        string `json:"vote"`
}

// Cast records, flips, or withdraws the caller's vote depending on the
// existing one, then answers with the refreshed tallies.
func (h *RatingHandler) Cast(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("authentication required"))
		return
	}
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	outcome, err := h.ratings.CastVote(c.Request.Context(), user.ID, req.ContentType, req.ContentID, req.Vote)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	counts, err := h.ratings.Counts(c.Request.Context(), req.ContentType, req.ContentID)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, gin.H{
		"outcome":   string(outcome),
		"upvotes":   counts.Upvotes,
		"downvotes": counts.Downvotes,
	})
}

func (h *RatingHandler) Counts(c *gin.Context) {
	contentType := c.Query("content_type")
	id, ok := pathID(c)
	if !ok {
		return
	}
	counts, err := h.ratings.Counts(c.Request.Context(), contentType, id)
	if err != nil {
		response.RespondAppError(c, err, h.devMode)
		return
	}
	response.RespondOK(c, gin.H{
		"upvotes":   counts.Upvotes,
		"downvotes": counts.Downvotes,
	})
}
