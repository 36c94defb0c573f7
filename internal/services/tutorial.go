package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type TutorialInput struct {
	Title       *string `json:"title"`
	CategoryID  *int64  `json:"category_id"`
	Creator     *string `json:"creator"`
	Difficulty  *string `json:"difficulty"`
	ContentType *string `json:"content_type"`
	ContentURL  *string `json:"content_url"`
	EmbedURL    *string `json:"embed_url"`
	FilePath    *string `json:"file_path"`
}

type TutorialView struct {
	*types.Tutorial
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
	UserVote  *int  `json:"user_vote,omitempty"`
	Views     int64 `json:"views"`
}

type TutorialService interface {
	Create(ctx context.Context, input TutorialInput) (*types.Tutorial, error)
	Get(ctx context.Context, id int64, userEmail, ip string) (*TutorialView, error)
	List(ctx context.Context, categoryID *int64, userEmail string) ([]*TutorialView, error)
	Update(ctx context.Context, id int64, input TutorialInput) (*types.Tutorial, error)
	Delete(ctx context.Context, id int64) error
}

type tutorialService struct {
	log        *logger.Logger
	tutorials  repos.TutorialRepo
	categories repos.CategoryRepo
	ratings    repos.RatingRepo
	activity   repos.ActivityRepo
	users      repos.UserRepo
}

func NewTutorialService(
	log *logger.Logger,
	tutorials repos.TutorialRepo,
	categories repos.CategoryRepo,
	ratings repos.RatingRepo,
	activity repos.ActivityRepo,
	users repos.UserRepo,
) TutorialService {
	return &tutorialService{
		log:        log.With("service", "TutorialService"),
		tutorials:  tutorials,
		categories: categories,
		ratings:    ratings,
		activity:   activity,
		users:      users,
	}
}

func (s *tutorialService) Create(ctx context.Context, input TutorialInput) (*types.Tutorial, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, apierr.Validation("title is required")
	}
	if input.CategoryID == nil {
		return nil, apierr.Validation("category_id is required")
	}
	if input.ContentURL == nil || strings.TrimSpace(*input.ContentURL) == "" {
		return nil, apierr.Validation("content_url is required")
	}
	if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Validation("category %d does not exist", *input.CategoryID)
		}
		return nil, apierr.Database(err)
	}

	tutorial := &types.Tutorial{
		Title:       strings.TrimSpace(*input.Title),
		CategoryID:  *input.CategoryID,
		ContentURL:  strings.TrimSpace(*input.ContentURL),
		Difficulty:  types.DifficultyBeginner,
		ContentType: types.TutorialContentVideo,
		EmbedURL:    input.EmbedURL,
		FilePath:    input.FilePath,
	}
	if input.Creator != nil {
		tutorial.Creator = strings.TrimSpace(*input.Creator)
	}
	if input.Difficulty != nil {
		d := types.TutorialDifficulty(*input.Difficulty)
		if !d.Valid() {
			return nil, apierr.Validation("difficulty must be Beginner, Intermediate or Advanced")
		}
		tutorial.Difficulty = d
	}
	if input.ContentType != nil {
		ct := types.TutorialContentType(*input.ContentType)
		if !ct.Valid() {
			return nil, apierr.Validation("content_type must be Video or PDF")
		}
		tutorial.ContentType = ct
	}

	created, err := s.tutorials.Create(ctx, nil, tutorial)
	if err != nil {
		return nil, mapDBError(err)
	}
	return created, nil
}

// Get also appends a view log row; the log write is best effort.
func (s *tutorialService) Get(ctx context.Context, id int64, userEmail, ip string) (*TutorialView, error) {
	tutorial, err := s.tutorials.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("tutorial %d not found", id)
		}
		return nil, apierr.Database(err)
	}

	userID := s.lookupUserID(ctx, userEmail)
	entry := &types.ActivityLog{
		UserID:      userID,
		ContentType: types.ContentTypeTutorial,
		ContentID:   id,
		Action:      types.ActivityView,
		IPAddress:   ip,
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.log.Warn("failed to log tutorial view", "tutorial_id", id, "error", err)
	}

	return s.toView(ctx, tutorial, userID), nil
}

func (s *tutorialService) List(ctx context.Context, categoryID *int64, userEmail string) ([]*TutorialView, error) {
	tutorials, err := s.tutorials.List(ctx, categoryID)
	if err != nil {
		return nil, apierr.Database(err)
	}
	userID := s.lookupUserID(ctx, userEmail)
	views := make([]*TutorialView, 0, len(tutorials))
	for _, t := range tutorials {
		views = append(views, s.toView(ctx, t, userID))
	}
	return views, nil
}

func (s *tutorialService) Update(ctx context.Context, id int64, input TutorialInput) (*types.Tutorial, error) {
	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.Validation("category %d does not exist", *input.CategoryID)
			}
			return nil, apierr.Database(err)
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.Creator != nil {
		updates["creator"] = strings.TrimSpace(*input.Creator)
	}
	if input.Difficulty != nil {
		d := types.TutorialDifficulty(*input.Difficulty)
		if !d.Valid() {
			return nil, apierr.Validation("difficulty must be Beginner, Intermediate or Advanced")
		}
		updates["difficulty"] = d
	}
	if input.ContentType != nil {
		ct := types.TutorialContentType(*input.ContentType)
		if !ct.Valid() {
			return nil, apierr.Validation("content_type must be Video or PDF")
		}
		updates["content_type"] = ct
	}
	if input.ContentURL != nil {
		updates["content_url"] = strings.TrimSpace(*input.ContentURL)
	}
	if input.EmbedURL != nil {
		updates["embed_url"] = input.EmbedURL
	}
	if input.FilePath != nil {
		updates["file_path"] = input.FilePath
	}

	if len(updates) > 0 {
		if err := s.tutorials.Updates(ctx, nil, id, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.NotFound("tutorial %d not found", id)
			}
			return nil, mapDBError(err)
		}
	}

	tutorial, err := s.tutorials.GetByID(ctx, id)
	if err != nil {
		return nil, apierr.Database(err)
	}
	return tutorial, nil
}

func (s *tutorialService) Delete(ctx context.Context, id int64) error {
	if err := s.tutorials.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("tutorial %d not found", id)
		}
		return apierr.Database(err)
	}
	return nil
}

func (s *tutorialService) toView(ctx context.Context, tutorial *types.Tutorial, userID *int64) *TutorialView {
	view := &TutorialView{Tutorial: tutorial}
	if counts, err := s.ratings.CountVotes(ctx, types.ContentTypeTutorial, tutorial.ID); err == nil {
		view.Upvotes = counts.Upvotes
		view.Downvotes = counts.Downvotes
	}
	if userID != nil {
		if vote, err := s.ratings.GetUserVote(ctx, *userID, types.ContentTypeTutorial, tutorial.ID); err == nil {
			view.UserVote = vote
		}
	}
	if n, err := s.activity.CountByContent(ctx, types.ContentTypeTutorial, tutorial.ID, types.ActivityView); err == nil {
		view.Views = n
	}
	return view
}

func (s *tutorialService) lookupUserID(ctx context.Context, userEmail string) *int64 {
	if userEmail == "" {
		return nil
	}
	user, err := s.users.GetByEmail(ctx, userEmail)
	if err != nil {
		return nil
	}
	return &user.ID
}
