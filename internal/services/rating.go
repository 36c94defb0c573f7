package services

import (
	"context"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

type RatingService interface {
	CastVote(ctx context.Context, userID int64, contentType string, contentID int64, direction string) (repos.VoteOutcome, error)
	Counts(ctx context.Context, contentType string, contentID int64) (repos.VoteCounts, error)
}

type ratingService struct {
	log     *logger.Logger
	ratings repos.RatingRepo
}

func NewRatingService(log *logger.Logger, ratings repos.RatingRepo) RatingService {
	return &ratingService{
		log:     log.With("service", "RatingService"),
		ratings: ratings,
	}
}

func (s *ratingService) CastVote(ctx context.Context, userID int64, contentType string, contentID int64, direction string) (repos.VoteOutcome, error) {
	ct := types.ContentType(contentType)
	if !ct.Valid() {
		return "", apierr.Validation("content_type must be book or tutorial")
	}
	var vote int
	switch VoteDirection(direction) {
	case VoteUp:
		vote = 1
	case VoteDown:
		vote = -1
	default:
		return "", apierr.Validation("vote must be up or down")
	}

	outcome, err := s.ratings.CastVote(ctx, userID, ct, contentID, vote)
	if err != nil {
		return "", apierr.Database(err)
	}
	return outcome, nil
}

func (s *ratingService) Counts(ctx context.Context, contentType string, contentID int64) (repos.VoteCounts, error) {
	ct := types.ContentType(contentType)
	if !ct.Valid() {
		return repos.VoteCounts{}, apierr.Validation("content_type must be book or tutorial")
	}
	counts, err := s.ratings.CountVotes(ctx, ct, contentID)
	if err != nil {
		return counts, apierr.Database(err)
	}
	return counts, nil
}
