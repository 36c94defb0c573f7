package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type VoteOutcome string

const (
	VoteCreated VoteOutcome = "created"
	VoteUpdated VoteOutcome = "updated"
	VoteRemoved VoteOutcome = "removed"
)

type VoteCounts struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}

type RatingRepo interface {
	CastVote(ctx context.Context, userID int64, contentType types.ContentType, contentID int64, vote int) (VoteOutcome, error)
	CountVotes(ctx context.Context, contentType types.ContentType, contentID int64) (VoteCounts, error)
	GetUserVote(ctx context.Context, userID int64, contentType types.ContentType, contentID int64) (*int, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

// CastVote applies toggle semantics in a single transaction: same vote
// deletes the row, opposite vote updates it, no row inserts one. The insert
// carries an ON CONFLICT update so two racing first-votes both land instead
// of one failing on the unique index.
func (r *ratingRepo) CastVote(ctx context.Context, userID int64, contentType types.ContentType, contentID int64, vote int) (VoteOutcome, error) {
	var outcome VoteOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing types.Rating
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.Vote == vote {
				outcome = VoteRemoved
				return tx.Delete(&existing).Error
			}
			outcome = VoteUpdated
			return tx.Model(&existing).Update("vote", vote).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			outcome = VoteCreated
			rating := types.Rating{
				UserID:      userID,
				ContentType: contentType,
				ContentID:   contentID,
				Vote:        vote,
			}
			return tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "user_id"},
					{Name: "content_type"},
					{Name: "content_id"},
				},
				DoUpdates: clause.AssignmentColumns([]string{"vote", "updated_at"}),
			}).Create(&rating).Error
		default:
			return err
		}
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (r *ratingRepo) CountVotes(ctx context.Context, contentType types.ContentType, contentID int64) (VoteCounts, error) {
	var counts VoteCounts
	base := r.db.WithContext(ctx).
		Model(&types.Rating{}).
		Where("content_type = ? AND content_id = ?", contentType, contentID)
	if err := base.Session(&gorm.Session{}).Where("vote = 1").Count(&counts.Upvotes).Error; err != nil {
		return counts, err
	}
	if err := base.Session(&gorm.Session{}).Where("vote = -1").Count(&counts.Downvotes).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

func (r *ratingRepo) GetUserVote(ctx context.Context, userID int64, contentType types.ContentType, contentID int64) (*int, error) {
	var rating types.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_type = ? AND content_id = ?", userID, contentType, contentID).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating.Vote, nil
}
