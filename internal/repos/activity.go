package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type ContentCount struct {
	ContentID int64 `json:"content_id"`
	Count     int64 `json:"count"`
}

type ActivityRepo interface {
	Append(ctx context.Context, entry *types.ActivityLog) error
	CountByContent(ctx context.Context, contentType types.ContentType, contentID int64, action types.ActivityAction) (int64, error)
	TopContent(ctx context.Context, contentType types.ContentType, action types.ActivityAction, limit int) ([]ContentCount, error)
	TotalByAction(ctx context.Context, action types.ActivityAction) (int64, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) Append(ctx context.Context, entry *types.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityRepo) CountByContent(ctx context.Context, contentType types.ContentType, contentID int64, action types.ActivityAction) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&types.ActivityLog{}).
		Where("content_type = ? AND content_id = ? AND action = ?", contentType, contentID, action).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *activityRepo) TopContent(ctx context.Context, contentType types.ContentType, action types.ActivityAction, limit int) ([]ContentCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []ContentCount
	if err := r.db.WithContext(ctx).
		Model(&types.ActivityLog{}).
		Select("content_id, COUNT(*) AS count").
		Where("content_type = ? AND action = ?", contentType, action).
		Group("content_id").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *activityRepo) TotalByAction(ctx context.Context, action types.ActivityAction) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&types.ActivityLog{}).
		Where("action = ?", action).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
