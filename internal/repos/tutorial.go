package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type TutorialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tutorial *types.Tutorial) (*types.Tutorial, error)
	GetByID(ctx context.Context, id int64) (*types.Tutorial, error)
	List(ctx context.Context, categoryID *int64) ([]*types.Tutorial, error)
	Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) error
	CountByCategory(ctx context.Context, categoryID int64) (int64, error)
}

type tutorialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTutorialRepo(db *gorm.DB, baseLog *logger.Logger) TutorialRepo {
	return &tutorialRepo{db: db, log: baseLog.With("repo", "TutorialRepo")}
}

func (r *tutorialRepo) Create(ctx context.Context, tx *gorm.DB, tutorial *types.Tutorial) (*types.Tutorial, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(tutorial).Error; err != nil {
		return nil, err
	}
	return tutorial, nil
}

func (r *tutorialRepo) GetByID(ctx context.Context, id int64) (*types.Tutorial, error) {
	var tutorial types.Tutorial
	if err := r.db.WithContext(ctx).
		Preload("Category").
		First(&tutorial, id).Error; err != nil {
		return nil, err
	}
	return &tutorial, nil
}

func (r *tutorialRepo) List(ctx context.Context, categoryID *int64) ([]*types.Tutorial, error) {
	var tutorials []*types.Tutorial
	q := r.db.WithContext(ctx).Preload("Category").Order("created_at DESC")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	if err := q.Find(&tutorials).Error; err != nil {
		return nil, err
	}
	return tutorials, nil
}

func (r *tutorialRepo) Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Tutorial{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tutorialRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.Tutorial{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tutorialRepo) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&types.Tutorial{}).
		Where("category_id = ?", categoryID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
