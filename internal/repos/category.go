package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type CategoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, category *types.Category) (*types.Category, error)
	GetByID(ctx context.Context, id int64) (*types.Category, error)
	GetBySlug(ctx context.Context, slug string) (*types.Category, error)
	List(ctx context.Context) ([]*types.Category, error)
	Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) error
	ReferenceCount(ctx context.Context, id int64) (int64, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{db: db, log: baseLog.With("repo", "CategoryRepo")}
}

func (r *categoryRepo) Create(ctx context.Context, tx *gorm.DB, category *types.Category) (*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id int64) (*types.Category, error) {
	var category types.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) GetBySlug(ctx context.Context, slug string) (*types.Category, error) {
	var category types.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]*types.Category, error) {
	var categories []*types.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepo) Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Category{}).
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

func (r *categoryRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReferenceCount counts books plus tutorials still pointing at the category.
// Deletion is blocked while it is non-zero.
func (r *categoryRepo) ReferenceCount(ctx context.Context, id int64) (int64, error) {
	var books int64
	if err := r.db.WithContext(ctx).
		Model(&types.Book{}).
		Where("category_id = ?", id).
		Count(&books).Error; err != nil {
		return 0, err
	}
	var tutorials int64
	if err := r.db.WithContext(ctx).
		Model(&types.Tutorial{}).
		Where("category_id = ?", id).
		Count(&tutorials).Error; err != nil {
		return 0, err
	}
	return books + tutorials, nil
}
