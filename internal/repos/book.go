package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type BookRepo interface {
	Create(ctx context.Context, tx *gorm.DB, book *types.Book) (*types.Book, error)
	GetByID(ctx context.Context, id int64) (*types.Book, error)
	List(ctx context.Context, categoryID *int64) ([]*types.Book, error)
	Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) error
	SetCoverPath(ctx context.Context, tx *gorm.DB, id int64, coverPath string) error
	SetThumbnail(ctx context.Context, tx *gorm.DB, id int64, content []byte, mime string) error
	CountByCategory(ctx context.Context, categoryID int64) (int64, error)
}

type bookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return &bookRepo{db: db, log: baseLog.With("repo", "BookRepo")}
}

func (r *bookRepo) Create(ctx context.Context, tx *gorm.DB, book *types.Book) (*types.Book, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (r *bookRepo) GetByID(ctx context.Context, id int64) (*types.Book, error) {
	var book types.Book
	if err := r.db.WithContext(ctx).
		Preload("Category").
		First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepo) List(ctx context.Context, categoryID *int64) ([]*types.Book, error) {
	var books []*types.Book
	q := r.db.WithContext(ctx).Preload("Category").Order("created_at DESC")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	if err := q.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepo) Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Book{}).
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

func (r *bookRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *bookRepo) SetCoverPath(ctx context.Context, tx *gorm.DB, id int64, coverPath string) error {
	return r.Updates(ctx, tx, id, map[string]any{"cover_image_path": coverPath})
}

func (r *bookRepo) SetThumbnail(ctx context.Context, tx *gorm.DB, id int64, content []byte, mime string) error {
	return r.Updates(ctx, tx, id, map[string]any{
		"thumbnail_content": content,
		"thumbnail_mime":    mime,
	})
}

func (r *bookRepo) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&types.Book{}).
		Where("category_id = ?", categoryID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
