package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
	GetByID(ctx context.Context, id int64) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	List(ctx context.Context) ([]*types.User, error)
	Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) error
	TouchLastLogin(ctx context.Context, id int64) error
	GetOrCreateRole(ctx context.Context, tx *gorm.DB, name string) (*types.Role, error)
	AssignRole(ctx context.Context, tx *gorm.DB, userID int64, roleName string) error
	RemoveRole(ctx context.Context, tx *gorm.DB, userID int64, roleName string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*types.User, error) {
	var user types.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	var user types.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) List(ctx context.Context) ([]*types.User, error) {
	var users []*types.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.User{}).
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

func (r *userRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Update("last_login", time.Now()).Error
}

func (r *userRepo) GetOrCreateRole(ctx context.Context, tx *gorm.DB, name string) (*types.Role, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var role types.Role
	if err := transaction.WithContext(ctx).
		Where(types.Role{Name: name}).
		FirstOrCreate(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *userRepo) AssignRole(ctx context.Context, tx *gorm.DB, userID int64, roleName string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	role, err := r.GetOrCreateRole(ctx, transaction, roleName)
	if err != nil {
		return err
	}
	user := types.User{ID: userID}
	return transaction.WithContext(ctx).
		Model(&user).
		Association("Roles").
		Append(role)
}

func (r *userRepo) RemoveRole(ctx context.Context, tx *gorm.DB, userID int64, roleName string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var role types.Role
	if err := transaction.WithContext(ctx).
		Where("name = ?", roleName).
		First(&role).Error; err != nil {
		return err
	}
	user := types.User{ID: userID}
	return transaction.WithContext(ctx).
		Model(&user).
		Association("Roles").
		Delete(&role)
}
