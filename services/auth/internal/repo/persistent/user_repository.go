package persistent

import (
	"context"
	"errors"
	"time"

	"mao-amiga/services/auth/internal/entity"
	"mao-amiga/services/auth/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	UpdateName(ctx context.Context, userID, name string) error
	SetAvatar(ctx context.Context, userID, avatarURL string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user and its profile row in one transaction.
func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	userModel := ToUserModel(user)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(userModel).Error; err != nil {
			return err
		}
		profile := &model.ProfileModel{
			ID:        userModel.ID,
			Name:      user.Name,
			UpdatedAt: userModel.CreatedAt,
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		userModel.Profile = profile
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return entity.ErrEmailTaken
	}
	if err != nil {
		return err
	}

	*user = *ToUserEntity(userModel)
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) first(ctx context.Context, query string, arg string) (*entity.User, error) {
	var userModel model.UserModel
	err := r.db.WithContext(ctx).Preload("Profile").Where(query, arg).First(&userModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) UpdateName(ctx context.Context, userID, name string) error {
	return r.upsertProfile(ctx, &model.ProfileModel{ID: userID, Name: name, UpdatedAt: time.Now()}, "name")
}

func (r *userRepository) SetAvatar(ctx context.Context, userID, avatarURL string) error {
	return r.upsertProfile(ctx, &model.ProfileModel{ID: userID, AvatarURL: &avatarURL, UpdatedAt: time.Now()}, "avatar_url")
}

// upsertProfile creates the profile row for users registered before
// profiles existed, otherwise it updates only column.
func (r *userRepository) upsertProfile(ctx context.Context, profile *model.ProfileModel, column string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.UserModel{}).Where("id = ?", profile.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return entity.ErrUserNotFound
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{column, "updated_at"}),
	}).Create(profile).Error
}
