package persistent

import (
	"context"
	"testing"

	"mao-amiga/services/auth/internal/entity"
	"mao-amiga/services/auth/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.UserModel{}, &model.ProfileModel{}))
	return db
}

func newUser(email, name string) *entity.User {
	return &entity.User{
		Email:    email,
		Password: "hash",
		Role:     entity.RoleUser,
		IsActive: true,
		Name:     name,
	}
}

func TestCreate_WritesUserAndProfile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newUser("ana@example.com", "Ana")
	require.NoError(t, repo.Create(ctx, user))
	require.NotEmpty(t, user.ID)

	var profile model.ProfileModel
	require.NoError(t, db.Where("id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, "Ana", profile.Name)
	assert.Nil(t, profile.AvatarURL)

	loaded, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)
	assert.Equal(t, "Ana", loaded.Name)
	assert.Equal(t, "hash", loaded.Password)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing-user")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)

	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestUpdateName(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := newUser("ana@example.com", "Ana")
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.SetAvatar(ctx, user.ID, "http://cdn/avatar.png"))

	require.NoError(t, repo.UpdateName(ctx, user.ID, "Ana Souza"))

	loaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", loaded.Name)
	require.NotNil(t, loaded.AvatarURL)
	assert.Equal(t, "http://cdn/avatar.png", *loaded.AvatarURL)
}

func TestSetAvatar_CreatesMissingProfile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	legacy := &model.UserModel{Email: "old@example.com", Password: "hash", Role: "user", IsActive: true}
	require.NoError(t, db.Create(legacy).Error)

	require.NoError(t, repo.SetAvatar(ctx, legacy.ID, "http://cdn/old.png"))

	loaded, err := repo.GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AvatarURL)
	assert.Equal(t, "http://cdn/old.png", *loaded.AvatarURL)
	assert.Equal(t, "", loaded.Name)
}

func TestUpsertProfile_UnknownUser(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	err := repo.UpdateName(context.Background(), "missing-user", "Ana")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}
