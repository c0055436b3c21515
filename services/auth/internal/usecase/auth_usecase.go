package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"unicode/utf8"

	"mao-amiga/pkg/jwt"
	"mao-amiga/pkg/logger"
	"mao-amiga/services/auth/internal/entity"
	"mao-amiga/services/auth/internal/repo/persistent"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	MaxNameLength     = 255
)

var allowedAvatarExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// AvatarStorage is the object store avatars are uploaded to.
type AvatarStorage interface {
	UploadFile(key string, body io.Reader, contentType string) (string, error)
	DeleteFile(key string) error
}

type AuthUseCase interface {
	Register(ctx context.Context, email, password, name string) (*entity.User, string, error)
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	GetUser(ctx context.Context, userID string) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID, name string) (*entity.User, error)
	UploadAvatar(ctx context.Context, userID string, avatar *entity.Avatar) (*entity.User, error)
}

type authUseCase struct {
	userRepo   persistent.UserRepository
	jwtService *jwt.Service
	storage    AvatarStorage
	logger     *logger.Logger
}

func NewAuthUseCase(
	userRepo persistent.UserRepository,
	jwtService *jwt.Service,
	storage AvatarStorage,
	logger *logger.Logger,
) AuthUseCase {
	return &authUseCase{
		userRepo:   userRepo,
		jwtService: jwtService,
		storage:    storage,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (uc *authUseCase) Register(ctx context.Context, email, password, name string) (*entity.User, string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email", entity.ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return nil, "", fmt.Errorf("%w: password must have at least %d characters", entity.ErrValidation, MinPasswordLength)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, "", fmt.Errorf("%w: name is too long", entity.ErrValidation)
	}

	_, err := uc.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, "", entity.ErrEmailTaken
	}
	if !errors.Is(err, entity.ErrUserNotFound) {
		uc.logger.Error("Failed to look up email: %v", err)
		return nil, "", fmt.Errorf("failed to process registration: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		uc.logger.Error("Failed to hash password: %v", err)
		return nil, "", fmt.Errorf("failed to process registration")
	}

	user := &entity.User{
		Email:    email,
		Password: string(hashedPassword),
		Role:     entity.RoleUser,
		IsActive: true,
		Name:     name,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entity.ErrEmailTaken) {
			return nil, "", err
		}
		uc.logger.Error("Failed to create user: %v", err)
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := uc.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token")
	}

	uc.logger.Info("Registered user %s", user.ID)
	user.Password = ""
	return user, token, nil
}

func (uc *authUseCase) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	user, err := uc.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, entity.ErrUserNotFound) {
		return nil, "", entity.ErrInvalidCredentials
	}
	if err != nil {
		uc.logger.Error("Failed to load user: %v", err)
		return nil, "", fmt.Errorf("failed to login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", entity.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, "", entity.ErrAccountDisabled
	}

	token, err := uc.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token")
	}

	user.Password = ""
	return user, token, nil
}

func (uc *authUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (uc *authUseCase) UpdateProfile(ctx context.Context, userID, name string) (*entity.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", entity.ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: name is too long", entity.ErrValidation)
	}

	if err := uc.userRepo.UpdateName(ctx, userID, name); err != nil {
		if !errors.Is(err, entity.ErrUserNotFound) {
			uc.logger.Error("Failed to update profile for %s: %v", userID, err)
		}
		return nil, err
	}
	return uc.GetUser(ctx, userID)
}

func (uc *authUseCase) UploadAvatar(ctx context.Context, userID string, avatar *entity.Avatar) (*entity.User, error) {
	if avatar == nil {
		return nil, fmt.Errorf("%w: avatar file is required", entity.ErrValidation)
	}
	ext := avatar.Extension()
	if !allowedAvatarExtensions[ext] {
		return nil, fmt.Errorf("%w: invalid file type, only images are allowed", entity.ErrValidation)
	}
	if avatar.ContentType != "" && !strings.HasPrefix(avatar.ContentType, "image/") {
		return nil, fmt.Errorf("%w: invalid content type %q", entity.ErrValidation, avatar.ContentType)
	}

	if _, err := uc.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	key := avatarKey(userID, ext)
	avatarURL, err := uc.storage.UploadFile(key, avatar.Body, avatar.ContentType)
	if err != nil {
		uc.logger.Error("Failed to upload avatar: %v", err)
		return nil, fmt.Errorf("%w: %v", entity.ErrStorage, err)
	}

	if err := uc.userRepo.SetAvatar(ctx, userID, avatarURL); err != nil {
		uc.logger.Error("Failed to save avatar for %s: %v", userID, err)
		if delErr := uc.storage.DeleteFile(key); delErr != nil {
			uc.logger.Warn("Failed to delete orphaned avatar %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return uc.GetUser(ctx, userID)
}

func avatarKey(userID, ext string) string {
	return fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New().String(), ext)
}
