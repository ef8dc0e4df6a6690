package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/logger"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/types"
)

type UserProfileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
	Password  *string `json:"password"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update *UserProfileUpdate) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load user")
	}
	if len(users) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "user %s not found", userID)
	}
	return users[0], nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update *UserProfileUpdate) (*types.User, error) {
	updates := map[string]interface{}{}
	if update.FirstName != nil {
		name := strings.TrimSpace(*update.FirstName)
		if name == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "first name cannot be empty")
		}
		updates["first_name"] = name
	}
	if update.LastName != nil {
		name := strings.TrimSpace(*update.LastName)
		if name == "" {
			return nil, apperr.New(apperr.KindInvalidArgument, "last name cannot be empty")
		}
		updates["last_name"] = name
	}
	if update.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*update.AvatarURL)
	}
	if update.Password != nil {
		if len(*update.Password) < 8 {
			return nil, apperr.New(apperr.KindInvalidArgument, "password must be at least 8 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to hash password")
		}
		updates["password"] = string(hashed)
	}
	if len(updates) > 0 {
		if err := s.userRepo.UpdateFields(ctx, nil, userID, updates); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to update profile")
		}
	}
	return s.GetProfile(ctx, userID)
}
