package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	apperrors "ygodeck/internal/errors"
	"ygodeck/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// Profile is the public view of an account.
type Profile struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserService exposes account lookups.
type UserService interface {
	Profile(ctx context.Context, userID uint) (*Profile, error)
}

type userService struct {
	repo  repository.UserRepository
	cache ResponseCache
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache ResponseCache) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) Profile(ctx context.Context, userID uint) (*Profile, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(userID)); data != nil {
		var cached Profile
		if err := sonic.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	profile := &Profile{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	if payload, err := sonic.Marshal(profile); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(userID), payload, userCacheTTL)
	}
	return profile, nil
}
