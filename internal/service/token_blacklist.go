package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/videotube-service/internal/utils"
	"github.com/prperemyshlev/videotube-service/pkg/database"
)

// TokenBlacklistService keeps revoked access tokens in Redis, keyed by token hash
type TokenBlacklistService struct {
	redis *database.Redis
}

var _ TokenBlacklist = (*TokenBlacklistService)(nil)

// NewTokenBlacklistService creates a new token blacklist service
func NewTokenBlacklistService(redis *database.Redis) *TokenBlacklistService {
	return &TokenBlacklistService{redis: redis}
}

func blacklistKey(token string) string {
	return "blacklist:token:" + utils.HashToken(token)
}

// Add blacklists a token for ttl. Non-positive ttls are ignored since the token is already expired.
func (s *TokenBlacklistService) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Client.Set(ctx, blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// Contains checks if a token is in the blacklist
func (s *TokenBlacklistService) Contains(ctx context.Context, token string) (bool, error) {
	exists, err := s.redis.Client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}
