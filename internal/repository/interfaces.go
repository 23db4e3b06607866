package repository

import (
	"context"

	"github.com/prperemyshlev/videotube-service/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	SetRefreshToken(ctx context.Context, userID string, tokenHash *string) error
	SwapRefreshToken(ctx context.Context, userID, oldHash, newHash string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateProfile(ctx context.Context, userID string, update domain.UserUpdate) (*domain.User, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
}

// SubscriptionRepository defines methods for subscription operations
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// ChannelRepository defines read-only aggregation queries over users, subscriptions and videos
type ChannelRepository interface {
	GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error)
}
