package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/dto"
)

// AccountService defines the account lifecycle operations
type AccountService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*domain.SanitizedUser, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, userID, accessToken string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	UpdateAccountDetails(ctx context.Context, userID string, req *dto.UpdateAccountRequest) (*domain.SanitizedUser, error)
	UpdateAvatar(ctx context.Context, user *domain.SanitizedUser, localPath string) (*domain.SanitizedUser, error)
	UpdateCoverImage(ctx context.Context, user *domain.SanitizedUser, localPath string) (*domain.SanitizedUser, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
	Authenticate(ctx context.Context, accessToken string) (*domain.SanitizedUser, error)
}

// ChannelService defines the read-side aggregation and subscription operations
type ChannelService interface {
	GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// TokenBlacklist records revoked access tokens until they expire on their own
type TokenBlacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

// LoginResult is the outcome of a successful login
type LoginResult struct {
	User   domain.SanitizedUser
	Tokens domain.TokenPair
}
