package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/repository"
	"github.com/prperemyshlev/videotube-service/internal/utils"
)

type channelService struct {
	channels      repository.ChannelRepository
	subscriptions repository.SubscriptionRepository
	logger        *zap.Logger
}

// NewChannelService creates a new channel service
func NewChannelService(
	channels repository.ChannelRepository,
	subscriptions repository.SubscriptionRepository,
	logger *zap.Logger,
) ChannelService {
	return &channelService{
		channels:      channels,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// GetChannelProfile returns the public profile of a channel. viewerID is empty for anonymous viewers.
func (s *channelService) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, validationError("username is missing")
	}

	profile, err := s.channels.GetChannelProfile(ctx, utils.NormalizeUsername(username), viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("channel does not exist", err)
		}
		return nil, internalError("Something went wrong while fetching the channel", err)
	}

	return profile, nil
}

func (s *channelService) GetWatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	videos, err := s.channels.GetWatchHistory(ctx, userID)
	if err != nil {
		return nil, internalError("Something went wrong while fetching watch history", err)
	}
	return videos, nil
}

// ToggleSubscription subscribes to or unsubscribes from a channel and reports the resulting state
func (s *channelService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if _, err := uuid.Parse(channelID); err != nil {
		return false, validationError("Invalid channel id")
	}

	if channelID == subscriberID {
		return false, validationError("You cannot subscribe to your own channel")
	}

	subscribed, err := s.subscriptions.Toggle(ctx, subscriberID, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFoundError("Channel not found", err)
		}
		return false, internalError("Something went wrong while toggling the subscription", err)
	}

	s.logger.Debug("subscription toggled",
		zap.String("subscriber_id", subscriberID),
		zap.String("channel_id", channelID),
		zap.Bool("subscribed", subscribed),
	)

	return subscribed, nil
}
