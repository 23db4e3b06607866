package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/utils"
)

// generateTokens signs a new access/refresh pair for user without persisting anything
func (s *accountService) generateTokens(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:        accessToken,
		RefreshToken:       refreshToken,
		AccessTokenExpiry:  s.jwtManager.AccessTokenExpiry(),
		RefreshTokenExpiry: s.jwtManager.RefreshTokenExpiry(),
	}, nil
}

// issueTokens generates a pair and stores the refresh token hash, superseding any previous one
func (s *accountService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.generateTokens(user)
	if err != nil {
		return nil, internalError("Something went wrong while generating tokens", err)
	}

	hash := utils.HashToken(pair.RefreshToken)
	if err := s.users.SetRefreshToken(ctx, user.ID, &hash); err != nil {
		return nil, internalError("Something went wrong while generating tokens", err)
	}

	return pair, nil
}
