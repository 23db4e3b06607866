package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/dto"
	"github.com/prperemyshlev/videotube-service/internal/events"
	"github.com/prperemyshlev/videotube-service/internal/media"
	"github.com/prperemyshlev/videotube-service/internal/repository"
	"github.com/prperemyshlev/videotube-service/internal/utils"
	"github.com/prperemyshlev/videotube-service/pkg/observability"
)

// accountService implements AccountService interface
type accountService struct {
	users      repository.UserRepository
	jwtManager *utils.JWTManager
	blacklist  TokenBlacklist
	uploader   media.Uploader
	publisher  events.Publisher
	metrics    *observability.AccountMetrics
	logger     *zap.Logger
	bcryptCost int
}

// NewAccountService creates a new account service
func NewAccountService(
	users repository.UserRepository,
	jwtManager *utils.JWTManager,
	blacklist TokenBlacklist,
	uploader media.Uploader,
	publisher events.Publisher,
	metrics *observability.AccountMetrics,
	logger *zap.Logger,
	bcryptCost int,
) AccountService {
	return &accountService{
		users:      users,
		jwtManager: jwtManager,
		blacklist:  blacklist,
		uploader:   uploader,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Register creates an account. Checks run in order: required fields, uniqueness,
// avatar presence, uploads, then the insert.
func (s *accountService) Register(ctx context.Context, req *dto.RegisterRequest) (result *domain.SanitizedUser, err error) {
	defer func() { s.metrics.RecordRegistration(ctx, err) }()

	if utils.AnyBlank(req.FullName, req.Email, req.Username, req.Password) {
		return nil, validationError("All fields are required")
	}

	username := utils.NormalizeUsername(req.Username)
	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, validationError("Invalid email format")
	}

	_, err = s.users.GetByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return nil, conflictError("User with email or username already exists", nil)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, internalError("Something went wrong while registering the user", err)
	}

	if req.AvatarPath == "" {
		return nil, validationError("Avatar file is required")
	}

	avatarURL, err := s.upload(ctx, req.AvatarPath, "Error while uploading avatar")
	if err != nil {
		return nil, err
	}

	var coverURL string
	if req.CoverImagePath != "" {
		coverURL, err = s.upload(ctx, req.CoverImagePath, "Error while uploading cover image")
		if err != nil {
			s.discardMedia(ctx, avatarURL)
			return nil, err
		}
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		s.discardMedia(ctx, avatarURL, coverURL)
		return nil, internalError("Something went wrong while registering the user", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: passwordHash,
	})
	if err != nil {
		s.discardMedia(ctx, avatarURL, coverURL)
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, conflictError("User with email or username already exists", err)
		}
		return nil, internalError("Something went wrong while registering the user", err)
	}

	if err := s.publisher.PublishUserRegistered(ctx, events.NewUserRegisteredEvent(created.ID, created.Username, created.Email)); err != nil {
		s.logger.Warn("failed to publish user registered event", zap.String("user_id", created.ID), zap.Error(err))
	}

	s.logger.Info("user registered", zap.String("user_id", created.ID), zap.String("username", created.Username))

	sanitized := created.Sanitized()
	return &sanitized, nil
}

// Login verifies credentials and issues a fresh token pair
func (s *accountService) Login(ctx context.Context, req *dto.LoginRequest) (result *LoginResult, err error) {
	defer func() { s.metrics.RecordLogin(ctx, err) }()

	username := utils.NormalizeUsername(req.Username)
	email := utils.SanitizeEmail(req.Email)
	if username == "" && email == "" {
		return nil, validationError("username or email is required")
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("User does not exist", err)
		}
		return nil, internalError("Something went wrong while logging in", err)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, unauthorizedError("Invalid user credentials")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user.Sanitized(), Tokens: *tokens}, nil
}

// Logout clears the stored refresh token and revokes the presented access token
func (s *accountService) Logout(ctx context.Context, userID, accessToken string) error {
	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return internalError("Something went wrong while logging out", err)
	}

	if accessToken == "" {
		return nil
	}

	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil
	}

	if err := s.blacklist.Add(ctx, accessToken, time.Until(claims.ExpiresAt)); err != nil {
		s.logger.Warn("failed to blacklist access token", zap.String("user_id", userID), zap.Error(err))
	}

	return nil
}

// RefreshAccessToken rotates the refresh token. The stored hash is swapped only if it
// still matches the presented token, so a token can be redeemed at most once.
func (s *accountService) RefreshAccessToken(ctx context.Context, refreshToken string) (result *domain.TokenPair, err error) {
	defer func() { s.metrics.RecordRefresh(ctx, err) }()

	if strings.TrimSpace(refreshToken) == "" {
		return nil, unauthorizedError("Unauthorized request")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, newError(KindInvalidToken, "Invalid refresh token", err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("Invalid refresh token", err)
		}
		return nil, internalError("Something went wrong while refreshing tokens", err)
	}

	presentedHash := utils.HashToken(refreshToken)
	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != presentedHash {
		return nil, newError(KindExpiredOrReusedToken, "Refresh token is expired or used", nil)
	}

	pair, err := s.generateTokens(user)
	if err != nil {
		return nil, internalError("Something went wrong while refreshing tokens", err)
	}

	err = s.users.SwapRefreshToken(ctx, user.ID, presentedHash, utils.HashToken(pair.RefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenMismatch) {
			return nil, newError(KindExpiredOrReusedToken, "Refresh token is expired or used", err)
		}
		return nil, internalError("Something went wrong while refreshing tokens", err)
	}

	return pair, nil
}

// ChangePassword replaces the password after verifying the old one
func (s *accountService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	if req.OldPassword == "" || utils.AnyBlank(req.NewPassword) {
		return validationError("Old and new passwords are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError("User does not exist", err)
		}
		return internalError("Something went wrong while changing password", err)
	}

	if !utils.CheckPasswordHash(req.OldPassword, user.PasswordHash) {
		return unauthorizedError("Invalid old password")
	}

	passwordHash, err := utils.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return internalError("Something went wrong while changing password", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return internalError("Something went wrong while changing password", err)
	}

	if err := s.publisher.PublishPasswordChanged(ctx, events.NewPasswordChangedEvent(userID)); err != nil {
		s.logger.Warn("failed to publish password changed event", zap.String("user_id", userID), zap.Error(err))
	}

	return nil
}

// UpdateAccountDetails updates full name and/or email; absent or blank fields are left unchanged
func (s *accountService) UpdateAccountDetails(ctx context.Context, userID string, req *dto.UpdateAccountRequest) (*domain.SanitizedUser, error) {
	var update domain.UserUpdate

	if req.FullName != nil {
		if fullName := strings.TrimSpace(*req.FullName); fullName != "" {
			update.FullName = &fullName
		}
	}

	if req.Email != nil {
		if email := utils.SanitizeEmail(*req.Email); email != "" {
			if !utils.ValidateEmail(email) {
				return nil, validationError("Invalid email format")
			}
			update.Email = &email
		}
	}

	if update.IsEmpty() {
		return nil, validationError("fullName or email is required")
	}

	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, mapUpdateError(err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// UpdateAvatar uploads a new avatar and replaces the stored URL
func (s *accountService) UpdateAvatar(ctx context.Context, user *domain.SanitizedUser, localPath string) (*domain.SanitizedUser, error) {
	if localPath == "" {
		return nil, validationError("Avatar file is missing")
	}

	url, err := s.upload(ctx, localPath, "Error while uploading avatar")
	if err != nil {
		return nil, err
	}

	return s.replaceMedia(ctx, user.ID, domain.UserUpdate{Avatar: &url}, url, user.Avatar)
}

// UpdateCoverImage uploads a new cover image and replaces the stored URL
func (s *accountService) UpdateCoverImage(ctx context.Context, user *domain.SanitizedUser, localPath string) (*domain.SanitizedUser, error) {
	if localPath == "" {
		return nil, validationError("Cover image file is missing")
	}

	url, err := s.upload(ctx, localPath, "Error while uploading cover image")
	if err != nil {
		return nil, err
	}

	return s.replaceMedia(ctx, user.ID, domain.UserUpdate{CoverImage: &url}, url, user.CoverImage)
}

// AddToWatchHistory records videoID as the most recently watched video
func (s *accountService) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	if _, err := uuid.Parse(videoID); err != nil {
		return validationError("Invalid video id")
	}

	if err := s.users.AddToWatchHistory(ctx, userID, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError("Video not found", err)
		}
		return internalError("Something went wrong while updating watch history", err)
	}

	return nil
}

// Authenticate resolves an access token to the sanitized user it was issued for
func (s *accountService) Authenticate(ctx context.Context, accessToken string) (*domain.SanitizedUser, error) {
	if accessToken == "" {
		return nil, unauthorizedError("Unauthorized request")
	}

	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, newError(KindInvalidToken, "Invalid access token", err)
	}

	revoked, err := s.blacklist.Contains(ctx, accessToken)
	if err != nil {
		return nil, internalError("Something went wrong while verifying the token", err)
	}
	if revoked {
		return nil, newError(KindInvalidToken, "Invalid access token", nil)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindInvalidToken, "Invalid access token", err)
		}
		return nil, internalError("Something went wrong while verifying the token", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

func (s *accountService) upload(ctx context.Context, localPath, message string) (string, error) {
	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil || url == "" {
		return "", uploadError(message, err)
	}
	return url, nil
}

// replaceMedia stores the new URL and then drops the previous object.
// On a failed update the fresh upload is dropped instead.
func (s *accountService) replaceMedia(ctx context.Context, userID string, update domain.UserUpdate, newURL, oldURL string) (*domain.SanitizedUser, error) {
	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		s.discardMedia(ctx, newURL)
		return nil, mapUpdateError(err)
	}

	s.discardMedia(ctx, oldURL)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

func (s *accountService) discardMedia(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, url); err != nil {
			s.logger.Warn("failed to delete media", zap.String("url", url), zap.Error(err))
		}
	}
}

func mapUpdateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUser):
		return conflictError("Email is already in use", err)
	case errors.Is(err, repository.ErrNotFound):
		return notFoundError("User does not exist", err)
	default:
		return internalError("Something went wrong while updating the account", err)
	}
}
