package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/dto"
	"github.com/prperemyshlev/videotube-service/internal/service"
)

// UserHandler handles account requests
type UserHandler struct {
	accounts     service.AccountService
	uploads      UploadConfig
	cookieSecure bool
}

// NewUserHandler creates a new user handler
func NewUserHandler(accounts service.AccountService, uploads UploadConfig, cookieSecure bool) *UserHandler {
	return &UserHandler{
		accounts:     accounts,
		uploads:      uploads,
		cookieSecure: cookieSecure,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param fullName formData string true "Full name"
// @Param email formData string true "Email"
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param avatar formData file true "Avatar image"
// @Param coverImage formData file false "Cover image"
// @Success 201 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	avatarPath, removeAvatar, err := h.uploads.stageUpload(c, "avatar")
	if err != nil {
		respondUploadError(c, err)
		return
	}
	defer removeAvatar()

	coverPath, removeCover, err := h.uploads.stageUpload(c, "coverImage")
	if err != nil {
		respondUploadError(c, err)
		return
	}
	defer removeCover()

	req.AvatarPath = avatarPath
	req.CoverImagePath = coverPath

	user, err := h.accounts.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, user, "User registered successfully")
}

// Login handles user login
// @Summary Login user
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	setTokenCookies(c, &result.Tokens, h.cookieSecure)

	respond(c, http.StatusOK, dto.LoginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles user logout
// @Summary Logout user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	if err := h.accounts.Logout(c.Request.Context(), user.ID, c.GetString(accessTokenContextKey)); err != nil {
		respondError(c, err)
		return
	}

	clearTokenCookies(c, h.cookieSecure)

	respond(c, http.StatusOK, gin.H{}, "User logged out")
}

// RefreshAccessToken rotates the refresh token
// @Summary Refresh tokens
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest false "Refresh token when no cookie is sent"
// @Success 200 {object} dto.APIResponse{data=dto.TokensResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/refresh-token [post]
func (h *UserHandler) RefreshAccessToken(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshTokenCookie)
	if refreshToken == "" && c.Request.ContentLength != 0 {
		var req dto.RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	tokens, err := h.accounts.RefreshAccessToken(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	setTokenCookies(c, tokens, h.cookieSecure)

	respond(c, http.StatusOK, dto.TokensResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword handles password change
// @Summary Change password
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/change-password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), user.ID, &req); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

// GetCurrentUser returns the authenticated user
// @Summary Get current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=domain.SanitizedUser}
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/current-user [get]
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	respond(c, http.StatusOK, user, "User fetched successfully")
}

// UpdateAccountDetails updates full name and/or email
// @Summary Update account details
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateAccountRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=domain.SanitizedUser}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /users/update-account [patch]
func (h *UserHandler) UpdateAccountDetails(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.accounts.UpdateAccountDetails(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar replaces the avatar image
// @Summary Update avatar
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} dto.APIResponse{data=domain.SanitizedUser}
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/avatar [patch]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.accounts.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage replaces the cover image
// @Summary Update cover image
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param coverImage formData file true "Cover image"
// @Success 200 {object} dto.APIResponse{data=domain.SanitizedUser}
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/cover-image [patch]
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "coverImage", h.accounts.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, user *domain.SanitizedUser, localPath string) (*domain.SanitizedUser, error)

func (h *UserHandler) updateImage(c *gin.Context, field string, update imageUpdater, message string) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	path, remove, err := h.uploads.stageUpload(c, field)
	if err != nil {
		respondUploadError(c, err)
		return
	}
	defer remove()

	updated, err := update(c.Request.Context(), user, path)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, updated, message)
}

// AddToWatchHistory records a watched video
// @Summary Add video to watch history
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param videoId path string true "Video ID"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/history/{videoId} [post]
func (h *UserHandler) AddToWatchHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	if err := h.accounts.AddToWatchHistory(c.Request.Context(), user.ID, c.Param("videoId")); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "Video added to watch history")
}
