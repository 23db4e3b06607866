package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prperemyshlev/videotube-service/internal/dto"
	"github.com/prperemyshlev/videotube-service/internal/service"
)

// ChannelHandler serves channel profiles, watch history and subscriptions
type ChannelHandler struct {
	channels service.ChannelService
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(channels service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// GetChannelProfile returns a channel with its subscription counts
// @Summary Get channel profile
// @Tags channels
// @Produce json
// @Param username path string true "Channel username"
// @Success 200 {object} dto.APIResponse{data=domain.ChannelProfile}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/c/{username} [get]
func (h *ChannelHandler) GetChannelProfile(c *gin.Context) {
	var viewerID string
	if viewer, ok := currentUser(c); ok {
		viewerID = viewer.ID
	}

	profile, err := h.channels.GetChannelProfile(c.Request.Context(), c.Param("username"), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, profile, "User channel fetched successfully")
}

// GetWatchHistory returns the caller's watch history
// @Summary Get watch history
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]domain.WatchedVideo}
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/history [get]
func (h *ChannelHandler) GetWatchHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	videos, err := h.channels.GetWatchHistory(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, videos, "Watch history fetched successfully")
}

// ToggleSubscription subscribes to or unsubscribes from a channel
// @Summary Toggle subscription
// @Tags channels
// @Security BearerAuth
// @Produce json
// @Param channelId path string true "Channel (user) ID"
// @Success 200 {object} dto.APIResponse{data=dto.SubscriptionResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /subscriptions/c/{channelId} [post]
func (h *ChannelHandler) ToggleSubscription(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	subscribed, err := h.channels.ToggleSubscription(c.Request.Context(), user.ID, c.Param("channelId"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Unsubscribed successfully"
	if subscribed {
		message = "Subscribed successfully"
	}

	respond(c, http.StatusOK, dto.SubscriptionResponse{Subscribed: subscribed}, message)
}
