package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prperemyshlev/videotube-service/internal/domain"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

func setTokenCookies(c *gin.Context, tokens *domain.TokenPair, secure bool) {
	c.SetCookie(accessTokenCookie, tokens.AccessToken, int(tokens.AccessTokenExpiry.Seconds()), "/", "", secure, true)
	c.SetCookie(refreshTokenCookie, tokens.RefreshToken, int(tokens.RefreshTokenExpiry.Seconds()), "/", "", secure, true)
}

func clearTokenCookies(c *gin.Context, secure bool) {
	c.SetCookie(accessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", secure, true)
}
