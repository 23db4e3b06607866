package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prperemyshlev/videotube-service/internal/dto"
	"github.com/prperemyshlev/videotube-service/internal/service"
)

func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, dto.APIResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		StatusCode: status,
		Message:    message,
		Success:    false,
	})
}

// respondError writes the failure envelope for err and records err on the gin context for the request log
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, message := statusFor(err)
	respondMessage(c, status, message)
}

func statusFor(err error) (int, string) {
	var serviceErr *service.Error
	if !errors.As(err, &serviceErr) {
		return http.StatusInternalServerError, "Internal server error"
	}

	switch serviceErr.Kind {
	case service.KindValidation, service.KindUpload:
		return http.StatusBadRequest, serviceErr.Message
	case service.KindUnauthorized, service.KindInvalidToken, service.KindExpiredOrReusedToken:
		return http.StatusUnauthorized, serviceErr.Message
	case service.KindNotFound:
		return http.StatusNotFound, serviceErr.Message
	case service.KindConflict:
		return http.StatusConflict, serviceErr.Message
	case service.KindRateLimited:
		return http.StatusTooManyRequests, serviceErr.Message
	default:
		return http.StatusInternalServerError, serviceErr.Message
	}
}
