package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/events"
	"github.com/prperemyshlev/videotube-service/internal/service"
	"github.com/prperemyshlev/videotube-service/internal/utils"
	"github.com/prperemyshlev/videotube-service/pkg/observability"
)

type stubChannelService struct {
	lastViewerID string
}

func (s *stubChannelService) GetChannelProfile(_ context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	s.lastViewerID = viewerID
	if username != "ada" {
		return nil, &service.Error{Kind: service.KindNotFound, Message: "channel does not exist"}
	}
	return &domain.ChannelProfile{ID: "u-1", Username: "ada", IsSubscribed: viewerID != ""}, nil
}

func (s *stubChannelService) GetWatchHistory(context.Context, string) ([]domain.WatchedVideo, error) {
	return []domain.WatchedVideo{{ID: "v-1", Owner: domain.VideoOwner{Username: "grace"}}}, nil
}

func (s *stubChannelService) ToggleSubscription(context.Context, string, string) (bool, error) {
	return true, nil
}

type AccountHandlerSuite struct {
	suite.Suite
	users    *usersStore
	uploader *stagedFileUploader
	tempDir  string
	channels *stubChannelService
	router   *gin.Engine
}

func TestAccountHandlerSuite(t *testing.T) {
	suite.Run(t, new(AccountHandlerSuite))
}

func (s *AccountHandlerSuite) SetupTest() {
	s.users = newUsersStore()
	s.uploader = &stagedFileUploader{}
	s.tempDir = s.T().TempDir()
	s.channels = &stubChannelService{}

	s.buildRouter(false)
}

// buildRouter wires the account routes over the suite's stores
func (s *AccountHandlerSuite) buildRouter(cookieSecure bool) {
	metrics, err := observability.NewAccountMetrics(noop.NewMeterProvider().Meter("test"))
	s.Require().NoError(err)

	jwtManager := utils.NewJWTManager(
		"access-secret-for-handler-tests-0123456789",
		"refresh-secret-for-handler-tests-0123456789",
		15*time.Minute, time.Hour,
	)
	accounts := service.NewAccountService(
		s.users, jwtManager, &blacklistSet{}, s.uploader, events.NopPublisher{}, metrics, zap.NewNop(), bcrypt.MinCost,
	)

	userHandler := NewUserHandler(accounts, UploadConfig{TempDir: s.tempDir, MaxFileSize: 1 << 20}, cookieSecure)
	channelHandler := NewChannelHandler(s.channels)

	s.router = gin.New()
	s.router.Use(LoggerMiddleware(zap.NewNop()))

	users := s.router.Group("/api/v1/users")
	users.POST("/register", userHandler.Register)
	users.POST("/login", userHandler.Login)
	users.POST("/refresh-token", userHandler.RefreshAccessToken)
	users.GET("/c/:username", OptionalAuthMiddleware(accounts), channelHandler.GetChannelProfile)

	secured := users.Group("", AuthMiddleware(accounts))
	secured.POST("/logout", userHandler.Logout)
	secured.POST("/change-password", userHandler.ChangePassword)
	secured.GET("/current-user", userHandler.GetCurrentUser)
	secured.PATCH("/update-account", userHandler.UpdateAccountDetails)
	secured.PATCH("/avatar", userHandler.UpdateAvatar)
	secured.PATCH("/cover-image", userHandler.UpdateCoverImage)
	secured.GET("/history", channelHandler.GetWatchHistory)
}

func (s *AccountHandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AccountHandlerSuite) registerAda() {
	w := s.serve(multipartRequest(s.T(), http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Ada Lovelace",
		"email":    "ada@x.com",
		"username": "Ada",
		"password": "p",
	}, map[string]string{"avatar": "ada.png"}))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *AccountHandlerSuite) login() (*http.Cookie, *http.Cookie) {
	w := s.serve(jsonRequest(s.T(), http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "ada",
		"password": "p",
	}))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	access, refresh := findCookie(w, accessTokenCookie), findCookie(w, refreshTokenCookie)
	s.Require().NotNil(access)
	s.Require().NotNil(refresh)
	return access, refresh
}

func (s *AccountHandlerSuite) TestRegisterLoginScenario() {
	w := s.serve(multipartRequest(s.T(), http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Ada Lovelace",
		"email":    "ada@x.com",
		"username": "Ada",
		"password": "p",
	}, map[string]string{"avatar": "ada.png"}))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	env := decodeEnvelope(s.T(), w)
	s.True(env.Success)
	s.Equal(http.StatusCreated, env.StatusCode)

	var user map[string]interface{}
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	s.Equal("ada", user["username"])
	s.NotContains(user, "password")
	s.NotContains(user, "passwordHash")
	s.NotContains(user, "refreshToken")

	w = s.serve(multipartRequest(s.T(), http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Ada Again",
		"email":    "other@x.com",
		"username": "ADA",
		"password": "p",
	}, map[string]string{"avatar": "ada.png"}))
	s.Equal(http.StatusConflict, w.Code)
	s.False(decodeEnvelope(s.T(), w).Success)

	w = s.serve(jsonRequest(s.T(), http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "ada",
		"password": "p",
	}))
	s.Require().Equal(http.StatusOK, w.Code)

	access := findCookie(w, accessTokenCookie)
	refresh := findCookie(w, refreshTokenCookie)
	s.Require().NotNil(access)
	s.Require().NotNil(refresh)
	s.True(access.HttpOnly)
	s.True(refresh.HttpOnly)

	var data struct {
		User         map[string]interface{} `json:"user"`
		AccessToken  string                 `json:"accessToken"`
		RefreshToken string                 `json:"refreshToken"`
	}
	s.Require().NoError(json.Unmarshal(decodeEnvelope(s.T(), w).Data, &data))
	s.Equal(access.Value, data.AccessToken)
	s.Equal(refresh.Value, data.RefreshToken)
	s.NotContains(data.User, "refreshToken")

	w = s.serve(jsonRequest(s.T(), http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "ada",
		"password": "wrong",
	}))
	s.Equal(http.StatusUnauthorized, w.Code)

	env = decodeEnvelope(s.T(), w)
	s.False(env.Success)
	s.Equal(http.StatusUnauthorized, env.StatusCode)
}

func (s *AccountHandlerSuite) TestRegisterRemovesStagedFiles() {
	s.registerAda()

	s.Require().Len(s.uploader.paths, 1)
	_, err := os.Stat(s.uploader.paths[0])
	s.True(os.IsNotExist(err))

	entries, err := os.ReadDir(s.tempDir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *AccountHandlerSuite) TestRegisterWithoutAvatar() {
	w := s.serve(multipartRequest(s.T(), http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "Ada Lovelace",
		"email":    "ada@x.com",
		"username": "Ada",
		"password": "p",
	}, nil))

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Avatar file is required", decodeEnvelope(s.T(), w).Message)
	s.Empty(s.uploader.paths)
}

func (s *AccountHandlerSuite) TestCurrentUserWithCookieAndBearer() {
	s.registerAda()
	access, _ := s.login()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.AddCookie(access)
	w := s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	w = s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.serve(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AccountHandlerSuite) TestRefreshAndReuse() {
	s.registerAda()
	_, refresh := s.login()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(refresh)
	w := s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.NotNil(findCookie(w, refreshTokenCookie))

	// the old token sent in the body is now rejected
	w = s.serve(jsonRequest(s.T(), http.MethodPost, "/api/v1/users/refresh-token", map[string]string{
		"refreshToken": refresh.Value,
	}))
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.serve(jsonRequest(s.T(), http.MethodPost, "/api/v1/users/refresh-token", nil))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AccountHandlerSuite) TestLogoutRevokesAccessToken() {
	s.registerAda()
	access, refresh := s.login()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.AddCookie(access)
	w := s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)

	cleared := findCookie(w, accessTokenCookie)
	s.Require().NotNil(cleared)
	s.Empty(cleared.Value)
	s.Less(cleared.MaxAge, 0)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.AddCookie(access)
	s.Equal(http.StatusUnauthorized, s.serve(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(refresh)
	s.Equal(http.StatusUnauthorized, s.serve(req).Code)
}

func (s *AccountHandlerSuite) TestSecureCookies() {
	s.buildRouter(true)
	s.registerAda()
	access, refresh := s.login()

	for _, cookie := range []*http.Cookie{access, refresh} {
		s.True(cookie.Secure, cookie.Name)
		s.True(cookie.HttpOnly, cookie.Name)
		s.Equal("/", cookie.Path, cookie.Name)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(refresh)
	w := s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		cookie := findCookie(w, name)
		s.Require().NotNil(cookie, name)
		s.True(cookie.Secure, name)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.AddCookie(access)
	w = s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		cookie := findCookie(w, name)
		s.Require().NotNil(cookie, name)
		s.True(cookie.Secure, name)
		s.True(cookie.HttpOnly, name)
		s.Empty(cookie.Value, name)
	}
}

func (s *AccountHandlerSuite) TestChangePasswordAndUpdateAccount() {
	s.registerAda()
	access, _ := s.login()

	req := jsonRequest(s.T(), http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "wrong",
		"newPassword": "q",
	})
	req.AddCookie(access)
	s.Equal(http.StatusUnauthorized, s.serve(req).Code)

	req = jsonRequest(s.T(), http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "p",
		"newPassword": "q",
	})
	req.AddCookie(access)
	s.Equal(http.StatusOK, s.serve(req).Code)

	req = jsonRequest(s.T(), http.MethodPatch, "/api/v1/users/update-account", map[string]string{})
	req.AddCookie(access)
	s.Equal(http.StatusBadRequest, s.serve(req).Code)

	req = jsonRequest(s.T(), http.MethodPatch, "/api/v1/users/update-account", map[string]string{"fullName": "Ada King"})
	req.AddCookie(access)
	w := s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)

	var user domain.SanitizedUser
	s.Require().NoError(json.Unmarshal(decodeEnvelope(s.T(), w).Data, &user))
	s.Equal("Ada King", user.FullName)
}

func (s *AccountHandlerSuite) TestUpdateAvatar() {
	s.registerAda()
	access, _ := s.login()

	req := multipartRequest(s.T(), http.MethodPatch, "/api/v1/users/avatar", nil, nil)
	req.AddCookie(access)
	s.Equal(http.StatusBadRequest, s.serve(req).Code)

	req = multipartRequest(s.T(), http.MethodPatch, "/api/v1/users/avatar", nil, map[string]string{"avatar": "new.png"})
	req.AddCookie(access)
	w := s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// the registration avatar is discarded after the replacement
	s.Len(s.uploader.deleted, 1)

	req = multipartRequest(s.T(), http.MethodPatch, "/api/v1/users/cover-image", nil, map[string]string{"coverImage": "cover.png"})
	req.AddCookie(access)
	w = s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var user domain.SanitizedUser
	s.Require().NoError(json.Unmarshal(decodeEnvelope(s.T(), w).Data, &user))
	s.NotEmpty(user.CoverImage)
}

func (s *AccountHandlerSuite) TestChannelProfileOptionalAuth() {
	s.registerAda()
	access, _ := s.login()

	w := s.serve(httptest.NewRequest(http.MethodGet, "/api/v1/users/c/ada", nil))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(s.channels.lastViewerID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/c/ada", nil)
	req.AddCookie(access)
	w = s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotEmpty(s.channels.lastViewerID)

	var profile domain.ChannelProfile
	s.Require().NoError(json.Unmarshal(decodeEnvelope(s.T(), w).Data, &profile))
	s.True(profile.IsSubscribed)

	// an invalid token is ignored on this route
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/c/ada", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	s.Equal(http.StatusOK, s.serve(req).Code)

	s.Equal(http.StatusNotFound, s.serve(httptest.NewRequest(http.MethodGet, "/api/v1/users/c/linus", nil)).Code)
}

func (s *AccountHandlerSuite) TestWatchHistory() {
	s.registerAda()
	access, _ := s.login()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil)
	req.AddCookie(access)
	w := s.serve(req)
	s.Require().Equal(http.StatusOK, w.Code)

	var videos []domain.WatchedVideo
	s.Require().NoError(json.Unmarshal(decodeEnvelope(s.T(), w).Data, &videos))
	s.Require().Len(videos, 1)
	s.Equal("grace", videos[0].Owner.Username)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind service.ErrorKind
		want int
	}{
		{service.KindValidation, http.StatusBadRequest},
		{service.KindUpload, http.StatusBadRequest},
		{service.KindUnauthorized, http.StatusUnauthorized},
		{service.KindInvalidToken, http.StatusUnauthorized},
		{service.KindExpiredOrReusedToken, http.StatusUnauthorized},
		{service.KindNotFound, http.StatusNotFound},
		{service.KindConflict, http.StatusConflict},
		{service.KindRateLimited, http.StatusTooManyRequests},
		{service.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			status, message := statusFor(&service.Error{Kind: tt.kind, Message: "msg"})
			assert.Equal(t, tt.want, status)
			assert.Equal(t, "msg", message)
		})
	}

	status, message := statusFor(errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, message, "pq")
}

type fixedLimiter struct {
	err error
}

func (l fixedLimiter) Check(context.Context, string, int, time.Duration) error {
	return l.err
}

func TestRateLimitMiddleware(t *testing.T) {
	limited := &service.Error{
		Kind:       service.KindRateLimited,
		Message:    "Too many requests, try again in 2s",
		RetryAfter: 2 * time.Second,
	}

	tests := []struct {
		name        string
		limiter     fixedLimiter
		wantStatus  int
		wantMessage string
	}{
		{"allowed", fixedLimiter{}, http.StatusOK, ""},
		{"limited", fixedLimiter{err: limited}, http.StatusTooManyRequests, "Too many requests, try again in 2s"},
		{"limiter down", fixedLimiter{err: &service.Error{Kind: service.KindInternal, Err: errors.New("redis down")}}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/login", RateLimitMiddleware(tt.limiter, 5, time.Minute, RouteAndIPKey, zap.NewNop()), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusTooManyRequests {
				assert.Equal(t, "2", w.Header().Get("Retry-After"))
				assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))

				env := decodeEnvelope(t, w)
				assert.False(t, env.Success)
				assert.Equal(t, http.StatusTooManyRequests, env.StatusCode)
				assert.Equal(t, tt.wantMessage, env.Message)
			}
		})
	}
}

func TestIPBasedKey(t *testing.T) {
	router := gin.New()
	var key string
	router.GET("/", func(c *gin.Context) { key = IPBasedKey(c) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.1", key)
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:3000"}, []string{"GET", "PATCH"}, []string{"Content-Type"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
