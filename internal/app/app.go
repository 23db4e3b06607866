package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/videotube-service/internal/config"
	"github.com/prperemyshlev/videotube-service/internal/handler"
	"github.com/prperemyshlev/videotube-service/internal/repository"
	"github.com/prperemyshlev/videotube-service/internal/service"
	"github.com/prperemyshlev/videotube-service/internal/utils"
	"github.com/prperemyshlev/videotube-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type handlers struct {
	users    *handler.UserHandler
	channels *handler.ChannelHandler
	health   *HealthChecker
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	metrics, err := observability.NewAccountMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create account metrics: %w", err)
	}

	blacklistService := service.NewTokenBlacklistService(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())

	accountService := service.NewAccountService(
		repos.User,
		jwtManager,
		blacklistService,
		infra.Uploader(),
		infra.Publisher(),
		metrics,
		infra.Logger(),
		cfg.Security.BCryptCost,
	)
	channelService := service.NewChannelService(repos.Channel, repos.Subscription, infra.Logger())

	h := handlers{
		users: handler.NewUserHandler(accountService, handler.UploadConfig{
			TempDir:     cfg.Upload.TempDir,
			MaxFileSize: cfg.Upload.MaxFileSize,
		}, cfg.Security.CookieSecure),
		channels: handler.NewChannelHandler(channelService),
		health:   NewHealthChecker(infra),
	}

	router := gin.Default()
	router.MaxMultipartMemory = cfg.Upload.MaxFileSize
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, h, accountService, rateLimiter, infra.MetricsHandler(), infra.Logger())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	accountService service.AccountService,
	rateLimiter handler.RateLimiter,
	metricsHandler http.Handler,
	logger *zap.Logger,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", h.health.Handler)

	limit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.RouteAndIPKey,
		logger,
	)
	auth := handler.AuthMiddleware(accountService)

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/register", limit, h.users.Register)
			users.POST("/login", limit, h.users.Login)
			users.POST("/refresh-token", h.users.RefreshAccessToken)
			users.GET("/c/:username", handler.OptionalAuthMiddleware(accountService), h.channels.GetChannelProfile)

			users.POST("/logout", auth, h.users.Logout)
			users.POST("/change-password", auth, h.users.ChangePassword)
			users.GET("/current-user", auth, h.users.GetCurrentUser)
			users.PATCH("/update-account", auth, h.users.UpdateAccountDetails)
			users.PATCH("/avatar", auth, h.users.UpdateAvatar)
			users.PATCH("/cover-image", auth, h.users.UpdateCoverImage)
			users.GET("/history", auth, h.channels.GetWatchHistory)
			users.POST("/history/:videoId", auth, h.users.AddToWatchHistory)
		}

		subscriptions := api.Group("/subscriptions", auth)
		{
			subscriptions.POST("/c/:channelId", h.channels.ToggleSubscription)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// stop accepting requests before the stores close
	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("HTTP server shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	if err := a.infra.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
