package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/devfolio/devfolio-server/internal/config"
	"github.com/devfolio/devfolio-server/internal/http/handler"
	"github.com/devfolio/devfolio-server/internal/http/router"
	"github.com/devfolio/devfolio-server/internal/observability"
	"github.com/devfolio/devfolio-server/internal/repository"
	"github.com/devfolio/devfolio-server/internal/security"
	"github.com/devfolio/devfolio-server/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Reaper        *service.Reaper
}

// Build wires the full dependency graph from configuration. It fails fast:
// any unreachable collaborator except Redis aborts startup.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*App, error) {
	runtime, err := observability.InitRuntime(ctx, cfg, logger, lp)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	db, err := OpenDatabase(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)

	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTSecret)
	refreshTokens := service.NewRefreshTokenService(refreshRepo, cfg.RefreshPepper, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, jwtMgr, refreshTokens, cfg.AccessTokenTTL)
	searchCache := service.NewRedisSearchCacheStore(redisClient, "")
	searchService := service.NewSearchService(communityRepo, portfolioRepo, searchCache, cfg.SearchCacheTTL)

	var oauthService service.OAuthServiceInterface
	if cfg.GoogleLoginEnabled() {
		provider := service.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		oauthService = service.NewOAuthService(provider, userRepo)
	}

	authHandler := handler.NewAuthHandler(authService, oauthService, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.CookieSecure)
	searchHandler := handler.NewSearchHandler(searchService, communityRepo, portfolioRepo)

	mux := router.NewRouter(router.Dependencies{
		AuthHandler:      authHandler,
		SearchHandler:    searchHandler,
		JWTManager:       jwtMgr,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		EnableOTelHTTP:   cfg.OTELTracesEnabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Reaper:        service.NewReaper(refreshRepo, cfg.ReapInterval, logger),
	}, nil
}

// Run serves HTTP and the reaper until the context is cancelled, then drains
// in-flight requests and flushes telemetry within the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := a.Reaper.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("http shutdown failed", "error", err)
		}
		if err := a.Observability.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("observability shutdown failed", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// OpenDatabase picks the driver from the DSN shape: sqlite for file/memory
// DSNs, postgres for everything else.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:" {
		return gorm.Open(sqlite.Open(dsn), gormCfg)
	}
	return gorm.Open(postgres.Open(dsn), gormCfg)
}
