// Package app assembles the FovDark server: database, caches, background
// watcher, and both API surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fovdark/fovdark/internal/cache"
	"github.com/fovdark/fovdark/internal/config"
	"github.com/fovdark/fovdark/internal/db"
	"github.com/fovdark/fovdark/internal/http/api/admin"
	"github.com/fovdark/fovdark/internal/http/api/front"
	"github.com/fovdark/fovdark/internal/licenses"
	"github.com/fovdark/fovdark/internal/metrics"
	"github.com/fovdark/fovdark/internal/models"
	"github.com/fovdark/fovdark/internal/queue"
	"github.com/fovdark/fovdark/internal/ratelimit"
	"github.com/fovdark/fovdark/internal/security"
	internalsettings "github.com/fovdark/fovdark/internal/settings"
	"github.com/fovdark/fovdark/internal/storage"
	"github.com/fovdark/fovdark/internal/watcher"
)

// shutdownTimeout bounds graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// Migrate connects to the configured database and applies migrations, then
// exits. Used by the -migrate flag for deploy pipelines.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)

	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("database migration complete")
	return nil
}

// RunServer starts the HTTP server and blocks until the context is canceled
// or the server fails.
func RunServer(ctx context.Context, cfg config.AppConfig, port string) error {
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)

	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	jwtCfg, errJWT := config.LoadJWTConfig(cfg.ConfigPath)
	if errJWT != nil {
		return errJWT
	}
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` in config file or %s)", config.EnvJWTSecret)
	}

	storageCfg, errStorage := config.LoadStorageConfig(cfg.ConfigPath)
	if errStorage != nil {
		return errStorage
	}
	store, errStore := storage.NewFilesystemStore(storageCfg.Root, storageCfg.BaseURL)
	if errStore != nil {
		return errStore
	}

	cacheCfg, errCache := config.LoadCacheConfig(cfg.ConfigPath)
	if errCache != nil {
		return errCache
	}
	sharedCache, redisClient := buildCache(ctx, cacheCfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	queueCfg, errQueue := config.LoadQueueConfig(cfg.ConfigPath)
	if errQueue != nil {
		return errQueue
	}
	events := queue.NewPublisher(queueCfg.AMQPURL)
	if events != nil {
		defer events.Close()
	}

	limiter := ratelimit.NewManager(nil, nil, nil)
	engine := licenses.NewEngine(conn)

	if errSeed := seedAdminFromEnv(ctx, conn); errSeed != nil {
		return errSeed
	}

	router := buildRouter(routerDeps{
		db:       conn,
		jwt:      jwtCfg,
		cache:    sharedCache,
		limiter:  limiter,
		store:    store,
		storeURL: storageCfg.BaseURL,
		events:   events,
		engine:   engine,
	})

	settingsWatcher := watcher.New(conn, sharedCache)
	settingsWatcher.Start(ctx)
	defer settingsWatcher.Stop()

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("server listening on %s", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("server shutdown: %w", errShutdown)
		}
		return nil
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", errServe)
		}
		return nil
	}
}

// routerDeps bundles everything the HTTP router needs.
type routerDeps struct {
	db       *gorm.DB
	jwt      config.JWTConfig
	cache    cache.Cache
	limiter  *ratelimit.Manager
	store    *storage.FilesystemStore
	storeURL string
	events   *queue.Publisher
	engine   *licenses.Engine
}

// buildRouter constructs the gin engine with both API surfaces, the metrics
// endpoint, and static asset serving.
func buildRouter(deps routerDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	admin.RegisterAdminRoutes(router, admin.Deps{
		DB:       deps.db,
		JWT:      deps.jwt,
		Cache:    deps.cache,
		Store:    deps.store,
		Events:   deps.events,
		Licenses: deps.engine,
	})
	front.RegisterFrontRoutes(router, front.Deps{
		DB:       deps.db,
		JWT:      deps.jwt,
		Cache:    deps.cache,
		Limiter:  deps.limiter,
		Events:   deps.events,
		Licenses: deps.engine,
	})

	router.GET("/metrics", metrics.Handler())
	if deps.store != nil && deps.storeURL != "" {
		router.Static(deps.storeURL, deps.store.Root())
	}
	return router
}

// requestLogger logs completed requests with method, path, status, and
// latency. Health and metrics probes are skipped to keep logs readable.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if path == "/healthz" || path == "/metrics" {
			return
		}
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("request")
	}
}

// buildCache selects the Redis cache when configured and reachable, falling
// back to the in-process cache.
func buildCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, *redis.Client) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return cache.NewMemoryCache(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		log.WithError(errPing).Warn("cache: redis unreachable, using in-process cache")
		return cache.NewMemoryCache(), nil
	}
	log.Infof("cache: using redis at %s", addr)
	return cache.NewRedisCache(client, cfg.Prefix), client
}

// seedAdminFromEnv creates the first admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD when no admin exists yet. Existing admins are never touched.
func seedAdminFromEnv(ctx context.Context, conn *gorm.DB) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv(config.EnvAdminEmail)))
	password := os.Getenv(config.EnvAdminPassword)
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).Count(&count).Error; errCount != nil {
		return fmt.Errorf("count admins: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	account := models.User{
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if errCreate := conn.WithContext(ctx).Create(&account).Error; errCreate != nil {
		return fmt.Errorf("seed admin: %w", errCreate)
	}
	log.Infof("seeded initial admin account %s", email)
	return nil
}

// openDatabase resolves the DSN and opens the connection.
func openDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	dsn, errDSN := config.LoadDatabaseDSN(cfg.ConfigPath)
	if errDSN != nil {
		return nil, errDSN
	}
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return nil, errOpen
	}
	return conn, nil
}

// closeDatabase closes the underlying sql connection.
func closeDatabase(conn *gorm.DB) {
	if conn == nil {
		return
	}
	if sqlDB, errDB := conn.DB(); errDB == nil {
		_ = sqlDB.Close()
	}
}
