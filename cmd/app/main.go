package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_webapp/internal/cache"
	"todo_webapp/internal/config"
	"todo_webapp/internal/db"
	"todo_webapp/internal/domain"
	httpServer "todo_webapp/internal/http"
	"todo_webapp/internal/http/handlers"
	"todo_webapp/internal/http/middleware"
	"todo_webapp/internal/localstore"
	"todo_webapp/internal/logger"
	"todo_webapp/internal/notify"
	"todo_webapp/internal/repository"
	"todo_webapp/internal/service"
	"todo_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx := context.Background()

	// Redis is optional: cache, rate limits and token revocation fall back to memory.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if !middleware.InitRedisRateLimiter(rdb) {
			logger.Warn("redis unavailable, using in-memory fallbacks", "addr", cfg.RedisAddr)
			_ = rdb.Close()
			rdb = nil
		}
	}

	var listCache cache.ListCache = cache.NewMemory(cfg.CacheTTL)
	critical := map[string]handlers.Pinger{}
	optional := map[string]handlers.Pinger{}
	if rdb != nil {
		redisCache := cache.NewRedis(rdb, "tasks:", cfg.CacheTTL)
		listCache = redisCache
		optional["redis"] = redisCache
	}

	hub := ws.NewHub()
	notifier := notify.Multi{notify.Log{}, hub}

	var (
		store    service.TaskStore
		auth     *service.AuthService
		authn    middleware.Authenticator
		audit    *service.AuditService
		localUsr *domain.User
		cleanup  func()
	)

	switch cfg.Mode {
	case config.ModeRemote:
		pool := db.Connect(cfg.DatabaseURL)
		cleanup = pool.Close
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("failed to apply migrations", "error", err)
		}
		critical["database"] = pool

		store = repository.NewTaskRepository(pool)
		audit = service.NewAuditService(repository.NewAuditRepository(pool))

		var revoker service.Revoker = service.NewMemoryRevoker()
		if rdb != nil {
			revoker = service.NewRedisRevoker(rdb, "revoked:")
		}
		auth = service.NewAuthService(
			repository.NewUserRepository(pool),
			service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL),
			revoker,
			audit,
		)
		authn = auth

	case config.ModeLocal:
		slot, err := localstore.OpenSQLiteSlot(cfg.LocalDBPath)
		if err != nil {
			logger.Fatal("failed to open local store", "path", cfg.LocalDBPath, "error", err)
		}
		cleanup = func() { _ = slot.Close() }
		critical["local_store"] = slot

		store = localstore.NewStore(ctx, localstore.NewAdapter(slot))
		audit = service.NewAuditService(service.NewMemoryAuditStore(0))
		authn = service.LocalAuth{UserID: localstore.LocalUserID}
		localUsr = &domain.User{ID: localstore.LocalUserID, Username: "local"}
		logger.Info("running in local mode", "path", cfg.LocalDBPath)
	}
	defer cleanup()

	tasks := service.NewTaskSync(service.Deps{
		Store:    store,
		Cache:    listCache,
		Notifier: notifier,
		Events:   hub,
		Activity: audit,
	})

	h := handlers.NewHandler(tasks, auth, audit)
	h.LocalUser = localUsr

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler:        h,
		Health:         handlers.NewHealthHandler(version, critical, optional),
		Authenticator:  authn,
		Hub:            hub,
		AllowedOrigin:  cfg.AllowedOrigin,
		APIRateLimit:   cfg.APIRateLimit,
		APIRateWindow:  cfg.APIRateWindow,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "mode", cfg.Mode, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("server exited")
}
