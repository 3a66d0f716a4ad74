package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-app/internal/attachments"
	"chat-app/internal/auth"
	"chat-app/internal/config"
	"chat-app/internal/db"
	grpcserver "chat-app/internal/grpc"
	"chat-app/internal/handlers"
	"chat-app/internal/logger"
	"chat-app/internal/middleware"
	"chat-app/internal/observability"
	"chat-app/internal/presence"
	"chat-app/internal/rabbitmq"
	"chat-app/internal/ratelimit"
	"chat-app/internal/repositories"
	"chat-app/internal/service"
	"chat-app/internal/telemetry"
	"chat-app/internal/ws"
)

const serviceName = "chat-app"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	database, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	logger.Info().Str("mode", rabbitmq.PublisherMode(publisher)).Str("reason", rabbitmq.PublisherNoopReason(publisher)).Msg("event publisher ready")
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Env)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	resolver := attachments.NewResolver(newObjectStore(ctx, cfg))
	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	registry := presence.NewRegistry()
	hub := ws.NewHub(registry)

	messaging := service.NewMessagingService(messageRepo, userRepo, resolver, hub, registry)
	accounts := service.NewAccountService(userRepo, resolver, audit)
	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		if err := accounts.SeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			logger.Error().Err(err).Msg("failed to seed admin")
		}
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-Device-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.Routes{
		Auth:      handlers.NewAuthHandler(accounts, tokens, cfg.CookieSecure),
		Admin:     handlers.NewAdminHandler(accounts),
		Messages:  handlers.NewMessageHandler(messaging, hub),
		WebSocket: ws.NewConnectionHandler(hub, tokens, cfg.Origins()).Handle,
		Tokens:    tokens,
		Limiter:   limiter,
		Audit:     audit,
		Debug:     cfg.DebugRoutes,
	}.Register(router)

	health := grpcserver.NewHealthServer()
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	go func() {
		if err := health.Serve(grpcLis); err != nil {
			logger.Error().Err(err).Msg("grpc health server stopped")
		}
	}()
	health.SetServing(true)
	go health.Watch(ctx, database, 15*time.Second)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("grpc_port", cfg.GRPCPort).Msg("chat-app listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			health.Stop()
			return err
		}
	}

	logger.Info().Msg("shutting down")
	health.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newObjectStore(ctx context.Context, cfg *config.Config) attachments.ObjectStore {
	if !cfg.StorageConfigured() {
		logger.Warn().Msg("S3_BUCKET not set, attachments disabled")
		return attachments.UnconfiguredStore{}
	}
	store, err := attachments.NewS3Store(ctx, attachments.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicURL:       cfg.S3PublicURL,
	})
	if err != nil {
		logger.Error().Err(err).Msg("object storage unavailable, attachments disabled")
		return attachments.UnconfiguredStore{}
	}
	return store
}

func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func()) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewLocalLimiter(cfg.SendRateLimit, cfg.SendRateWindow), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, using in-process rate limiting")
		_ = client.Close()
		return ratelimit.NewLocalLimiter(cfg.SendRateLimit, cfg.SendRateWindow), func() {}
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis rate limiting enabled")
	return ratelimit.NewRedisLimiter(client, cfg.SendRateLimit, cfg.SendRateWindow), func() { _ = client.Close() }
}
