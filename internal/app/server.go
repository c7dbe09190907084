// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fleetcare-service/internal/config"
	"fleetcare-service/internal/db"
	"fleetcare-service/internal/domain/notification"
	authHandler "fleetcare-service/internal/handlers/auth"
	fleetHandler "fleetcare-service/internal/handlers/fleet"
	notifyH "fleetcare-service/internal/handlers/notification"
	recordHandler "fleetcare-service/internal/handlers/servicerecord"
	wsHandler "fleetcare-service/internal/handlers/websocket"
	"fleetcare-service/internal/middleware"
	"fleetcare-service/internal/pkg/jwt"
	"fleetcare-service/internal/pkg/session"
	"fleetcare-service/internal/pkg/storage"
	"fleetcare-service/internal/repository/postgres"
	authUsecase "fleetcare-service/internal/service/auth"
	fleetUsecase "fleetcare-service/internal/service/fleet"
	notifyUsecase "fleetcare-service/internal/service/notification"
	recordUsecase "fleetcare-service/internal/service/servicerecord"
	"fleetcare-service/internal/websocket"
	wsHandlers "fleetcare-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Run wires every dependency and serves HTTP until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := s.logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL, s.cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	logger.Info("postgres ready")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("redis ready", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Object storage -----
	store, err := storage.New(ctx, s.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	userRepo := postgres.NewUserRepository(pool)
	vehicleRepo := postgres.NewVehicleRepository(pool)
	deviceRepo := postgres.NewDeviceRepository(pool)
	recordRepo := postgres.NewServiceRecordRepository(pool)

	// ----- WebSocket Hub -----
	// The validator is the auth service, which itself notifies through the hub.
	hub := websocket.NewHub(nil, logger)

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(
		userRepo,
		jwtManager,
		sessionManager,
		rateLimiter,
		hub,
		logger,
	)
	hub.SetValidator(authService)

	fleetService := fleetUsecase.NewFleetService(vehicleRepo, deviceRepo, logger)

	recordService := recordUsecase.NewServiceRecordService(
		recordRepo,
		vehicleRepo,
		deviceRepo,
		store,
		recordUsecase.UploadPolicy{MaxBytes: s.cfg.UploadMaxBytes},
		logger,
	)

	generator := notifyUsecase.NewGenerator(s.cfg.NotificationLookahead,
		func(itemType notification.ItemType, itemID string, category notification.Category, value string, err error) {
			logger.Warn("skipping unparseable date",
				zap.String("item_type", string(itemType)),
				zap.String("item_id", itemID),
				zap.String("category", string(category)),
				zap.String("value", value),
				zap.Error(err),
			)
		},
	)
	feed := notifyUsecase.NewFeed(generator, fleetService, hub, s.cfg.JWT.TTL, logger)
	authService.OnSignOut(feed.Drop)

	// Register WebSocket handlers
	hub.RegisterHandler(wsHandlers.NewNotificationHandler(feed))

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:          authHandler.NewAuthHandler(authService, hub, logger),
		FleetHandler:         fleetHandler.NewFleetHandler(fleetService),
		ServiceRecordHandler: recordHandler.NewServiceRecordHandler(recordService),
		NotifHandler:         notifyH.NewNotificationHandler(feed),
		WSHandler:            wsHandler.NewWebSocketHandler(hub, s.cfg.CORSAllowedOrigins, logger),
		AuthMiddleware:       middleware.NewAuthMiddleware(authService),
		Health: func(ctx context.Context) error {
			if err := dbWrapper.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	}
	if local, ok := store.(*storage.LocalStore); ok {
		handlers.FilesDir = local.Root
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.CORSAllowedOrigins),
	)
	s.engine.MaxMultipartMemory = s.cfg.UploadMaxBytes

	// ----- Router -----
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	stopHub()
	return nil
}
