package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/config"
	"github.com/inventohq/festival-system/db"
	"github.com/inventohq/festival-system/handlers"
	"github.com/inventohq/festival-system/live"
	"github.com/inventohq/festival-system/middleware"
	"github.com/inventohq/festival-system/models"
	api "github.com/inventohq/festival-system/routes"
	"github.com/inventohq/festival-system/services"
	"github.com/inventohq/festival-system/storage"
	"github.com/inventohq/festival-system/store"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Хранилище снапшотов: Postgres если задан DATABASE_URL, иначе файл.
	var snapshotStore store.SnapshotStore
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()

		pgStore := store.NewPostgresSnapshotStore(dbConn)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to ensure snapshot schema", slog.Any("error", err))
			os.Exit(1)
		}
		snapshotStore = pgStore
		logger.Info("database snapshot store initialized")
	} else {
		snapshotStore = store.NewFileSnapshotStore(cfg.SnapshotPath)
		logger.Info("file snapshot store initialized", slog.String("path", cfg.SnapshotPath))
	}

	// Session store с шифрованием на диске.
	sessionStore, err := store.NewSessionStore(cfg.SessionPath, cfg.SessionKey)
	if err != nil {
		logger.Error("failed to initialize session store", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("session store initialized")

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// API-клиент бэкенда. 401 от бэкенда инвалидирует сессию в store.
	backend := apiclient.New(cfg.BackendBaseURL, sessionStore, logger)

	// Кэш снапшотов поверх API-клиента.
	cacheStore := cache.New(backend, snapshotStore, wsHub, logger)
	if err := cacheStore.Load(context.Background()); err != nil {
		logger.Error("failed to load cache snapshot", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("cache snapshot loaded")

	// Инициализация сервисов
	authService := services.NewAuthService(backend, sessionStore, cfg.JWTSecretKey, logger)
	eventService := services.NewEventService(backend, cacheStore, cloudflareUploader, logger)
	participantService := services.NewParticipantService(backend, cacheStore, logger)
	registrationService := services.NewRegistrationService(backend, cacheStore, logger)
	dashboardService := services.NewDashboardService(cacheStore)
	settingsService := services.NewSettingsService(backend, cacheStore, logger)
	passService := services.NewPassService(backend, cacheStore, logger)
	exportService := services.NewExportService(cacheStore, cloudflareUploader, logger)
	logger.Info("Services initialized")

	// Сессия фонового рефреша. Бэкенд узнаёт шлюз по сервисному токену.
	serviceSession := &models.Session{
		InventoID: "gateway-service",
		Name:      "Gateway Service",
		Role:      models.RoleMaster,
		Onboarded: true,
		Token:     cfg.ServiceToken,
	}

	// Планировщик периодического обновления кэша.
	go func() {
		ctx := apiclient.WithSession(context.Background(), serviceSession)

		ticker := time.NewTicker(cfg.RefreshInterval)
		defer ticker.Stop()
		logger.Info("cache refresh scheduler started", slog.Duration("interval", cfg.RefreshInterval))

		// Run once immediately at startup, then on ticker
		if err := cacheStore.RefreshAll(ctx); err != nil {
			logger.Error("scheduler: initial refresh failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := cacheStore.RefreshAll(ctx); err != nil {
				logger.Error("scheduler: periodic refresh failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService)
	eventHandler := handlers.NewEventHandler(eventService)
	participantHandler := handlers.NewParticipantHandler(participantService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, cacheStore)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	passHandler := handlers.NewPassHandler(passService)
	exportHandler := handlers.NewExportHandler(exportService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	authGuard := middleware.NewAuth(cfg.JWTSecretKey, authService)
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authGuard,
		authHandler,
		eventHandler,
		participantHandler,
		registrationHandler,
		dashboardHandler,
		settingsHandler,
		passHandler,
		exportHandler,
		webSocketHandler,
		cfg.AllowedOrigins,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
