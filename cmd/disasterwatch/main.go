// Точка входа disasterwatch — сервис приёма отчётов о чрезвычайных ситуациях.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт клиенты Gemini и Nominatim, hub событий WebSocket, сервисный слой
// и API handlers, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/disasterwatch/internal/api/handlers"
	"github.com/bigkaa/disasterwatch/internal/apispec"
	"github.com/bigkaa/disasterwatch/internal/config"
	"github.com/bigkaa/disasterwatch/internal/database"
	"github.com/bigkaa/disasterwatch/internal/events"
	"github.com/bigkaa/disasterwatch/internal/genaiclient"
	"github.com/bigkaa/disasterwatch/internal/geocoder"
	"github.com/bigkaa/disasterwatch/internal/repository"
	"github.com/bigkaa/disasterwatch/internal/server"
	"github.com/bigkaa/disasterwatch/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("disasterwatch запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx := context.Background()

	// 3. OpenAPI документ (валидируется до открытия соединений)
	openapiJSON, err := apispec.JSON(ctx)
	if err != nil {
		logger.Error("Ошибка OpenAPI документа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Внешние клиенты
	genClient, err := genaiclient.New(ctx, genaiclient.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.EnrichmentTimeout,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента Gemini", slog.String("error", err.Error()))
		os.Exit(1)
	}
	geoClient := geocoder.New(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.EnrichmentTimeout, logger)
	logger.Info("Внешние клиенты созданы",
		slog.String("text_model", cfg.GeminiTextModel),
		slog.String("vision_model", cfg.GeminiVisionModel),
		slog.String("nominatim_url", geoClient.BaseURL()),
	)

	// 7. Hub событий для WebSocket-подписчиков
	hub := events.NewHub(cfg.WSSendBuffer, logger)

	// 8. Repositories и services
	disasterRepo := repository.NewDisasterRepository(pool)

	disastersSvc := service.NewDisasterService(disasterRepo, hub, logger)
	enrichmentSvc := service.NewEnrichmentService(genClient, geoClient, service.EnrichmentConfig{
		Model:     cfg.GeminiTextModel,
		Timeout:   cfg.EnrichmentTimeout,
		CacheSize: cfg.EnrichmentCacheSize,
		CacheTTL:  cfg.EnrichmentCacheTTL,
	}, logger)
	verificationSvc := service.NewVerificationService(genClient, cfg.GeminiVisionModel, logger)
	socialSvc := service.NewSocialMediaService(hub, logger)

	// 9. topologymetrics — мониторинг зависимостей (PostgreSQL + Nominatim)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     config.ServiceName,
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PGConnURL:     cfg.DatabaseURL(),
		NominatimURL:  cfg.NominatimURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. Health handler: PostgreSQL критичен, Nominatim — degraded
	var geoChecker handlers.ReadinessChecker
	if dephealthSvc != nil {
		geoChecker = dephealthSvc
	}
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), geoChecker)

	// 11. API handler (реализует contract.ServerInterface)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		disastersSvc,
		enrichmentSvc,
		verificationSvc,
		socialSvc,
		openapiJSON,
		logger,
	)

	// 12. WebSocket handler
	wsHandler := events.NewHandler(hub, events.HandlerConfig{
		OriginPatterns: cfg.CORSOrigins,
		WriteTimeout:   cfg.WSWriteTimeout,
		PingInterval:   cfg.WSPingInterval,
	}, logger)

	// 13. Создание и запуск HTTP-сервера.
	// hub закрывается в начале shutdown: подписчики получают close frame.
	srv := server.New(cfg, logger, apiHandler, wsHandler, hub.Close)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	hub.Close()

	logger.Info("disasterwatch остановлен")
}
