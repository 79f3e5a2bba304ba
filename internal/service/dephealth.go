// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// disasterwatch мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - Nominatim — HTTP checker к /status (non-critical: без геокодера CRUD работает)
//
// Gemini API не мониторится: проверка требует ключа и расходует квоту.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках
	Group string
	// DB — *sql.DB из pgxpool (stdlib.OpenDBFromPool); nil — PostgreSQL не мониторится
	DB *sql.DB
	// PGConnURL — URL PostgreSQL для лейблов метрик
	PGConnURL string
	// NominatimURL — базовый URL геокодера
	NominatimURL string
	// CheckInterval — интервал проверки
	CheckInterval time.Duration
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	cfg DephealthConfig,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	nominatimBase, nominatimPath, err := nominatimHealthTarget(cfg.NominatimURL)
	if err != nil {
		return nil, err
	}

	opts := make([]dephealth.Option, 0, 3+len(extraOpts))
	opts = append(opts, dephealth.WithLogger(logger))

	if cfg.DB != nil {
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.PGConnURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		))
	}

	opts = append(opts, dephealth.HTTP("nominatim",
		dephealth.FromURL(nominatimBase),
		dephealth.WithHTTPHealthPath(nominatimPath),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(false),
	))
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// nominatimHealthTarget разделяет URL геокодера на адрес сервера и путь
// health-проверки с учётом префикса (https://host/nominatim → /nominatim/status).
func nominatimHealthTarget(rawURL string) (base, healthPath string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("некорректный URL геокодера: %q", rawURL)
	}
	healthPath = strings.TrimRight(u.Path, "/") + "/status"
	return u.Scheme + "://" + u.Host, healthPath, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL + Nominatim)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady — статус геокодера для readiness probe.
// Недоступный Nominatim даёт degraded.
func (ds *DephealthService) CheckReady() (status, message string) {
	for key, ok := range ds.Health() {
		if strings.HasPrefix(key, "nominatim:") {
			if ok {
				return "ok", "геокодер доступен"
			}
			return "degraded", "геокодер недоступен"
		}
	}
	return "ok", "проверка ещё не выполнена"
}
