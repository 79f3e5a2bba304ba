// enrichment.go — извлечение названия места из описания (Gemini)
// и его геокодирование (Nominatim). Результаты кэшируются в LRU с TTL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/disasterwatch/internal/domain/model"
	"github.com/bigkaa/disasterwatch/internal/geocoder"
)

// extractionPrompt — инструкция модели для извлечения локации.
const extractionPrompt = "Extract the location from this text: "

// Prometheus-метрики обогащения.
var (
	enrichmentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dw_enrichment_total",
		Help: "Количество запросов геокодирования описаний по результату.",
	}, []string{"outcome"})
	enrichmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dw_enrichment_duration_seconds",
		Help:    "Длительность извлечения локации и геокодирования.",
		Buckets: prometheus.DefBuckets,
	})
	enrichmentCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dw_enrichment_cache_hits_total",
		Help: "Общее количество попаданий в кэш геокодирования.",
	})
	enrichmentCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dw_enrichment_cache_misses_total",
		Help: "Общее количество промахов кэша геокодирования.",
	})
)

// TextGenerator — генерация текста моделью. Реализуется genaiclient.Client.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Geocoder — поиск лучшего совпадения. Реализуется geocoder.Client.
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocoder.Place, error)
}

// EnrichmentConfig — параметры EnrichmentService.
type EnrichmentConfig struct {
	// Model — модель извлечения локации
	Model string
	// Timeout — общий таймаут обоих внешних вызовов (0 — без ограничения)
	Timeout time.Duration
	// CacheSize — размер кэша (0 — кэш отключён)
	CacheSize int
	// CacheTTL — время жизни записи кэша
	CacheTTL time.Duration
}

// EnrichmentService — извлечение локации из описания и геокодирование.
type EnrichmentService struct {
	gen    TextGenerator
	geo    Geocoder
	cfg    EnrichmentConfig
	cache  *expirable.LRU[string, model.GeocodeResult]
	logger *slog.Logger
}

// NewEnrichmentService создаёт сервис обогащения.
func NewEnrichmentService(gen TextGenerator, geo Geocoder, cfg EnrichmentConfig, logger *slog.Logger) *EnrichmentService {
	s := &EnrichmentService{
		gen:    gen,
		geo:    geo,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "enrichment_service")),
	}
	if cfg.CacheSize > 0 {
		s.cache = expirable.NewLRU[string, model.GeocodeResult](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return s
}

// ExtractAndGeocode извлекает название места из description и возвращает
// его координаты. Пустое описание или пустой ответ модели — ErrExtraction
// без обращения к геокодеру; отсутствие совпадений — ErrGeocode.
func (s *EnrichmentService) ExtractAndGeocode(ctx context.Context, description string) (*model.GeocodeResult, error) {
	key := strings.TrimSpace(description)
	if key == "" {
		enrichmentTotal.WithLabelValues("extraction_error").Inc()
		return nil, fmt.Errorf("%w: пустое описание", ErrExtraction)
	}

	if res, ok := s.cacheGet(key); ok {
		enrichmentTotal.WithLabelValues("ok").Inc()
		return &res, nil
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, outcome, err := s.resolve(ctx, description)
	enrichmentDuration.Observe(time.Since(start).Seconds())
	enrichmentTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		s.logger.Warn("Геокодирование описания не выполнено",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if s.cache != nil {
		s.cache.Add(key, *res)
	}
	return res, nil
}

// resolve выполняет оба внешних вызова. outcome — метка для метрик.
func (s *EnrichmentService) resolve(ctx context.Context, description string) (*model.GeocodeResult, string, error) {
	text, err := s.gen.GenerateText(ctx, s.cfg.Model, extractionPrompt+description)
	if err != nil {
		return nil, "transport_error", fmt.Errorf("%w: извлечение локации: %w", ErrTransport, err) //nolint:errorlint // намеренный двойной wrap
	}

	phrase := strings.TrimSpace(text)
	if phrase == "" {
		return nil, "extraction_error", fmt.Errorf("%w: модель вернула пустой ответ", ErrExtraction)
	}

	place, err := s.geo.Search(ctx, phrase)
	if err != nil {
		if errors.Is(err, geocoder.ErrNoMatch) || errors.Is(err, geocoder.ErrInvalidResponse) {
			return nil, "geocode_error", fmt.Errorf("%w: %q: %w", ErrGeocode, phrase, err) //nolint:errorlint // намеренный двойной wrap
		}
		return nil, "transport_error", fmt.Errorf("%w: геокодирование: %w", ErrTransport, err) //nolint:errorlint // намеренный двойной wrap
	}

	return &model.GeocodeResult{
		LocationName: phrase,
		Latitude:     place.Latitude,
		Longitude:    place.Longitude,
	}, "ok", nil
}

// cacheGet читает кэш и обновляет метрики hit/miss.
func (s *EnrichmentService) cacheGet(key string) (model.GeocodeResult, bool) {
	if s.cache == nil {
		return model.GeocodeResult{}, false
	}
	res, ok := s.cache.Get(key)
	if ok {
		enrichmentCacheHits.Inc()
		return res, true
	}
	enrichmentCacheMisses.Inc()
	return model.GeocodeResult{}, false
}
