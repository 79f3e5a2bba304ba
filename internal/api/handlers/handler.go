// handler.go — основной обработчик API, реализующий contract.ServerInterface.
// Объединяет health и бизнес-обработчики, переводит ошибки сервисов в HTTP-ответы.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bigkaa/disasterwatch/internal/api/contract"
	apierrors "github.com/bigkaa/disasterwatch/internal/api/errors"
	"github.com/bigkaa/disasterwatch/internal/service"
)

// maxBodyBytes — предельный размер тела запроса.
const maxBodyBytes = 1 << 20

// APIHandler — основной обработчик API disasterwatch.
// Реализует contract.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health       *HealthHandler
	disasters    *service.DisasterService
	enrichment   *service.EnrichmentService
	verification *service.VerificationService
	social       *service.SocialMediaService
	openapiJSON  []byte
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// openapiJSON — готовый JSON-документ для GET /openapi.json.
func NewAPIHandler(
	health *HealthHandler,
	disasters *service.DisasterService,
	enrichment *service.EnrichmentService,
	verification *service.VerificationService,
	social *service.SocialMediaService,
	openapiJSON []byte,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:       health,
		disasters:    disasters,
		enrichment:   enrichment,
		verification: verification,
		social:       social,
		openapiJSON:  openapiJSON,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPISpec — GET /openapi.json.
func (h *APIHandler) GetOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiJSON)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса в dst. Неизвестные поля и данные
// после JSON-объекта считаются ошибкой.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("пустое тело запроса")
		}
		return err
	}
	if dec.More() {
		return errors.New("лишние данные после JSON-объекта")
	}
	return nil
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
// op — описание операции для лога.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrExtraction):
		apierrors.ExtractionError(w, err.Error())
	case errors.Is(err, service.ErrGeocode):
		apierrors.GeocodeError(w, err.Error())
	case errors.Is(err, service.ErrVerification):
		h.logger.Error(op, slog.String("error", err.Error()))
		apierrors.VerificationError(w, "Не удалось проверить изображение")
	case errors.Is(err, service.ErrTransport):
		h.logger.Error(op, slog.String("error", err.Error()))
		apierrors.UpstreamError(w, "Внешний сервис недоступен")
	default:
		h.logger.Error(op, slog.String("error", err.Error()))
		apierrors.InternalError(w, fmt.Sprintf("%s: внутренняя ошибка", op))
	}
}

// Проверка реализации интерфейса на этапе компиляции.
var _ contract.ServerInterface = (*APIHandler)(nil)
