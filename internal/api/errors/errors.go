// Пакет errors — конструкторы стандартных ошибок API disasterwatch.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeExtractionError   = "EXTRACTION_ERROR"
	CodeGeocodeError      = "GEOCODE_ERROR"
	CodeVerificationError = "VERIFICATION_ERROR"
	CodeUpstreamError     = "UPSTREAM_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 запись не найдена.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// ExtractionError — 400 модель не извлекла локацию из описания.
func ExtractionError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeExtractionError, message)
}

// GeocodeError — 404 геокодер не нашёл место.
func GeocodeError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeGeocodeError, message)
}

// VerificationError — 500 ошибка анализа изображения.
func VerificationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeVerificationError, message)
}

// UpstreamError — 500 внешний сервис недоступен.
func UpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeUpstreamError, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
