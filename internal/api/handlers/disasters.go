// disasters.go — обработчики /disasters endpoints.
// CRUD записей о ЧС и журнал аудита.
package handlers

import (
	"net/http"

	"github.com/bigkaa/disasterwatch/internal/api/contract"
	apierrors "github.com/bigkaa/disasterwatch/internal/api/errors"
	"github.com/bigkaa/disasterwatch/internal/service"
)

// deletedMessage — тело ответа на удаление.
const deletedMessage = "Deleted"

// ListDisasters — GET /disasters?tag=.
func (h *APIHandler) ListDisasters(w http.ResponseWriter, r *http.Request, params contract.ListDisastersParams) {
	items, err := h.disasters.List(r.Context(), params.Tag)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка записей")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateDisaster — POST /disasters.
func (h *APIHandler) CreateDisaster(w http.ResponseWriter, r *http.Request) {
	var req contract.DisasterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	d, err := h.disasters.Create(r.Context(), toDisasterInput(req))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка создания записи")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetDisaster — GET /disasters/{id}.
func (h *APIHandler) GetDisaster(w http.ResponseWriter, r *http.Request, id contract.DisasterId) {
	d, err := h.disasters.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения записи")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// UpdateDisaster — PUT /disasters/{id}. Тело — полная замена полей.
func (h *APIHandler) UpdateDisaster(w http.ResponseWriter, r *http.Request, id contract.DisasterId) {
	var req contract.DisasterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	d, err := h.disasters.Update(r.Context(), id, toDisasterInput(req))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка обновления записи")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDisaster — DELETE /disasters/{id}.
func (h *APIHandler) DeleteDisaster(w http.ResponseWriter, r *http.Request, id contract.DisasterId) {
	if err := h.disasters.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Ошибка удаления записи")
		return
	}
	writeJSON(w, http.StatusOK, contract.MessageResponse{Message: deletedMessage})
}

// GetAuditTrail — GET /disasters/{id}/audit-trail.
func (h *APIHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request, id contract.DisasterId) {
	trail, err := h.disasters.AuditTrail(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения журнала аудита")
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

// toDisasterInput переносит разрешённые поля запроса во вход сервиса.
func toDisasterInput(req contract.DisasterRequest) service.DisasterInput {
	return service.DisasterInput{
		Title:        req.Title,
		LocationName: req.LocationName,
		Description:  req.Description,
		Coordinates:  req.Coordinates,
		Tags:         req.Tags,
		OwnerID:      req.OwnerId,
	}
}
