// enrichment.go — обработчики внешнего обогащения:
// геокодирование описания, проверка изображения и демонстрационная лента.
package handlers

import (
	"net/http"

	"github.com/bigkaa/disasterwatch/internal/api/contract"
	apierrors "github.com/bigkaa/disasterwatch/internal/api/errors"
)

// Geocode — POST /geocode.
func (h *APIHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	var req contract.GeocodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	res, err := h.enrichment.ExtractAndGeocode(r.Context(), req.Description)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка геокодирования описания")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// VerifyImage — POST /disasters/{id}/verify-image.
// Запись не читается из хранилища: id используется только в логах.
func (h *APIHandler) VerifyImage(w http.ResponseWriter, r *http.Request, id contract.DisasterId) {
	var req contract.VerifyImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	res, err := h.verification.Verify(r.Context(), req.ImageReference)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка проверки изображения для записи "+id)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetSocialMedia — GET /disasters/{id}/social-media.
func (h *APIHandler) GetSocialMedia(w http.ResponseWriter, _ *http.Request, id contract.DisasterId) {
	writeJSON(w, http.StatusOK, h.social.Posts(id))
}
