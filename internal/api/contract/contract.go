// Пакет contract — серверный интерфейс REST API disasterwatch и chi-маршрутизация
// в формате oapi-codegen chi-server. Описание API — internal/apispec/openapi.yaml.
package contract

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/disasterwatch/internal/domain/model"
)

// DisasterId — идентификатор записи в пути.
type DisasterId = string //nolint:revive // имя повторяет параметр контракта

// ListDisastersParams — параметры GET /disasters.
type ListDisastersParams struct {
	// Tag — точное совпадение с одним из тегов записи
	Tag *string `form:"tag,omitempty" json:"tag,omitempty"`
}

// DisasterRequest — тело POST /disasters и PUT /disasters/{id}.
// Неизвестные поля отклоняются.
type DisasterRequest struct {
	Title        string             `json:"title"`
	LocationName string             `json:"locationName,omitempty"`
	Description  string             `json:"description"`
	Coordinates  *model.Coordinates `json:"coordinates,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
	OwnerId      *string            `json:"ownerId,omitempty"` //nolint:revive // имя повторяет поле контракта
}

// GeocodeRequest — тело POST /geocode.
type GeocodeRequest struct {
	Description string `json:"description"`
}

// VerifyImageRequest — тело POST /disasters/{id}/verify-image.
type VerifyImageRequest struct {
	ImageReference string `json:"imageReference"`
}

// MessageResponse — ответ DELETE /disasters/{id}.
type MessageResponse struct {
	Message string `json:"message"`
}

// ServerInterface — обработчики всех маршрутов API.
type ServerInterface interface {
	// (GET /disasters)
	ListDisasters(w http.ResponseWriter, r *http.Request, params ListDisastersParams)
	// (POST /disasters)
	CreateDisaster(w http.ResponseWriter, r *http.Request)
	// (GET /disasters/{id})
	GetDisaster(w http.ResponseWriter, r *http.Request, id DisasterId)
	// (PUT /disasters/{id})
	UpdateDisaster(w http.ResponseWriter, r *http.Request, id DisasterId)
	// (DELETE /disasters/{id})
	DeleteDisaster(w http.ResponseWriter, r *http.Request, id DisasterId)
	// (GET /disasters/{id}/audit-trail)
	GetAuditTrail(w http.ResponseWriter, r *http.Request, id DisasterId)
	// (GET /disasters/{id}/social-media)
	GetSocialMedia(w http.ResponseWriter, r *http.Request, id DisasterId)
	// (POST /disasters/{id}/verify-image)
	VerifyImage(w http.ResponseWriter, r *http.Request, id DisasterId)
	// (POST /geocode)
	Geocode(w http.ResponseWriter, r *http.Request)
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /openapi.json)
	GetOpenAPISpec(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc — middleware отдельного маршрута.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper разбирает параметры запроса и вызывает ServerInterface.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError — параметр не разобран по правилам контракта.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	handler := http.Handler(fn)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// bindID разбирает path-параметр id.
func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (DisasterId, bool) {
	var id DisasterId
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return "", false
	}
	return id, true
}

// ListDisasters operation middleware
func (siw *ServerInterfaceWrapper) ListDisasters(w http.ResponseWriter, r *http.Request) {
	var params ListDisastersParams

	err := runtime.BindQueryParameter("form", true, false, "tag", r.URL.Query(), &params.Tag)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "tag", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListDisasters(w, r, params)
	})
}

// CreateDisaster operation middleware
func (siw *ServerInterfaceWrapper) CreateDisaster(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.CreateDisaster)
}

// GetDisaster operation middleware
func (siw *ServerInterfaceWrapper) GetDisaster(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetDisaster(w, r, id)
	})
}

// UpdateDisaster operation middleware
func (siw *ServerInterfaceWrapper) UpdateDisaster(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.UpdateDisaster(w, r, id)
	})
}

// DeleteDisaster operation middleware
func (siw *ServerInterfaceWrapper) DeleteDisaster(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteDisaster(w, r, id)
	})
}

// GetAuditTrail operation middleware
func (siw *ServerInterfaceWrapper) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetAuditTrail(w, r, id)
	})
}

// GetSocialMedia operation middleware
func (siw *ServerInterfaceWrapper) GetSocialMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetSocialMedia(w, r, id)
	})
}

// VerifyImage operation middleware
func (siw *ServerInterfaceWrapper) VerifyImage(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.VerifyImage(w, r, id)
	})
}

// Geocode operation middleware
func (siw *ServerInterfaceWrapper) Geocode(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.Geocode)
}

// HealthLive operation middleware
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthLive)
}

// HealthReady operation middleware
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthReady)
}

// GetMetrics operation middleware
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMetrics)
}

// GetOpenAPISpec operation middleware
func (siw *ServerInterfaceWrapper) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetOpenAPISpec)
}

// ChiServerOptions — параметры HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler создаёт http.Handler с маршрутами на новом chi-роутере.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerFromMux регистрирует маршруты на переданном роутере.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

// HandlerWithOptions регистрирует маршруты с указанными опциями.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/disasters", wrapper.ListDisasters)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/disasters", wrapper.CreateDisaster)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/disasters/{id}", wrapper.GetDisaster)
	})
	r.Group(func(r chi.Router) {
		r.Put(options.BaseURL+"/disasters/{id}", wrapper.UpdateDisaster)
	})
	r.Group(func(r chi.Router) {
		r.Delete(options.BaseURL+"/disasters/{id}", wrapper.DeleteDisaster)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/disasters/{id}/audit-trail", wrapper.GetAuditTrail)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/disasters/{id}/social-media", wrapper.GetSocialMedia)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/disasters/{id}/verify-image", wrapper.VerifyImage)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/geocode", wrapper.Geocode)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health/live", wrapper.HealthLive)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health/ready", wrapper.HealthReady)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/metrics", wrapper.GetMetrics)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/openapi.json", wrapper.GetOpenAPISpec)
	})

	return r
}
