package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/bigkaa/disasterwatch/internal/api/contract"
	apierrors "github.com/bigkaa/disasterwatch/internal/api/errors"
	"github.com/bigkaa/disasterwatch/internal/domain/model"
	"github.com/bigkaa/disasterwatch/internal/geocoder"
	"github.com/bigkaa/disasterwatch/internal/repository"
	"github.com/bigkaa/disasterwatch/internal/service"
)

// --- Фейки ---

// memRepo — хранилище записей в памяти.
type memRepo struct {
	mu    sync.Mutex
	items []*model.Disaster
}

func (m *memRepo) Create(_ context.Context, d *model.Disaster) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.AuditTrail = slices.Clone(d.AuditTrail)
	m.items = append(m.items, &cp)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*model.Disaster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.items {
		if d.ID == id {
			cp := *d
			cp.AuditTrail = slices.Clone(d.AuditTrail)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) List(_ context.Context, params repository.ListParams) ([]*model.Disaster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Disaster{}
	for _, d := range m.items {
		if params.Tag == nil || slices.Contains(d.Tags, *params.Tag) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, d *model.Disaster, entry model.AuditEntry) (*model.Disaster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.items {
		if cur.ID == d.ID {
			cp := *d
			cp.AuditTrail = append(slices.Clone(cur.AuditTrail), entry)
			m.items[i] = &cp
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.items {
		if d.ID == id {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakeGenerator — генератор текста с фиксированным ответом.
type fakeGenerator struct {
	text string
	err  error
}

func (g *fakeGenerator) GenerateText(context.Context, string, string) (string, error) {
	return g.text, g.err
}

// fakeGeocoder — геокодер с фиксированным ответом.
type fakeGeocoder struct {
	place *geocoder.Place
	err   error
}

func (g *fakeGeocoder) Search(context.Context, string) (*geocoder.Place, error) {
	return g.place, g.err
}

// fixedChecker — ReadinessChecker с фиксированным статусом.
type fixedChecker struct{ status string }

func (c fixedChecker) CheckReady() (string, string) { return c.status, "" }

// --- Вспомогательные функции ---

type testEnv struct {
	router http.Handler
	repo   *memRepo
	gen    *fakeGenerator
	geo    *fakeGeocoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		repo: &memRepo{},
		gen:  &fakeGenerator{text: "Tokyo"},
		geo:  &fakeGeocoder{place: &geocoder.Place{DisplayName: "Tokyo, Japan", Latitude: 35.6762, Longitude: 139.6503}},
	}

	h := NewAPIHandler(
		NewHealthHandler(fixedChecker{status: "ok"}, nil),
		service.NewDisasterService(env.repo, nil, logger),
		service.NewEnrichmentService(env.gen, env.geo, service.EnrichmentConfig{Model: "gemini-2.0-flash"}, logger),
		service.NewVerificationService(env.gen, "gemini-2.0-flash", logger),
		service.NewSocialMediaService(nil, logger),
		[]byte(`{"openapi":"3.0.3"}`),
		logger,
	)
	env.router = contract.HandlerWithOptions(h, contract.ChiServerOptions{
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			apierrors.ValidationError(w, err.Error())
		},
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("некорректный JSON ответа: %v; тело: %s", err, rec.Body.String())
	}
	return v
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, ожидался %d; тело: %s", rec.Code, status, rec.Body.String())
	}
	if got := decodeBody[errorResponse](t, rec).Error.Code; got != code {
		t.Errorf("code = %q, ожидался %q", got, code)
	}
}

// --- Записи ---

// TestDisasters_CRUD проверяет полный цикл записи через HTTP.
func TestDisasters_CRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/disasters",
		`{"title":"Flood","description":"Heavy flooding","tags":["flood"],"ownerId":"netrunnerX"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, ожидался 201; тело: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[model.Disaster](t, rec)
	if created.ID == "" || created.OwnerID != "netrunnerX" {
		t.Fatalf("неожиданная запись: %+v", created)
	}
	if len(created.AuditTrail) != 1 || created.AuditTrail[0].Action != model.ActionCreate {
		t.Fatalf("журнал после создания: %+v", created.AuditTrail)
	}

	rec = env.do(t, http.MethodGet, "/disasters/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/disasters/"+created.ID,
		`{"title":"Flood (updated)","description":"Water receding","tags":["flood"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d; тело: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[model.Disaster](t, rec)
	if updated.Title != "Flood (updated)" || updated.OwnerID != "netrunnerX" {
		t.Errorf("неожиданная запись после обновления: %+v", updated)
	}

	rec = env.do(t, http.MethodGet, "/disasters/"+created.ID+"/audit-trail", "")
	trail := decodeBody[[]model.AuditEntry](t, rec)
	if len(trail) != 2 || trail[1].Action != model.ActionUpdate || trail[1].UserID != model.UnknownUser {
		t.Errorf("журнал после обновления: %+v", trail)
	}

	rec = env.do(t, http.MethodDelete, "/disasters/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if msg := decodeBody[contract.MessageResponse](t, rec).Message; msg != "Deleted" {
		t.Errorf("message = %q, ожидалось %q", msg, "Deleted")
	}

	rec = env.do(t, http.MethodGet, "/disasters/"+created.ID, "")
	assertErrorCode(t, rec, http.StatusNotFound, apierrors.CodeNotFound)
}

// TestDisasters_ListByTag проверяет фильтр по тегу.
func TestDisasters_ListByTag(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/disasters", `{"title":"A","description":"a","tags":["flood"]}`)
	env.do(t, http.MethodPost, "/disasters", `{"title":"B","description":"b","tags":["earthquake"]}`)

	all := decodeBody[[]model.Disaster](t, env.do(t, http.MethodGet, "/disasters", ""))
	if len(all) != 2 {
		t.Errorf("без фильтра: %d записей, ожидалось 2", len(all))
	}

	flood := decodeBody[[]model.Disaster](t, env.do(t, http.MethodGet, "/disasters?tag=flood", ""))
	if len(flood) != 1 || flood[0].Title != "A" {
		t.Errorf("tag=flood: %+v", flood)
	}

	rec := env.do(t, http.MethodGet, "/disasters?tag=Flood", "")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("tag=Flood: тело %q, ожидался пустой массив", body)
	}

	empty := decodeBody[[]model.Disaster](t, env.do(t, http.MethodGet, "/disasters?tag=", ""))
	if len(empty) != 2 {
		t.Errorf("tag=: %d записей, ожидалось 2 (пустой тег не фильтрует)", len(empty))
	}
}

// TestDisasters_BadRequests проверяет ответы 400.
func TestDisasters_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"пустое тело", ""},
		{"некорректный JSON", `{"title":`},
		{"нет title", `{"description":"d"}`},
		{"нет description", `{"title":"t"}`},
		{"неизвестное поле", `{"title":"t","description":"d","id":"x"}`},
		{"auditTrail в запросе", `{"title":"t","description":"d","auditTrail":[]}`},
		{"latitude вне диапазона", `{"title":"t","description":"d","coordinates":{"latitude":91,"longitude":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/disasters", tt.body)
			assertErrorCode(t, rec, http.StatusBadRequest, apierrors.CodeValidationError)
		})
	}

	if len(env.repo.items) != 0 {
		t.Errorf("в хранилище %d записей, ожидалось 0", len(env.repo.items))
	}
}

// TestDisasters_NotFound проверяет 404 для неизвестных и некорректных id.
func TestDisasters_NotFound(t *testing.T) {
	env := newTestEnv(t)
	const missing = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/disasters/" + missing, ""},
		{http.MethodGet, "/disasters/not-a-uuid", ""},
		{http.MethodPut, "/disasters/" + missing, `{"title":"t","description":"d"}`},
		{http.MethodDelete, "/disasters/" + missing, ""},
		{http.MethodGet, "/disasters/" + missing + "/audit-trail", ""},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			assertErrorCode(t, env.do(t, tc.method, tc.path, tc.body), http.StatusNotFound, apierrors.CodeNotFound)
		})
	}
}

// --- Обогащение ---

// TestGeocode проверяет успешное геокодирование описания.
func TestGeocode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/geocode", `{"description":"Earthquake in Tokyo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; тело: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[model.GeocodeResult](t, rec)
	if res.LocationName != "Tokyo" || res.Latitude != 35.6762 || res.Longitude != 139.6503 {
		t.Errorf("неожиданный результат: %+v", res)
	}
}

// TestGeocode_Errors проверяет отображение ошибок обогащения на HTTP.
func TestGeocode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		genText  string
		genErr   error
		geoErr   error
		wantCode int
		wantErr  string
	}{
		{"пустое описание", `{"description":"  "}`, "Tokyo", nil, nil, http.StatusBadRequest, apierrors.CodeExtractionError},
		{"модель вернула пусто", `{"description":"x"}`, "", nil, nil, http.StatusBadRequest, apierrors.CodeExtractionError},
		{"нет совпадений", `{"description":"x"}`, "Atlantis", nil, geocoder.ErrNoMatch, http.StatusNotFound, apierrors.CodeGeocodeError},
		{"сбой модели", `{"description":"x"}`, "", errors.New("boom"), nil, http.StatusInternalServerError, apierrors.CodeUpstreamError},
		{"сбой геокодера", `{"description":"x"}`, "Tokyo", nil, errors.New("dial tcp"), http.StatusInternalServerError, apierrors.CodeUpstreamError},
		{"неизвестное поле", `{"text":"x"}`, "Tokyo", nil, nil, http.StatusBadRequest, apierrors.CodeValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.gen.text, env.gen.err = tt.genText, tt.genErr
			if tt.geoErr != nil {
				env.geo.place, env.geo.err = nil, tt.geoErr
			}
			assertErrorCode(t, env.do(t, http.MethodPost, "/geocode", tt.body), tt.wantCode, tt.wantErr)
		})
	}
}

// TestVerifyImage проверяет проверку изображения.
func TestVerifyImage(t *testing.T) {
	env := newTestEnv(t)
	env.gen.text = "No signs of manipulation detected."

	rec := env.do(t, http.MethodPost, "/disasters/any-id/verify-image", `{"imageReference":"http://example.com/flood.jpg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; тело: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[model.VerificationResult](t, rec).VerificationResult; got != env.gen.text {
		t.Errorf("verificationResult = %q", got)
	}

	env.gen.err = errors.New("quota exceeded")
	rec = env.do(t, http.MethodPost, "/disasters/any-id/verify-image", `{"imageReference":"http://example.com/flood.jpg"}`)
	assertErrorCode(t, rec, http.StatusInternalServerError, apierrors.CodeVerificationError)

	rec = env.do(t, http.MethodPost, "/disasters/any-id/verify-image", `{}`)
	assertErrorCode(t, rec, http.StatusBadRequest, apierrors.CodeValidationError)
}

// TestGetSocialMedia проверяет демонстрационную ленту.
func TestGetSocialMedia(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/disasters/whatever/social-media", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	posts := decodeBody[[]model.SocialMediaPost](t, rec)
	if len(posts) != 2 || posts[0].User != "citizen1" || posts[1].User != "citizen2" {
		t.Errorf("неожиданная лента: %+v", posts)
	}
}

// --- Служебные endpoints ---

// TestServiceEndpoints проверяет health, metrics и openapi.json.
func TestServiceEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/openapi.json"} {
		t.Run(path, func(t *testing.T) {
			if rec := env.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
				t.Errorf("status = %d, ожидался 200", rec.Code)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/openapi.json", "")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

// TestOverallStatus проверяет агрегацию статусов readiness.
func TestOverallStatus(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"ok"}, "ok"},
		{[]string{"ok", "degraded"}, "degraded"},
		{[]string{"degraded", "fail"}, "fail"},
	}
	for _, tt := range tests {
		if got := overallStatus(tt.in...); got != tt.want {
			t.Errorf("overallStatus(%v) = %q, ожидался %q", tt.in, got, tt.want)
		}
	}
}

// TestHealthReady_NoChecker проверяет 503 без проверки PostgreSQL.
func TestHealthReady_NoChecker(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, ожидался 503", rec.Code)
	}
}
