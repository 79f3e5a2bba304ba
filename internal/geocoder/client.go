// Пакет geocoder — HTTP-клиент геокодера Nominatim (OpenStreetMap).
// Операция: Search (GET /search?format=json&limit=1) — лучшее совпадение для фразы.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoMatch — геокодер не нашёл ни одного совпадения.
	ErrNoMatch = errors.New("совпадений не найдено")
	// ErrInvalidResponse — координаты в ответе не разбираются как числа.
	ErrInvalidResponse = errors.New("некорректный ответ геокодера")
)

// Place — лучшее совпадение геокодера.
type Place struct {
	DisplayName string
	Latitude    float64
	Longitude   float64
}

// searchItem — элемент ответа Nominatim; координаты приходят строками.
type searchItem struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client — HTTP-клиент Nominatim.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент геокодера.
// userAgent обязателен по правилам использования Nominatim.
func New(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "geocoder")),
	}
}

// BaseURL возвращает адрес геокодера (для мониторинга зависимостей).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search возвращает лучшее совпадение для query.
// Ошибки транспорта и статусы, отличные от 200, возвращаются обёрнутыми как есть.
func (c *Client) Search(ctx context.Context, query string) (*Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	reqURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса Search: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос Search к %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("геокодер вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var items []searchItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("декодирование ответа геокодера: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoMatch
	}

	best := items[0]
	lat, err := strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: lat=%q", ErrInvalidResponse, best.Lat)
	}
	lon, err := strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: lon=%q", ErrInvalidResponse, best.Lon)
	}

	c.logger.Debug("Геокодирование выполнено",
		slog.String("query", query),
		slog.String("display_name", best.DisplayName),
	)

	return &Place{
		DisplayName: best.DisplayName,
		Latitude:    lat,
		Longitude:   lon,
	}, nil
}
