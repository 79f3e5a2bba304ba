// Пакет genaiclient — клиент генеративной модели Gemini (google.golang.org/genai).
// Используется для извлечения локации из текста и для анализа изображений.
package genaiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Config — параметры подключения к Gemini API.
type Config struct {
	// APIKey — ключ Gemini API (обязателен)
	APIKey string
	// BaseURL — переопределение адреса API (пусто — адрес по умолчанию)
	BaseURL string
	// Timeout — таймаут одного запроса к модели
	Timeout time.Duration
}

// Client — обёртка над genai.Client с единственной операцией GenerateText.
type Client struct {
	client *genai.Client
	logger *slog.Logger
}

// New создаёт клиент Gemini API.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("не задан ключ Gemini API")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Gemini: %w", err)
	}

	return &Client{
		client: client,
		logger: logger.With(slog.String("component", "genai_client")),
	}, nil
}

// GenerateText отправляет prompt модели model и возвращает текст первого
// кандидата. Пустой ответ не считается ошибкой: решение принимает вызывающий.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	start := time.Now()

	resp, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		nil,
	)
	if err != nil {
		c.logger.Warn("Ошибка запроса к Gemini",
			slog.String("model", model),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("запрос к модели %s: %w", model, err)
	}

	c.logger.Debug("Ответ Gemini получен",
		slog.String("model", model),
		slog.Int("candidates", len(resp.Candidates)),
		slog.Duration("duration", time.Since(start)),
	)

	if len(resp.Candidates) == 0 {
		return "", nil
	}
	return resp.Text(), nil
}
