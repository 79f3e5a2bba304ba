// verification.go — оценка подлинности изображения моделью Gemini.
// Результат — свободный текст модели без разбора на поля.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/disasterwatch/internal/domain/model"
)

const (
	// verificationPrompt — инструкция модели для анализа изображения.
	verificationPrompt = "Analyze this image for signs of disaster or manipulation: "
	// NoResult — ответ, если модель не вернула текста.
	NoResult = "No result"
)

var verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dw_image_verifications_total",
	Help: "Количество проверок изображений по результату.",
}, []string{"outcome"})

// VerificationService — проверка изображений.
type VerificationService struct {
	gen    TextGenerator
	model  string
	logger *slog.Logger
}

// NewVerificationService создаёт сервис проверки изображений.
func NewVerificationService(gen TextGenerator, visionModel string, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		gen:    gen,
		model:  visionModel,
		logger: logger.With(slog.String("component", "verification_service")),
	}
}

// Verify отправляет ссылку на изображение модели и возвращает её ответ
// как есть. Пустой ответ заменяется на NoResult.
func (s *VerificationService) Verify(ctx context.Context, imageReference string) (*model.VerificationResult, error) {
	if strings.TrimSpace(imageReference) == "" {
		verificationsTotal.WithLabelValues("validation_error").Inc()
		return nil, fmt.Errorf("%w: поле imageReference обязательно", ErrValidation)
	}

	text, err := s.gen.GenerateText(ctx, s.model, verificationPrompt+imageReference)
	if err != nil {
		verificationsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Проверка изображения не выполнена",
			slog.String("image_reference", imageReference),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrVerification, err) //nolint:errorlint // намеренный двойной wrap
	}

	if strings.TrimSpace(text) == "" {
		verificationsTotal.WithLabelValues("no_result").Inc()
		return &model.VerificationResult{VerificationResult: NoResult}, nil
	}

	verificationsTotal.WithLabelValues("ok").Inc()
	return &model.VerificationResult{VerificationResult: text}, nil
}
