// Пакет service — бизнес-логика disasterwatch.
// DisasterService — CRUD записей о ЧС с журналом аудита и рассылкой
// события disaster_updated после успешной записи в хранилище.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/disasterwatch/internal/domain/model"
	"github.com/bigkaa/disasterwatch/internal/events"
	"github.com/bigkaa/disasterwatch/internal/repository"
)

// disasterMutationsTotal — успешные изменения записей по действию.
var disasterMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dw_disaster_mutations_total",
	Help: "Количество успешных изменений записей о ЧС по действию.",
}, []string{"action"})

// Publisher — получатель событий после фиксации изменений.
// Реализуется events.Hub.
type Publisher interface {
	Broadcast(event string, payload any) error
}

// DisasterInput — разрешённые поля запроса на создание и обновление.
type DisasterInput struct {
	Title        string
	LocationName string
	Description  string
	Coordinates  *model.Coordinates
	Tags         []string
	// OwnerID — nil, если поле не передано
	OwnerID *string
}

// DisasterService — сервис записей о ЧС.
type DisasterService struct {
	repo      repository.DisasterRepository
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewDisasterService создаёт сервис записей о ЧС.
func NewDisasterService(
	repo repository.DisasterRepository,
	publisher Publisher,
	logger *slog.Logger,
) *DisasterService {
	return &DisasterService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "disaster_service")),
	}
}

// Create валидирует вход, создаёт запись с начальным журналом аудита
// и после сохранения рассылает disaster_updated.
func (s *DisasterService) Create(ctx context.Context, in DisasterInput) (*model.Disaster, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := storeTime(s.now())
	owner := ownerValue(in.OwnerID)

	d := &model.Disaster{
		ID:           uuid.New().String(),
		Title:        in.Title,
		LocationName: in.LocationName,
		Description:  in.Description,
		Coordinates:  in.Coordinates,
		Tags:         nonNil(in.Tags),
		OwnerID:      owner,
		CreatedAt:    now,
		AuditTrail:   []model.AuditEntry{newAuditEntry(model.ActionCreate, owner, now)},
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("создание записи: %w", err)
	}
	disasterMutationsTotal.WithLabelValues(model.ActionCreate).Inc()

	s.logger.Info("Запись создана",
		slog.String("id", d.ID),
		slog.String("owner_id", d.OwnerID),
	)
	s.publish(d)
	return d, nil
}

// List возвращает все записи; непустой tag ограничивает выборку
// записями, содержащими этот тег (точное совпадение).
func (s *DisasterService) List(ctx context.Context, tag *string) ([]*model.Disaster, error) {
	// Пустой tag (GET /disasters?tag=) — фильтр не применяется.
	if tag != nil && *tag == "" {
		tag = nil
	}
	items, err := s.repo.List(ctx, repository.ListParams{Tag: tag})
	if err != nil {
		return nil, fmt.Errorf("получение списка записей: %w", err)
	}
	return items, nil
}

// Get возвращает запись по идентификатору.
func (s *DisasterService) Get(ctx context.Context, id string) (*model.Disaster, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return d, nil
}

// AuditTrail возвращает журнал аудита записи.
func (s *DisasterService) AuditTrail(ctx context.Context, id string) ([]model.AuditEntry, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.AuditTrail == nil {
		return []model.AuditEntry{}, nil
	}
	return d.AuditTrail, nil
}

// Update полностью заменяет редактируемые поля записи. ownerId меняется
// только если передан. В журнал добавляется одна запись update.
func (s *DisasterService) Update(ctx context.Context, id string, in DisasterInput) (*model.Disaster, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current.Title = in.Title
	current.LocationName = in.LocationName
	current.Description = in.Description
	current.Coordinates = in.Coordinates
	current.Tags = nonNil(in.Tags)
	if in.OwnerID != nil {
		current.OwnerID = *in.OwnerID
	}

	entry := newAuditEntry(model.ActionUpdate, ownerValue(in.OwnerID), storeTime(s.now()))

	updated, err := s.repo.Update(ctx, current, entry)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	disasterMutationsTotal.WithLabelValues(model.ActionUpdate).Inc()

	s.logger.Info("Запись обновлена",
		slog.String("id", id),
		slog.String("user_id", entry.UserID),
		slog.Int("audit_entries", len(updated.AuditTrail)),
	)
	s.publish(updated)
	return updated, nil
}

// Delete удаляет запись и рассылает {deleted: id}.
func (s *DisasterService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, id)
	}
	disasterMutationsTotal.WithLabelValues("delete").Inc()

	s.logger.Info("Запись удалена", slog.String("id", id))
	s.publish(model.DeletedEvent{Deleted: id})
	return nil
}

// publish рассылает disaster_updated. Ошибка рассылки не отменяет
// уже зафиксированное изменение.
func (s *DisasterService) publish(payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Broadcast(events.DisasterUpdated, payload); err != nil {
		s.logger.Error("Ошибка рассылки события",
			slog.String("event", events.DisasterUpdated),
			slog.String("error", err.Error()),
		)
	}
}

// validateInput проверяет обязательные поля и диапазоны координат.
func validateInput(in DisasterInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: поле title обязательно", ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: поле description обязательно", ErrValidation)
	}
	if c := in.Coordinates; c != nil {
		if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
			return fmt.Errorf("%w: latitude вне диапазона [-90, 90]", ErrValidation)
		}
		if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
			return fmt.Errorf("%w: longitude вне диапазона [-180, 180]", ErrValidation)
		}
	}
	return nil
}

// mapRepoError переводит ошибки репозитория в ошибки сервиса.
func mapRepoError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// storeTime приводит время к точности TIMESTAMPTZ (микросекунды, UTC),
// чтобы ответ на запись совпадал с последующим чтением.
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// validID — идентификаторы записей всегда UUID.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func ownerValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
