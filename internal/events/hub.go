// Пакет events — рассылка событий об изменениях подключённым клиентам.
// Hub хранит множество подписчиков и раздаёт им сериализованные конверты
// без ожидания доставки: переполненный буфер подписчика теряет сообщение.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Имена событий канала реального времени.
const (
	// DisasterUpdated — запись создана, обновлена или удалена.
	DisasterUpdated = "disaster_updated"
	// SocialMediaUpdated — обновилась демонстрационная лента соцсетей.
	SocialMediaUpdated = "social_media_updated"
)

// ErrHubClosed — hub остановлен, новые подписки не принимаются.
var ErrHubClosed = errors.New("hub остановлен")

// Prometheus-метрики рассылки.
var (
	subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dw_ws_subscribers",
		Help: "Текущее количество подписчиков канала событий.",
	})
	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dw_events_broadcast_total",
		Help: "Количество разосланных событий по имени.",
	}, []string{"event"})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dw_events_dropped_total",
		Help: "Количество сообщений, потерянных из-за переполненного буфера подписчика.",
	})
)

// Envelope — формат сообщения в канале: {"event": ..., "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Subscription — подписка одного клиента.
// Канал Messages закрывается при отписке или остановке hub.
type Subscription struct {
	id string
	ch chan []byte
}

// ID возвращает идентификатор подписки.
func (s *Subscription) ID() string { return s.id }

// Messages возвращает канал сериализованных конвертов.
func (s *Subscription) Messages() <-chan []byte { return s.ch }

// Hub — множество подписчиков с неблокирующей рассылкой.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	closed bool
	logger *slog.Logger
}

// NewHub создаёт hub. buffer — ёмкость очереди каждого подписчика.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
		logger: logger.With(slog.String("component", "events_hub")),
	}
}

// Subscribe регистрирует нового подписчика.
// Подписчик получает только события, разосланные после регистрации.
func (h *Hub) Subscribe() (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscription{
		id: uuid.New().String(),
		ch: make(chan []byte, h.buffer),
	}
	h.subs[sub.id] = sub
	subscribersGauge.Inc()

	h.logger.Debug("Подписчик подключён",
		slog.String("subscriber_id", sub.id),
		slog.Int("subscribers", len(h.subs)),
	)
	return sub, nil
}

// Unsubscribe удаляет подписчика и закрывает его канал.
// Повторный вызов безопасен.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)
	subscribersGauge.Dec()

	h.logger.Debug("Подписчик отключён",
		slog.String("subscriber_id", sub.id),
		slog.Int("subscribers", len(h.subs)),
	)
}

// Broadcast сериализует payload один раз и ставит конверт в очередь
// каждого текущего подписчика. Не ждёт доставки.
func (h *Hub) Broadcast(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("сериализация события %s: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("сериализация конверта %s: %w", event, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subs {
		select {
		case sub.ch <- msg:
		default:
			droppedTotal.Inc()
			h.logger.Warn("Буфер подписчика переполнен, событие пропущено",
				slog.String("subscriber_id", id),
				slog.String("event", event),
			)
		}
	}
	broadcastsTotal.WithLabelValues(event).Inc()
	return nil
}

// Subscribers возвращает текущее количество подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close останавливает hub: закрывает каналы всех подписчиков
// и отклоняет новые подписки.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
		subscribersGauge.Dec()
	}
	h.logger.Info("Hub событий остановлен")
}
