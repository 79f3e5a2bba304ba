package events

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"nhooyr.io/websocket"
)

// HandlerConfig — параметры WebSocket endpoint.
type HandlerConfig struct {
	// OriginPatterns — допустимые Origin; пусто или "*" отключает проверку
	OriginPatterns []string
	// WriteTimeout — таймаут записи одного сообщения
	WriteTimeout time.Duration
	// PingInterval — период ping для обнаружения мёртвых соединений
	PingInterval time.Duration
}

// Handler — GET /ws: поток событий hub для одного клиента.
type Handler struct {
	hub    *Hub
	cfg    HandlerConfig
	logger *slog.Logger
}

// NewHandler создаёт WebSocket handler.
func NewHandler(hub *Hub, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Handler{
		hub:    hub,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ws_handler")),
	}
}

// ServeHTTP принимает соединение и пересылает клиенту события до отключения.
// Входящие сообщения клиента игнорируются.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(h.cfg.OriginPatterns) == 0 || slices.Contains(h.cfg.OriginPatterns, "*") {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.cfg.OriginPatterns
	}

	// Таймауты http.Server не должны действовать на долгоживущее соединение.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	c, err := websocket.Accept(w, r, opts)
	if err != nil {
		// Accept уже записал ответ клиенту
		h.logger.Debug("Ошибка WebSocket handshake", slog.String("error", err.Error()))
		return
	}

	sub, err := h.hub.Subscribe()
	if err != nil {
		_ = c.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.Unsubscribe(sub)

	// CloseRead читает управляющие кадры (pong, close) в фоне;
	// ctx отменяется при отключении клиента.
	ctx := c.CloseRead(r.Context())

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close(websocket.StatusNormalClosure, "")
			return

		case msg, ok := <-sub.Messages():
			if !ok {
				_ = c.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := h.write(ctx, c, msg); err != nil {
				h.logger.Debug("Ошибка записи в WebSocket",
					slog.String("subscriber_id", sub.ID()),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := c.Ping(pctx)
			cancel()
			if err != nil {
				h.logger.Debug("Клиент не ответил на ping",
					slog.String("subscriber_id", sub.ID()),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}

// write отправляет одно текстовое сообщение с таймаутом.
func (h *Handler) write(ctx context.Context, c *websocket.Conn, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, msg)
}
