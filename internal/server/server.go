// Пакет server — HTTP-сервер disasterwatch с graceful shutdown.
// REST API регистрируется через contract.HandlerWithOptions, WebSocket — на /ws.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/bigkaa/disasterwatch/internal/api/contract"
	apierrors "github.com/bigkaa/disasterwatch/internal/api/errors"
	"github.com/bigkaa/disasterwatch/internal/api/middleware"
	"github.com/bigkaa/disasterwatch/internal/config"
)

// Server — HTTP-сервер disasterwatch.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами и middleware.
// handler — реализация contract.ServerInterface (APIHandler),
// ws — обработчик GET /ws,
// onShutdown — функции, вызываемые в начале graceful shutdown
// (например, закрытие hub, чтобы WebSocket-клиенты получили close frame).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler contract.ServerInterface,
	ws http.Handler,
	onShutdown ...func(),
) *Server {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.Handler(corsOptions(cfg.CORSOrigins)))
	if cfg.RateLimitPerMinute > 0 {
		router.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}

	// Все REST маршруты через HandlerWithOptions (oapi-codegen chi-server).
	// Ошибки привязки параметров отдаются в едином JSON-формате.
	contract.HandlerWithOptions(handler, contract.ChiServerOptions{
		BaseRouter: router,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			apierrors.ValidationError(w, err.Error())
		},
	})

	if ws != nil {
		router.Method(http.MethodGet, "/ws", ws)
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, "Маршрут не найден: "+r.URL.Path)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, apierrors.CodeValidationError,
			"Метод не поддерживается: "+r.Method)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	for _, fn := range onShutdown {
		srv.RegisterOnShutdown(fn)
	}

	return &Server{
		httpServer: srv,
		router:     router,
		logger:     logger,
		cfg:        cfg,
	}
}

// Handler возвращает корневой http.Handler (для httptest).
func (s *Server) Handler() http.Handler {
	return s.router
}

// corsOptions собирает параметры CORS. Пустой список или "*" — любой Origin.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		opts.AllowedOrigins = []string{"*"}
	}
	return opts
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
