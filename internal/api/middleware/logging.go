// logging.go — журнал HTTP-запросов disasterwatch через slog.
// Маршрут нормализуется так же, как в метриках; WebSocket-соединения помечаются отдельно.
package middleware

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter — обёртка для перехвата статус-кода ответа.
// upgraded выставляется при hijack соединения (WebSocket на /ws).
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
	upgraded   bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, buf, err := http.NewResponseController(rw.ResponseWriter).Hijack()
	if err == nil {
		rw.statusCode = http.StatusSwitchingProtocols
		rw.upgraded = true
	}
	return conn, buf, err
}

// RequestLogger возвращает middleware журнала запросов к API записей о ЧС.
// route — нормализованный маршрут (как в метриках), по нему удобно
// группировать записи; для /ws пишется одна запись на всё время
// жизни соединения с websocket=true.
// 5xx — ERROR, 4xx — WARN, остальное — INFO.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("route", normalizePath(r.URL.Path)),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if wrapped.upgraded {
				attrs = append(attrs, slog.Bool("websocket", true))
			}
			if q := r.URL.RawQuery; q != "" {
				attrs = append(attrs, slog.String("query", q))
			}

			logger.LogAttrs(r.Context(), level, "Запрос к disasterwatch обработан", attrs...)
		})
	}
}
