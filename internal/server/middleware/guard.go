package middleware

import (
	"log/slog"
	"net/http"
)

// FailGuard отвечает 503 на любой запрос, пока failed возвращает ошибку.
// Используется репликой каталога после расхождения состояния.
func FailGuard(logger *slog.Logger, failed func() error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := failed(); err != nil {
				logger.Debug("rejecting request on failed replica", slog.String("path", r.URL.Path))
				writeJSONError(w, http.StatusServiceUnavailable, "replica is out of service")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain применяет middleware так, что первый в списке оказывается внешним
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
