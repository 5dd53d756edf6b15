package middleware

import (
	"net/http"
	"strconv"
	"time"

	"chatdesk/internal/logger"
	"chatdesk/internal/metrics"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		elapsed := time.Since(start)
		route := routeTemplate(r)
		metrics.HTTPDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(lrw.statusCode)).
			Observe(elapsed.Seconds())

		// The query string is left out: it may carry a token.
		logger.WithCtx(r.Context()).Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", elapsed),
		)
	})
}

func routeTemplate(r *http.Request) string {
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
