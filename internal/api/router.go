package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jkwon/meridian/internal/api/handlers"
	"github.com/jkwon/meridian/pkg/logger"
)

// NewRouter configures the status routes.
func NewRouter(status *handlers.StatusHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/intent/latest", status.GetLatestIntent).Methods("GET")
	api.HandleFunc("/regime", status.GetRegime).Methods("GET")
	api.HandleFunc("/ledger", status.GetLedger).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "meridian-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"path":  r.URL.Path,
						"panic": err,
					}).Error("Handler panicked")
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
