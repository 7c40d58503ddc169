package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.trai.ch/cloudbuilder/internal/core/domain"
)

const (
	maxBodyBytes = 32 << 20
	writeWait    = 5 * time.Second
)

func newRouter(metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get(domain.HealthPath, handleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, domain.MetricsPath, metrics)
	}
	return r
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  domain.ChunkSize,
		WriteBufferSize: domain.ChunkSize,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{OK: true, Data: "healthy"})
}

func writeJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), Response{OK: false, Error: domain.Reason(err, "internal error")})
}

// statusFor maps a domain error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
