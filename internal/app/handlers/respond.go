package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/linemk/bookshop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/bookshop/internal/service"
)

var validate = validator.New()

// writeJSON пишет ответ с заданным статусом
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError переводит ошибку сервиса в HTTP-ответ. Детали внутренних ошибок остаются в логе
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		logger.Info("request rejected", slog.String("reason", service.Reason(err)))
		http.Error(w, service.Reason(err), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		logger.Info("resource not found", slog.String("reason", service.Reason(err)))
		http.Error(w, service.Reason(err), http.StatusNotFound)
	default:
		logger.Error("request failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// userID достаёт пользователя, которого положил JWT middleware
func userID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	id, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("userID not found in context")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

// pathID разбирает положительный числовой параметр пути
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

// decodeJSON читает и валидирует тело запроса
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if !decodeBody(w, r, logger, dst) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Info("invalid request: validation error", slog.Any("error", err))
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler обрабатывает GET /healthz
func HealthHandler(log *slog.Logger, db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.HealthHandler"
		logger := log.With(slog.String("op", op))

		if err := db.PingContext(r.Context()); err != nil {
			logger.Error("database is unavailable", slog.Any("error", err))
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}
