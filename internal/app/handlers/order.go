package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/bookshop/internal/service"
)

// UpdateStatusRequest — тело PUT /api/orders/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CheckoutHandler обрабатывает POST /api/orders/checkout
func CheckoutHandler(log *slog.Logger, checkout service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		order, err := checkout.Finalize(r.Context(), uid)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, order)
	}
}

// OrdersHandler обрабатывает GET /api/orders?status=&limit=
func OrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrdersHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}

		q := r.URL.Query()
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
			// 0 в запросе — это ошибка, а не значение по умолчанию
			if limit == 0 {
				http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
				return
			}
		}

		list, err := orders.ListForUser(r.Context(), uid, q.Get("status"), limit)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

// RecentOrdersHandler обрабатывает GET /api/orders/recent/{n}
func RecentOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RecentOrdersHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		n, ok := pathID(w, r, "n")
		if !ok {
			return
		}

		list, err := orders.Recent(r.Context(), uid, int(n))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

// OrderStatsHandler обрабатывает GET /api/orders/stats
func OrderStatsHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderStatsHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		stats, err := orders.Statistics(r.Context(), uid)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, stats)
	}
}

// OrderHandler обрабатывает GET /api/orders/{id}
func OrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		order, err := orders.Get(r.Context(), uid, orderID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}

// OrderStatusHandler обрабатывает PUT /api/orders/{id}/status
func OrderStatusHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderStatusHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decodeJSON(w, r, logger, &req) {
			return
		}

		order, err := orders.UpdateStatus(r.Context(), uid, orderID, req.Status)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}
