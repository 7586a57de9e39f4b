package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/bookshop/internal/lib/card"
	"github.com/linemk/bookshop/internal/service"
)

// PayBatchRequest — тело POST /api/payments/batch
type PayBatchRequest struct {
	OrderIDs []int64      `json:"order_ids"`
	Card     card.Details `json:"card"`
}

// PayBatchResponse — результаты по каждому заказу в порядке запроса
type PayBatchResponse struct {
	Results []service.PaymentResult `json:"results"`
}

// PayHandler обрабатывает POST /api/payments/orders/{id}/card
func PayHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		// здесь только форма полей, Луна, срок и CVV сервис проверяет после заказа
		var req card.Details
		if !decodeBody(w, r, logger, &req) {
			return
		}
		if err := req.CheckShape(); err != nil {
			logger.Info("invalid request: card shape", slog.String("reason", err.Error()))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := payments.Pay(r.Context(), uid, orderID, req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, p)
	}
}

// PayBatchHandler обрабатывает POST /api/payments/batch
func PayBatchHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayBatchHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		var req PayBatchRequest
		if !decodeBody(w, r, logger, &req) {
			return
		}

		results, err := payments.PayMany(r.Context(), uid, req.OrderIDs, req.Card)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, PayBatchResponse{Results: results})
	}
}

// OrderPaymentsHandler обрабатывает GET /api/payments/orders/{id}
func OrderPaymentsHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderPaymentsHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		list, err := payments.ListForOrder(r.Context(), uid, orderID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

// PaymentHandler обрабатывает GET /api/payments/{id}
func PaymentHandler(log *slog.Logger, payments service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		paymentID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		p, err := payments.Get(r.Context(), uid, paymentID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, p)
	}
}
