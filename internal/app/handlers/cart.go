package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/bookshop/internal/service"
)

// AddCartItemRequest — тело POST /api/cart/items
type AddCartItemRequest struct {
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
	Quantity *int  `json:"quantity"` // не передано — одна книга
}

// SetQuantityRequest — тело PUT /api/cart/items/{bookID}
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartHandler обрабатывает GET /api/cart
func CartHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		items, err := cart.List(r.Context(), uid)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, items)
	}
}

// AddCartItemHandler обрабатывает POST /api/cart/items
func AddCartItemHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		var req AddCartItemRequest
		if !decodeJSON(w, r, logger, &req) {
			return
		}

		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		item, err := cart.Add(r.Context(), uid, req.BookID, qty)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, item)
	}
}

// SetCartItemHandler обрабатывает PUT /api/cart/items/{bookID}
func SetCartItemHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetCartItemHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		bookID, ok := pathID(w, r, "bookID")
		if !ok {
			return
		}
		var req SetQuantityRequest
		if !decodeJSON(w, r, logger, &req) {
			return
		}

		item, err := cart.SetQuantity(r.Context(), uid, bookID, req.Quantity)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, item)
	}
}

// RemoveCartItemHandler обрабатывает DELETE /api/cart/items/{bookID}
func RemoveCartItemHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		bookID, ok := pathID(w, r, "bookID")
		if !ok {
			return
		}

		item, err := cart.Remove(r.Context(), uid, bookID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, item)
	}
}

// ClearCartHandler обрабатывает DELETE /api/cart
func ClearCartHandler(log *slog.Logger, cart service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ClearCartHandler"
		logger := log.With(slog.String("op", op))

		uid, ok := userID(w, r, logger)
		if !ok {
			return
		}
		n, err := cart.Clear(r.Context(), uid)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]int64{"removed": n})
	}
}
