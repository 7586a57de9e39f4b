package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/bookshop/internal/domain/models"
	"github.com/linemk/bookshop/internal/lock"
	"github.com/linemk/bookshop/internal/notify"
	"github.com/linemk/bookshop/internal/storage"
)

type CheckoutService interface {
	Finalize(ctx context.Context, userID int64) (*models.Order, error)
}

type checkoutService struct {
	log       *slog.Logger
	db        *sql.DB
	cartRepo  storage.CartStorage
	orderRepo storage.OrderStorage
	locker    lock.Locker
	publisher notify.Publisher
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, orderRepo storage.OrderStorage, locker lock.Locker, publisher notify.Publisher) CheckoutService {
	return &checkoutService{
		log:       log,
		db:        db,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		locker:    locker,
		publisher: publisher,
	}
}

// Finalize превращает корзину в заказ с зафиксированными ценами и очищает её.
// Всё происходит в одной транзакции: при любой ошибке корзина остаётся как была.
// Строки корзины блокируются FOR UPDATE, поэтому из одной корзины получается ровно один заказ
func (s *checkoutService) Finalize(ctx context.Context, userID int64) (*models.Order, error) {
	const op = "service.CheckoutService.Finalize"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout")

	unlock, err := s.locker.Lock(ctx, lock.CheckoutKey(userID))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			logger.Warn("checkout already in progress")
			return nil, fmt.Errorf("%s: %w", op, validationErr("checkout already in progress"))
		}
		logger.Error("failed to acquire checkout lock", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to acquire checkout lock: %w", op, err)
	}
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	lines, err := s.cartRepo.LockByUserTx(ctx, tx, userID)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to lock cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart: %w", op, err)
	}
	if len(lines) == 0 {
		rollback(logger, tx)
		logger.Info("cart is empty")
		return nil, fmt.Errorf("%s: %w", op, validationErr("cart is empty"))
	}

	order, err := s.orderRepo.CreateOrderTx(ctx, tx, userID, models.OrderPending)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		// цена берётся из каталога в момент оформления и дальше не меняется
		item, err := s.orderRepo.AddItemTx(ctx, tx, order.ID, line.BookID, line.Quantity, line.UnitPrice)
		if err != nil {
			rollback(logger, tx)
			logger.Error("failed to create order item", slog.Int64("bookID", line.BookID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		order.Items = append(order.Items, item)
		ids = append(ids, line.ID)
	}

	deleted, err := s.cartRepo.DeleteItemsTx(ctx, tx, ids)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to drain cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to drain cart: %w", op, err)
	}
	if deleted != int64(len(ids)) {
		rollback(logger, tx)
		logger.Error("cart changed during checkout", slog.Int64("deleted", deleted), slog.Int("expected", len(ids)))
		return nil, fmt.Errorf("%s: cart changed during checkout: deleted %d of %d lines", op, deleted, len(ids))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	total := order.Total()
	logger.Info("order created", slog.Int64("orderID", order.ID), slog.Int("items", len(order.Items)), slog.String("total", total.StringFixed(2)))

	s.notify(ctx, logger, order)
	return order, nil
}

func (s *checkoutService) notify(ctx context.Context, logger *slog.Logger, order *models.Order) {
	ev, err := notify.NewEvent(notify.EventPurchaseCompleted, order.UserID, order.ID, order.Total(), map[string]any{
		"items": order.Items,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn("failed to publish purchase event", slog.Int64("orderID", order.ID), slog.Any("error", err))
	}
}
