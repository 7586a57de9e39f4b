package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linemk/bookshop/internal/domain/models"
	"github.com/linemk/bookshop/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	DefaultOrdersLimit = 50
	MaxOrdersLimit     = 200
	MaxRecentOrders    = 50
)

// OrderStats — сводка по заказам пользователя
type OrderStats struct {
	TotalOrders       int64            `json:"total_orders"`
	TotalSpent        decimal.Decimal  `json:"total_spent"`
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	AverageOrderValue decimal.Decimal  `json:"average_order_value"`
}

type OrderService interface {
	ListForUser(ctx context.Context, userID int64, status string, limit int) ([]*models.Order, error)
	Recent(ctx context.Context, userID int64, n int) ([]*models.Order, error)
	Get(ctx context.Context, userID, orderID int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, userID, orderID int64, newStatus string) (*models.Order, error)
	Statistics(ctx context.Context, userID int64) (*OrderStats, error)
}

type orderService struct {
	log       *slog.Logger
	db        *sql.DB
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:       log,
		db:        db,
		orderRepo: orderRepo,
	}
}

// ListForUser возвращает заказы по возрастанию id. limit=0 означает значение по умолчанию.
// Фильтр по статусу точный, без учёта регистра: неизвестный статус просто ничего не находит
func (s *orderService) ListForUser(ctx context.Context, userID int64, status string, limit int) ([]*models.Order, error) {
	const op = "service.OrderService.ListForUser"

	if limit == 0 {
		limit = DefaultOrdersLimit
	}
	if limit < 1 || limit > MaxOrdersLimit {
		return nil, fmt.Errorf("%s: %w", op, validationErr(fmt.Sprintf("limit must be between 1 and %d", MaxOrdersLimit)))
	}

	filter := storage.OrderFilter{
		Status: models.OrderStatus(strings.ToUpper(strings.TrimSpace(status))),
		Limit:  limit,
	}
	orders, err := s.orderRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}

// Recent — последние n заказов, новые первыми
func (s *orderService) Recent(ctx context.Context, userID int64, n int) ([]*models.Order, error) {
	const op = "service.OrderService.Recent"

	if n < 1 || n > MaxRecentOrders {
		return nil, fmt.Errorf("%s: %w", op, validationErr(fmt.Sprintf("n must be between 1 and %d", MaxRecentOrders)))
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID, storage.OrderFilter{Limit: n, Newest: true})
	if err != nil {
		s.log.Error("failed to list recent orders", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list recent orders: %w", op, err)
	}
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.Get"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	// чужой заказ выглядит так же, как несуществующий
	if order.UserID != userID {
		logger.Warn("order belongs to another user")
		return nil, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
	}
	return order, nil
}

// UpdateStatus — пользователь может только отменить заказ, и только пока он не доставлен
func (s *orderService) UpdateStatus(ctx context.Context, userID, orderID int64, newStatus string) (*models.Order, error) {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	target, ok := models.ParseOrderStatus(newStatus)
	if !ok || target != models.OrderCancelled {
		return nil, fmt.Errorf("%s: %w", op, validationErr("only CANCELADO status can be set"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		rollback(logger, tx)
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}
	if order.UserID != userID {
		rollback(logger, tx)
		logger.Warn("order belongs to another user")
		return nil, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
	}
	if !models.CanTransition(order.Status, target) {
		rollback(logger, tx)
		return nil, fmt.Errorf("%s: %w", op, validationErr(fmt.Sprintf("cannot change order status from %s to %s", order.Status, target)))
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, target); err != nil {
		rollback(logger, tx)
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order status updated", slog.String("from", string(order.Status)), slog.String("to", string(target)))
	order.Status = target
	return order, nil
}

// Statistics считает итоги по всем заказам пользователя независимо от статуса
func (s *orderService) Statistics(ctx context.Context, userID int64) (*OrderStats, error) {
	const op = "service.OrderService.Statistics"

	rows, err := s.orderRepo.StatsByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to load order stats", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to load order stats: %w", op, err)
	}

	stats := &OrderStats{
		TotalSpent:        decimal.Zero,
		OrdersByStatus:    map[string]int64{},
		AverageOrderValue: decimal.Zero,
	}
	for _, r := range rows {
		stats.TotalOrders += r.Count
		stats.TotalSpent = stats.TotalSpent.Add(r.Spent)
		stats.OrdersByStatus[string(r.Status)] += r.Count
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalSpent.Div(decimal.NewFromInt(stats.TotalOrders)).Round(2)
	}
	return stats, nil
}
