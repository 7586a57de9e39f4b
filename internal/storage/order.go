package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/linemk/bookshop/internal/domain/models"
	"github.com/shopspring/decimal"
)

// OrderFilter — параметры выборки заказов пользователя
type OrderFilter struct {
	Status models.OrderStatus // пустой — без фильтра
	Limit  int                // 0 — без ограничения
	Newest bool               // сортировка по id по убыванию
}

// StatusStat — агрегат по одному статусу заказов
type StatusStat struct {
	Status models.OrderStatus
	Count  int64
	Spent  decimal.Decimal
}

// OrderStorage описывает методы для работы с заказами и их позициями
type OrderStorage interface {
	CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, status models.OrderStatus) (*models.Order, error)
	AddItemTx(ctx context.Context, tx *sql.Tx, orderID, bookID int64, qty int, unitPrice decimal.Decimal) (*models.OrderItem, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// LockOrderByIDTx читает заказ с позициями и блокирует строку заказа (FOR UPDATE)
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	ListByUser(ctx context.Context, userID int64, f OrderFilter) ([]*models.Order, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error
	// AdvanceStatus меняет статус, только если текущий равен from. false — заказ уже в другом статусе
	AdvanceStatus(ctx context.Context, id int64, from, to models.OrderStatus) (bool, error)
	StatsByUser(ctx context.Context, userID int64) ([]StatusStat, error)
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, status models.OrderStatus) (*models.Order, error) {
	order := &models.Order{UserID: userID, Status: status, Items: []*models.OrderItem{}}
	query := `INSERT INTO orders (user_id, status, created_at, updated_at)
	          VALUES ($1, $2, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	if err := tx.QueryRowContext(ctx, query, userID, string(status)).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) AddItemTx(ctx context.Context, tx *sql.Tx, orderID, bookID int64, qty int, unitPrice decimal.Decimal) (*models.OrderItem, error) {
	item := &models.OrderItem{OrderID: orderID, BookID: bookID, Quantity: qty, UnitPrice: unitPrice}
	query := `INSERT INTO order_items (order_id, book_id, quantity, unit_price)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	if err := tx.QueryRowContext(ctx, query, orderID, bookID, qty, unitPrice).Scan(&item.ID); err != nil {
		return nil, fmt.Errorf("failed to create order item: %w", err)
	}
	return item, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return getOrder(ctx, r.db, "SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id = $1", id)
}

func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return getOrder(ctx, tx, "SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, f OrderFilter) ([]*models.Order, error) {
	var (
		b    strings.Builder
		args = []any{userID}
	)
	b.WriteString("SELECT id, user_id, status, created_at, updated_at FROM orders WHERE user_id = $1")
	if f.Status != "" {
		args = append(args, string(f.Status))
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}
	if f.Newest {
		b.WriteString(" ORDER BY id DESC")
	} else {
		b.WriteString(" ORDER BY id ASC")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) AdvanceStatus(ctx context.Context, id int64, from, to models.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to advance order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StatsByUser считает заказы и сумму по каждому статусу. Заказ без позиций даёт сумму 0
func (r *orderRepository) StatsByUser(ctx context.Context, userID int64) ([]StatusStat, error) {
	query := `
		SELECT o.status, COUNT(DISTINCT o.id), COALESCE(SUM(oi.quantity * oi.unit_price), 0)
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.user_id = $1
		GROUP BY o.status
		ORDER BY o.status`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []StatusStat
	for rows.Next() {
		var (
			st     StatusStat
			status string
		)
		if err := rows.Scan(&status, &st.Count, &st.Spent); err != nil {
			return nil, err
		}
		st.Status = models.OrderStatus(status)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func getOrder(ctx context.Context, q queryer, query string, id int64) (*models.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := attachItems(ctx, q, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(s scanner) (*models.Order, error) {
	order := &models.Order{Items: []*models.OrderItem{}}
	var status string
	if err := s.Scan(&order.ID, &order.UserID, &status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)
	return order, nil
}

// attachItems подгружает позиции сразу для всех заказов одним запросом
func attachItems(ctx context.Context, q queryer, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	rows, err := q.QueryContext(ctx,
		"SELECT id, order_id, book_id, quantity, unit_price FROM order_items WHERE order_id = ANY($1) ORDER BY id",
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.BookID, &item.Quantity, &item.UnitPrice); err != nil {
			return err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}
