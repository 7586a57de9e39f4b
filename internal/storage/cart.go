package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/bookshop/internal/domain/models"
)

// CartStorage описывает работу с корзиной. Строка корзины уникальна по (user_id, book_id)
type CartStorage interface {
	// UpsertItem добавляет книгу в корзину или увеличивает количество одним запросом
	UpsertItem(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.CartItem, error)
	SetQuantity(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error)
	DeleteItem(ctx context.Context, userID, bookID int64) (*models.CartItem, error)
	ClearByUser(ctx context.Context, userID int64) (int64, error)
	// LockByUserTx читает корзину с текущими ценами и блокирует её строки до конца транзакции
	LockByUserTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error)
	DeleteItemsTx(ctx context.Context, tx *sql.Tx, ids []int64) (int64, error)
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartItemColumns = `ci.id, ci.user_id, ci.book_id, b.title, b.price, ci.quantity, ci.created_at, ci.updated_at`

func (r *cartRepository) UpsertItem(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error) {
	query := `
		WITH ci AS (
			INSERT INTO cart_items (user_id, book_id, quantity, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (user_id, book_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING id, user_id, book_id, quantity, created_at, updated_at
		)
		SELECT ` + cartItemColumns + `
		FROM ci JOIN books b ON b.id = ci.book_id`
	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, bookID, qty))
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) ListByUser(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN books b ON b.id = ci.book_id
		WHERE ci.user_id = $1
		ORDER BY ci.id`
	return queryCartItems(ctx, r.db, query, userID)
}

func (r *cartRepository) SetQuantity(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error) {
	query := `
		WITH ci AS (
			UPDATE cart_items SET quantity = $3, updated_at = NOW()
			WHERE user_id = $1 AND book_id = $2
			RETURNING id, user_id, book_id, quantity, created_at, updated_at
		)
		SELECT ` + cartItemColumns + `
		FROM ci JOIN books b ON b.id = ci.book_id`
	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, bookID, qty))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, userID, bookID int64) (*models.CartItem, error) {
	query := `
		WITH ci AS (
			DELETE FROM cart_items
			WHERE user_id = $1 AND book_id = $2
			RETURNING id, user_id, book_id, quantity, created_at, updated_at
		)
		SELECT ` + cartItemColumns + `
		FROM ci JOIN books b ON b.id = ci.book_id`
	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, userID, bookID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to delete cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) ClearByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return res.RowsAffected()
}

func (r *cartRepository) LockByUserTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN books b ON b.id = ci.book_id
		WHERE ci.user_id = $1
		ORDER BY ci.id
		FOR UPDATE OF ci`
	return queryCartItems(ctx, tx, query, userID)
}

func (r *cartRepository) DeleteItemsTx(ctx context.Context, tx *sql.Tx, ids []int64) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart items: %w", err)
	}
	return res.RowsAffected()
}

func queryCartItems(ctx context.Context, q queryer, query string, args ...any) ([]*models.CartItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCartItem(s scanner) (*models.CartItem, error) {
	item := &models.CartItem{}
	if err := s.Scan(&item.ID, &item.UserID, &item.BookID, &item.BookTitle, &item.UnitPrice,
		&item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return item, nil
}
