package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrLivePaymentExists = errors.New("order already has a pending or approved payment")
)

// коды ошибок postgres, на которые реагируем
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// queryer — общее у *sql.DB и *sql.Tx, чтобы читать одинаково в транзакции и без
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
