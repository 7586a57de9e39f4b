package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/bookshop/internal/domain/models"
)

// BookStorage — каталог только на чтение
type BookStorage interface {
	GetBookByID(ctx context.Context, id int64) (*models.Book, error)
}

type bookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) BookStorage {
	return &bookRepository{db: db}
}

func (r *bookRepository) GetBookByID(ctx context.Context, id int64) (*models.Book, error) {
	book := &models.Book{}
	row := r.db.QueryRowContext(ctx, "SELECT id, title, author, price, stock FROM books WHERE id = $1", id)
	if err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Price, &book.Stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}
