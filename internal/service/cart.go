package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/bookshop/internal/domain/models"
	"github.com/linemk/bookshop/internal/storage"
)

type CartService interface {
	Add(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error)
	List(ctx context.Context, userID int64) ([]*models.CartItem, error)
	Remove(ctx context.Context, userID, bookID int64) (*models.CartItem, error)
	SetQuantity(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error)
	Clear(ctx context.Context, userID int64) (int64, error)
}

type cartService struct {
	log      *slog.Logger
	bookRepo storage.BookStorage
	cartRepo storage.CartStorage
}

func NewCartService(log *slog.Logger, bookRepo storage.BookStorage, cartRepo storage.CartStorage) CartService {
	return &cartService{
		log:      log,
		bookRepo: bookRepo,
		cartRepo: cartRepo,
	}
}

// Add кладёт книгу в корзину. Если книга уже там, количество суммируется
func (s *cartService) Add(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error) {
	const op = "service.CartService.Add"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("bookID", bookID))

	if qty <= 0 {
		return nil, fmt.Errorf("%s: %w", op, validationErr("quantity must be positive"))
	}

	if _, err := s.bookRepo.GetBookByID(ctx, bookID); err != nil {
		if errors.Is(err, storage.ErrBookNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("book not found"))
		}
		logger.Error("failed to get book", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get book: %w", op, err)
	}

	item, err := s.cartRepo.UpsertItem(ctx, userID, bookID, qty)
	if err != nil {
		// книгу могли удалить из каталога между проверкой и вставкой
		if errors.Is(err, storage.ErrBookNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("book not found"))
		}
		logger.Error("failed to add cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to add cart item: %w", op, err)
	}

	logger.Info("cart item added", slog.Int("quantity", item.Quantity))
	return item, nil
}

func (s *cartService) List(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	const op = "service.CartService.List"
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list cart: %w", op, err)
	}
	return items, nil
}

func (s *cartService) Remove(ctx context.Context, userID, bookID int64) (*models.CartItem, error) {
	const op = "service.CartService.Remove"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("bookID", bookID))

	item, err := s.cartRepo.DeleteItem(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("cart item not found"))
		}
		logger.Error("failed to remove cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to remove cart item: %w", op, err)
	}

	logger.Info("cart item removed")
	return item, nil
}

func (s *cartService) SetQuantity(ctx context.Context, userID, bookID int64, qty int) (*models.CartItem, error) {
	const op = "service.CartService.SetQuantity"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("bookID", bookID))

	if qty <= 0 {
		return nil, fmt.Errorf("%s: %w", op, validationErr("quantity must be positive"))
	}

	item, err := s.cartRepo.SetQuantity(ctx, userID, bookID, qty)
	if err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("cart item not found"))
		}
		logger.Error("failed to update cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update cart item: %w", op, err)
	}
	return item, nil
}

// Clear идемпотентен: пустая корзина даёт 0
func (s *cartService) Clear(ctx context.Context, userID int64) (int64, error) {
	const op = "service.CartService.Clear"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	n, err := s.cartRepo.ClearByUser(ctx, userID)
	if err != nil {
		logger.Error("failed to clear cart", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	logger.Info("cart cleared", slog.Int64("removed", n))
	return n, nil
}
