package service_test

import (
	"context"
	"testing"

	"github.com/linemk/bookshop/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestCartService_AddMergesQuantity(t *testing.T) {
	books := newFakeBookRepo()
	svc := service.NewCartService(newTestLogger(), books, newFakeCartRepo(books))
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, 1, 2)
	assert.NoError(t, err)
	item, err := svc.Add(ctx, 1, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, 5, item.Quantity, "second add must merge into the same line")

	items, err := svc.List(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.True(t, price("50.00").Equal(items[0].Subtotal()))
}

func TestCartService_AddValidation(t *testing.T) {
	books := newFakeBookRepo()
	svc := service.NewCartService(newTestLogger(), books, newFakeCartRepo(books))
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, 1, 0)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Equal(t, "quantity must be positive", service.Reason(err))

	_, err = svc.Add(ctx, 1, 1, -1)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Add(ctx, 1, 404, 1)
	assert.ErrorIs(t, err, service.ErrNotFound, "unknown book")
}

func TestCartService_RemoveAndSetQuantity(t *testing.T) {
	books := newFakeBookRepo()
	svc := service.NewCartService(newTestLogger(), books, newFakeCartRepo(books))
	ctx := context.Background()

	_, err := svc.Remove(ctx, 1, 1)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.SetQuantity(ctx, 1, 1, 4)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Add(ctx, 1, 1, 1)
	assert.NoError(t, err)

	_, err = svc.SetQuantity(ctx, 1, 1, 0)
	assert.ErrorIs(t, err, service.ErrValidation)

	item, err := svc.SetQuantity(ctx, 1, 1, 4)
	assert.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)

	removed, err := svc.Remove(ctx, 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), removed.BookID)

	items, err := svc.List(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartService_ClearIsIdempotent(t *testing.T) {
	books := newFakeBookRepo()
	svc := service.NewCartService(newTestLogger(), books, newFakeCartRepo(books))
	ctx := context.Background()

	_, _ = svc.Add(ctx, 1, 1, 1)
	_, _ = svc.Add(ctx, 1, 2, 1)
	// чужая корзина не затрагивается
	_, _ = svc.Add(ctx, 2, 1, 1)

	n, err := svc.Clear(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.Clear(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n, "clearing an empty cart is not an error")

	items, err := svc.List(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
}
