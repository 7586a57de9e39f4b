package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linemk/bookshop/internal/lock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutKey(t *testing.T) {
	assert.Equal(t, "bookshop:checkout:42", lock.CheckoutKey(42))
}

func TestNoopLocker(t *testing.T) {
	var l lock.Locker = lock.NoopLocker{}
	unlock, err := l.Lock(context.Background(), "k")
	assert.NoError(t, err)
	unlock()

	// повторный захват не блокируется
	_, err = l.Lock(context.Background(), "k")
	assert.NoError(t, err)
}

func TestRedisLocker_Unavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := lock.NewRedisLocker(rdb, time.Second).Lock(ctx, lock.CheckoutKey(1))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, lock.ErrLocked), "connection failure is not a held lock")
}
