package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/linemk/bookshop/internal/config"
	"github.com/linemk/bookshop/internal/lock"
	"github.com/linemk/bookshop/internal/notify"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *sql.DB
	Redis     *redis.Client // nil, если redis не настроен
	Locker    lock.Locker
	Publisher notify.Publisher
}

// DSN собирает строку подключения к postgres
func DSN(db config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
	)
}

// NewApp создаёт новый экземпляр App: БД, блокировки оформления и публикацию событий
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", DSN(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
		Locker: lock.NoopLocker{},
	}

	if cfg.Redis.Address != "" {
		rdb, err := lock.NewClient(pingCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.Redis = rdb
		app.Locker = lock.NewRedisLocker(rdb, cfg.Redis.CheckoutLock)
	} else {
		log.Warn("redis is not configured, checkout relies on database row locks only")
	}

	publisher, err := notify.New(ctx, cfg.Notifier, log)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	app.Publisher = publisher

	return app, nil
}

// Close освобождает ресурсы в обратном порядке. Публикатор закрывается первым, чтобы выгрузить буфер
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Error("failed to close notifier", slog.Any("error", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis", slog.Any("error", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("failed to close database", slog.Any("error", err))
	}
}
