package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/linemk/bookshop/internal/app"
	"github.com/linemk/bookshop/internal/app/handlers"
	"github.com/linemk/bookshop/internal/config"
	"github.com/linemk/bookshop/internal/gateway"
	"github.com/linemk/bookshop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/bookshop/internal/lib/logger"
	"github.com/linemk/bookshop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/bookshop/internal/service"
	"github.com/linemk/bookshop/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// загружаем объект приложения: конфиг, БД, redis, публикация событий
	application, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	router := newRouter(application)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}

func newRouter(application *app.App) http.Handler {
	log := application.Logger

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	bookRepo := storage.NewBookRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	paymentRepo := storage.NewPaymentRepository(application.DB)

	cartService := service.NewCartService(log, bookRepo, cartRepo)
	checkoutService := service.NewCheckoutService(log, application.DB, cartRepo, orderRepo, application.Locker, application.Publisher)
	orderService := service.NewOrderService(log, application.DB, orderRepo)
	paymentService := service.NewPaymentService(log, application.DB, orderRepo, paymentRepo, gateway.NewMock(), application.Publisher)

	router.Get("/healthz", handlers.HealthHandler(log, application.DB))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(log, application.Config.JWT.Secret))

		// корзина
		r.Get("/api/cart", handlers.CartHandler(log, cartService))
		r.Delete("/api/cart", handlers.ClearCartHandler(log, cartService))
		r.Post("/api/cart/items", handlers.AddCartItemHandler(log, cartService))
		r.Put("/api/cart/items/{bookID}", handlers.SetCartItemHandler(log, cartService))
		r.Delete("/api/cart/items/{bookID}", handlers.RemoveCartItemHandler(log, cartService))

		// заказы
		r.Post("/api/orders/checkout", handlers.CheckoutHandler(log, checkoutService))
		r.Get("/api/orders", handlers.OrdersHandler(log, orderService))
		r.Get("/api/orders/recent/{n}", handlers.RecentOrdersHandler(log, orderService))
		r.Get("/api/orders/stats", handlers.OrderStatsHandler(log, orderService))
		r.Get("/api/orders/{id}", handlers.OrderHandler(log, orderService))
		r.Put("/api/orders/{id}/status", handlers.OrderStatusHandler(log, orderService))

		// оплата
		r.Post("/api/payments/orders/{id}/card", handlers.PayHandler(log, paymentService))
		r.Get("/api/payments/orders/{id}", handlers.OrderPaymentsHandler(log, paymentService))
		r.Post("/api/payments/batch", handlers.PayBatchHandler(log, paymentService))
		r.Get("/api/payments/{id}", handlers.PaymentHandler(log, paymentService))
	})

	return router
}
