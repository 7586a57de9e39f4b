package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/bookshop/internal/domain/models"
	"github.com/linemk/bookshop/internal/gateway"
	"github.com/linemk/bookshop/internal/lib/card"
	"github.com/linemk/bookshop/internal/notify"
	"github.com/linemk/bookshop/internal/storage"
)

// PaymentResult — итог оплаты одного заказа в пакетном режиме
type PaymentResult struct {
	OrderID   int64                `json:"order_id"`
	PaymentID int64                `json:"payment_id,omitempty"`
	Status    models.PaymentStatus `json:"status,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type PaymentService interface {
	Pay(ctx context.Context, userID, orderID int64, c card.Details) (*models.Payment, error)
	PayMany(ctx context.Context, userID int64, orderIDs []int64, c card.Details) ([]PaymentResult, error)
	Get(ctx context.Context, userID, paymentID int64) (*models.Payment, error)
	ListForOrder(ctx context.Context, userID, orderID int64) ([]*models.Payment, error)
}

const (
	resultAttempts   = 3
	resultRetryDelay = 50 * time.Millisecond
)

type paymentService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	paymentRepo storage.PaymentStorage
	gw          gateway.Authorizer
	publisher   notify.Publisher
	now         func() time.Time
}

func NewPaymentService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, paymentRepo storage.PaymentStorage, gw gateway.Authorizer, publisher notify.Publisher) PaymentService {
	return &paymentService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gw:          gw,
		publisher:   publisher,
		now:         time.Now,
	}
}

// Pay проводит оплату заказа картой через шлюз.
// Карта проверяется после заказа: чужой или пустой заказ важнее плохой карты.
// Платёж сначала сохраняется в PENDENTE и коммитится, затем шлюз переводит его в конечный статус
func (s *paymentService) Pay(ctx context.Context, userID, orderID int64, c card.Details) (*models.Payment, error) {
	return s.pay(ctx, userID, orderID, c, true)
}

// PayMany проверяет карту один раз и оплачивает заказы по очереди.
// Ошибка на одном заказе попадает в его результат и не останавливает остальные
func (s *paymentService) PayMany(ctx context.Context, userID int64, orderIDs []int64, c card.Details) ([]PaymentResult, error) {
	const op = "service.PaymentService.PayMany"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, validationErr("order_ids must not be empty"))
	}
	if err := c.Check(s.now()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, validationErr(err.Error()))
	}

	results := make([]PaymentResult, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		res := PaymentResult{OrderID: orderID}
		p, err := s.pay(ctx, userID, orderID, c, false)
		if err != nil {
			res.Error = Reason(err)
		} else {
			res.PaymentID = p.ID
			res.Status = p.Status
		}
		results = append(results, res)
	}

	logger.Info("batch payment finished", slog.Int("orders", len(orderIDs)))
	return results, nil
}

// pay оплачивает один заказ. checkCard=false, когда карта уже проверена вызывающим
func (s *paymentService) pay(ctx context.Context, userID, orderID int64, c card.Details, checkCard bool) (*models.Payment, error) {
	const op = "service.PaymentService.pay"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))
	logger.Info("starting payment")

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
	if order.Status == models.OrderCancelled {
		rollback(logger, tx)
		return nil, fmt.Errorf("%s: %w", op, validationErr("order is cancelled"))
	}

	amount := order.Total()
	if !amount.IsPositive() {
		rollback(logger, tx)
		return nil, fmt.Errorf("%s: %w", op, validationErr("order has no items"))
	}

	if checkCard {
		if err := c.Check(s.now()); err != nil {
			rollback(logger, tx)
			logger.Info("card rejected", slog.String("reason", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, validationErr(err.Error()))
		}
	}

	live, err := s.paymentRepo.FindLiveByOrderTx(ctx, tx, orderID)
	switch {
	case err == nil:
		rollback(logger, tx)
		return nil, fmt.Errorf("%s: %w", op, livePaymentErr(live.Status))
	case !errors.Is(err, storage.ErrPaymentNotFound):
		rollback(logger, tx)
		logger.Error("failed to check existing payments", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to check existing payments: %w", op, err)
	}

	payment, err := s.paymentRepo.CreatePaymentTx(ctx, tx, &models.Payment{
		OrderID:        orderID,
		Amount:         amount,
		CardBrand:      strings.ToLower(strings.TrimSpace(c.Brand)),
		CardLastDigits: card.Mask(c.Number),
		Status:         models.PaymentPending,
	})
	if err != nil {
		rollback(logger, tx)
		if errors.Is(err, storage.ErrLivePaymentExists) {
			return nil, fmt.Errorf("%s: %w", op, validationErr("payment already in progress"))
		}
		logger.Error("failed to create payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create payment: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	logger = logger.With(slog.Int64("paymentID", payment.ID))

	status, reference, message := models.PaymentFailed, "", ""
	res, err := s.gw.Authorize(ctx, gateway.Request{
		OrderID: orderID,
		Amount:  amount,
		Number:  card.Sanitize(c.Number),
		Holder:  c.Holder,
	})
	switch {
	case err != nil:
		logger.Error("gateway authorization failed", slog.Any("error", err))
		message = err.Error()
	case res.Approved:
		status, reference, message = models.PaymentApproved, res.Reference, res.Message
	default:
		status, reference, message = models.PaymentDeclined, res.Reference, res.Message
	}

	// контекст запроса мог истечь во время похода в шлюз, результат всё равно нужно сохранить
	payment, err = s.storeResult(context.WithoutCancel(ctx), logger, payment.ID, status, reference, message)
	if err != nil {
		logger.Error("failed to store payment result, payment left pending",
			slog.String("status", string(status)),
			slog.String("reference", reference),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%s: failed to store payment result: %w", op, err)
	}
	logger.Info("payment resolved", slog.String("status", string(payment.Status)))

	if payment.Status == models.PaymentApproved {
		s.confirmOrder(ctx, logger, order)
		s.notify(ctx, logger, order, payment)
	}
	return payment, nil
}

// storeResult повторяет запись результата шлюза: шлюз уже ответил, повторный поход в него недопустим
func (s *paymentService) storeResult(ctx context.Context, logger *slog.Logger, paymentID int64, status models.PaymentStatus, reference, message string) (*models.Payment, error) {
	var err error
	for attempt := 1; attempt <= resultAttempts; attempt++ {
		var p *models.Payment
		p, err = s.paymentRepo.UpdateResult(ctx, paymentID, status, reference, message)
		if err == nil {
			return p, nil
		}
		logger.Warn("failed to store payment result", slog.Int("attempt", attempt), slog.Any("error", err))
		if attempt < resultAttempts {
			time.Sleep(time.Duration(attempt) * resultRetryDelay)
		}
	}
	return nil, err
}

// confirmOrder переводит заказ в CONFIRMADO. Ошибка только логируется, платёж уже прошёл
func (s *paymentService) confirmOrder(ctx context.Context, logger *slog.Logger, order *models.Order) {
	ok, err := s.orderRepo.AdvanceStatus(ctx, order.ID, models.OrderPending, models.OrderConfirmed)
	if err != nil {
		logger.Error("failed to confirm order after payment", slog.Any("error", err))
		return
	}
	if !ok {
		logger.Warn("order not confirmed, status already changed")
		return
	}
	order.Status = models.OrderConfirmed
}

func (s *paymentService) notify(ctx context.Context, logger *slog.Logger, order *models.Order, payment *models.Payment) {
	ev, err := notify.NewEvent(notify.EventPaymentApproved, order.UserID, order.ID, payment.Amount, map[string]any{
		"payment_id": payment.ID,
		"reference":  payment.GatewayReference,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn("failed to publish payment event", slog.Any("error", err))
	}
}

func livePaymentErr(status models.PaymentStatus) error {
	if status == models.PaymentApproved {
		return validationErr("order already paid")
	}
	return validationErr("payment already in progress")
}

func (s *paymentService) Get(ctx context.Context, userID, paymentID int64) (*models.Payment, error) {
	const op = "service.PaymentService.Get"

	p, err := s.paymentRepo.GetPaymentForUser(ctx, paymentID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("payment not found"))
		}
		s.log.Error("failed to get payment", slog.String("op", op), slog.Int64("paymentID", paymentID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get payment: %w", op, err)
	}
	return p, nil
}

// ListForOrder — история попыток оплаты заказа, новые первыми
func (s *paymentService) ListForOrder(ctx context.Context, userID, orderID int64) ([]*models.Payment, error) {
	const op = "service.PaymentService.ListForOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, notFoundErr("order not found"))
	}

	payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		logger.Error("failed to list payments", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list payments: %w", op, err)
	}
	return payments, nil
}
