package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/bookshop/internal/domain/models"
)

// PaymentStorage хранит попытки оплаты. Живой (PENDENTE или APROVADO) может быть только одна на заказ
type PaymentStorage interface {
	CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) (*models.Payment, error)
	// FindLiveByOrderTx возвращает ErrPaymentNotFound, если живой попытки нет
	FindLiveByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Payment, error)
	UpdateResult(ctx context.Context, id int64, status models.PaymentStatus, reference, message string) (*models.Payment, error)
	// GetPaymentForUser возвращает платёж, только если заказ принадлежит пользователю
	GetPaymentForUser(ctx context.Context, id, userID int64) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error)
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

const paymentColumns = `p.id, p.order_id, p.amount, p.card_brand, p.card_last_digits, p.status, p.gateway_reference, p.message, p.created_at, p.updated_at`

func (r *paymentRepository) CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) (*models.Payment, error) {
	query := `INSERT INTO payments (order_id, amount, card_brand, card_last_digits, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	          RETURNING id, created_at, updated_at`
	created := *p
	err := tx.QueryRowContext(ctx, query, p.OrderID, p.Amount, p.CardBrand, p.CardLastDigits, string(p.Status)).
		Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return nil, ErrLivePaymentExists
		}
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return &created, nil
}

func (r *paymentRepository) FindLiveByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p
	          WHERE p.order_id = $1 AND p.status IN ('PENDENTE', 'APROVADO')
	          ORDER BY p.id DESC LIMIT 1`
	p, err := scanPayment(tx.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) UpdateResult(ctx context.Context, id int64, status models.PaymentStatus, reference, message string) (*models.Payment, error) {
	query := `UPDATE payments p
	          SET status = $1, gateway_reference = $2, message = $3, updated_at = NOW()
	          WHERE p.id = $4
	          RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, string(status), reference, message, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	return p, nil
}

func (r *paymentRepository) GetPaymentForUser(ctx context.Context, id, userID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p
	          JOIN orders o ON o.id = p.order_id
	          WHERE p.id = $1 AND o.user_id = $2`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.order_id = $1 ORDER BY p.id DESC`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func scanPayment(s scanner) (*models.Payment, error) {
	p := &models.Payment{}
	var (
		status          string
		brand, ref, msg sql.NullString
	)
	if err := s.Scan(&p.ID, &p.OrderID, &p.Amount, &brand, &p.CardLastDigits, &status, &ref, &msg, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	p.CardBrand = brand.String
	p.GatewayReference = ref.String
	p.Message = msg.String
	return p, nil
}
