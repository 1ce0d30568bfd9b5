package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

type ManualPaymentRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewManualPaymentRepository(log *slog.Logger, pool *pgxpool.Pool) *ManualPaymentRepository {
	return &ManualPaymentRepository{log: log, pool: pool}
}

var ErrManualPaymentNotFound = errors.New("manual payment not found")

func (r *ManualPaymentRepository) Get(ctx context.Context, id string) (domain.ManualPayment, error) {
	var p domain.ManualPayment
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, amount, currency, COALESCE(network,''), COALESCE(txid,''), status, created_at
		FROM manual_payments WHERE id=$1
	`, id).Scan(&p.ID, &p.OrderID, &p.Amount, &p.Currency, &p.Network, &p.TxID, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ManualPayment{}, ErrManualPaymentNotFound
	}
	if err != nil {
		return domain.ManualPayment{}, err
	}
	return p, nil
}

func (r *ManualPaymentRepository) MarkVerified(ctx context.Context, id string) error {
	return r.mark(ctx, id, domain.ManualVerified, "")
}

func (r *ManualPaymentRepository) MarkRejected(ctx context.Context, id, reason string) error {
	return r.mark(ctx, id, domain.ManualRejected, reason)
}

func (r *ManualPaymentRepository) mark(ctx context.Context, id, status, reason string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE manual_payments SET status=$2, reject_reason=NULLIF($3,''), updated_at=now()
		WHERE id=$1 AND status=$4
	`, id, status, reason, domain.ManualPending)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("manual payment %s is not pending", id)
	}
	return nil
}
