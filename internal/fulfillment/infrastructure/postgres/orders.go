package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/application"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

type OrderRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOrderRepository(log *slog.Logger, pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{log: log, pool: pool}
}

// ClaimPaid is the exactly-once gate: a single conditional update that only
// matches while the fulfillment lock is unset. The loser of a concurrent
// race matches zero rows and gets claimed=false.
func (r *OrderRepository) ClaimPaid(ctx context.Context, id string, gw domain.GatewayBlock, paidAt time.Time) (domain.Order, bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status=$2, promo_applied=true, paid_at=$3,
			session_id=COALESCE(NULLIF($4,''), session_id),
			intent_id=COALESCE(NULLIF($5,''), intent_id),
			charge_id=COALESCE(NULLIF($6,''), charge_id),
			receipt_url=COALESCE(NULLIF($7,''), receipt_url),
			amount_total_cents=CASE WHEN $8 > 0 THEN $8 ELSE amount_total_cents END,
			updated_at=now()
		WHERE id=$1 AND promo_applied=false
	`, id, domain.StatusSucceeded, paidAt, gw.SessionID, gw.IntentID, gw.ChargeID, gw.ReceiptURL, gw.AmountTotalCents)
	if err != nil {
		return domain.Order{}, false, err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return domain.Order{}, false, err
		}
		if !exists {
			return domain.Order{}, false, application.ErrOrderNotFound
		}
		return domain.Order{}, false, nil
	}

	o, err := r.Get(ctx, id)
	if err != nil {
		return domain.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderRepository) MarkFailed(ctx context.Context, id string) error {
	return r.markTerminal(ctx, id, domain.StatusFailed)
}

func (r *OrderRepository) MarkCanceled(ctx context.Context, id string) error {
	return r.markTerminal(ctx, id, domain.StatusCanceled)
}

// markTerminal only moves orders still awaiting payment; re-applying a
// terminal-negative status to an already-moved order is a no-op.
func (r *OrderRepository) markTerminal(ctx context.Context, id string, status domain.OrderStatus) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`,
		id, status, domain.StatusRequiresPayment)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return application.ErrOrderNotFound
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, buyer_id, currency, total_amount, total_amount_cents, status,
			promo_applied, paid_at,
			COALESCE(session_id,''), COALESCE(intent_id,''), COALESCE(charge_id,''),
			COALESCE(receipt_url,''), amount_total_cents,
			COALESCE(crypto_reference,''), COALESCE(crypto_network,''), COALESCE(crypto_verification,''),
			created_at, updated_at
		FROM orders WHERE id=$1
	`, id).Scan(
		&o.ID, &o.BuyerID, &o.Currency, &o.TotalAmount, &o.TotalAmountCents, &o.Status,
		&o.PromoApplied, &o.PaidAt,
		&o.Gateway.SessionID, &o.Gateway.IntentID, &o.Gateway.ChargeID,
		&o.Gateway.ReceiptURL, &o.Gateway.AmountTotalCents,
		&o.Crypto.Reference, &o.Crypto.Network, &o.Crypto.Verification,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, application.ErrOrderNotFound
		}
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, title, unit_amount_cents, qty, seller_id, shop_id, COALESCE(promo_code,'')
		FROM order_items WHERE order_id=$1 ORDER BY position
	`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Title, &item.UnitAmountCents, &item.Qty, &item.SellerID, &item.ShopID, &item.PromoCode); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// Create inserts the order at checkout-intent time in requires_payment.
func (r *OrderRepository) Create(ctx context.Context, o domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, currency, total_amount, total_amount_cents, status, promo_applied, amount_total_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,false,0,$7,$8)
	`, o.ID, o.BuyerID, o.Currency, o.TotalAmount, o.TotalAmountCents, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, position, product_id, title, unit_amount_cents, qty, seller_id, shop_id, promo_code)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''))
		`, o.ID, i, item.ProductID, item.Title, item.UnitAmountCents, item.Qty, item.SellerID, item.ShopID, item.PromoCode)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
