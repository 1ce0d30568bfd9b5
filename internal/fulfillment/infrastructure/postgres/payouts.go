package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

type PayoutRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewPayoutRepository(log *slog.Logger, pool *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{log: log, pool: pool}
}

func (r *PayoutRepository) Exists(ctx context.Context, orderID, productID, sellerID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM seller_payouts WHERE order_id=$1 AND product_id=$2 AND seller_id=$3)`,
		orderID, productID, sellerID).Scan(&exists)
	return exists, err
}

// SavePayout writes the ledger rows and the seller balance credit in one
// transaction, so a crash cannot leave the ledger and the balance disagreeing.
func (r *PayoutRepository) SavePayout(ctx context.Context, p domain.SellerPayout, c domain.AdminCommission) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `
		INSERT INTO seller_payouts (id, order_id, product_id, seller_id, shop_id,
			gross_cents, commission_cents, net_cents,
			gross_amount, commission_amount, net_amount, commission_pct, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (order_id, product_id, seller_id) DO NOTHING
	`, p.ID, p.OrderID, p.ProductID, p.SellerID, p.ShopID,
		p.GrossCents, p.CommissionCents, p.NetCents,
		p.GrossAmount, p.CommissionAmount, p.NetAmount, p.CommissionPct, p.CreatedAt)
	if err != nil {
		return err
	}
	// a concurrent pass already wrote this ledger row; crediting the
	// balance again would double-pay the seller
	if ct.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO admin_commissions (id, order_id, product_id, seller_id, amount_cents, amount, commission_pct, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (order_id, product_id, seller_id) DO NOTHING
	`, c.ID, c.OrderID, c.ProductID, c.SellerID, c.AmountCents, c.Amount, c.CommissionPct, c.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE sellers SET balance = balance + $2 WHERE id=$1`,
		p.SellerID, p.NetAmount)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
