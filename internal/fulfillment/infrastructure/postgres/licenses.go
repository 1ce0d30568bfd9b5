package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

type LicenseRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewLicenseRepository(log *slog.Logger, pool *pgxpool.Pool) *LicenseRepository {
	return &LicenseRepository{log: log, pool: pool}
}

func (r *LicenseRepository) Exists(ctx context.Context, orderID, productID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM licenses WHERE order_id=$1 AND product_id=$2)`,
		orderID, productID).Scan(&exists)
	return exists, err
}

func (r *LicenseRepository) LatestIssued(ctx context.Context, userID, productID string) (*domain.License, error) {
	var lic domain.License
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, product_id, user_id, status, license_key, expires_at, COALESCE(last_error,''), created_at
		FROM licenses
		WHERE user_id=$1 AND product_id=$2 AND status IN ($3,$4)
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, productID, domain.LicenseIssued, domain.LicenseRenewed).Scan(
		&lic.ID, &lic.OrderID, &lic.ProductID, &lic.UserID, &lic.Status,
		&lic.Key, &lic.ExpiresAt, &lic.LastError, &lic.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lic, nil
}

func (r *LicenseRepository) Save(ctx context.Context, lic domain.License) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO licenses (id, order_id, product_id, user_id, status, license_key, expires_at, last_error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9)
		ON CONFLICT (order_id, product_id) DO NOTHING
	`, lic.ID, lic.OrderID, lic.ProductID, lic.UserID, lic.Status, lic.Key, lic.ExpiresAt, lic.LastError, lic.CreatedAt)
	return err
}
