package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

type CatalogRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewCatalogRepository(log *slog.Logger, pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{log: log, pool: pool}
}

func (r *CatalogRepository) ProductByID(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, kind, subscription, COALESCE(billing_interval,''), license_enabled,
			seller_id, shop_id, COALESCE(category_id,''), unit_amount_cents
		FROM products WHERE id=$1
	`, id).Scan(&p.ID, &p.Title, &p.Kind, &p.Subscription, &p.Interval, &p.LicenseEnabled,
		&p.SellerID, &p.ShopID, &p.CategoryID, &p.UnitAmountCents)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	return p, nil
}

func (r *CatalogRepository) CategoryByID(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, COALESCE(parent_id,''), commission_pct FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.ParentID, &c.CommissionPct)
	if err != nil {
		return domain.Category{}, fmt.Errorf("category %s: %w", id, err)
	}
	return c, nil
}

func (r *CatalogRepository) BuyerByID(ctx context.Context, id string) (domain.Buyer, error) {
	var b domain.Buyer
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, COALESCE(name,''), COALESCE(surname,''), COALESCE(phone,'') FROM users WHERE id=$1`, id).
		Scan(&b.ID, &b.Email, &b.Name, &b.Surname, &b.Phone)
	if err != nil {
		return domain.Buyer{}, fmt.Errorf("buyer %s: %w", id, err)
	}
	return b, nil
}

func (r *CatalogRepository) SellerByID(ctx context.Context, id string) (domain.Seller, error) {
	var s domain.Seller
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, u.email, COALESCE(u.name,''), s.balance FROM users u JOIN sellers s ON s.id = u.id WHERE u.id=$1`, id).
		Scan(&s.ID, &s.Email, &s.Name, &s.Balance)
	if err != nil {
		return domain.Seller{}, fmt.Errorf("seller %s: %w", id, err)
	}
	return s, nil
}

func (r *CatalogRepository) IncrementPromoUsage(ctx context.Context, code string, by int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE promo_codes SET used_count = used_count + $2 WHERE code=$1`, code, by)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("unknown promo code " + code)
	}
	return nil
}
