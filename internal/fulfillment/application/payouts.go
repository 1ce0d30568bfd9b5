package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/money"
)

// DefaultCommissionPct applies when neither the product's category nor its
// parent category carries a commission percentage.
const DefaultCommissionPct = 20.0

// PayoutCalculator computes seller net and platform commission per order
// line and writes the ledger rows. All arithmetic is in integer cents.
type PayoutCalculator struct {
	log        *slog.Logger
	payouts    PayoutRepository
	catalog    CatalogRepository
	defaultPct float64
}

func NewPayoutCalculator(log *slog.Logger, payouts PayoutRepository, catalog CatalogRepository, defaultPct float64) *PayoutCalculator {
	if defaultPct <= 0 {
		defaultPct = DefaultCommissionPct
	}
	return &PayoutCalculator{log: log, payouts: payouts, catalog: catalog, defaultPct: defaultPct}
}

// EnsurePayouts writes one SellerPayout and one AdminCommission per line item
// of a succeeded order. Already-recorded lines are skipped; one line's
// failure does not block the others.
func (c *PayoutCalculator) EnsurePayouts(ctx context.Context, order domain.Order) error {
	if order.Status != domain.StatusSucceeded {
		c.log.Debug("skipping payouts for non-succeeded order", "order_id", order.ID, "status", order.Status)
		return nil
	}

	// commission rates resolved once per category for the scope of this
	// order; never shared across requests
	rates := map[string]float64{}

	for _, item := range order.Items {
		if err := c.ensureOne(ctx, order, item, rates); err != nil {
			c.log.Error("payout failed for line item", "order_id", order.ID, "product_id", item.ProductID, "err", err)
		}
	}
	return nil
}

func (c *PayoutCalculator) ensureOne(ctx context.Context, order domain.Order, item domain.OrderItem, rates map[string]float64) error {
	sellerID, shopID, categoryID := item.SellerID, item.ShopID, ""

	product, err := c.catalog.ProductByID(ctx, item.ProductID)
	if err == nil {
		categoryID = product.CategoryID
		if sellerID == "" {
			sellerID = product.SellerID
		}
		if shopID == "" {
			shopID = product.ShopID
		}
	} else {
		if sellerID == "" {
			return err
		}
		c.log.Warn("product lookup failed, using line-item seller and default commission",
			"order_id", order.ID, "product_id", item.ProductID, "err", err)
	}

	exists, err := c.payouts.Exists(ctx, order.ID, item.ProductID, sellerID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	pct := c.resolvePct(ctx, categoryID, rates)
	gross := item.UnitAmountCents * int64(item.Qty)
	commission := money.Percent(gross, pct)
	net := gross - commission

	now := time.Now().UTC()
	payout := domain.SellerPayout{
		ID:               uuid.NewString(),
		OrderID:          order.ID,
		ProductID:        item.ProductID,
		SellerID:         sellerID,
		ShopID:           shopID,
		GrossCents:       gross,
		CommissionCents:  commission,
		NetCents:         net,
		GrossAmount:      money.FromCents(gross),
		CommissionAmount: money.FromCents(commission),
		NetAmount:        money.FromCents(net),
		CommissionPct:    pct,
		CreatedAt:        now,
	}
	adminCut := domain.AdminCommission{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		ProductID:     item.ProductID,
		SellerID:      sellerID,
		AmountCents:   commission,
		Amount:        money.FromCents(commission),
		CommissionPct: pct,
		CreatedAt:     now,
	}
	return c.payouts.SavePayout(ctx, payout, adminCut)
}

// resolvePct walks the hierarchy: category pct, else parent category pct,
// else the platform default.
func (c *PayoutCalculator) resolvePct(ctx context.Context, categoryID string, rates map[string]float64) float64 {
	if categoryID == "" {
		return c.defaultPct
	}
	if pct, ok := rates[categoryID]; ok {
		return pct
	}

	pct := c.defaultPct
	cat, err := c.catalog.CategoryByID(ctx, categoryID)
	switch {
	case err != nil:
		c.log.Warn("category lookup failed, using default commission", "category_id", categoryID, "err", err)
	case cat.CommissionPct != nil:
		pct = *cat.CommissionPct
	case cat.ParentID != "":
		parent, err := c.catalog.CategoryByID(ctx, cat.ParentID)
		if err != nil {
			c.log.Warn("parent category lookup failed, using default commission", "category_id", cat.ParentID, "err", err)
		} else if parent.CommissionPct != nil {
			pct = *parent.CommissionPct
		}
	}

	rates[categoryID] = pct
	return pct
}
