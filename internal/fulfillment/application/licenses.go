package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

// lifetimeYears is the duration sentinel sent to the license service for
// one-time purchases. No expiry is persisted for these licenses.
const lifetimeYears = 99

// LicenseOrchestrator decides issue vs renew per order line, calls the
// external license service, and persists the outcome. Each line is handled
// independently: one failure never aborts the others.
type LicenseOrchestrator struct {
	log      *slog.Logger
	licenses LicenseRepository
	catalog  CatalogRepository
	client   LicenseClient
	notifier Notifier
	now      func() time.Time
}

func NewLicenseOrchestrator(
	log *slog.Logger,
	licenses LicenseRepository,
	catalog CatalogRepository,
	client LicenseClient,
	notifier Notifier,
) *LicenseOrchestrator {
	return &LicenseOrchestrator{
		log:      log,
		licenses: licenses,
		catalog:  catalog,
		client:   client,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnsureLicenses issues or renews licenses for every licensable line item of
// the order. Returns whether any license was issued or renewed.
func (o *LicenseOrchestrator) EnsureLicenses(ctx context.Context, order domain.Order) (bool, error) {
	anyIssued := false
	for _, item := range order.Items {
		exists, err := o.licenses.Exists(ctx, order.ID, item.ProductID)
		if err != nil {
			o.log.Error("license existence check failed", "order_id", order.ID, "product_id", item.ProductID, "err", err)
			continue
		}
		if exists {
			continue
		}

		product, err := o.catalog.ProductByID(ctx, item.ProductID)
		if err != nil {
			o.log.Error("product lookup failed", "order_id", order.ID, "product_id", item.ProductID, "err", err)
			continue
		}
		if !product.Licensable() {
			continue
		}

		if o.ensureOne(ctx, order, item, product) {
			anyIssued = true
		}
	}
	return anyIssued, nil
}

func (o *LicenseOrchestrator) ensureOne(ctx context.Context, order domain.Order, item domain.OrderItem, product domain.Product) bool {
	duration, unit, lifetime := licenseDuration(product)

	prev, err := o.licenses.LatestIssued(ctx, order.BuyerID, item.ProductID)
	if err != nil {
		o.log.Error("previous license lookup failed", "order_id", order.ID, "product_id", item.ProductID, "err", err)
		return false
	}

	buyer, err := o.catalog.BuyerByID(ctx, order.BuyerID)
	if err != nil {
		o.log.Error("buyer lookup failed", "order_id", order.ID, "err", err)
		return false
	}

	var lic domain.License
	if prev != nil && product.Subscription {
		lic = o.renew(ctx, order, item, *prev, duration, unit)
	} else {
		lic = o.issue(ctx, order, item, product, buyer, duration, unit, lifetime)
	}

	if err := o.licenses.Save(ctx, lic); err != nil {
		o.log.Error("license persist failed", "order_id", order.ID, "product_id", item.ProductID, "err", err)
		return false
	}
	if lic.Status == domain.LicenseFailed {
		return false
	}

	if err := o.notifier.LicenseIssued(ctx, buyer, lic, item.Title, lic.Status == domain.LicenseRenewed); err != nil {
		o.log.Error("license notification failed", "order_id", order.ID, "product_id", item.ProductID, "err", err)
	}
	return true
}

func (o *LicenseOrchestrator) renew(ctx context.Context, order domain.Order, item domain.OrderItem, prev domain.License, duration int, unit domain.IntervalUnit) domain.License {
	lic := newLicenseRow(order, item, prev.Key)

	expiresAt, err := o.client.Renew(ctx, prev.Key, duration, unit)
	if err != nil {
		o.log.Error("license renew failed", "order_id", order.ID, "product_id", item.ProductID, "err", err)
		lic.Status = domain.LicenseFailed
		lic.LastError = err.Error()
		return lic
	}

	if expiresAt == nil {
		// service returned no explicit expiry: extend from whichever is
		// later, the previous expiry or now
		base := o.now()
		if prev.ExpiresAt != nil && prev.ExpiresAt.After(base) {
			base = *prev.ExpiresAt
		}
		e := domain.AddInterval(base, duration, unit)
		expiresAt = &e
	}

	lic.Status = domain.LicenseRenewed
	lic.ExpiresAt = expiresAt
	return lic
}

func (o *LicenseOrchestrator) issue(ctx context.Context, order domain.Order, item domain.OrderItem, product domain.Product, buyer domain.Buyer, duration int, unit domain.IntervalUnit, lifetime bool) domain.License {
	lic := newLicenseRow(order, item, "")

	// the license service rejects requests with missing identity fields;
	// fail hard instead of defaulting them
	if buyer.Name == "" || buyer.Surname == "" || buyer.Phone == "" {
		o.log.Error("license issue blocked: incomplete buyer identity", "order_id", order.ID, "buyer_id", buyer.ID)
		lic.Status = domain.LicenseFailed
		lic.LastError = "incomplete buyer identity: name, surname and phone are required"
		return lic
	}

	key, expiresAt, err := o.client.Issue(ctx, LicenseIssue{
		Name:     buyer.Name,
		Surname:  buyer.Surname,
		Phone:    buyer.Phone,
		Email:    buyer.Email,
		Product:  product.Title,
		Duration: duration,
		Unit:     unit,
	})
	if err != nil {
		o.log.Error("license issue failed", "order_id", order.ID, "product_id", item.ProductID, "err", err)
		lic.Status = domain.LicenseFailed
		lic.LastError = err.Error()
		return lic
	}

	lic.Status = domain.LicenseIssued
	lic.Key = key
	if !lifetime {
		lic.ExpiresAt = expiresAt
	}
	return lic
}

func newLicenseRow(order domain.Order, item domain.OrderItem, key string) domain.License {
	return domain.License{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		ProductID: item.ProductID,
		UserID:    order.BuyerID,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}
}

// licenseDuration computes the validity period for a product: one billing
// interval for subscriptions, the lifetime sentinel otherwise.
func licenseDuration(p domain.Product) (int, domain.IntervalUnit, bool) {
	if p.Subscription {
		unit := p.Interval
		if unit == "" {
			unit = domain.IntervalMonth
		}
		return 1, unit, false
	}
	return lifetimeYears, domain.IntervalYear, true
}
