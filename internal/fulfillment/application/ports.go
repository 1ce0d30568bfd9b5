package application

import (
	"context"
	"errors"
	"time"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	// ClaimPaid performs the single atomic conditional update that sets
	// status=succeeded, the fulfillment lock, and paid_at. The boolean is
	// false when the lock was already held: the caller lost the race and
	// must perform no side effects.
	ClaimPaid(ctx context.Context, id string, gw domain.GatewayBlock, paidAt time.Time) (domain.Order, bool, error)
	MarkFailed(ctx context.Context, id string) error
	MarkCanceled(ctx context.Context, id string) error
}

type CatalogRepository interface {
	ProductByID(ctx context.Context, id string) (domain.Product, error)
	CategoryByID(ctx context.Context, id string) (domain.Category, error)
	BuyerByID(ctx context.Context, id string) (domain.Buyer, error)
	SellerByID(ctx context.Context, id string) (domain.Seller, error)
	IncrementPromoUsage(ctx context.Context, code string, by int) error
}

type LicenseRepository interface {
	Exists(ctx context.Context, orderID, productID string) (bool, error)
	// LatestIssued returns the most recent non-failed license for the pair,
	// or nil when none exists.
	LatestIssued(ctx context.Context, userID, productID string) (*domain.License, error)
	Save(ctx context.Context, lic domain.License) error
}

type PayoutRepository interface {
	Exists(ctx context.Context, orderID, productID, sellerID string) (bool, error)
	// SavePayout writes the payout row, the commission row, and the seller
	// balance credit in one transaction.
	SavePayout(ctx context.Context, p domain.SellerPayout, c domain.AdminCommission) error
}

type LicenseIssue struct {
	Name     string
	Surname  string
	Phone    string
	Email    string
	Product  string
	Duration int
	Unit     domain.IntervalUnit
}

// LicenseClient is the boundary to the external license service.
type LicenseClient interface {
	Issue(ctx context.Context, req LicenseIssue) (key string, expiresAt *time.Time, err error)
	Renew(ctx context.Context, key string, duration int, unit domain.IntervalUnit) (*time.Time, error)
}

// Notifier fires best-effort notifications. Failures are logged by callers
// and never roll back fulfillment.
type Notifier interface {
	OrderConfirmation(ctx context.Context, buyer domain.Buyer, order domain.Order) error
	SaleNotification(ctx context.Context, seller domain.Seller, order domain.Order, titles []string, subtotal float64) error
	LicenseIssued(ctx context.Context, buyer domain.Buyer, lic domain.License, productTitle string, renewal bool) error
	PaymentRejected(ctx context.Context, buyer domain.Buyer, order domain.Order, reason string) error
}

type SubscriptionRepository interface {
	// RecordPayment is idempotent on reference; false means already applied.
	RecordPayment(ctx context.Context, userID, plan, reference string, periodEnd time.Time) (bool, error)
	RecordFailure(ctx context.Context, userID, plan, reference, reason string) error
}

type EnrollmentRepository interface {
	// MarkPaid is idempotent on reference; false means already applied.
	MarkPaid(ctx context.Context, courseID, userID, reference string) (bool, error)
	MarkFailed(ctx context.Context, courseID, userID, reference string) error
}

type ManualPaymentRepository interface {
	Get(ctx context.Context, id string) (domain.ManualPayment, error)
	MarkVerified(ctx context.Context, id string) error
	MarkRejected(ctx context.Context, id, reason string) error
}
