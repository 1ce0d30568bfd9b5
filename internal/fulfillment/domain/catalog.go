package domain

import "time"

type ProductKind string

const (
	KindStandard ProductKind = "standard"
	KindSoftware ProductKind = "software"
)

type Product struct {
	ID             string
	Title          string
	Kind           ProductKind
	Subscription   bool
	Interval       IntervalUnit
	LicenseEnabled bool
	SellerID       string
	ShopID         string
	CategoryID     string
	UnitAmountCents int64
}

// Licensable reports whether a purchase of this product carries a license:
// software products that either bill as a subscription or are explicitly
// license-bearing.
func (p Product) Licensable() bool {
	return p.Kind == KindSoftware && (p.Subscription || p.LicenseEnabled)
}

type Category struct {
	ID            string
	ParentID      string
	CommissionPct *float64
}

type Buyer struct {
	ID      string
	Email   string
	Name    string
	Surname string
	Phone   string
}

type Seller struct {
	ID      string
	Email   string
	Name    string
	Balance float64
}

// ManualPayment is a pending crypto transfer awaiting operator verification.
type ManualPayment struct {
	ID        string
	OrderID   string
	Amount    float64
	Currency  string
	Network   string
	TxID      string
	Status    string
	CreatedAt time.Time
}

const (
	ManualPending  = "pending"
	ManualVerified = "verified"
	ManualRejected = "rejected"
)
