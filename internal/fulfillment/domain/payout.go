package domain

import "time"

// SellerPayout is the append-only ledger row crediting a seller for one order
// line. Unique per (order, product, seller). Amounts are stored in both
// integer cents and major units.
type SellerPayout struct {
	ID               string
	OrderID          string
	ProductID        string
	SellerID         string
	ShopID           string
	GrossCents       int64
	CommissionCents  int64
	NetCents         int64
	GrossAmount      float64
	CommissionAmount float64
	NetAmount        float64
	CommissionPct    float64
	CreatedAt        time.Time
}

// AdminCommission records the platform's cut for the same line.
type AdminCommission struct {
	ID            string
	OrderID       string
	ProductID     string
	SellerID      string
	AmountCents   int64
	Amount        float64
	CommissionPct float64
	CreatedAt     time.Time
}
