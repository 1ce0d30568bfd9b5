package domain

import "time"

type OrderStatus string

const (
	StatusRequiresPayment OrderStatus = "requires_payment"
	StatusSucceeded       OrderStatus = "succeeded"
	StatusCanceled        OrderStatus = "canceled"
	StatusFailed          OrderStatus = "failed"
)

// Order is the persisted purchase record. Created once at checkout-intent
// time in requires_payment and never deleted; succeeded is terminal.
// PromoApplied doubles as the fulfillment lock: the atomic claim sets it
// together with the status, so the money and license side effects run at
// most once no matter how many triggers race.
type Order struct {
	ID               string
	BuyerID          string
	Items            []OrderItem
	Currency         string
	TotalAmount      float64
	TotalAmountCents int64
	Status           OrderStatus
	PromoApplied     bool
	PaidAt           *time.Time
	Gateway          GatewayBlock
	Crypto           CryptoBlock
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderItem struct {
	ProductID       string
	Title           string
	UnitAmountCents int64
	Qty             int
	SellerID        string
	ShopID          string
	PromoCode       string
}

// GatewayBlock correlates the order with the card gateway.
type GatewayBlock struct {
	SessionID        string
	IntentID         string
	ChargeID         string
	ReceiptURL       string
	AmountTotalCents int64
}

// CryptoBlock tracks a manually-verified crypto transfer.
type CryptoBlock struct {
	Reference    string
	Network      string
	Verification string
}

func NewOrder(id, buyerID, currency string, items []OrderItem) Order {
	var total int64
	for _, item := range items {
		total += int64(item.Qty) * item.UnitAmountCents
	}
	now := time.Now().UTC()
	return Order{
		ID:               id,
		BuyerID:          buyerID,
		Items:            items,
		Currency:         currency,
		TotalAmount:      float64(total) / 100,
		TotalAmountCents: total,
		Status:           StatusRequiresPayment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
