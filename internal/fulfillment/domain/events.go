package domain

// Notification payloads relayed through the outbox to the notification topic.

type OrderConfirmationEvent struct {
	OrderID    string  `json:"order_id"`
	BuyerEmail string  `json:"buyer_email"`
	BuyerName  string  `json:"buyer_name"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
}

type SaleNotificationEvent struct {
	OrderID     string   `json:"order_id"`
	SellerID    string   `json:"seller_id"`
	SellerEmail string   `json:"seller_email"`
	Titles      []string `json:"titles"`
	NetAmount   float64  `json:"net_amount"`
	Currency    string   `json:"currency"`
}

type LicenseIssuedEvent struct {
	OrderID      string `json:"order_id"`
	BuyerEmail   string `json:"buyer_email"`
	ProductTitle string `json:"product_title"`
	LicenseKey   string `json:"license_key"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	Renewal      bool   `json:"renewal"`
}

type PaymentRejectedEvent struct {
	OrderID    string `json:"order_id"`
	BuyerEmail string `json:"buyer_email"`
	Reason     string `json:"reason"`
}
