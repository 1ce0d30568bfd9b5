package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/money"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/domain"
)

const ProviderManualCrypto = "manual-crypto"

type manualCryptoPayload struct {
	PaymentID string            `json:"payment_id"`
	OrderID   string            `json:"order_id"`
	Status    string            `json:"status"`
	Amount    float64           `json:"amount"`
	Currency  string            `json:"currency"`
	Network   string            `json:"network"`
	TxID      string            `json:"txid"`
	Metadata  map[string]string `json:"metadata"`
}

// ManualCrypto normalizes operator-verified crypto transfer records. The
// record's verification status is set by a human, so the vocabulary is the
// admin screen's, not a gateway's.
type ManualCrypto struct{}

func NewManualCrypto() ManualCrypto { return ManualCrypto{} }

func (ManualCrypto) Provider() string { return ProviderManualCrypto }

func (a ManualCrypto) Normalize(raw []byte) (domain.PaymentEvent, error) {
	var p manualCryptoPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("manual-crypto payload: %w", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("manual-crypto payload: %w", err)
	}

	meta := map[string]string{}
	for k, v := range p.Metadata {
		meta[k] = v
	}
	if p.OrderID != "" {
		meta["order_id"] = p.OrderID
	}
	if p.Network != "" {
		meta["network"] = p.Network
	}
	if p.TxID != "" {
		meta["txid"] = p.TxID
	}
	if p.PaymentID != "" {
		meta["payment_id"] = p.PaymentID
	}

	return domain.PaymentEvent{
		Provider:    ProviderManualCrypto,
		Status:      manualCryptoStatus(p.Status),
		Feature:     deriveFeature(meta),
		Reference:   StableReference(ProviderManualCrypto, generic),
		Amount:      p.Amount,
		AmountCents: money.ToCents(p.Amount),
		Currency:    p.Currency,
		Metadata:    meta,
		Raw:         raw,
	}, nil
}

func manualCryptoStatus(s string) domain.Status {
	switch s {
	case "verified":
		return domain.StatusSuccess
	case "rejected":
		return domain.StatusFailed
	case "expired":
		return domain.StatusCanceled
	default:
		return domain.StatusPending
	}
}
