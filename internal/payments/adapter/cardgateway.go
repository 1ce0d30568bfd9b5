package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/money"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/domain"
)

const ProviderCardGateway = "card-gateway"

// Card-gateway event types of interest. Anything unmapped normalizes to
// pending so a burst of unrelated gateway chatter never flips an order.
const (
	evCheckoutCompleted = "checkout.session.completed"
	evCheckoutExpired   = "checkout.session.expired"
	evPaymentSucceeded  = "payment_intent.succeeded"
	evPaymentFailed     = "payment_intent.payment_failed"
	evPaymentCanceled   = "payment_intent.canceled"
)

type cardGatewayEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object cardGatewayObject `json:"object"`
	} `json:"data"`
}

type cardGatewayObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	LatestCharge  string            `json:"latest_charge"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	ReceiptURL    string            `json:"receipt_url"`
	Metadata      map[string]string `json:"metadata"`
}

type CardGateway struct{}

func NewCardGateway() CardGateway { return CardGateway{} }

func (CardGateway) Provider() string { return ProviderCardGateway }

func (a CardGateway) Normalize(raw []byte) (domain.PaymentEvent, error) {
	var env cardGatewayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("card-gateway payload: %w", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("card-gateway payload: %w", err)
	}

	obj := env.Data.Object
	meta := map[string]string{}
	for k, v := range obj.Metadata {
		meta[k] = v
	}
	if obj.ID != "" {
		meta["session_id"] = obj.ID
	}
	if obj.PaymentIntent != "" {
		meta["payment_intent"] = obj.PaymentIntent
	}
	if obj.LatestCharge != "" {
		meta["charge_id"] = obj.LatestCharge
	}
	if obj.ReceiptURL != "" {
		meta["receipt_url"] = obj.ReceiptURL
	}

	return domain.PaymentEvent{
		Provider:    ProviderCardGateway,
		Status:      cardGatewayStatus(env.Type),
		Feature:     deriveFeature(meta),
		Reference:   StableReference(ProviderCardGateway, generic),
		Amount:      money.FromCents(obj.AmountTotal),
		AmountCents: obj.AmountTotal,
		Currency:    obj.Currency,
		Metadata:    meta,
		Raw:         raw,
	}, nil
}

func cardGatewayStatus(eventType string) domain.Status {
	switch eventType {
	case evCheckoutCompleted, evPaymentSucceeded:
		return domain.StatusSuccess
	case evPaymentFailed:
		return domain.StatusFailed
	case evCheckoutExpired, evPaymentCanceled:
		return domain.StatusCanceled
	default:
		return domain.StatusPending
	}
}

// deriveFeature picks the owning handler from event metadata: an order id
// means a marketplace purchase, a course id a course enrollment, and a
// plan/user-only payload a platform subscription.
func deriveFeature(meta map[string]string) domain.Feature {
	switch {
	case meta["order_id"] != "":
		return domain.FeatureMarketplace
	case meta["course_id"] != "":
		return domain.FeatureCourse
	case meta["plan"] != "" || meta["user_id"] != "":
		return domain.FeatureSubscription
	default:
		return ""
	}
}
