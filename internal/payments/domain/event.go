package domain

// Status is the canonical payment outcome, shared by every rail.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusPending  Status = "pending"
	StatusCanceled Status = "canceled"
)

// Feature selects which handler owns an event.
type Feature string

const (
	FeatureMarketplace  Feature = "marketplace"
	FeatureSubscription Feature = "subscription"
	FeatureCourse       Feature = "course"
)

// PaymentEvent is the rail-agnostic representation of a payment outcome.
// It is ephemeral: built by an adapter, consumed by the dispatcher, never
// persisted. Raw keeps the rail payload for audit logging.
type PaymentEvent struct {
	Provider    string
	Status      Status
	Feature     Feature
	Reference   string
	Amount      float64
	AmountCents int64
	Currency    string
	Metadata    map[string]string
	Raw         []byte
}

// Meta returns a metadata value, empty when absent.
func (e PaymentEvent) Meta(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// OrderID is the marketplace order referenced by the event, if any.
func (e PaymentEvent) OrderID() string { return e.Meta("order_id") }
