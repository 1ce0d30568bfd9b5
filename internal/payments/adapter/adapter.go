// Package adapter normalizes rail-specific payloads into the canonical
// PaymentEvent. Adapters are pure: no storage, no network, payload in and
// event out, so each rail's mapping is unit-testable against fixtures.
package adapter

import (
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/domain"
)

type Adapter interface {
	Provider() string
	Normalize(raw []byte) (domain.PaymentEvent, error)
}
