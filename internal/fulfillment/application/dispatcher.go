package application

import (
	"context"
	"log/slog"

	paydomain "github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/domain"
)

// Handler owns the idempotent application of side effects for one feature.
type Handler interface {
	Handle(ctx context.Context, ev paydomain.PaymentEvent) error
}

// Dispatcher routes a canonical PaymentEvent to exactly one feature handler.
// It is the sole coupling point between the payment rails and the
// fulfillment core.
type Dispatcher struct {
	log      *slog.Logger
	handlers map[paydomain.Feature]Handler
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{log: log, handlers: map[paydomain.Feature]Handler{}}
}

func (d *Dispatcher) Register(feature paydomain.Feature, h Handler) {
	d.handlers[feature] = h
}

// Dispatch routes the event. An event with a missing or unknown feature is
// dropped with a warning and never treated as processed; only fatal handler
// errors propagate.
func (d *Dispatcher) Dispatch(ctx context.Context, ev paydomain.PaymentEvent) error {
	if ev.Feature == "" {
		d.log.Warn("unroutable payment event: no feature discriminator",
			"provider", ev.Provider, "reference", ev.Reference)
		return nil
	}
	h, ok := d.handlers[ev.Feature]
	if !ok {
		d.log.Warn("unroutable payment event: unknown feature",
			"feature", ev.Feature, "provider", ev.Provider, "reference", ev.Reference)
		return nil
	}
	return h.Handle(ctx, ev)
}
