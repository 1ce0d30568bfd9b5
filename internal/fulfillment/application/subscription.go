package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
	paydomain "github.com/avirek21/Marketplace-Fulfillment-System/internal/payments/domain"
)

// SubscriptionHandler applies payment outcomes to the platform's paid
// subscription feature. Idempotent on the event's stable reference.
type SubscriptionHandler struct {
	log  *slog.Logger
	subs SubscriptionRepository
}

func NewSubscriptionHandler(log *slog.Logger, subs SubscriptionRepository) *SubscriptionHandler {
	return &SubscriptionHandler{log: log, subs: subs}
}

func (h *SubscriptionHandler) Handle(ctx context.Context, ev paydomain.PaymentEvent) error {
	userID := ev.Meta("user_id")
	plan := ev.Meta("plan")
	if userID == "" {
		h.log.Warn("subscription event without user id", "provider", ev.Provider, "reference", ev.Reference)
		return nil
	}

	switch ev.Status {
	case paydomain.StatusSuccess:
		unit := domain.IntervalMonth
		if ev.Meta("interval") == string(domain.IntervalYear) {
			unit = domain.IntervalYear
		}
		periodEnd := domain.AddInterval(time.Now().UTC(), 1, unit)

		applied, err := h.subs.RecordPayment(ctx, userID, plan, ev.Reference, periodEnd)
		if err != nil {
			return err
		}
		if !applied {
			h.log.Info("duplicate subscription payment", "user_id", userID, "reference", ev.Reference)
			return nil
		}
		h.log.Info("subscription period recorded", "user_id", userID, "plan", plan, "period_end", periodEnd)
		return nil
	case paydomain.StatusFailed, paydomain.StatusCanceled:
		if err := h.subs.RecordFailure(ctx, userID, plan, ev.Reference, string(ev.Status)); err != nil {
			return err
		}
		return nil
	default:
		return nil
	}
}
